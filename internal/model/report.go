package model

import "time"

// TimestampNotAvailable replaces a missing or unreadable session timestamp.
const TimestampNotAvailable = "Not available"

// TimestampPair holds the human-readable start times of the current and
// the last capture sessions.
type TimestampPair struct {
	Current string `json:"current"`
	Last    string `json:"last"`
}

// SizeEntry is one captured size of a URL in the report.
type SizeEntry struct {
	Size string `json:"size"`
	Slug string `json:"slug"`

	// Captured is false when the capture collaborator failed.
	Captured bool `json:"captured"`

	// HasDiff is true when a final diff image was produced.
	HasDiff bool `json:"has_diff"`

	// Detail holds the capture or diff failure message, if any.
	Detail string `json:"detail,omitempty"`
}

// URLGroup collects the sizes of one URL.
type URLGroup struct {
	URL   string      `json:"url"`
	Sizes []SizeEntry `json:"sizes"`
}

// ReportModel is the sole input of the template renderer.
type ReportModel struct {
	Now        time.Time        `json:"now"`
	Template   string           `json:"template"`
	Options    map[string]any   `json:"options"`
	Groups     []URLGroup       `json:"groups"`
	Timestamps TimestampPair    `json:"timestamps"`
	Captures   []CaptureOutcome `json:"-"`
	Diffs      []DiffOutcome    `json:"-"`
}

// DiffCount returns the number of targets with a final diff image.
func (m *ReportModel) DiffCount() int {
	n := 0
	for _, g := range m.Groups {
		for _, s := range g.Sizes {
			if s.HasDiff {
				n++
			}
		}
	}
	return n
}

// FailedCaptures returns the number of targets whose capture failed.
func (m *ReportModel) FailedCaptures() int {
	n := 0
	for _, c := range m.Captures {
		if !c.Succeeded {
			n++
		}
	}
	return n
}

// FailedDiffs returns the number of targets whose diff tool failed.
// Targets without a prior capture are not counted.
func (m *ReportModel) FailedDiffs() int {
	n := 0
	for _, d := range m.Diffs {
		if d.Failed() {
			n++
		}
	}
	return n
}

// GroupTargets groups targets by URL in order of first occurrence, keeping
// the configured size order inside each group. Outcomes are looked up by
// target; a target with no recorded outcome is reported as not captured.
func GroupTargets(targets []Target, captures []CaptureOutcome, diffs []DiffOutcome) []URLGroup {
	captureByTarget := make(map[Target]CaptureOutcome, len(captures))
	for _, c := range captures {
		captureByTarget[c.Target] = c
	}
	diffByTarget := make(map[Target]DiffOutcome, len(diffs))
	for _, d := range diffs {
		diffByTarget[d.Target] = d
	}

	groups := make([]URLGroup, 0)
	index := make(map[string]int)
	for _, t := range targets {
		i, ok := index[t.URL]
		if !ok {
			i = len(groups)
			index[t.URL] = i
			groups = append(groups, URLGroup{URL: t.URL})
		}

		entry := SizeEntry{Size: t.Size, Slug: t.Slug()}
		if c, ok := captureByTarget[t]; ok {
			entry.Captured = c.Succeeded
			if !c.Succeeded {
				entry.Detail = c.ErrorDetail
			}
		}
		if d, ok := diffByTarget[t]; ok {
			entry.HasDiff = d.Succeeded
			if d.Failed() && entry.Detail == "" {
				entry.Detail = d.ErrorDetail
			}
		}
		groups[i].Sizes = append(groups[i].Sizes, entry)
	}
	return groups
}
