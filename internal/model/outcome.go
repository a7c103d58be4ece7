package model

// Diff outcome details that are not tool failures.
const (
	// DetailNoPriorCapture marks a target without a last or current image.
	// This is the normal state on a first run.
	DetailNoPriorCapture = "no prior capture"

	// DetailInBrowser marks a target whose diff is computed by the report
	// page itself (canvas template).
	DetailInBrowser = "diffed in browser"

	// DetailCaptureFailed marks a target whose capture failed this session.
	// img/current may still hold an older image of it, which is never diffed.
	DetailCaptureFailed = "capture failed"
)

// Phase is the stage a session is in. Transitions only move forward:
// Capturing, then Diffing, then Reporting.
type Phase int

const (
	// PhaseCapturing is active while screenshots are being taken.
	PhaseCapturing Phase = iota

	// PhaseDiffing is active while current and last captures are compared.
	PhaseDiffing

	// PhaseReporting is entered once every diff has resolved.
	PhaseReporting
)

// String returns the lower-case phase name used in logs.
func (p Phase) String() string {
	switch p {
	case PhaseCapturing:
		return "capturing"
	case PhaseDiffing:
		return "diffing"
	case PhaseReporting:
		return "reporting"
	default:
		return "unknown"
	}
}

// CaptureOutcome is the result of one capture invocation.
type CaptureOutcome struct {
	Target      Target `json:"target"`
	Succeeded   bool   `json:"succeeded"`
	ErrorDetail string `json:"error_detail,omitempty"`
}

// DiffOutcome is the result of one target's diff pipeline.
type DiffOutcome struct {
	Target      Target `json:"target"`
	Succeeded   bool   `json:"succeeded"`
	ErrorDetail string `json:"error_detail,omitempty"`
}

// NoPriorCapture reports whether the diff was skipped because one of the
// two images did not exist.
func (o DiffOutcome) NoPriorCapture() bool {
	return !o.Succeeded && o.ErrorDetail == DetailNoPriorCapture
}

// InBrowser reports whether the diff was delegated to the report page.
func (o DiffOutcome) InBrowser() bool {
	return !o.Succeeded && o.ErrorDetail == DetailInBrowser
}

// CaptureFailed reports whether the diff was skipped because this
// session's capture of the target failed.
func (o DiffOutcome) CaptureFailed() bool {
	return !o.Succeeded && o.ErrorDetail == DetailCaptureFailed
}

// Failed reports whether the diff tool itself failed for this target.
func (o DiffOutcome) Failed() bool {
	return !o.Succeeded && !o.NoPriorCapture() && !o.InBrowser() && !o.CaptureFailed()
}
