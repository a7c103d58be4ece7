package report

import (
	"fmt"
	"os"
	"time"

	"github.com/nao1215/photobox/internal/model"
	"github.com/nao1215/photobox/internal/workspace"
)

// Builder assembles the report model of a finished session and writes
// index.html.
type Builder struct {
	renderer Renderer
	layout   workspace.Layout
	template string
	options  map[string]any
}

// NewBuilder creates a builder that renders template into layout's index
// file. options are exposed to the template as-is and must not carry
// credentials.
func NewBuilder(renderer Renderer, layout workspace.Layout, template string, options map[string]any) *Builder {
	return &Builder{
		renderer: renderer,
		layout:   layout,
		template: template,
		options:  options,
	}
}

// Build assembles the report model. Targets are grouped by URL in order of
// first occurrence.
func (b *Builder) Build(targets []model.Target, captures []model.CaptureOutcome, diffs []model.DiffOutcome, timestamps model.TimestampPair, now time.Time) *model.ReportModel {
	return &model.ReportModel{
		Now:        now,
		Template:   b.template,
		Options:    b.options,
		Groups:     model.GroupTargets(targets, captures, diffs),
		Timestamps: timestamps,
		Captures:   captures,
		Diffs:      diffs,
	}
}

// Write renders m and replaces the index file. It returns the file path.
func (b *Builder) Write(m *model.ReportModel) (string, error) {
	html, err := b.renderer.Render(b.template, m)
	if err != nil {
		return "", err
	}

	path := b.layout.IndexFile()
	if err := os.WriteFile(path, []byte(html), 0600); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}
