package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/photobox/internal/model"
)

// JSONWriter outputs reports in JSON format for scripts and CI jobs.
type JSONWriter struct {
	baseWriter

	indent       bool
	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with two-space indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// JSONReport wraps the report model with its outcome counts.
type JSONReport struct {
	Version        string             `json:"version"`
	Report         *model.ReportModel `json:"report"`
	Targets        int                `json:"targets"`
	Diffs          int                `json:"diffs"`
	FailedCaptures int                `json:"failed_captures"`
	FailedDiffs    int                `json:"failed_diffs"`
}

// NewJSONReport creates a JSONReport for m.
func NewJSONReport(m *model.ReportModel, version string) *JSONReport {
	targets := 0
	for _, g := range m.Groups {
		targets += len(g.Sizes)
	}
	return &JSONReport{
		Version:        version,
		Report:         m,
		Targets:        targets,
		Diffs:          m.DiffCount(),
		FailedCaptures: m.FailedCaptures(),
		FailedDiffs:    m.FailedDiffs(),
	}
}

// VersionedJSONWriter writes reports wrapped with the photobox version.
type VersionedJSONWriter struct {
	*JSONWriter
	version string
}

// NewVersionedJSONWriter creates a writer that wraps reports in JSONReport.
func NewVersionedJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *VersionedJSONWriter {
	return &VersionedJSONWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
	}
}

// Write implements Writer.
func (w *VersionedJSONWriter) Write(m *model.ReportModel) (int, error) {
	return w.WriteValue(NewJSONReport(m, w.version))
}

// Write implements Writer.
func (w *JSONWriter) Write(m *model.ReportModel) (int, error) {
	return w.WriteValue(m)
}

// WriteValue marshals v and writes it followed by a newline.
func (w *JSONWriter) WriteValue(v any) (int, error) {
	var data []byte
	var err error
	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	data = append(data, '\n')
	return w.output.Write(data)
}
