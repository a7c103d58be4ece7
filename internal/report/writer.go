package report

import (
	"io"

	"github.com/nao1215/photobox/internal/model"
)

// Writer writes a report model in a secondary format next to the HTML
// report, or to the terminal.
type Writer interface {
	// Write outputs the report and returns the number of bytes written.
	Write(m *model.ReportModel) (int, error)
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

var (
	_ Writer = (*JSONWriter)(nil)
	_ Writer = (*VersionedJSONWriter)(nil)
	_ Writer = (*MarkdownWriter)(nil)
)
