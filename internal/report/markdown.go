package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/photobox/internal/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MarkdownWriter writes a session summary in Markdown, suitable for a pull
// request comment or a CI job summary.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write implements Writer.
func (w *MarkdownWriter) Write(m *model.ReportModel) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, m)
	w.writeSummary(md, m)
	w.writeTargets(md, m)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, m *model.ReportModel) {
	md.H1("photobox session")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Current session", m.Timestamps.Current},
			{"Last session", m.Timestamps.Last},
			{"Template", cases.Title(language.English).String(m.Template)},
			{"Generated", m.Now.Format("2006-01-02 15:04:05 MST")},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, m *model.ReportModel) {
	total := 0
	for _, g := range m.Groups {
		total += len(g.Sizes)
	}
	failedCaptures := m.FailedCaptures()
	failedDiffs := m.FailedDiffs()
	diffs := m.DiffCount()

	md.H2("Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Count"},
		Rows: [][]string{
			{"Targets", strconv.Itoa(total)},
			{"Captured", strconv.Itoa(total - failedCaptures)},
			{"Failed captures", strconv.Itoa(failedCaptures)},
			{"Diff images", strconv.Itoa(diffs)},
			{"Failed diffs", strconv.Itoa(failedDiffs)},
		},
	})
	md.PlainText("")

	if total > 0 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Capture outcomes"),
			piechart.WithShowData(true),
		)
		if ok := total - failedCaptures; ok > 0 {
			chart.LabelAndIntValue("Captured", uint64(ok))
		}
		if failedCaptures > 0 {
			chart.LabelAndIntValue("Failed", uint64(failedCaptures))
		}
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}

	switch {
	case failedCaptures > 0:
		md.Cautionf("%d capture(s) failed. Their report entries have no current image.", failedCaptures)
	case failedDiffs > 0:
		md.Warningf("%d diff(s) failed. Check that ImageMagick is installed.", failedDiffs)
	case diffs == 0:
		md.Note("No difference images yet. Run photobox again to compare against this session.")
	default:
		md.Tip("All captures and diffs completed.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeTargets(md *markdown.Markdown, m *model.ReportModel) {
	md.H2("Targets")
	md.PlainText("")

	for _, g := range m.Groups {
		md.H3(g.URL)
		md.PlainText("")

		rows := make([][]string, len(g.Sizes))
		for i, s := range g.Sizes {
			rows[i] = []string{
				s.Size,
				status(s.Captured),
				status(s.HasDiff),
				truncateString(orDash(s.Detail), 80),
			}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Size", "Captured", "Diff", "Detail"},
			Rows:   rows,
		})
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Open index.html for the screenshots.*")
}

func status(ok bool) string {
	if ok {
		return "✅"
	}
	return "❌"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
