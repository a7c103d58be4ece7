package console

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/nao1215/photobox/internal/model"
)

// Styles holds the lipgloss styles of the console output.
type Styles struct {
	Banner  lipgloss.Style
	Success lipgloss.Style
	Info    lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Key     lipgloss.Style
	Path    lipgloss.Style
}

// DefaultStyles returns the colored styles used on terminals.
func DefaultStyles() Styles {
	return Styles{
		Banner:  lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		Info:    lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Key:     lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Path:    lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Italic(true),
	}
}

// PlainStyles returns styles that render text unchanged.
func PlainStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Banner:  plain,
		Success: plain,
		Info:    plain,
		Warning: plain,
		Error:   plain,
		Key:     plain,
		Path:    plain,
	}
}

// Printer writes the user-facing progress of a session.
type Printer struct {
	w      io.Writer
	styles Styles
}

// New creates a printer writing to w. Colors are used only when w is a
// terminal.
func New(w io.Writer) *Printer {
	styles := PlainStyles()
	if isTerminal(w) {
		styles = DefaultStyles()
	}
	return &Printer{w: w, styles: styles}
}

// NewWithStyles creates a printer with explicit styles.
func NewWithStyles(w io.Writer, styles Styles) *Printer {
	return &Printer{w: w, styles: styles}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Banner prints a phase heading.
func (p *Printer) Banner(format string, args ...any) {
	fmt.Fprintf(p.w, "\n%s\n", p.styles.Banner.Render("==> "+fmt.Sprintf(format, args...)))
}

// Info prints an informational line.
func (p *Printer) Info(format string, args ...any) {
	fmt.Fprintf(p.w, "%s\n", p.styles.Info.Render(fmt.Sprintf(format, args...)))
}

// Success prints a line with a check mark.
func (p *Printer) Success(format string, args ...any) {
	fmt.Fprintf(p.w, "%s %s\n", p.styles.Success.Render("✓"), fmt.Sprintf(format, args...))
}

// Warn prints a warning line.
func (p *Printer) Warn(format string, args ...any) {
	fmt.Fprintf(p.w, "%s %s\n", p.styles.Warning.Render("!"), p.styles.Warning.Render(fmt.Sprintf(format, args...)))
}

// Fail prints a failure line.
func (p *Printer) Fail(format string, args ...any) {
	fmt.Fprintf(p.w, "%s %s\n", p.styles.Error.Render("✗"), fmt.Sprintf(format, args...))
}

// KeyValue prints an aligned key and value.
func (p *Printer) KeyValue(key, value string) {
	fmt.Fprintf(p.w, "  %s %s\n", p.styles.Key.Render(fmt.Sprintf("%-16s", key+":")), value)
}

// Path prints a labelled file path.
func (p *Printer) Path(label, path string) {
	fmt.Fprintf(p.w, "  %s %s\n", p.styles.Key.Render(fmt.Sprintf("%-16s", label+":")), p.styles.Path.Render(path))
}

// CaptureOutcome prints one capture result.
func (p *Printer) CaptureOutcome(o model.CaptureOutcome) {
	if o.Succeeded {
		p.Success("captured %s", o.Target)
		return
	}
	p.Fail("capture of %s failed: %s", o.Target, o.ErrorDetail)
}

// DiffOutcome prints one diff result.
func (p *Printer) DiffOutcome(o model.DiffOutcome) {
	switch {
	case o.Succeeded:
		p.Success("diffed %s", o.Target)
	case o.NoPriorCapture():
		p.Info("  %s: no prior capture", o.Target)
	case o.InBrowser():
		p.Info("  %s: diffed in the report page", o.Target)
	case o.CaptureFailed():
		p.Info("  %s: not diffed, capture failed", o.Target)
	default:
		p.Fail("diff of %s failed: %s", o.Target, o.ErrorDetail)
	}
}
