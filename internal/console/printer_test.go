package console

import (
	"bytes"
	"strings"
	"testing"

	"github.com/nao1215/photobox/internal/model"
)

// TestPrinter tests console output.
func TestPrinter(t *testing.T) {
	t.Parallel()

	target := model.Target{URL: "http://a.test", Size: "800"}

	tests := []struct {
		name  string
		print func(p *Printer)
		want  []string
	}{
		{
			name:  "banner",
			print: func(p *Printer) { p.Banner("Capturing %d targets", 2) },
			want:  []string{"==> Capturing 2 targets"},
		},
		{
			name:  "successful capture",
			print: func(p *Printer) { p.CaptureOutcome(model.CaptureOutcome{Target: target, Succeeded: true}) },
			want:  []string{"✓", "captured http://a.test#800"},
		},
		{
			name: "failed capture",
			print: func(p *Printer) {
				p.CaptureOutcome(model.CaptureOutcome{Target: target, ErrorDetail: "exit status 1"})
			},
			want: []string{"✗", "exit status 1"},
		},
		{
			name: "first run diff",
			print: func(p *Printer) {
				p.DiffOutcome(model.DiffOutcome{Target: target, ErrorDetail: model.DetailNoPriorCapture})
			},
			want: []string{"no prior capture"},
		},
		{
			name: "in-browser diff",
			print: func(p *Printer) {
				p.DiffOutcome(model.DiffOutcome{Target: target, ErrorDetail: model.DetailInBrowser})
			},
			want: []string{"diffed in the report page"},
		},
		{
			name:  "key value",
			print: func(p *Printer) { p.Path("report", "photobox/index.html") },
			want:  []string{"report:", "photobox/index.html"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			tt.print(New(&buf))

			output := buf.String()
			for _, want := range tt.want {
				if !strings.Contains(output, want) {
					t.Errorf("output %q should contain %q", output, want)
				}
			}
			if strings.Contains(output, "\x1b[") {
				t.Errorf("expected no escape codes when not writing to a terminal: %q", output)
			}
		})
	}
}
