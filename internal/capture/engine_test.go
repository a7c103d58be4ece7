package capture

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/photobox/internal/config"
	"github.com/nao1215/photobox/internal/model"
)

// TestParseWidth tests screen size parsing.
func TestParseWidth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		size    string
		want    int
		wantErr bool
	}{
		{"800", 800, false},
		{" 1000 ", 1000, false},
		{"0", 0, true},
		{"-320", 0, true},
		{"800x600", 0, true},
		{"wide", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run("size "+tt.size, func(t *testing.T) {
			t.Parallel()

			got, err := ParseWidth(tt.size)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidWidth) {
					t.Errorf("expected ErrInvalidWidth, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseWidth(%q) = %d, want %d", tt.size, got, tt.want)
			}
		})
	}
}

// TestLaunchFlags tests the Chrome switches derived from capture options.
func TestLaunchFlags(t *testing.T) {
	t.Parallel()

	if got := launchFlags(config.CaptureOptions{}); len(got) != 0 {
		t.Errorf("expected no flags, got %v", got)
	}
	got := launchFlags(config.CaptureOptions{LocalToRemoteURLAccessEnabled: true})
	if len(got) != 1 || got[0] != allowFileAccessFlag {
		t.Errorf("expected file access flag, got %v", got)
	}
}

// TestEngineRunRejectsBadInput tests argument validation that happens
// before a browser is started.
func TestEngineRunRejectsBadInput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	optionsFile := filepath.Join(dir, "options.json")
	if err := config.WriteCaptureOptions(optionsFile, config.CaptureOptions{UserAgent: "Photobox"}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name        string
		descriptor  string
		optionsFile string
		wantErr     error
	}{
		{"descriptor without size", "http://a.test", optionsFile, model.ErrInvalidDescriptor},
		{"legacy size syntax", "http://a.test#800x600", optionsFile, ErrInvalidWidth},
		{"missing options file", "http://a.test#800", filepath.Join(dir, "missing.json"), os.ErrNotExist},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewEngine().Run(context.Background(), tt.descriptor, dir, tt.optionsFile)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

type fakeRouter struct {
	stopped int
	err     error
}

func (r *fakeRouter) Stop() error {
	r.stopped++
	return r.err
}

func newDebugEngine(buf *bytes.Buffer) *Engine {
	return NewEngine(WithLogger(slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))))
}

// TestEngineStopRouter tests that the image-blocking router is stopped and
// stop errors are logged.
func TestEngineStopRouter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	e := newDebugEngine(&buf)

	router := &fakeRouter{}
	e.stopRouter(router)
	if router.stopped != 1 {
		t.Errorf("Stop called %d times, want 1", router.stopped)
	}
	if buf.Len() != 0 {
		t.Errorf("unexpected log output: %s", buf.String())
	}

	e.stopRouter(&fakeRouter{err: errors.New("router closed")})
	if !strings.Contains(buf.String(), "router closed") {
		t.Errorf("expected stop error in log, got %q", buf.String())
	}
}

// TestEngineAwaitAuth tests that basic auth failures reach the debug log.
func TestEngineAwaitAuth(t *testing.T) {
	t.Parallel()

	t.Run("logs the auth error", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		newDebugEngine(&buf).awaitAuth(func() error { return errors.New("credentials rejected") })
		if !strings.Contains(buf.String(), "credentials rejected") {
			t.Errorf("expected auth error in log, got %q", buf.String())
		}
	})

	t.Run("stays quiet on success", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		newDebugEngine(&buf).awaitAuth(func() error { return nil })
		if buf.Len() != 0 {
			t.Errorf("unexpected log output: %s", buf.String())
		}
	})
}
