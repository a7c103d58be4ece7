package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ErrEmptyCommand is returned when Run is called without a program name.
var ErrEmptyCommand = errors.New("empty command")

// maxOutputInError bounds the command output copied into an error message.
const maxOutputInError = 512

// Runner runs an external program to completion.
//
// Implementations must be safe for concurrent use; the dispatch pool calls
// Run from several goroutines.
type Runner interface {
	// Run executes name with args and returns the combined stdout and
	// stderr. A non-zero exit status is reported as an error that carries
	// the trimmed output.
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner is the production Runner backed by os/exec.
type ExecRunner struct {
	timeout time.Duration
	dir     string
}

// Option configures an ExecRunner.
type Option func(*ExecRunner)

// WithTimeout bounds every invocation. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(r *ExecRunner) {
		if d >= 0 {
			r.timeout = d
		}
	}
}

// WithDir sets the working directory of every invocation.
func WithDir(dir string) Option {
	return func(r *ExecRunner) {
		r.dir = dir
	}
}

// NewExecRunner creates an ExecRunner.
func NewExecRunner(opts ...Option) *ExecRunner {
	r := &ExecRunner{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if name == "" {
		return nil, ErrEmptyCommand
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec // commands come from the user's configuration
	cmd.Dir = r.dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return out.Bytes(), fmt.Errorf("%s: %w", name, ctxErr)
		}
		if detail := summarize(out.Bytes()); detail != "" {
			return out.Bytes(), fmt.Errorf("%s: %w: %s", name, err, detail)
		}
		return out.Bytes(), fmt.Errorf("%s: %w", name, err)
	}
	return out.Bytes(), nil
}

// summarize trims output for use in an error message.
func summarize(output []byte) string {
	s := strings.TrimSpace(string(output))
	if len(s) > maxOutputInError {
		s = s[:maxOutputInError] + "..."
	}
	return s
}

// FuncRunner adapts a function to the Runner interface.
type FuncRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Run implements Runner.
func (f FuncRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return f(ctx, name, args...)
}
