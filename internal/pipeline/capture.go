package pipeline

import (
	"context"
	"log/slog"
	"slices"

	"github.com/nao1215/photobox/internal/model"
	"github.com/nao1215/photobox/internal/process"
	"github.com/nao1215/photobox/internal/workspace"
)

// CaptureSink receives capture outcomes. It is called from pool goroutines
// and must be safe for concurrent use.
type CaptureSink func(model.CaptureOutcome)

// CaptureDispatcher starts one capture collaborator process per target:
//
//	<command...> <url#size> <indexPath> <optionsFile>
//
// The collaborator writes img/current/<slug>.png and exits zero on success.
type CaptureDispatcher struct {
	runner  process.Runner
	command []string
	layout  workspace.Layout
	pool    *Pool
	logger  *slog.Logger
}

// NewCaptureDispatcher creates a capture dispatcher. command is the
// collaborator program followed by any fixed leading arguments.
func NewCaptureDispatcher(runner process.Runner, command []string, layout workspace.Layout, pool *Pool, logger *slog.Logger) *CaptureDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &CaptureDispatcher{
		runner:  runner,
		command: slices.Clone(command),
		layout:  layout,
		pool:    pool,
		logger:  logger,
	}
}

// Dispatch starts a capture for every target and returns immediately.
// Exactly one outcome per target reaches sink, in completion order. The
// returned channel is closed once every outcome has been delivered.
func (d *CaptureDispatcher) Dispatch(ctx context.Context, targets []model.Target, sink CaptureSink) <-chan struct{} {
	done := make(chan struct{})
	targets = slices.Clone(targets)

	go func() {
		defer close(done)
		d.pool.Run(ctx, "capture", len(targets),
			func(ctx context.Context, i int) error {
				return d.capture(ctx, targets[i])
			},
			func(i int, err error) {
				sink(d.outcome(targets[i], err))
			},
		)
	}()
	return done
}

func (d *CaptureDispatcher) capture(ctx context.Context, target model.Target) error {
	if len(d.command) == 0 {
		return process.ErrEmptyCommand
	}
	args := make([]string, 0, len(d.command)+2)
	args = append(args, d.command[1:]...)
	args = append(args, target.Descriptor(), d.layout.Root(), d.layout.OptionsFile())

	d.logger.Debug("starting capture",
		"phase", model.PhaseCapturing,
		"url", target.URL,
		"size", target.Size,
	)
	_, err := d.runner.Run(ctx, d.command[0], args...)
	return err
}

func (d *CaptureDispatcher) outcome(target model.Target, err error) model.CaptureOutcome {
	if err != nil {
		d.logger.Warn("capture failed",
			"phase", model.PhaseCapturing,
			"url", target.URL,
			"size", target.Size,
			"slug", target.Slug(),
			"error", err,
		)
		return model.CaptureOutcome{Target: target, ErrorDetail: err.Error()}
	}
	return model.CaptureOutcome{Target: target, Succeeded: true}
}
