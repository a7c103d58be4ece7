package pipeline

import (
	"context"
	"log/slog"
	"os"
	"slices"

	"github.com/nao1215/photobox/internal/model"
	"github.com/nao1215/photobox/internal/process"
	"github.com/nao1215/photobox/internal/workspace"
)

// DiffSink receives diff outcomes. It is called from several goroutines
// and must be safe for concurrent use.
type DiffSink func(model.DiffOutcome)

// DiffDispatcher produces one diff outcome per target.
//
// Targets whose capture failed resolve at once as "capture failed", and
// targets missing either image as "no prior capture". The others run the two-stage pipeline (raw difference, then negate)
// inside the pool. In browser mode no process is spawned and every target
// resolves as diffed in the browser.
type DiffDispatcher struct {
	runner    process.Runner
	composite string
	convert   string
	inBrowser bool
	failed    map[model.Target]bool
	layout    workspace.Layout
	pool      *Pool
	logger    *slog.Logger
	exists    func(path string) bool
}

// DiffOption configures a DiffDispatcher.
type DiffOption func(*DiffDispatcher)

// WithDiffCommands sets the stage one and stage two programs.
func WithDiffCommands(composite, convert string) DiffOption {
	return func(d *DiffDispatcher) {
		d.composite = composite
		d.convert = convert
	}
}

// WithInBrowserDiff delegates every diff to the report page.
func WithInBrowserDiff(inBrowser bool) DiffOption {
	return func(d *DiffDispatcher) {
		d.inBrowser = inBrowser
	}
}

// WithCaptureOutcomes marks the targets whose capture failed. Their
// current image, if any, is left over from an earlier session.
func WithCaptureOutcomes(outcomes []model.CaptureOutcome) DiffOption {
	return func(d *DiffDispatcher) {
		for _, o := range outcomes {
			if !o.Succeeded {
				d.failed[o.Target] = true
			}
		}
	}
}

// WithDiffLogger sets a custom logger.
func WithDiffLogger(logger *slog.Logger) DiffOption {
	return func(d *DiffDispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDiffDispatcher creates a diff dispatcher using ImageMagick's
// composite and convert unless WithDiffCommands says otherwise.
func NewDiffDispatcher(runner process.Runner, layout workspace.Layout, pool *Pool, opts ...DiffOption) *DiffDispatcher {
	d := &DiffDispatcher{
		runner:    runner,
		composite: "composite",
		convert:   "convert",
		layout:    layout,
		failed:    make(map[model.Target]bool),
		pool:      pool,
		logger:    slog.Default(),
		exists:    fileExists,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch starts the diff of every target and returns immediately.
// Exactly one outcome per target reaches sink. The returned channel is
// closed once every outcome has been delivered.
func (d *DiffDispatcher) Dispatch(ctx context.Context, targets []model.Target, sink DiffSink) <-chan struct{} {
	done := make(chan struct{})
	targets = slices.Clone(targets)

	go func() {
		defer close(done)

		jobs := make([]*model.DiffJob, 0, len(targets))
		for _, target := range targets {
			if d.failed[target] {
				sink(model.DiffOutcome{Target: target, ErrorDetail: model.DetailCaptureFailed})
				continue
			}
			if d.inBrowser {
				sink(model.DiffOutcome{Target: target, ErrorDetail: model.DetailInBrowser})
				continue
			}
			job := d.layout.DiffJob(target)
			if !d.exists(job.LastImage) || !d.exists(job.CurrentImage) {
				d.logger.Info("no prior capture to diff against",
					"phase", model.PhaseDiffing,
					"url", target.URL,
					"size", target.Size,
					"slug", job.Slug,
				)
				sink(model.DiffOutcome{Target: target, ErrorDetail: model.DetailNoPriorCapture})
				continue
			}
			jobs = append(jobs, job)
		}

		d.pool.Run(ctx, "diff", len(jobs),
			func(ctx context.Context, i int) error {
				return d.newPipeline().Execute(ctx, jobs[i])
			},
			func(i int, err error) {
				sink(d.outcome(jobs[i], err))
			},
		)
	}()
	return done
}

func (d *DiffDispatcher) newPipeline() *Pipeline {
	p := New(WithLogger(d.logger))
	p.AddSteps(
		NewRawDiffStep(d.runner, d.composite),
		NewNegateStep(d.runner, d.convert),
	)
	return p
}

func (d *DiffDispatcher) outcome(job *model.DiffJob, err error) model.DiffOutcome {
	if err != nil {
		d.logger.Warn("diff failed",
			"phase", model.PhaseDiffing,
			"url", job.Target.URL,
			"size", job.Target.Size,
			"slug", job.Slug,
			"completed_stages", job.CompletedStages,
			"error", err,
		)
		return model.DiffOutcome{Target: job.Target, ErrorDetail: err.Error()}
	}
	return model.DiffOutcome{Target: job.Target, Succeeded: true}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
