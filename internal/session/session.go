package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/nao1215/photobox/internal/config"
	"github.com/nao1215/photobox/internal/console"
	"github.com/nao1215/photobox/internal/database"
	"github.com/nao1215/photobox/internal/model"
	"github.com/nao1215/photobox/internal/pipeline"
	"github.com/nao1215/photobox/internal/process"
	"github.com/nao1215/photobox/internal/report"
	"github.com/nao1215/photobox/internal/workspace"
)

// ErrIncompletePhase is returned when a dispatcher finished without every
// target of the phase being recorded.
var ErrIncompletePhase = errors.New("phase finished with unrecorded targets")

// HistoryRecorder stores finished sessions. *database.HistoryDB implements it.
type HistoryRecorder interface {
	RecordSession(ctx context.Context, rec *database.SessionRecord) (int64, error)
}

// Result summarizes a finished session.
type Result struct {
	Targets          int
	FailedCaptures   int
	Diffs            int
	FailedDiffs      int
	ArchivedPrevious bool

	// ReportPath is the written index.html.
	ReportPath string

	// SummaryPath is the written summary.md, empty when disabled.
	SummaryPath string

	// HistoryID is the history row of this session, 0 when not recorded.
	HistoryID int64

	Report *model.ReportModel
}

// Session runs one capture, diff and report cycle for a configuration.
type Session struct {
	cfg      *config.Config
	layout   workspace.Layout
	runner   process.Runner
	renderer report.Renderer
	printer  *console.Printer
	history  HistoryRecorder
	logger   *slog.Logger
	now      func() time.Time

	// mu serializes console output from concurrent sinks.
	mu sync.Mutex
}

// Option configures a Session.
type Option func(*Session)

// WithRunner sets the process runner used for the capture collaborator and
// the image processor.
func WithRunner(runner process.Runner) Option {
	return func(s *Session) {
		if runner != nil {
			s.runner = runner
		}
	}
}

// WithRenderer sets the report renderer.
func WithRenderer(renderer report.Renderer) Option {
	return func(s *Session) {
		if renderer != nil {
			s.renderer = renderer
		}
	}
}

// WithPrinter sets the console printer for progress output.
func WithPrinter(printer *console.Printer) Option {
	return func(s *Session) {
		if printer != nil {
			s.printer = printer
		}
	}
}

// WithHistory records finished sessions in recorder.
func WithHistory(recorder HistoryRecorder) Option {
	return func(s *Session) {
		s.history = recorder
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// New validates cfg and creates a session. Nothing touches the disk until
// Run is called.
func New(cfg *config.Config, opts ...Option) (*Session, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	s := &Session{
		cfg:     cfg,
		layout:  workspace.NewLayout(cfg.IndexPath),
		runner:  process.NewExecRunner(),
		printer: console.NewWithStyles(io.Discard, console.PlainStyles()),
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.renderer == nil {
		renderer, err := report.NewTemplateRenderer()
		if err != nil {
			return nil, err
		}
		s.renderer = renderer
	}
	return s, nil
}

// Layout returns the directory layout of the session.
func (s *Session) Layout() workspace.Layout {
	return s.layout
}

// Run executes the session:
//
//  1. prepare the index path and write the timestamp and options.json
//  2. capture every target, waiting until all captures resolved
//  3. diff every target, waiting until all diffs resolved
//  4. render index.html, then the optional summary and history row
//
// Per-target failures end up in the report. Setup and report write
// failures abort the session.
func (s *Session) Run(ctx context.Context) (*Result, error) {
	startedAt := s.now()

	targets, err := s.cfg.Targets()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate targets: %w", err)
	}

	prepared, err := workspace.Prepare(s.layout, s.logger)
	if err != nil {
		return nil, err
	}
	if _, err := workspace.WriteTimestamp(s.layout, startedAt); err != nil {
		return nil, err
	}
	if err := config.WriteCaptureOptions(s.layout.OptionsFile(), s.cfg.CaptureOptions()); err != nil {
		return nil, err
	}
	if !s.cfg.UsesExternalDiff() {
		if _, err := workspace.InstallCanvasAssets(s.layout); err != nil {
			return nil, err
		}
	}

	tracker, err := pipeline.NewTracker(targets, pipeline.WithTransitionHook(func(from, to model.Phase) {
		s.logger.Debug("phase transition", "from", from, "to", to)
	}))
	if err != nil {
		return nil, err
	}
	pool := pipeline.NewPool(
		pipeline.WithConcurrency(s.cfg.Concurrency),
		pipeline.WithPoolLogger(s.logger),
	)

	if err := s.capture(ctx, tracker, pool); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("session interrupted after capture: %w", err)
	}
	if err := s.diff(ctx, tracker, pool); err != nil {
		return nil, err
	}

	return s.finish(ctx, tracker, prepared, startedAt)
}

func (s *Session) capture(ctx context.Context, tracker *pipeline.Tracker, pool *pipeline.Pool) error {
	s.printer.Banner("Capturing %d targets", len(tracker.Targets()))

	dispatcher := pipeline.NewCaptureDispatcher(s.runner, s.cfg.CaptureCommand, s.layout, pool, s.logger)
	dispatched := dispatcher.Dispatch(ctx, tracker.Targets(), func(o model.CaptureOutcome) {
		if err := tracker.RecordCapture(o); err != nil {
			s.logger.Error("capture outcome rejected", "url", o.Target.URL, "size", o.Target.Size, "error", err)
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		s.printer.CaptureOutcome(o)
	})

	return awaitPhase(dispatched, tracker.CaptureDone(), model.PhaseCapturing)
}

func (s *Session) diff(ctx context.Context, tracker *pipeline.Tracker, pool *pipeline.Pool) error {
	if s.cfg.UsesExternalDiff() {
		s.printer.Banner("Diffing captures")
		s.printer.Info("ImageMagick (%s, %s) must be installed for the diff phase.",
			s.cfg.CompositeCommand, s.cfg.ConvertCommand)
	} else {
		s.printer.Banner("Diffs are computed by the report page")
	}

	dispatcher := pipeline.NewDiffDispatcher(s.runner, s.layout, pool,
		pipeline.WithDiffCommands(s.cfg.CompositeCommand, s.cfg.ConvertCommand),
		pipeline.WithInBrowserDiff(!s.cfg.UsesExternalDiff()),
		pipeline.WithCaptureOutcomes(tracker.CaptureOutcomes()),
		pipeline.WithDiffLogger(s.logger),
	)
	dispatched := dispatcher.Dispatch(ctx, tracker.Targets(), func(o model.DiffOutcome) {
		if err := tracker.RecordDiff(o); err != nil {
			s.logger.Error("diff outcome rejected", "url", o.Target.URL, "size", o.Target.Size, "error", err)
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		s.printer.DiffOutcome(o)
	})

	return awaitPhase(dispatched, tracker.DiffDone(), model.PhaseDiffing)
}

// awaitPhase waits until the dispatcher delivered every outcome and checks
// that the tracker left the phase.
func awaitPhase(dispatched, phaseDone <-chan struct{}, phase model.Phase) error {
	select {
	case <-phaseDone:
		<-dispatched
		return nil
	case <-dispatched:
	}
	select {
	case <-phaseDone:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrIncompletePhase, phase)
	}
}

func (s *Session) finish(ctx context.Context, tracker *pipeline.Tracker, prepared workspace.PrepareResult, startedAt time.Time) (*Result, error) {
	timestamps := workspace.ReadTimestamps(s.layout, s.logger)

	builder := report.NewBuilder(s.renderer, s.layout, s.cfg.Template.Name, s.cfg.ReportOptions())
	m := builder.Build(tracker.Targets(), tracker.CaptureOutcomes(), tracker.DiffOutcomes(), timestamps, s.now())
	reportPath, err := builder.Write(m)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Targets:          len(tracker.Targets()),
		FailedCaptures:   m.FailedCaptures(),
		Diffs:            m.DiffCount(),
		FailedDiffs:      m.FailedDiffs(),
		ArchivedPrevious: prepared.ArchivedPrevious,
		ReportPath:       reportPath,
		Report:           m,
	}

	if s.cfg.MarkdownSummary {
		path, err := s.writeSummary(m)
		if err != nil {
			return nil, err
		}
		result.SummaryPath = path
	}

	if s.history != nil {
		rec := database.NewSessionRecord(m, s.layout.Root(), reportPath, startedAt, s.now())
		id, err := s.history.RecordSession(ctx, rec)
		if err != nil {
			// The report is already on disk.
			s.logger.Warn("failed to record session history", "error", err)
			s.printer.Warn("session history not recorded: %v", err)
		} else {
			result.HistoryID = id
		}
	}

	s.printSummary(result)
	return result, nil
}

func (s *Session) writeSummary(m *model.ReportModel) (string, error) {
	path := s.layout.SummaryFile()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // path is derived from the layout
	if err != nil {
		return "", fmt.Errorf("failed to create summary: %w", err)
	}
	defer f.Close()

	if _, err := report.NewMarkdownWriter(f).Write(m); err != nil {
		return "", fmt.Errorf("failed to write summary: %w", err)
	}
	return path, nil
}

func (s *Session) printSummary(r *Result) {
	s.printer.Banner("Report")
	s.printer.KeyValue("Targets", fmt.Sprintf("%d", r.Targets))
	s.printer.KeyValue("Diffs", fmt.Sprintf("%d", r.Diffs))
	if r.FailedCaptures > 0 {
		s.printer.KeyValue("Failed captures", fmt.Sprintf("%d", r.FailedCaptures))
	}
	if r.FailedDiffs > 0 {
		s.printer.KeyValue("Failed diffs", fmt.Sprintf("%d", r.FailedDiffs))
	}
	s.printer.Path("Report", r.ReportPath)
	if r.SummaryPath != "" {
		s.printer.Path("Summary", r.SummaryPath)
	}
}
