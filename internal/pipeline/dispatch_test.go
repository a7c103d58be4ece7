package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/photobox/internal/model"
	"github.com/nao1215/photobox/internal/process"
	"github.com/nao1215/photobox/internal/workspace"
)

// call is one recorded runner invocation.
type call struct {
	name string
	args []string
}

// fakeRunner records invocations and answers through fn.
type fakeRunner struct {
	mu    sync.Mutex
	calls []call
	fn    func(name string, args []string) error

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	delay       time.Duration
}

// Run implements process.Runner.
func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	cur := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		prev := f.maxInFlight.Load()
		if cur <= prev || f.maxInFlight.CompareAndSwap(prev, cur) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, call{name: name, args: slices.Clone(args)})
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.fn != nil {
		return nil, f.fn(name, args)
	}
	return nil, nil
}

// recorded returns a copy of the recorded calls.
func (f *fakeRunner) recorded() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// collector gathers outcomes from concurrent sinks.
type collector[T any] struct {
	mu  sync.Mutex
	out []T
}

func (c *collector[T]) add(o T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.out = append(c.out, o)
}

func (c *collector[T]) all() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.out)
}

// waitDone fails the test if ch is not closed within a few seconds.
func waitDone(t *testing.T, ch <-chan struct{}) {
	t.Helper()

	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("dispatch did not finish")
	}
}

// touch creates an empty file and its parents.
func touch(t *testing.T, path string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, nil, 0600); err != nil {
		t.Fatal(err)
	}
}

// TestPool tests bounded concurrent execution.
func TestPool(t *testing.T) {
	t.Parallel()

	t.Run("never exceeds the concurrency bound", func(t *testing.T) {
		t.Parallel()

		var inFlight, peak atomic.Int32
		pool := NewPool(WithConcurrency(3))
		var done atomic.Int32

		pool.Run(context.Background(), "test", 20,
			func(_ context.Context, _ int) error {
				cur := inFlight.Add(1)
				defer inFlight.Add(-1)
				for {
					prev := peak.Load()
					if cur <= prev || peak.CompareAndSwap(prev, cur) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				return nil
			},
			func(_ int, _ error) { done.Add(1) },
		)

		if peak.Load() > 3 {
			t.Errorf("peak concurrency %d exceeds 3", peak.Load())
		}
		if done.Load() != 20 {
			t.Errorf("expected 20 completions, got %d", done.Load())
		}
	})

	t.Run("converts panics into errors", func(t *testing.T) {
		t.Parallel()

		var got error
		NewPool(WithConcurrency(1)).Run(context.Background(), "test", 1,
			func(_ context.Context, _ int) error { panic("boom") },
			func(_ int, err error) { got = err },
		)
		if !errors.Is(got, ErrUnitPanicked) {
			t.Errorf("expected ErrUnitPanicked, got %v", got)
		}
	})

	t.Run("ignores non-positive concurrency", func(t *testing.T) {
		t.Parallel()

		if NewPool(WithConcurrency(0)).Concurrency() < 1 {
			t.Error("expected a positive default concurrency")
		}
	})
}

// TestCaptureDispatcher tests capture dispatch.
func TestCaptureDispatcher(t *testing.T) {
	t.Parallel()

	t.Run("invokes the collaborator once per target", func(t *testing.T) {
		t.Parallel()

		layout := workspace.NewLayout(t.TempDir())
		runner := &fakeRunner{}
		d := NewCaptureDispatcher(runner, []string{"photobox", "capture"}, layout, NewPool(WithConcurrency(2)), nil)

		targets := testTargets(3)
		var got collector[model.CaptureOutcome]
		waitDone(t, d.Dispatch(context.Background(), targets, got.add))

		calls := runner.recorded()
		if len(calls) != 3 {
			t.Fatalf("expected 3 invocations, got %d", len(calls))
		}
		for _, c := range calls {
			if c.name != "photobox" || len(c.args) != 4 || c.args[0] != "capture" {
				t.Errorf("unexpected invocation %+v", c)
			}
			if c.args[2] != layout.Root() || c.args[3] != layout.OptionsFile() {
				t.Errorf("unexpected paths in %+v", c.args)
			}
		}
		outcomes := got.all()
		if len(outcomes) != 3 {
			t.Fatalf("expected 3 outcomes, got %d", len(outcomes))
		}
		for _, o := range outcomes {
			if !o.Succeeded {
				t.Errorf("expected success for %s", o.Target)
			}
		}
	})

	t.Run("failure becomes an outcome", func(t *testing.T) {
		t.Parallel()

		runner := &fakeRunner{fn: func(_ string, args []string) error {
			if strings.HasPrefix(args[0], "http://site1.test") {
				return errors.New("exit status 1")
			}
			return nil
		}}
		d := NewCaptureDispatcher(runner, []string{"capture-tool"}, workspace.NewLayout(t.TempDir()), NewPool(), nil)

		var got collector[model.CaptureOutcome]
		waitDone(t, d.Dispatch(context.Background(), testTargets(3), got.add))

		failed := 0
		for _, o := range got.all() {
			if !o.Succeeded {
				failed++
				if o.ErrorDetail == "" {
					t.Error("failed outcome should carry a detail")
				}
			}
		}
		if failed != 1 {
			t.Errorf("expected 1 failed outcome, got %d", failed)
		}
	})

	t.Run("respects the concurrency bound", func(t *testing.T) {
		t.Parallel()

		runner := &fakeRunner{delay: 10 * time.Millisecond}
		d := NewCaptureDispatcher(runner, []string{"capture-tool"}, workspace.NewLayout(t.TempDir()), NewPool(WithConcurrency(2)), nil)

		var got collector[model.CaptureOutcome]
		waitDone(t, d.Dispatch(context.Background(), testTargets(10), got.add))

		if runner.maxInFlight.Load() > 2 {
			t.Errorf("peak in-flight %d exceeds 2", runner.maxInFlight.Load())
		}
		if len(got.all()) != 10 {
			t.Errorf("expected 10 outcomes, got %d", len(got.all()))
		}
	})

	t.Run("feeds the tracker to the diffing phase", func(t *testing.T) {
		t.Parallel()

		targets := testTargets(5)
		tr, _ := NewTracker(targets)
		d := NewCaptureDispatcher(&fakeRunner{}, []string{"capture-tool"}, workspace.NewLayout(t.TempDir()), NewPool(), nil)

		d.Dispatch(context.Background(), targets, func(o model.CaptureOutcome) {
			if err := tr.RecordCapture(o); err != nil {
				t.Errorf("RecordCapture() error = %v", err)
			}
		})
		waitDone(t, tr.CaptureDone())

		if tr.Phase() != model.PhaseDiffing {
			t.Errorf("expected diffing, got %s", tr.Phase())
		}
	})
}

// TestDiffDispatcher tests diff dispatch.
func TestDiffDispatcher(t *testing.T) {
	t.Parallel()

	target := model.Target{URL: "http://a.test", Size: "800"}

	t.Run("first run resolves without spawning processes", func(t *testing.T) {
		t.Parallel()

		layout := workspace.NewLayout(t.TempDir())
		touch(t, layout.CurrentImage(target.Slug()))

		runner := &fakeRunner{}
		d := NewDiffDispatcher(runner, layout, NewPool())

		var got collector[model.DiffOutcome]
		waitDone(t, d.Dispatch(context.Background(), []model.Target{target}, got.add))

		if len(runner.recorded()) != 0 {
			t.Errorf("expected no invocations, got %v", runner.recorded())
		}
		outcomes := got.all()
		if len(outcomes) != 1 || !outcomes[0].NoPriorCapture() {
			t.Errorf("expected one no-prior-capture outcome, got %+v", outcomes)
		}
	})

	t.Run("missing current capture resolves without spawning processes", func(t *testing.T) {
		t.Parallel()

		layout := workspace.NewLayout(t.TempDir())
		touch(t, layout.LastImage(target.Slug()))

		runner := &fakeRunner{}
		var got collector[model.DiffOutcome]
		waitDone(t, NewDiffDispatcher(runner, layout, NewPool()).Dispatch(context.Background(), []model.Target{target}, got.add))

		if len(runner.recorded()) != 0 {
			t.Error("expected no invocations")
		}
		if outcomes := got.all(); len(outcomes) != 1 || !outcomes[0].NoPriorCapture() {
			t.Errorf("unexpected outcomes %+v", outcomes)
		}
	})

	t.Run("runs both stages in order", func(t *testing.T) {
		t.Parallel()

		layout := workspace.NewLayout(t.TempDir())
		job := layout.DiffJob(target)
		touch(t, job.CurrentImage)
		touch(t, job.LastImage)

		runner := &fakeRunner{}
		d := NewDiffDispatcher(runner, layout, NewPool(), WithDiffCommands("my-composite", "my-convert"))

		var got collector[model.DiffOutcome]
		waitDone(t, d.Dispatch(context.Background(), []model.Target{target}, got.add))

		calls := runner.recorded()
		if len(calls) != 2 {
			t.Fatalf("expected 2 invocations, got %d", len(calls))
		}
		wantFirst := []string{job.CurrentImage, job.LastImage, "-compose", "difference", job.RawDiff}
		if calls[0].name != "my-composite" || !slices.Equal(calls[0].args, wantFirst) {
			t.Errorf("stage one = %+v", calls[0])
		}
		wantSecond := []string{"-negate", job.RawDiff, job.FinalDiff}
		if calls[1].name != "my-convert" || !slices.Equal(calls[1].args, wantSecond) {
			t.Errorf("stage two = %+v", calls[1])
		}
		if outcomes := got.all(); len(outcomes) != 1 || !outcomes[0].Succeeded {
			t.Errorf("expected one successful outcome, got %+v", outcomes)
		}
	})

	t.Run("stage one failure skips stage two", func(t *testing.T) {
		t.Parallel()

		layout := workspace.NewLayout(t.TempDir())
		touch(t, layout.CurrentImage(target.Slug()))
		touch(t, layout.LastImage(target.Slug()))

		runner := &fakeRunner{fn: func(name string, _ []string) error {
			if name == "composite" {
				return errors.New("composite: image widths differ")
			}
			return nil
		}}

		var got collector[model.DiffOutcome]
		waitDone(t, NewDiffDispatcher(runner, layout, NewPool()).Dispatch(context.Background(), []model.Target{target}, got.add))

		if calls := runner.recorded(); len(calls) != 1 {
			t.Errorf("expected only stage one to run, got %v", calls)
		}
		outcomes := got.all()
		if len(outcomes) != 1 || !outcomes[0].Failed() {
			t.Fatalf("expected one failed outcome, got %+v", outcomes)
		}
		if !strings.Contains(outcomes[0].ErrorDetail, "image widths differ") {
			t.Errorf("detail %q should carry the tool error", outcomes[0].ErrorDetail)
		}
	})

	t.Run("in-browser mode spawns nothing", func(t *testing.T) {
		t.Parallel()

		layout := workspace.NewLayout(t.TempDir())
		touch(t, layout.CurrentImage(target.Slug()))
		touch(t, layout.LastImage(target.Slug()))

		runner := &fakeRunner{}
		d := NewDiffDispatcher(runner, layout, NewPool(), WithInBrowserDiff(true))

		targets := append(testTargets(2), target)
		var got collector[model.DiffOutcome]
		waitDone(t, d.Dispatch(context.Background(), targets, got.add))

		if len(runner.recorded()) != 0 {
			t.Error("expected no invocations in browser mode")
		}
		outcomes := got.all()
		if len(outcomes) != 3 {
			t.Fatalf("expected 3 outcomes, got %d", len(outcomes))
		}
		for _, o := range outcomes {
			if !o.InBrowser() {
				t.Errorf("expected in-browser outcome, got %+v", o)
			}
		}
	})

	t.Run("failed capture is not diffed against a stale image", func(t *testing.T) {
		t.Parallel()

		layout := workspace.NewLayout(t.TempDir())
		touch(t, layout.CurrentImage(target.Slug()))
		touch(t, layout.LastImage(target.Slug()))

		runner := &fakeRunner{}
		d := NewDiffDispatcher(runner, layout, NewPool(),
			WithCaptureOutcomes([]model.CaptureOutcome{{Target: target, ErrorDetail: "browser crashed"}}),
		)

		var got collector[model.DiffOutcome]
		waitDone(t, d.Dispatch(context.Background(), []model.Target{target}, got.add))

		if len(runner.recorded()) != 0 {
			t.Errorf("expected no invocations, got %v", runner.recorded())
		}
		outcomes := got.all()
		if len(outcomes) != 1 || !outcomes[0].CaptureFailed() {
			t.Fatalf("expected one capture-failed outcome, got %+v", outcomes)
		}
		if outcomes[0].Failed() {
			t.Error("a skipped diff should not count as a diff failure")
		}
	})
}

var _ process.Runner = (*fakeRunner)(nil)
