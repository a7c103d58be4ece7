package pipeline

import (
	"errors"
	"fmt"
	"sync"

	"github.com/nao1215/photobox/internal/model"
)

var (
	// ErrNoTargets is returned when a tracker is created for an empty session.
	ErrNoTargets = errors.New("no targets to track")

	// ErrUnknownTarget is returned for an outcome whose target was never
	// enumerated.
	ErrUnknownTarget = errors.New("outcome for unknown target")

	// ErrWrongPhase is returned for an outcome that arrives outside its phase.
	ErrWrongPhase = errors.New("outcome arrived in wrong phase")

	// ErrDuplicateOutcome is returned when a target already reported an
	// outcome in the current phase.
	ErrDuplicateOutcome = errors.New("duplicate outcome")
)

// TransitionHook observes a phase transition. It is called once per
// transition, outside the tracker's lock.
type TransitionHook func(from, to model.Phase)

// Tracker counts per-target outcomes and advances the session phase.
//
// Recording an outcome, counting it and checking the count against the
// number of targets happen under one lock, so each transition fires exactly
// once regardless of arrival order or concurrency.
type Tracker struct {
	mu    sync.Mutex
	phase model.Phase

	targets []model.Target
	// slots maps a target to its positions in targets. A target listed
	// twice gets two slots.
	slots        map[model.Target][]int
	captureFill  map[model.Target]int
	diffFill     map[model.Target]int
	captures     []model.CaptureOutcome
	diffs        []model.DiffOutcome
	captureCount int
	diffCount    int

	captureDone chan struct{}
	diffDone    chan struct{}

	hooks []TransitionHook
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithTransitionHook registers hook to be called on every transition.
func WithTransitionHook(hook TransitionHook) TrackerOption {
	return func(t *Tracker) {
		if hook != nil {
			t.hooks = append(t.hooks, hook)
		}
	}
}

// NewTracker creates a tracker in the capturing phase for targets.
func NewTracker(targets []model.Target, opts ...TrackerOption) (*Tracker, error) {
	if len(targets) == 0 {
		return nil, ErrNoTargets
	}

	t := &Tracker{
		phase:       model.PhaseCapturing,
		targets:     append([]model.Target(nil), targets...),
		slots:       make(map[model.Target][]int, len(targets)),
		captureFill: make(map[model.Target]int, len(targets)),
		diffFill:    make(map[model.Target]int, len(targets)),
		captures:    make([]model.CaptureOutcome, len(targets)),
		diffs:       make([]model.DiffOutcome, len(targets)),
		captureDone: make(chan struct{}),
		diffDone:    make(chan struct{}),
	}
	for i, target := range targets {
		t.slots[target] = append(t.slots[target], i)
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// RecordCapture records one capture outcome. The outcome that completes
// the capturing phase moves the tracker to diffing and closes CaptureDone.
func (t *Tracker) RecordCapture(outcome model.CaptureOutcome) error {
	t.mu.Lock()
	slot, err := t.claim(outcome.Target, model.PhaseCapturing, t.captureFill)
	if err != nil {
		t.mu.Unlock()
		return err
	}
	t.captures[slot] = outcome
	t.captureCount++

	transitioned := t.captureCount == len(t.targets)
	if transitioned {
		t.phase = model.PhaseDiffing
		close(t.captureDone)
	}
	t.mu.Unlock()

	if transitioned {
		t.notify(model.PhaseCapturing, model.PhaseDiffing)
	}
	return nil
}

// RecordDiff records one diff outcome. The outcome that completes the
// diffing phase moves the tracker to reporting and closes DiffDone.
func (t *Tracker) RecordDiff(outcome model.DiffOutcome) error {
	t.mu.Lock()
	slot, err := t.claim(outcome.Target, model.PhaseDiffing, t.diffFill)
	if err != nil {
		t.mu.Unlock()
		return err
	}
	t.diffs[slot] = outcome
	t.diffCount++

	transitioned := t.diffCount == len(t.targets)
	if transitioned {
		t.phase = model.PhaseReporting
		close(t.diffDone)
	}
	t.mu.Unlock()

	if transitioned {
		t.notify(model.PhaseDiffing, model.PhaseReporting)
	}
	return nil
}

// claim returns the next free slot of target in fill. t.mu must be held.
func (t *Tracker) claim(target model.Target, want model.Phase, fill map[model.Target]int) (int, error) {
	positions, ok := t.slots[target]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownTarget, target)
	}
	if t.phase != want {
		return 0, fmt.Errorf("%w: %s outcome for %s during %s", ErrWrongPhase, want, target, t.phase)
	}
	n := fill[target]
	if n >= len(positions) {
		return 0, fmt.Errorf("%w: %s", ErrDuplicateOutcome, target)
	}
	fill[target] = n + 1
	return positions[n], nil
}

func (t *Tracker) notify(from, to model.Phase) {
	for _, hook := range t.hooks {
		hook(from, to)
	}
}

// CaptureDone is closed when every target has a capture outcome.
func (t *Tracker) CaptureDone() <-chan struct{} { return t.captureDone }

// DiffDone is closed when every target has a diff outcome.
func (t *Tracker) DiffDone() <-chan struct{} { return t.diffDone }

// Phase returns the current phase.
func (t *Tracker) Phase() model.Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phase
}

// Targets returns the tracked targets in enumeration order.
func (t *Tracker) Targets() []model.Target {
	return append([]model.Target(nil), t.targets...)
}

// CaptureCount returns the number of recorded capture outcomes.
func (t *Tracker) CaptureCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.captureCount
}

// DiffCount returns the number of recorded diff outcomes.
func (t *Tracker) DiffCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.diffCount
}

// CaptureOutcomes returns the capture outcomes in enumeration order.
// Targets without an outcome yet have a zero value.
func (t *Tracker) CaptureOutcomes() []model.CaptureOutcome {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]model.CaptureOutcome(nil), t.captures...)
}

// DiffOutcomes returns the diff outcomes in enumeration order.
// Targets without an outcome yet have a zero value.
func (t *Tracker) DiffOutcomes() []model.DiffOutcome {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]model.DiffOutcome(nil), t.diffs...)
}
