// Package pipeline dispatches the per-target work of a photobox session
// and tracks its completion.
//
// A session has two concurrent phases. CaptureDispatcher starts one capture
// collaborator per target; DiffDispatcher then compares each new capture
// with the previous one through a two-step Pipeline (raw difference, then
// negate). Both dispatch through a Pool that bounds the number of external
// processes alive at once, and both deliver exactly one outcome per target.
//
// Tracker receives those outcomes and moves the session from capturing to
// diffing to reporting. Each transition fires exactly once, when the last
// outcome of a phase arrives, whatever the arrival order.
package pipeline
