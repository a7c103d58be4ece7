package pipeline

import (
	"context"
	"fmt"

	"github.com/nao1215/photobox/internal/model"
	"github.com/nao1215/photobox/internal/process"
)

// Step names, recorded in DiffJob.CompletedStages.
const (
	RawDiffStepName = "raw_diff"
	NegateStepName  = "negate"
)

// RawDiffStep computes the per-pixel difference of the current and last
// captures:
//
//	composite <current> <last> -compose difference <raw>
type RawDiffStep struct {
	runner  process.Runner
	command string
}

// NewRawDiffStep creates the first diff stage running command (usually
// ImageMagick's composite).
func NewRawDiffStep(runner process.Runner, command string) *RawDiffStep {
	return &RawDiffStep{runner: runner, command: command}
}

// Name returns the step name.
func (s *RawDiffStep) Name() string { return RawDiffStepName }

// Do executes the raw difference stage.
func (s *RawDiffStep) Do(ctx context.Context, job *model.DiffJob) error {
	if _, err := s.runner.Run(ctx, s.command,
		job.CurrentImage, job.LastImage, "-compose", "difference", job.RawDiff,
	); err != nil {
		return fmt.Errorf("raw diff of %s: %w", job.Slug, err)
	}
	return nil
}

// NegateStep inverts the raw difference so unchanged pixels turn white:
//
//	convert -negate <raw> <final>
type NegateStep struct {
	runner  process.Runner
	command string
}

// NewNegateStep creates the second diff stage running command (usually
// ImageMagick's convert).
func NewNegateStep(runner process.Runner, command string) *NegateStep {
	return &NegateStep{runner: runner, command: command}
}

// Name returns the step name.
func (s *NegateStep) Name() string { return NegateStepName }

// Do executes the negate stage.
func (s *NegateStep) Do(ctx context.Context, job *model.DiffJob) error {
	if _, err := s.runner.Run(ctx, s.command, "-negate", job.RawDiff, job.FinalDiff); err != nil {
		return fmt.Errorf("negate diff of %s: %w", job.Slug, err)
	}
	return nil
}
