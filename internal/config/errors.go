package config

import "errors"

// Configuration validation errors returned by Config.Validate.
// Enumeration problems (no urls, no sizes, legacy size syntax) are reported
// with the model package's errors.
var (
	// ErrNoIndexPath is returned when indexPath is empty.
	ErrNoIndexPath = errors.New("no index path set: indexPath is required")

	// ErrUnknownTemplate is returned for a template other than magic or canvas.
	ErrUnknownTemplate = errors.New("unknown template: must be 'magic' or 'canvas'")

	// ErrInvalidConcurrency is returned when the process pool bound is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrNoCaptureCommand is returned when no capture collaborator is configured.
	ErrNoCaptureCommand = errors.New("no capture command configured")

	// ErrNoDiffCommand is returned when the magic template lacks an image processor command.
	ErrNoDiffCommand = errors.New("magic template requires compositeCommand and convertCommand")

	// ErrNoHistoryDir is returned when history is enabled without a directory.
	ErrNoHistoryDir = errors.New("history enabled but historyDir is empty")
)
