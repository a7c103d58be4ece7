package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/nao1215/photobox/internal/model"
)

// TimestampLayout formats session timestamps for humans,
// e.g. "Thu Oct 15 2026 10:04:05 GMT+0200 (CEST)".
const TimestampLayout = "Mon Jan 02 2006 15:04:05 GMT-0700 (MST)"

// errEmptyTimestamp is returned for a marker without a timestamp value.
var errEmptyTimestamp = errors.New("timestamp marker has no timestamp")

// timestampMarker is the content of timestamp.json.
type timestampMarker struct {
	Timestamp string `json:"timestamp"`
}

// WriteTimestamp records the start of the current session and returns the
// written value.
func WriteTimestamp(layout Layout, now time.Time) (string, error) {
	value := now.Format(TimestampLayout)

	data, err := json.Marshal(timestampMarker{Timestamp: value})
	if err != nil {
		return "", fmt.Errorf("failed to encode timestamp: %w", err)
	}
	if err := os.MkdirAll(layout.CurrentDir(), dirPerm); err != nil {
		return "", fmt.Errorf("failed to create current directory: %w", err)
	}
	if err := os.WriteFile(layout.CurrentTimestamp(), data, 0600); err != nil {
		return "", fmt.Errorf("failed to write timestamp: %w", err)
	}
	return value, nil
}

// ReadTimestamp returns the value stored in the marker at path.
func ReadTimestamp(path string) (string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is derived from the layout
	if err != nil {
		return "", err
	}

	var marker timestampMarker
	if err := json.Unmarshal(data, &marker); err != nil {
		return "", fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if marker.Timestamp == "" {
		return "", errEmptyTimestamp
	}
	return marker.Timestamp, nil
}

// ReadTimestamps returns the current and last session timestamps.
// A missing or unreadable marker yields model.TimestampNotAvailable; this
// never fails.
func ReadTimestamps(layout Layout, logger *slog.Logger) model.TimestampPair {
	if logger == nil {
		logger = slog.Default()
	}

	read := func(name, path string) string {
		value, err := ReadTimestamp(path)
		if err != nil {
			logger.Debug("timestamp not available", "marker", name, "path", path, "error", err)
			return model.TimestampNotAvailable
		}
		return value
	}

	return model.TimestampPair{
		Current: read("current", layout.CurrentTimestamp()),
		Last:    read("last", layout.LastTimestamp()),
	}
}
