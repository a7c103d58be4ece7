package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// CaptureOptions is the snapshot of capture settings written to
// options.json before any capture starts. The capture collaborator reads it
// instead of receiving the values on its command line.
type CaptureOptions struct {
	JavascriptEnabled             bool   `json:"javascriptEnabled"`
	LoadImages                    bool   `json:"loadImages"`
	LocalToRemoteURLAccessEnabled bool   `json:"localToRemoteUrlAccessEnabled"`
	Password                      string `json:"password"`
	UserAgent                     string `json:"userAgent"`
	UserName                      string `json:"userName"`
}

// CaptureOptions returns the pass-through subset of the configuration.
func (c *Config) CaptureOptions() CaptureOptions {
	return CaptureOptions{
		JavascriptEnabled:             c.JavascriptEnabled,
		LoadImages:                    c.LoadImages,
		LocalToRemoteURLAccessEnabled: c.LocalToRemoteURLAccessEnabled,
		Password:                      c.Password,
		UserAgent:                     c.UserAgent,
		UserName:                      c.UserName,
	}
}

// WriteCaptureOptions writes opts to path as JSON.
// The file holds credentials and is only readable by the owner.
func WriteCaptureOptions(path string, opts CaptureOptions) error {
	data, err := json.Marshal(opts)
	if err != nil {
		return fmt.Errorf("failed to encode capture options: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write capture options: %w", err)
	}
	return nil
}

// ReadCaptureOptions reads an options.json written by WriteCaptureOptions.
func ReadCaptureOptions(path string) (CaptureOptions, error) {
	var opts CaptureOptions

	data, err := os.ReadFile(path) //nolint:gosec // path is the session's own options file
	if err != nil {
		return opts, fmt.Errorf("failed to read capture options: %w", err)
	}
	if err := json.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("failed to parse capture options: %w", err)
	}
	return opts, nil
}
