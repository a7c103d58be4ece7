package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// dirPerm is used for every directory photobox creates.
const dirPerm = 0750

// PrepareResult describes what Prepare found and did.
type PrepareResult struct {
	// ArchivedPrevious is true when a previous current directory was
	// copied to last.
	ArchivedPrevious bool
}

// Prepare lays out the index path for a new session:
//
//  1. <root>/img exists
//  2. <root>/img/diff is removed and recreated empty; the diff tool does
//     not create its own output directory
//  3. <root>/img/current, if present, is copied over <root>/img/last.
//     Copying rather than moving keeps the captures when a later step fails
//     and the session is re-run.
//  4. <root>/img/current exists
//
// All removals finish before the directories are recreated. Any error is
// fatal for the session.
func Prepare(layout Layout, logger *slog.Logger) (PrepareResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var result PrepareResult

	if err := os.MkdirAll(layout.ImgDir(), dirPerm); err != nil {
		return result, fmt.Errorf("failed to create image directory: %w", err)
	}

	if err := os.RemoveAll(layout.DiffDir()); err != nil {
		return result, fmt.Errorf("failed to remove diff directory: %w", err)
	}
	if err := os.Mkdir(layout.DiffDir(), dirPerm); err != nil {
		return result, fmt.Errorf("failed to create diff directory: %w", err)
	}

	info, err := os.Stat(layout.CurrentDir())
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logger.Info("no previous captures found", "dir", layout.CurrentDir())
	case err != nil:
		return result, fmt.Errorf("failed to inspect current directory: %w", err)
	case !info.IsDir():
		return result, fmt.Errorf("current capture path is not a directory: %s", layout.CurrentDir())
	default:
		if err := os.RemoveAll(layout.LastDir()); err != nil {
			return result, fmt.Errorf("failed to remove last directory: %w", err)
		}
		if err := os.CopyFS(layout.LastDir(), os.DirFS(layout.CurrentDir())); err != nil {
			return result, fmt.Errorf("failed to copy current captures to last: %w", err)
		}
		result.ArchivedPrevious = true
		logger.Info("archived previous captures", "from", layout.CurrentDir(), "to", layout.LastDir())
	}

	if err := os.MkdirAll(layout.CurrentDir(), dirPerm); err != nil {
		return result, fmt.Errorf("failed to create current directory: %w", err)
	}
	return result, nil
}

// InstallAsset writes content to path unless a file already exists there.
// It returns true when the file was written.
func InstallAsset(path string, content []byte) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("failed to inspect %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return false, fmt.Errorf("failed to create asset directory: %w", err)
	}
	if err := os.WriteFile(path, content, 0600); err != nil {
		return false, fmt.Errorf("failed to write asset: %w", err)
	}
	return true, nil
}
