package workspace

import (
	_ "embed"
)

//go:embed assets/worker.js
var workerScript []byte

// InstallCanvasAssets writes the diff worker used by the canvas template
// to <root>/scripts/worker.js unless it already exists. A user-edited
// worker is kept.
func InstallCanvasAssets(layout Layout) (bool, error) {
	return InstallAsset(layout.WorkerScript(), workerScript)
}
