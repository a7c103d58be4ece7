package workspace

import (
	"path/filepath"

	"github.com/nao1215/photobox/internal/model"
)

// File and directory names below the index path.
const (
	imgDir        = "img"
	currentDir    = "current"
	lastDir       = "last"
	diffDir       = "diff"
	scriptsDir    = "scripts"
	timestampFile = "timestamp.json"
	optionsFile   = "options.json"
	indexFile     = "index.html"
	summaryFile   = "summary.md"
	workerFile    = "worker.js"
	rawDiffSuffix = "-diff"
	imageExt      = ".png"
)

// Layout resolves every path of a session's on-disk state:
//
//	<root>/options.json
//	<root>/index.html
//	<root>/img/current/<slug>.png, timestamp.json
//	<root>/img/last/<slug>.png, timestamp.json
//	<root>/img/diff/<slug>-diff.png, <slug>.png
type Layout struct {
	root string
}

// NewLayout returns the layout rooted at indexPath.
func NewLayout(indexPath string) Layout {
	return Layout{root: filepath.Clean(indexPath)}
}

// Root returns the index path.
func (l Layout) Root() string { return l.root }

// ImgDir returns <root>/img.
func (l Layout) ImgDir() string { return filepath.Join(l.root, imgDir) }

// CurrentDir returns the directory of this session's captures.
func (l Layout) CurrentDir() string { return filepath.Join(l.ImgDir(), currentDir) }

// LastDir returns the directory of the previous session's captures.
func (l Layout) LastDir() string { return filepath.Join(l.ImgDir(), lastDir) }

// DiffDir returns the directory of the diff images.
func (l Layout) DiffDir() string { return filepath.Join(l.ImgDir(), diffDir) }

// OptionsFile returns the path of options.json.
func (l Layout) OptionsFile() string { return filepath.Join(l.root, optionsFile) }

// IndexFile returns the path of the HTML report.
func (l Layout) IndexFile() string { return filepath.Join(l.root, indexFile) }

// SummaryFile returns the path of the Markdown summary.
func (l Layout) SummaryFile() string { return filepath.Join(l.root, summaryFile) }

// WorkerScript returns the path of the canvas template's diff worker.
func (l Layout) WorkerScript() string { return filepath.Join(l.root, scriptsDir, workerFile) }

// CurrentTimestamp returns the timestamp marker of the current session.
func (l Layout) CurrentTimestamp() string { return filepath.Join(l.CurrentDir(), timestampFile) }

// LastTimestamp returns the timestamp marker of the last session.
func (l Layout) LastTimestamp() string { return filepath.Join(l.LastDir(), timestampFile) }

// CurrentImage returns the capture of slug in this session.
func (l Layout) CurrentImage(slug string) string {
	return filepath.Join(l.CurrentDir(), slug+imageExt)
}

// LastImage returns the capture of slug in the last session.
func (l Layout) LastImage(slug string) string {
	return filepath.Join(l.LastDir(), slug+imageExt)
}

// RawDiffImage returns the intermediate difference image of slug.
func (l Layout) RawDiffImage(slug string) string {
	return filepath.Join(l.DiffDir(), slug+rawDiffSuffix+imageExt)
}

// FinalDiffImage returns the negated difference image of slug.
func (l Layout) FinalDiffImage(slug string) string {
	return filepath.Join(l.DiffDir(), slug+imageExt)
}

// DiffJob returns the diff pipeline paths of target.
func (l Layout) DiffJob(target model.Target) *model.DiffJob {
	slug := target.Slug()
	return &model.DiffJob{
		Target:       target,
		Slug:         slug,
		CurrentImage: l.CurrentImage(slug),
		LastImage:    l.LastImage(slug),
		RawDiff:      l.RawDiffImage(slug),
		FinalDiff:    l.FinalDiffImage(slug),
	}
}
