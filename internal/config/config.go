package config

import (
	"path/filepath"
	"runtime"
	"slices"

	"github.com/adrg/xdg"

	"github.com/nao1215/photobox/internal/model"
)

// Default configuration values.
// Screen sizes, template and user agent follow the defaults photobox has
// always shipped with.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "photobox"

	// DefaultIndexPath is the directory that receives images and the report.
	DefaultIndexPath = "photobox"

	// DefaultUserAgent is sent by the capture collaborator.
	DefaultUserAgent = "Photobox"

	// DefaultCompositeCommand computes the raw difference image (ImageMagick).
	DefaultCompositeCommand = "composite"

	// DefaultConvertCommand negates the raw difference image (ImageMagick).
	DefaultConvertCommand = "convert"

	// maxDefaultConcurrency caps the derived default pool size. Each capture
	// starts a browser, so the pool stays small even on large machines.
	maxDefaultConcurrency = 8
)

// Template names understood by the report renderer.
const (
	// TemplateMagic diffs with ImageMagick and shows the diff images.
	TemplateMagic = "magic"

	// TemplateCanvas ships the captures only and diffs in the browser.
	TemplateCanvas = "canvas"
)

// KnownTemplates lists every template name accepted by Validate.
func KnownTemplates() []string {
	return []string{TemplateMagic, TemplateCanvas}
}

// DefaultScreenSizes returns the viewport widths used when none are configured.
func DefaultScreenSizes() []string {
	return []string{"800", "1000"}
}

// DefaultConcurrency returns the default bound on concurrent external processes.
func DefaultConcurrency() int {
	return min(max(runtime.NumCPU(), 1), maxDefaultConcurrency)
}

// Template selects the report template. In configuration files it may be
// given either as a bare name or as an object with a name key.
type Template struct {
	Name string `yaml:"name" json:"name"`
}

// Config holds every option of a photobox session.
// It is assembled once from the configuration file and CLI flags,
// validated, and then only read.
type Config struct {
	// IndexPath is the directory holding options.json, img/ and index.html.
	IndexPath string `yaml:"indexPath"`

	// URLs are the pages to capture, in report order.
	URLs []string `yaml:"urls"`

	// ScreenSizes are viewport widths. The WIDTHxHEIGHT syntax is rejected.
	ScreenSizes []string `yaml:"screenSizes"`

	// Template is the report template.
	Template Template `yaml:"template"`

	// The following options are passed through to the capture collaborator
	// via options.json.
	JavascriptEnabled             bool   `yaml:"javascriptEnabled"`
	LoadImages                    bool   `yaml:"loadImages"`
	LocalToRemoteURLAccessEnabled bool   `yaml:"localToRemoteUrlAccessEnabled"`
	Password                      string `yaml:"password"`
	UserAgent                     string `yaml:"userAgent"`
	UserName                      string `yaml:"userName"`

	// Concurrency bounds the number of external processes running at once.
	Concurrency int `yaml:"concurrency"`

	// CaptureCommand is the capture collaborator and its leading arguments.
	// The target descriptor, index path and options file are appended.
	// When empty, the photobox binary's own capture subcommand is used.
	CaptureCommand []string `yaml:"captureCommand"`

	// CompositeCommand produces the raw difference image.
	CompositeCommand string `yaml:"compositeCommand"`

	// ConvertCommand negates the raw difference image.
	ConvertCommand string `yaml:"convertCommand"`

	// MarkdownSummary additionally writes summary.md next to index.html.
	MarkdownSummary bool `yaml:"markdownSummary"`

	// History records every session in the SQLite history database.
	History bool `yaml:"history"`

	// HistoryDir is the directory of the history database.
	HistoryDir string `yaml:"historyDir"`
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		IndexPath:                     DefaultIndexPath,
		ScreenSizes:                   DefaultScreenSizes(),
		Template:                      Template{Name: TemplateMagic},
		JavascriptEnabled:             true,
		LoadImages:                    true,
		LocalToRemoteURLAccessEnabled: true,
		UserAgent:                     DefaultUserAgent,
		Concurrency:                   DefaultConcurrency(),
		CompositeCommand:              DefaultCompositeCommand,
		ConvertCommand:                DefaultConvertCommand,
		History:                       true,
		HistoryDir:                    XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for photobox.
// On Linux: ~/.local/share/photobox
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// Normalize cleans IndexPath. A trailing slash, or its absence, makes no
// difference to any derived path.
func (c *Config) Normalize() {
	if c.IndexPath != "" {
		c.IndexPath = filepath.Clean(c.IndexPath)
	}
}

// Validate checks the configuration and returns the first problem found.
// Nothing is written to disk before Validate succeeds.
func (c *Config) Validate() error {
	if c.IndexPath == "" {
		return ErrNoIndexPath
	}
	if _, err := c.Targets(); err != nil {
		return err
	}
	if !slices.Contains(KnownTemplates(), c.Template.Name) {
		return ErrUnknownTemplate
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if len(c.CaptureCommand) == 0 || c.CaptureCommand[0] == "" {
		return ErrNoCaptureCommand
	}
	if c.Template.Name == TemplateMagic && (c.CompositeCommand == "" || c.ConvertCommand == "") {
		return ErrNoDiffCommand
	}
	if c.History && c.HistoryDir == "" {
		return ErrNoHistoryDir
	}
	return nil
}

// Targets enumerates the configured URLs and sizes.
func (c *Config) Targets() ([]model.Target, error) {
	return model.Enumerate(c.URLs, c.ScreenSizes)
}

// UsesExternalDiff reports whether the diff phase spawns the image processor.
func (c *Config) UsesExternalDiff() bool {
	return c.Template.Name == TemplateMagic
}

// ReportOptions returns the options exposed to report templates.
// Credentials are never included.
func (c *Config) ReportOptions() map[string]any {
	return map[string]any{
		"indexPath":                     c.IndexPath,
		"urls":                          slices.Clone(c.URLs),
		"screenSizes":                   slices.Clone(c.ScreenSizes),
		"template":                      c.Template.Name,
		"javascriptEnabled":             c.JavascriptEnabled,
		"loadImages":                    c.LoadImages,
		"localToRemoteUrlAccessEnabled": c.LocalToRemoteURLAccessEnabled,
		"userAgent":                     c.UserAgent,
	}
}
