package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"

	"github.com/nao1215/photobox/internal/config"
	"github.com/nao1215/photobox/internal/model"
	"github.com/nao1215/photobox/internal/workspace"
)

// ErrInvalidWidth is returned for a screen size that is not a positive
// integer.
var ErrInvalidWidth = errors.New("screen size must be a positive width in pixels")

const (
	// DefaultNavigationTimeout bounds loading one page.
	DefaultNavigationTimeout = 60 * time.Second

	// initialHeight is the viewport height before the full-page screenshot
	// expands to the document height.
	initialHeight = 768

	// allowFileAccessFlag lets file:// pages load remote resources.
	allowFileAccessFlag flags.Flag = "allow-file-access-from-files"
)

// Engine takes full-page screenshots with headless Chrome.
type Engine struct {
	logger     *slog.Logger
	timeout    time.Duration
	controlURL string
	binPath    string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithNavigationTimeout bounds navigation and load of each page.
func WithNavigationTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithControlURL connects to a running browser's DevTools endpoint instead
// of launching one.
func WithControlURL(u string) Option {
	return func(e *Engine) {
		e.controlURL = u
	}
}

// WithBrowserBin launches the given Chrome binary instead of the one rod
// finds or downloads.
func WithBrowserBin(path string) Option {
	return func(e *Engine) {
		e.binPath = path
	}
}

// NewEngine creates a capture engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		logger:  slog.Default(),
		timeout: DefaultNavigationTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run is the capture collaborator entry point: it parses descriptor
// (url#size), reads optionsFile and writes the screenshot below indexPath.
func (e *Engine) Run(ctx context.Context, descriptor, indexPath, optionsFile string) (string, error) {
	target, err := model.ParseDescriptor(descriptor)
	if err != nil {
		return "", err
	}
	if _, err := ParseWidth(target.Size); err != nil {
		return "", err
	}
	opts, err := config.ReadCaptureOptions(optionsFile)
	if err != nil {
		return "", err
	}
	return e.Capture(ctx, target, workspace.NewLayout(indexPath), opts)
}

// Capture renders target in a fresh browser and writes
// img/current/<slug>.png. It returns the written path.
func (e *Engine) Capture(ctx context.Context, target model.Target, layout workspace.Layout, opts config.CaptureOptions) (string, error) {
	width, err := ParseWidth(target.Size)
	if err != nil {
		return "", err
	}

	controlURL := e.controlURL
	if controlURL == "" {
		l := launcher.New().Context(ctx).Headless(true)
		if e.binPath != "" {
			l = l.Bin(e.binPath)
		}
		for _, flag := range launchFlags(opts) {
			l = l.Set(flag)
		}
		u, err := l.Launch()
		if err != nil {
			return "", fmt.Errorf("failed to launch browser: %w", err)
		}
		defer l.Kill()
		controlURL = u
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		return "", fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer func() { _ = b.Close() }()

	if opts.UserName != "" || opts.Password != "" {
		go e.awaitAuth(b.HandleAuth(opts.UserName, opts.Password))
	}

	page, err := b.Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		return "", fmt.Errorf("failed to open page: %w", err)
	}

	stop, err := e.configurePage(page, width, opts)
	if err != nil {
		return "", err
	}
	defer stop()

	navCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	e.logger.Debug("navigating",
		"url", target.URL,
		"size", target.Size,
	)
	if err := page.Context(navCtx).Navigate(target.URL); err != nil {
		return "", fmt.Errorf("failed to navigate to %s: %w", target.URL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		return "", fmt.Errorf("failed to load %s: %w", target.URL, err)
	}

	data, err := page.Context(navCtx).Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return "", fmt.Errorf("failed to take screenshot: %w", err)
	}

	path := layout.CurrentImage(target.Slug())
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return "", fmt.Errorf("failed to create capture directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil { //nolint:gosec // the report is served as static files
		return "", fmt.Errorf("failed to write screenshot: %w", err)
	}
	return path, nil
}

// configurePage applies opts to page. The returned func releases what
// configurePage started and must be called once the page is done.
func (e *Engine) configurePage(page *rod.Page, width int, opts config.CaptureOptions) (func(), error) {
	noop := func() {}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            initialHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		return noop, fmt.Errorf("failed to set viewport: %w", err)
	}

	if opts.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: opts.UserAgent}); err != nil {
			return noop, fmt.Errorf("failed to set user agent: %w", err)
		}
	}

	if !opts.JavascriptEnabled {
		if err := (proto.EmulationSetScriptExecutionDisabled{Value: true}).Call(page); err != nil {
			return noop, fmt.Errorf("failed to disable javascript: %w", err)
		}
	}

	if !opts.LoadImages {
		router := page.HijackRequests()
		if err := router.Add("*", proto.NetworkResourceTypeImage, func(h *rod.Hijack) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
		}); err != nil {
			return noop, fmt.Errorf("failed to block images: %w", err)
		}
		go router.Run()
		return func() { e.stopRouter(router) }, nil
	}
	return noop, nil
}

// stopper is satisfied by *rod.HijackRouter.
type stopper interface {
	Stop() error
}

// stopRouter ends the hijack goroutine of a page.
func (e *Engine) stopRouter(router stopper) {
	if err := router.Stop(); err != nil {
		e.logger.Debug("failed to stop request router", "error", err)
	}
}

// awaitAuth blocks until the browser answered an auth challenge with the
// configured credentials or the browser closed.
func (e *Engine) awaitAuth(wait func() error) {
	if err := wait(); err != nil {
		e.logger.Debug("basic auth not completed", "error", err)
	}
}



// launchFlags returns the Chrome switches implied by opts.
func launchFlags(opts config.CaptureOptions) []flags.Flag {
	var out []flags.Flag
	if opts.LocalToRemoteURLAccessEnabled {
		out = append(out, allowFileAccessFlag)
	}
	return out
}

// ParseWidth returns the viewport width encoded in a screen size.
func ParseWidth(size string) (int, error) {
	width, err := strconv.Atoi(strings.TrimSpace(size))
	if err != nil || width <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWidth, size)
	}
	return width, nil
}
