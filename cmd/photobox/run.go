package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/photobox/internal/config"
	"github.com/nao1215/photobox/internal/console"
	"github.com/nao1215/photobox/internal/database"
	"github.com/nao1215/photobox/internal/model"
	"github.com/nao1215/photobox/internal/report"
	"github.com/nao1215/photobox/internal/session"
)

// captureSubcommand is appended to the photobox binary when no capture
// command is configured.
const captureSubcommand = "capture"

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Capture, diff and report every configured page",
		Long: `Run performs one photobox session:

1. The captures of the previous run are kept as the "last" set
2. Every URL is captured at every screen size
3. Each capture is compared with its previous version
4. index.html is written with the captures and the differences

Configuration is read from .photobox, photobox.yaml, photobox.yml or
photobox.toml in the current or home directory. Flags override the file.

Examples:
  # Run with the configuration file in the current directory
  photobox run

  # Capture two pages at two widths
  photobox run --url http://localhost:8080/ --url http://localhost:8080/about --size 800,1000

  # Diff in the browser instead of with ImageMagick
  photobox run --template canvas

  # Also write a Markdown summary for CI
  photobox run --markdown`,
		Args: cobra.NoArgs,
		RunE: runRunCmd,
	}

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .photobox in current or home directory)")
	cmd.Flags().StringP("index-path", "o", config.DefaultIndexPath,
		"Directory receiving the images and index.html")
	cmd.Flags().StringSliceP("url", "u", nil,
		"URL to capture (repeatable)")
	cmd.Flags().StringSliceP("size", "s", config.DefaultScreenSizes(),
		"Screen width to capture (repeatable)")
	cmd.Flags().StringP("template", "t", config.TemplateMagic,
		"Report template: magic or canvas")
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency(),
		"Maximum number of external processes running at once")
	cmd.Flags().BoolP("markdown", "m", false,
		"Also write summary.md next to index.html")
	cmd.Flags().Bool("no-history", false,
		"Do not record the session in the history database")
	cmd.Flags().BoolP("json", "j", false,
		"Print the session report as JSON instead of progress output")

	return cmd
}

// runRunCmd executes the run command.
func runRunCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	// Validate before the history database directory is created.
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		if errors.Is(err, model.ErrNoURLs) {
			return fmt.Errorf("configuration error: %w: %w", err, errNoURLsHint)
		}
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd)
	slog.SetDefault(logger)

	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	var progress io.Writer = cmd.OutOrStdout()
	if jsonOutput {
		progress = io.Discard
	}
	printer := console.New(progress)

	opts := []session.Option{
		session.WithLogger(logger),
		session.WithPrinter(printer),
	}

	if cfg.History {
		db, err := database.Open(cfg.HistoryDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open history database: %w", err)
		}
		defer db.Close()
		logger.Info("history database opened", "path", db.Path())
		opts = append(opts, session.WithHistory(db))
	}

	s, err := session.New(cfg, opts...)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(logger)
	defer cancel()

	logger.Info("starting session",
		"indexPath", cfg.IndexPath,
		"urls", len(cfg.URLs),
		"sizes", cfg.ScreenSizes,
		"template", cfg.Template.Name,
		"concurrency", cfg.Concurrency,
	)

	result, err := s.Run(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		_, err := report.NewVersionedJSONWriter(cmd.OutOrStdout(), getVersion(), report.WithPrettyPrint()).Write(result.Report)
		return err
	}
	return nil
}

// buildConfig loads the configuration file and applies the flags the user
// set explicitly.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	configFlag, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use defaults if no file found.
	cfg := config.NewConfig()
	if configPath := config.FindConfigFile(configFlag); configPath != "" {
		cfg, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if configFlag != "" {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, configFlag)
	}

	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}

	if len(cfg.CaptureCommand) == 0 {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to locate the photobox binary: %w", err)
		}
		cfg.CaptureCommand = []string{exe, captureSubcommand}
	}
	return cfg, nil
}

// applyFlags overrides cfg with every flag changed on the command line.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	var err error

	if flags.Changed("index-path") {
		if cfg.IndexPath, err = flags.GetString("index-path"); err != nil {
			return err
		}
	}
	if flags.Changed("url") {
		if cfg.URLs, err = flags.GetStringSlice("url"); err != nil {
			return err
		}
	}
	if flags.Changed("size") {
		if cfg.ScreenSizes, err = flags.GetStringSlice("size"); err != nil {
			return err
		}
	}
	if flags.Changed("template") {
		if cfg.Template.Name, err = flags.GetString("template"); err != nil {
			return err
		}
	}
	if flags.Changed("concurrency") {
		if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
			return err
		}
	}
	if flags.Changed("markdown") {
		if cfg.MarkdownSummary, err = flags.GetBool("markdown"); err != nil {
			return err
		}
	}

	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return err
	}
	if noHistory {
		cfg.History = false
	}
	return nil
}

// errNoURLsHint is wrapped around a missing-URL error to point at init.
var errNoURLsHint = errors.New("run 'photobox init' to create a configuration file or pass --url")
