package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	pblog "github.com/nao1215/photobox/internal/log"
)

// NewRootCmd creates the root command for photobox.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "photobox",
		Short: "Visual regression testing for web pages",
		Long: `photobox captures every configured page at every configured screen width,
compares the captures with those of the previous run and writes an HTML
report highlighting what changed.

Diff images are produced with ImageMagick (magic template) or computed by
the report page itself (canvas template).`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewCaptureCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getBoolFlag retrieves a boolean flag from the command or the root's
// persistent flags.
func getBoolFlag(cmd *cobra.Command, name string) bool {
	value, err := cmd.Flags().GetBool(name)
	if err != nil {
		value, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return value
}

// setupLogger creates the secure structured logger on stderr.
func setupLogger(cmd *cobra.Command) *slog.Logger {
	verbose := getBoolFlag(cmd, "verbose")
	if getBoolFlag(cmd, "log-json") {
		return pblog.NewSecureJSONLogger(os.Stderr, verbose)
	}
	return pblog.NewSecureLogger(os.Stderr, verbose)
}
