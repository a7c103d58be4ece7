package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/photobox/internal/capture"
)

// NewCaptureCmd creates the hidden capture command. photobox run invokes
// it once per target as the capture collaborator.
func NewCaptureCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "capture <descriptor> <indexPath> <optionsFile>",
		Short:  "Capture one url#size target into img/current",
		Hidden: true,
		Args:   cobra.ExactArgs(3),
		RunE:   runCaptureCmd,
	}

	cmd.Flags().Duration("timeout", capture.DefaultNavigationTimeout,
		"Navigation timeout")
	cmd.Flags().String("browser-bin", "",
		"Chrome or Chromium binary (default: found or downloaded by rod)")
	cmd.Flags().String("control-url", "",
		"DevTools URL of an already running browser")

	return cmd
}

// runCaptureCmd executes the capture command.
func runCaptureCmd(cmd *cobra.Command, args []string) error {
	logger := setupLogger(cmd)

	timeout, err := cmd.Flags().GetDuration("timeout")
	if err != nil {
		return err
	}
	browserBin, err := cmd.Flags().GetString("browser-bin")
	if err != nil {
		return err
	}
	controlURL, err := cmd.Flags().GetString("control-url")
	if err != nil {
		return err
	}

	engine := capture.NewEngine(
		capture.WithLogger(logger),
		capture.WithNavigationTimeout(timeout),
		capture.WithBrowserBin(browserBin),
		capture.WithControlURL(controlURL),
	)

	ctx, cancel := signalContext(logger)
	defer cancel()

	path, err := engine.Run(ctx, args[0], args[1], args[2])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}
