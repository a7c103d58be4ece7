package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/photobox/internal/config"
	"github.com/nao1215/photobox/internal/console"
)

//go:embed templates/photobox.yaml
var configTemplate embed.FS

// configFileName is the default configuration file name.
const configFileName = config.DefaultConfigFile

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new photobox configuration file",
		Long: `Initialize creates a new .photobox configuration file in the current directory.

The generated file includes:
- The urls and screen sizes to capture
- The report template and ImageMagick commands
- Commented examples for authentication and a custom capture command

Examples:
  # Create .photobox in current directory
  photobox init

  # Create config file at a specific path
  photobox init -o photobox.yaml

  # Force overwrite existing file
  photobox init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", configFileName,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile("templates/photobox.yaml")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// The file may hold basic auth credentials.
	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	printer := console.New(cmd.OutOrStdout())
	printer.Success("Created configuration file: %s", outputPath)
	printer.Info("Edit the urls and screenSizes, then run 'photobox run'.")
	printer.Info("Run 'photobox serve' afterwards to browse the report.")
	return nil
}
