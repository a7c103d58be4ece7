package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/photobox/internal/config"
	"github.com/nao1215/photobox/internal/database"
	"github.com/nao1215/photobox/internal/report"
)

// defaultHistoryLimit is the number of sessions listed by default.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List previous photobox sessions",
		Long: `History lists the sessions recorded by 'photobox run', newest first.

index.html only shows the latest session; the history database keeps the
counts and per-target outcomes of every earlier one.

Examples:
  # List the last sessions of every index path
  photobox history

  # Only sessions written to ./photobox
  photobox history --index-path photobox

  # Show the targets of session 12
  photobox history --session 12

  # Machine readable output
  photobox history --json`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().StringP("index-path", "o", "",
		"Only list sessions of this index path")
	cmd.Flags().IntP("limit", "l", defaultHistoryLimit,
		"Maximum number of sessions to list (0 for all)")
	cmd.Flags().Int64P("session", "i", 0,
		"Show the outcomes of one session by ID")
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")
	cmd.Flags().String("history-dir", config.XDGDataDir(),
		"Directory of the history database")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	indexPath, err := cmd.Flags().GetString("index-path")
	if err != nil {
		return err
	}
	if indexPath != "" {
		indexPath = filepath.Clean(indexPath)
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	sessionID, err := cmd.Flags().GetInt64("session")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	historyDir, err := cmd.Flags().GetString("history-dir")
	if err != nil {
		return err
	}

	db, err := database.Open(historyDir, database.Options{EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	out := cmd.OutOrStdout()

	if sessionID != 0 {
		return showSession(ctx, out, db, sessionID, jsonOutput)
	}
	return listSessions(ctx, out, db, indexPath, limit, jsonOutput)
}

// listSessions prints the recorded sessions, newest first.
func listSessions(ctx context.Context, out io.Writer, db *database.HistoryDB, indexPath string, limit int, jsonOutput bool) error {
	sessions, err := db.ListSessions(ctx, indexPath, limit)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	if jsonOutput {
		if sessions == nil {
			sessions = []database.SessionRecord{}
		}
		_, err := report.NewJSONWriter(out, report.WithPrettyPrint()).WriteValue(sessions)
		return err
	}

	if len(sessions) == 0 {
		fmt.Fprintln(out, "No sessions recorded yet.")
		fmt.Fprintln(out, "\nUse 'photobox run' to capture and compare pages.")
		return nil
	}

	fmt.Fprintf(out, "Sessions (%d):\n\n", len(sessions))
	fmt.Fprintf(out, "  %-6s  %-19s  %-8s  %7s  %5s  %6s  %s\n",
		"ID", "Started", "Template", "Targets", "Diffs", "Failed", "Index path")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 76))
	for _, s := range sessions {
		fmt.Fprintf(out, "  %-6d  %-19s  %-8s  %7d  %5d  %6d  %s\n",
			s.ID,
			s.StartedAt.Local().Format("2006-01-02 15:04:05"),
			s.Template,
			s.Targets,
			s.Diffs,
			s.FailedCaptures+s.FailedDiffs,
			s.IndexPath,
		)
	}
	fmt.Fprintln(out, "\nUse 'photobox history --session <ID>' to see the targets of a session.")
	return nil
}

// showSession prints one session with its outcomes.
func showSession(ctx context.Context, out io.Writer, db *database.HistoryDB, id int64, jsonOutput bool) error {
	rec, err := db.GetSession(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}
	if rec == nil {
		return fmt.Errorf("session %d not found", id)
	}

	if jsonOutput {
		_, err := report.NewJSONWriter(out, report.WithPrettyPrint()).WriteValue(rec)
		return err
	}

	fmt.Fprintf(out, "Session %d (%s template)\n", rec.ID, rec.Template)
	fmt.Fprintf(out, "  Index path: %s\n", rec.IndexPath)
	fmt.Fprintf(out, "  Report:     %s\n", rec.ReportPath)
	fmt.Fprintf(out, "  Current:    %s\n", rec.CurrentLabel)
	fmt.Fprintf(out, "  Last:       %s\n", rec.LastLabel)
	fmt.Fprintf(out, "  Duration:   %s\n\n", rec.FinishedAt.Sub(rec.StartedAt).Round(time.Millisecond))

	for _, o := range rec.Outcomes {
		status := "not diffed"
		switch {
		case !o.Captured:
			status = "capture failed"
		case o.HasDiff:
			status = "diffed"
		case o.Detail != "":
			status = "diff failed"
		}
		line := fmt.Sprintf("  %-14s  %-6s  %s", status, o.Size, o.URL)
		if o.Detail != "" {
			line += "  (" + o.Detail + ")"
		}
		fmt.Fprintln(out, line)
	}
	return nil
}
