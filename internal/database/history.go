package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/photobox/internal/model"
)

// FileName is the name of the history database inside its directory.
const FileName = "photobox.db"

// timeLayout is how session times are stored.
const timeLayout = "2006-01-02 15:04:05"

// HistoryDB stores one row per photobox session and one row per target
// outcome, so earlier runs can be listed after index.html was overwritten.
type HistoryDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the history database in dbDir.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("history database not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{db: db, dbPath: dbPath}

	// Concurrent photobox processes may share the database.
	if _, err := db.ExecContext(context.Background(), "PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return hdb, nil
}

// Path returns the database file path.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

func (h *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		index_path TEXT NOT NULL,
		template TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		current_label TEXT,
		last_label TEXT,
		report_path TEXT,
		targets INTEGER NOT NULL,
		diffs INTEGER NOT NULL,
		failed_captures INTEGER NOT NULL,
		failed_diffs INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_index_path ON sessions(index_path);

	CREATE TABLE IF NOT EXISTS outcomes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id INTEGER NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		url TEXT NOT NULL,
		size TEXT NOT NULL,
		slug TEXT NOT NULL,
		captured INTEGER NOT NULL,
		has_diff INTEGER NOT NULL,
		detail TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_outcomes_session ON outcomes(session_id);
	`

	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// SessionRecord summarizes one finished session.
type SessionRecord struct {
	ID             int64     `json:"id"`
	IndexPath      string    `json:"index_path"`
	Template       string    `json:"template"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	CurrentLabel   string    `json:"current_label"`
	LastLabel      string    `json:"last_label"`
	ReportPath     string    `json:"report_path"`
	Targets        int       `json:"targets"`
	Diffs          int       `json:"diffs"`
	FailedCaptures int       `json:"failed_captures"`
	FailedDiffs    int       `json:"failed_diffs"`

	Outcomes []OutcomeRecord `json:"outcomes,omitempty"`
}

// OutcomeRecord is one target's row in a session.
type OutcomeRecord struct {
	URL      string `json:"url"`
	Size     string `json:"size"`
	Slug     string `json:"slug"`
	Captured bool   `json:"captured"`
	HasDiff  bool   `json:"has_diff"`
	Detail   string `json:"detail,omitempty"`
}

// NewSessionRecord flattens a report model into a record.
func NewSessionRecord(m *model.ReportModel, indexPath, reportPath string, startedAt, finishedAt time.Time) *SessionRecord {
	rec := &SessionRecord{
		IndexPath:      indexPath,
		Template:       m.Template,
		StartedAt:      startedAt,
		FinishedAt:     finishedAt,
		CurrentLabel:   m.Timestamps.Current,
		LastLabel:      m.Timestamps.Last,
		ReportPath:     reportPath,
		Diffs:          m.DiffCount(),
		FailedCaptures: m.FailedCaptures(),
		FailedDiffs:    m.FailedDiffs(),
	}
	for _, g := range m.Groups {
		for _, s := range g.Sizes {
			rec.Outcomes = append(rec.Outcomes, OutcomeRecord{
				URL:      g.URL,
				Size:     s.Size,
				Slug:     s.Slug,
				Captured: s.Captured,
				HasDiff:  s.HasDiff,
				Detail:   s.Detail,
			})
		}
	}
	rec.Targets = len(rec.Outcomes)
	return rec
}

// RecordSession stores rec and its outcomes in one transaction and returns
// the new session ID.
func (h *HistoryDB) RecordSession(ctx context.Context, rec *SessionRecord) (id int64, err error) {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `
	INSERT INTO sessions (index_path, template, started_at, finished_at, current_label, last_label,
		report_path, targets, diffs, failed_captures, failed_diffs)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.IndexPath,
		rec.Template,
		rec.StartedAt.UTC().Format(timeLayout),
		rec.FinishedAt.UTC().Format(timeLayout),
		rec.CurrentLabel,
		rec.LastLabel,
		rec.ReportPath,
		rec.Targets,
		rec.Diffs,
		rec.FailedCaptures,
		rec.FailedDiffs,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save session: %w", err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get session id: %w", err)
	}

	for i, o := range rec.Outcomes {
		if _, err = tx.ExecContext(ctx, `
		INSERT INTO outcomes (session_id, position, url, size, slug, captured, has_diff, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, id, i, o.URL, o.Size, o.Slug, o.Captured, o.HasDiff, o.Detail); err != nil {
			return 0, fmt.Errorf("failed to save outcome: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit session: %w", err)
	}
	rec.ID = id
	return id, nil
}

// ListSessions returns the most recent sessions first. An empty indexPath
// lists sessions of every index path; limit <= 0 means no limit.
func (h *HistoryDB) ListSessions(ctx context.Context, indexPath string, limit int) ([]SessionRecord, error) {
	query := `
	SELECT id, index_path, template, started_at, finished_at, current_label, last_label,
		report_path, targets, diffs, failed_captures, failed_diffs
	FROM sessions
	WHERE (? = '' OR index_path = ?)
	ORDER BY id DESC
	`
	args := []any{indexPath, indexPath}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []SessionRecord
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *rec)
	}
	return sessions, rows.Err()
}

// GetSession returns the session with id and its outcomes, or nil when no
// such session exists.
func (h *HistoryDB) GetSession(ctx context.Context, id int64) (*SessionRecord, error) {
	row := h.db.QueryRowContext(ctx, `
	SELECT id, index_path, template, started_at, finished_at, current_label, last_label,
		report_path, targets, diffs, failed_captures, failed_diffs
	FROM sessions
	WHERE id = ?
	`, id)

	rec, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rec.Outcomes, err = h.SessionOutcomes(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// SessionOutcomes returns the outcomes of a session in enumeration order.
func (h *HistoryDB) SessionOutcomes(ctx context.Context, sessionID int64) ([]OutcomeRecord, error) {
	rows, err := h.db.QueryContext(ctx, `
	SELECT url, size, slug, captured, has_diff, detail
	FROM outcomes
	WHERE session_id = ?
	ORDER BY position
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []OutcomeRecord
	for rows.Next() {
		var o OutcomeRecord
		var detail sql.NullString
		if err := rows.Scan(&o.URL, &o.Size, &o.Slug, &o.Captured, &o.HasDiff, &detail); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		o.Detail = detail.String
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*SessionRecord, error) {
	var rec SessionRecord
	var startedAt, finishedAt string
	var currentLabel, lastLabel, reportPath sql.NullString

	err := row.Scan(
		&rec.ID, &rec.IndexPath, &rec.Template, &startedAt, &finishedAt,
		&currentLabel, &lastLabel, &reportPath,
		&rec.Targets, &rec.Diffs, &rec.FailedCaptures, &rec.FailedDiffs,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}

	rec.StartedAt = parseTimestamp(startedAt)
	rec.FinishedAt = parseTimestamp(finishedAt)
	rec.CurrentLabel = currentLabel.String
	rec.LastLabel = lastLabel.String
	rec.ReportPath = reportPath.String
	return &rec, nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
var timestampFormats = []string{
	timeLayout,
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
}

// parseTimestamp parses a stored UTC timestamp; unknown formats yield the
// zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
