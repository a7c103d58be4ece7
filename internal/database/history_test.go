package database

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/photobox/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *HistoryDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// testRecord returns a session record with two outcomes.
func testRecord(indexPath string, started time.Time) *SessionRecord {
	a := model.Target{URL: "http://a.test", Size: "800"}
	b := model.Target{URL: "http://a.test", Size: "1000"}
	m := &model.ReportModel{
		Template:   "magic",
		Timestamps: model.TimestampPair{Current: "now", Last: model.TimestampNotAvailable},
		Groups: model.GroupTargets(
			[]model.Target{a, b},
			[]model.CaptureOutcome{{Target: a, Succeeded: true}, {Target: b, ErrorDetail: "exit status 1"}},
			[]model.DiffOutcome{{Target: a, Succeeded: true}, {Target: b, ErrorDetail: model.DetailNoPriorCapture}},
		),
		Captures: []model.CaptureOutcome{{Target: a, Succeeded: true}, {Target: b, ErrorDetail: "exit status 1"}},
		Diffs:    []model.DiffOutcome{{Target: a, Succeeded: true}, {Target: b, ErrorDetail: model.DetailNoPriorCapture}},
	}
	return NewSessionRecord(m, indexPath, filepath.Join(indexPath, "index.html"), started, started.Add(3*time.Second))
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("unexpected path %q", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "nonexistent-db")
		_, err := Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err == nil {
			t.Fatal("expected error when database does not exist")
		}
		if !strings.Contains(err.Error(), "not found") {
			t.Errorf("unexpected error %q", err)
		}
		if _, statErr := os.Stat(dbDir); !os.IsNotExist(statErr) {
			t.Error("database directory should not have been created")
		}
	})

	t.Run("CreateIfNotExists=false opens existing database", func(t *testing.T) {
		t.Parallel()

		dbDir := t.TempDir()
		db1, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		if _, err := db1.RecordSession(context.Background(), testRecord("photobox", time.Now())); err != nil {
			t.Fatalf("failed to record session: %v", err)
		}
		db1.Close()

		db2, err := Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to open existing database: %v", err)
		}
		defer db2.Close()

		sessions, err := db2.ListSessions(context.Background(), "", 0)
		if err != nil {
			t.Fatalf("ListSessions() error = %v", err)
		}
		if len(sessions) != 1 {
			t.Errorf("expected persisted session, got %d", len(sessions))
		}
	})
}

// TestRecordSession tests storing and reading back sessions.
func TestRecordSession(t *testing.T) {
	t.Parallel()

	t.Run("round trips a session with outcomes", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()
		started := time.Date(2026, time.October, 15, 10, 0, 0, 0, time.UTC)
		rec := testRecord("photobox", started)

		id, err := db.RecordSession(ctx, rec)
		if err != nil {
			t.Fatalf("RecordSession() error = %v", err)
		}
		if id == 0 || rec.ID != id {
			t.Errorf("expected record ID to be set, got %d/%d", id, rec.ID)
		}

		got, err := db.GetSession(ctx, id)
		if err != nil {
			t.Fatalf("GetSession() error = %v", err)
		}
		if got == nil {
			t.Fatal("expected session")
		}
		if got.Targets != 2 || got.Diffs != 1 || got.FailedCaptures != 1 || got.FailedDiffs != 0 {
			t.Errorf("unexpected counts %+v", got)
		}
		if !got.StartedAt.Equal(started) {
			t.Errorf("StartedAt = %v, want %v", got.StartedAt, started)
		}
		if got.LastLabel != model.TimestampNotAvailable {
			t.Errorf("LastLabel = %q", got.LastLabel)
		}
		if len(got.Outcomes) != 2 {
			t.Fatalf("expected 2 outcomes, got %d", len(got.Outcomes))
		}
		if got.Outcomes[0].Size != "800" || !got.Outcomes[0].HasDiff {
			t.Errorf("unexpected first outcome %+v", got.Outcomes[0])
		}
		if got.Outcomes[1].Captured || got.Outcomes[1].Detail != "exit status 1" {
			t.Errorf("unexpected second outcome %+v", got.Outcomes[1])
		}
	})

	t.Run("missing session returns nil", func(t *testing.T) {
		t.Parallel()

		got, err := setupTestDB(t).GetSession(context.Background(), 42)
		if err != nil {
			t.Fatalf("GetSession() error = %v", err)
		}
		if got != nil {
			t.Errorf("expected nil, got %+v", got)
		}
	})
}

// TestListSessions tests filtering and ordering.
func TestListSessions(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC)

	for i, indexPath := range []string{"site-a", "site-b", "site-a", "site-a"} {
		if _, err := db.RecordSession(ctx, testRecord(indexPath, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("RecordSession() error = %v", err)
		}
	}

	tests := []struct {
		name      string
		indexPath string
		limit     int
		wantIDs   []int64
	}{
		{"all sessions newest first", "", 0, []int64{4, 3, 2, 1}},
		{"filtered by index path", "site-a", 0, []int64{4, 3, 1}},
		{"limited", "site-a", 2, []int64{4, 3}},
		{"unknown index path", "site-c", 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sessions, err := db.ListSessions(ctx, tt.indexPath, tt.limit)
			if err != nil {
				t.Fatalf("ListSessions() error = %v", err)
			}
			if len(sessions) != len(tt.wantIDs) {
				t.Fatalf("expected %d sessions, got %d", len(tt.wantIDs), len(sessions))
			}
			for i, s := range sessions {
				if s.ID != tt.wantIDs[i] {
					t.Errorf("session[%d].ID = %d, want %d", i, s.ID, tt.wantIDs[i])
				}
				if s.Outcomes != nil {
					t.Error("listing should not load outcomes")
				}
			}
		})
	}
}

// TestParseTimestamp tests stored time parsing.
func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	if got := parseTimestamp("2026-10-15 10:00:00"); got.Hour() != 10 {
		t.Errorf("unexpected time %v", got)
	}
	if got := parseTimestamp("not a time"); !got.IsZero() {
		t.Errorf("expected zero time, got %v", got)
	}
}
