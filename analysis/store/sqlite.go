// Package store persists analysis records and weekly reports keyed by their owning record.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/theimaginaryfoundation/reflect-o-bot/analysis"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS entry_analyses (
	entry_id   TEXT PRIMARY KEY,
	language   TEXT NOT NULL,
	state      TEXT NOT NULL,
	payload    TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS weekly_reports (
	report_id  TEXT PRIMARY KEY,
	week_start TEXT NOT NULL,
	week_end   TEXT NOT NULL,
	language   TEXT NOT NULL,
	payload    TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_weekly_reports_window ON weekly_reports(week_end, week_start);
`

// SQLite is an upsert store backed by a single SQLite file.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path and ensures the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("OpenSQLite: path is empty")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("OpenSQLite: mkdir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("OpenSQLite: open: %w", err)
	}
	// SQLite allows a single writer at a time.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("OpenSQLite: schema: %w", err)
	}
	return &SQLite{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// StoredAnalysis is an analysis record as persisted.
type StoredAnalysis struct {
	EntryID   string
	Language  analysis.Language
	State     string
	Result    analysis.AnalysisResult
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UpsertAnalysis inserts or replaces the analysis owned by entryID.
func (s *SQLite) UpsertAnalysis(ctx context.Context, entryID string, lang analysis.Language, state analysis.State, r analysis.AnalysisResult) error {
	if entryID == "" {
		return errors.New("UpsertAnalysis: entry id is empty")
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("UpsertAnalysis: marshal: %w", err)
	}
	now := s.now().Format(time.RFC3339Nano)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO entry_analyses (entry_id, language, state, payload, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(entry_id) DO UPDATE SET
			language = excluded.language,
			state = excluded.state,
			payload = excluded.payload,
			updated_at = excluded.updated_at`,
		entryID, string(lang), state.String(), string(payload), now, now,
	)
	if err != nil {
		return fmt.Errorf("UpsertAnalysis %s: %w", entryID, err)
	}
	return nil
}

// GetAnalysis returns the stored analysis for entryID; ok is false when none exists.
func (s *SQLite) GetAnalysis(ctx context.Context, entryID string) (StoredAnalysis, bool, error) {
	var (
		rec              StoredAnalysis
		lang, payload    string
		created, updated string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT entry_id, language, state, payload, created_at, updated_at
		FROM entry_analyses WHERE entry_id = ?`, entryID,
	).Scan(&rec.EntryID, &lang, &rec.State, &payload, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return StoredAnalysis{}, false, nil
	}
	if err != nil {
		return StoredAnalysis{}, false, fmt.Errorf("GetAnalysis %s: %w", entryID, err)
	}
	if err := json.Unmarshal([]byte(payload), &rec.Result); err != nil {
		return StoredAnalysis{}, false, fmt.Errorf("GetAnalysis %s: decode: %w", entryID, err)
	}
	rec.Language = analysis.Language(lang)
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return rec, true, nil
}

// StoredWeeklyReport is a weekly report as persisted.
type StoredWeeklyReport struct {
	ReportID  string
	Window    analysis.Window
	Language  analysis.Language
	Report    analysis.WeeklyReportResult
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UpsertWeeklyReport inserts or replaces the report identified by reportID.
func (s *SQLite) UpsertWeeklyReport(ctx context.Context, reportID string, w analysis.Window, lang analysis.Language, r analysis.WeeklyReportResult) error {
	if reportID == "" {
		return errors.New("UpsertWeeklyReport: report id is empty")
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("UpsertWeeklyReport: marshal: %w", err)
	}
	now := s.now().Format(time.RFC3339Nano)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO weekly_reports (report_id, week_start, week_end, language, payload, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(report_id) DO UPDATE SET
			week_start = excluded.week_start,
			week_end = excluded.week_end,
			language = excluded.language,
			payload = excluded.payload,
			updated_at = excluded.updated_at`,
		reportID, w.Start.Format(time.DateOnly), w.End.Format(time.DateOnly), string(lang), string(payload), now, now,
	)
	if err != nil {
		return fmt.Errorf("UpsertWeeklyReport %s: %w", reportID, err)
	}
	return nil
}

// GetWeeklyReport returns the stored report for reportID; ok is false when none exists.
func (s *SQLite) GetWeeklyReport(ctx context.Context, reportID string) (StoredWeeklyReport, bool, error) {
	var (
		rec                       StoredWeeklyReport
		start, end, lang, payload string
		created, updated          string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT report_id, week_start, week_end, language, payload, created_at, updated_at
		FROM weekly_reports WHERE report_id = ?`, reportID,
	).Scan(&rec.ReportID, &start, &end, &lang, &payload, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return StoredWeeklyReport{}, false, nil
	}
	if err != nil {
		return StoredWeeklyReport{}, false, fmt.Errorf("GetWeeklyReport %s: %w", reportID, err)
	}
	if err := json.Unmarshal([]byte(payload), &rec.Report); err != nil {
		return StoredWeeklyReport{}, false, fmt.Errorf("GetWeeklyReport %s: decode: %w", reportID, err)
	}
	rec.Language = analysis.Language(lang)
	rec.Window.Start, _ = time.Parse(time.DateOnly, start)
	rec.Window.End, _ = time.Parse(time.DateOnly, end)
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return rec, true, nil
}
