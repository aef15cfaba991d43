package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	_ "modernc.org/sqlite" // register sqlite driver

	"github.com/zenibako/runsheet-golang/config"
	"github.com/zenibako/runsheet-golang/runsheet"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS cues (
	seq              INTEGER PRIMARY KEY AUTOINCREMENT,
	id               TEXT    NOT NULL UNIQUE,
	run_id           TEXT    NOT NULL,
	scheduled_time   TEXT    NOT NULL,
	duration_minutes INTEGER NOT NULL CHECK (duration_minutes >= 1),
	title            TEXT    NOT NULL,
	description      TEXT    NOT NULL DEFAULT '',
	cue_type         TEXT    NOT NULL DEFAULT 'general',
	technician_id    TEXT    NOT NULL DEFAULT '',
	notes            TEXT    NOT NULL DEFAULT '',
	status           TEXT    NOT NULL DEFAULT 'upcoming'
		CHECK (status IN ('upcoming', 'live', 'delayed', 'completed', 'skipped')),
	created_at       TEXT    NOT NULL,
	updated_at       TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cues_run ON cues(run_id, seq);

CREATE TABLE IF NOT EXISTS technicians (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	role       TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);
`

const cueColumns = `id, scheduled_time, duration_minutes, title, description, cue_type, technician_id, notes, status`

// SQLiteStore persists cues and the technician directory in one SQLite database.
// It implements runsheet.Store and runsheet.Directory.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the database at path and applies the schema.
// Use MemoryPath for a throwaway database.
func Open(path string) (*SQLiteStore, error) {
	dsn := path
	if path != MemoryPath {
		expanded, err := config.ExpandPath(path)
		if err != nil {
			return nil, fmt.Errorf("expand path: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
			return nil, fmt.Errorf("create directory: %w", err)
		}
		dsn = expanded
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	if path == MemoryPath {
		// each connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	} else {
		pragmas = append([]string{"PRAGMA journal_mode=WAL"}, pragmas...)
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run schema migrations: %w", err)
	}

	log.Debug("Opened cue store", "path", dsn)
	return &SQLiteStore{db: db, path: dsn}, nil
}

// Path returns the database location.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection is alive.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Create inserts a new upcoming cue with a fresh id.
func (s *SQLiteStore) Create(ctx context.Context, runID string, in runsheet.CueInput) (runsheet.Cue, error) {
	if err := in.Validate(); err != nil {
		return runsheet.Cue{}, err
	}
	cue := in.NewCue(uuid.NewString())
	now := formatTime(time.Now())

	const q = `
		INSERT INTO cues (id, run_id, scheduled_time, duration_minutes, title, description,
			cue_type, technician_id, notes, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, q,
		cue.ID,
		runID,
		cue.ScheduledTime.String(),
		cue.DurationMinutes,
		cue.Title,
		cue.Description,
		string(cue.CueType),
		cue.TechnicianID,
		cue.Notes,
		string(cue.Status),
		now,
		now,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return runsheet.Cue{}, fmt.Errorf("cue already exists: %s", cue.ID)
		}
		return runsheet.Cue{}, fmt.Errorf("create cue: %w", err)
	}
	return cue, nil
}

// Delete removes a cue of the run.
func (s *SQLiteStore) Delete(ctx context.Context, runID, cueID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM cues WHERE run_id = ? AND id = ?`, runID, cueID)
	if err != nil {
		return fmt.Errorf("delete cue: %w", err)
	}
	return requireRow(result, cueID)
}

// UpdateStatus records to if the stored status is still from, and returns the stored cue.
func (s *SQLiteStore) UpdateStatus(ctx context.Context, runID, cueID string, from, to runsheet.Status) (runsheet.Cue, error) {
	if !to.Valid() {
		return runsheet.Cue{}, fmt.Errorf("update cue: unknown status %q", to)
	}
	const q = `UPDATE cues SET status = ?, updated_at = ? WHERE run_id = ? AND id = ? AND status = ?`
	result, err := s.db.ExecContext(ctx, q, string(to), formatTime(time.Now()), runID, cueID, string(from))
	if err != nil {
		return runsheet.Cue{}, fmt.Errorf("update cue: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return runsheet.Cue{}, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		current, err := s.Get(ctx, runID, cueID)
		if err != nil {
			return runsheet.Cue{}, err
		}
		return runsheet.Cue{}, &runsheet.StatusConflictError{ID: cueID, Expected: from, Actual: current.Status}
	}
	return s.Get(ctx, runID, cueID)
}

// Get returns one stored cue.
func (s *SQLiteStore) Get(ctx context.Context, runID, cueID string) (runsheet.Cue, error) {
	q := `SELECT ` + cueColumns + ` FROM cues WHERE run_id = ? AND id = ?`
	cue, err := scanCue(s.db.QueryRowContext(ctx, q, runID, cueID))
	if errors.Is(err, sql.ErrNoRows) {
		return runsheet.Cue{}, &runsheet.NotFoundError{ID: cueID}
	}
	return cue, err
}

// List returns the run's cues in creation order.
func (s *SQLiteStore) List(ctx context.Context, runID string) ([]runsheet.Cue, error) {
	q := `SELECT ` + cueColumns + ` FROM cues WHERE run_id = ? ORDER BY seq ASC`
	rows, err := s.db.QueryContext(ctx, q, runID)
	if err != nil {
		return nil, fmt.Errorf("list cues: %w", err)
	}
	defer rows.Close()

	var cues []runsheet.Cue
	for rows.Next() {
		cue, err := scanCue(rows)
		if err != nil {
			return nil, err
		}
		cues = append(cues, cue)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list cues: %w", err)
	}
	return cues, nil
}

// ResetAll sets every cue of the run back to upcoming.
func (s *SQLiteStore) ResetAll(ctx context.Context, runID string) error {
	const q = `UPDATE cues SET status = ?, updated_at = ? WHERE run_id = ?`
	if _, err := s.db.ExecContext(ctx, q, string(runsheet.StatusUpcoming), formatTime(time.Now()), runID); err != nil {
		return fmt.Errorf("reset cues: %w", err)
	}
	return nil
}

// RunIDs returns every run that holds at least one cue, sorted.
func (s *SQLiteStore) RunIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT run_id FROM cues ORDER BY run_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCue(row rowScanner) (runsheet.Cue, error) {
	var (
		cue                      runsheet.Cue
		at, cueType, statusValue string
	)
	err := row.Scan(
		&cue.ID,
		&at,
		&cue.DurationMinutes,
		&cue.Title,
		&cue.Description,
		&cueType,
		&cue.TechnicianID,
		&cue.Notes,
		&statusValue,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return runsheet.Cue{}, err
		}
		return runsheet.Cue{}, fmt.Errorf("scan cue: %w", err)
	}

	if cue.ScheduledTime, err = runsheet.ParseClockTime(at); err != nil {
		return runsheet.Cue{}, fmt.Errorf("cue %s: %w", cue.ID, err)
	}
	if cue.CueType, err = runsheet.ParseCueType(cueType); err != nil {
		return runsheet.Cue{}, fmt.Errorf("cue %s: %w", cue.ID, err)
	}
	if cue.Status, err = runsheet.ParseStatus(statusValue); err != nil {
		return runsheet.Cue{}, fmt.Errorf("cue %s: %w", cue.ID, err)
	}
	return cue, nil
}

func requireRow(result sql.Result, cueID string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return &runsheet.NotFoundError{ID: cueID}
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var (
	_ runsheet.Store     = (*SQLiteStore)(nil)
	_ runsheet.RunLister = (*SQLiteStore)(nil)
)
