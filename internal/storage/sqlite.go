package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates or opens a SQLite database. The parent directory
// is created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			page_path TEXT,
			syllables_path TEXT,
			input_hash TEXT,
			mei_version TEXT,
			output_path TEXT,
			stats JSON,
			warnings JSON,
			created_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS zones (
			run_id TEXT REFERENCES runs(id) ON DELETE CASCADE,
			zone_id TEXT,
			element TEXT,
			ulx INTEGER,
			uly INTEGER,
			lrx INTEGER,
			lry INTEGER,
			PRIMARY KEY (run_id, zone_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_zones_element ON zones(run_id, element);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// --- RunStore Implementation ---

func (s *SQLiteStore) SaveRun(ctx context.Context, run *Run) error {
	stats, err := json.Marshal(run.Stats)
	if err != nil {
		return err
	}
	warnings, err := json.Marshal(run.Warnings)
	if err != nil {
		return err
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// 1. Save the run
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, page_path, syllables_path, input_hash, mei_version, output_path, stats, warnings, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			page_path=excluded.page_path,
			syllables_path=excluded.syllables_path,
			input_hash=excluded.input_hash,
			mei_version=excluded.mei_version,
			output_path=excluded.output_path,
			stats=excluded.stats,
			warnings=excluded.warnings,
			created_at=excluded.created_at
	`, run.ID, run.PagePath, run.SyllablesPath, run.InputHash, run.MEIVersion, run.OutputPath, stats, warnings, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}

	// 2. Replace its zones
	if _, err := tx.ExecContext(ctx, "DELETE FROM zones WHERE run_id = ?", run.ID); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO zones (run_id, zone_id, element, ulx, uly, lrx, lry) VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, z := range run.Zones {
		if _, err := stmt.ExecContext(ctx, run.ID, z.ZoneID, z.Element, z.ULX, z.ULY, z.LRX, z.LRY); err != nil {
			return fmt.Errorf("failed to save zone %s: %w", z.ZoneID, err)
		}
	}

	return tx.Commit()
}

const runColumns = "id, page_path, syllables_path, input_hash, mei_version, output_path, stats, warnings, created_at"

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var r Run
	var stats, warnings []byte
	if err := row.Scan(&r.ID, &r.PagePath, &r.SyllablesPath, &r.InputHash, &r.MEIVersion, &r.OutputPath, &stats, &warnings, &r.CreatedAt); err != nil {
		return nil, err
	}
	if len(stats) > 0 {
		_ = json.Unmarshal(stats, &r.Stats)
	}
	if len(warnings) > 0 {
		_ = json.Unmarshal(warnings, &r.Warnings)
	}
	return &r, nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return r, err
}

func (s *SQLiteStore) ListRuns(ctx context.Context) ([]*Run, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+runColumns+" FROM runs ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// --- ZoneStore Implementation ---

func (s *SQLiteStore) FindZones(ctx context.Context, runID, element string) ([]ZoneRecord, error) {
	query := "SELECT zone_id, element, ulx, uly, lrx, lry FROM zones WHERE run_id = ?"
	args := []any{runID}
	if element != "" {
		query += " AND element = ?"
		args = append(args, element)
	}
	query += " ORDER BY rowid"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var zones []ZoneRecord
	for rows.Next() {
		var z ZoneRecord
		if err := rows.Scan(&z.ZoneID, &z.Element, &z.ULX, &z.ULY, &z.LRX, &z.LRY); err != nil {
			return nil, err
		}
		zones = append(zones, z)
	}
	return zones, rows.Err()
}
