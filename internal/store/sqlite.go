package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nvandessel/vitaldyn/internal/models"
	"github.com/nvandessel/vitaldyn/internal/validation"
)

// SQLiteStore implements RunStore using SQLite for persistence.
type SQLiteStore struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
}

var _ RunStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens or creates the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite works best with single writer

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// SaveRun stores a run, its events and its findings in one transaction.
func (s *SQLiteStore) SaveRun(ctx context.Context, run RunRecord, events []models.Event, findings []validation.Finding) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, name, created_at, seed, days, model, config,
			births, deaths, conceptions, final_population, passed, elapsed_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Name, run.CreatedAt.Format(time.RFC3339Nano),
		strconv.FormatUint(run.Seed, 10), run.Days, run.Model, run.Config,
		run.Births, run.Deaths, run.Conceptions, run.FinalPopulation,
		boolToInt(run.Passed), int64(run.Elapsed))
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	if err := insertEvents(ctx, tx, run.ID, events); err != nil {
		return "", err
	}
	if err := insertFindings(ctx, tx, run.ID, findings); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}
	return run.ID, nil
}

func insertEvents(ctx context.Context, tx *sql.Tx, runID string, events []models.Event) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events (run_id, seq, day, type, individual_id, mother_id, sex, age_days, weight)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare event insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range events {
		if _, err := stmt.ExecContext(ctx, runID, i, e.Day, string(e.Type),
			int64(e.IndividualID), int64(e.MotherID), e.Sex.String(), e.AgeDays, e.Weight); err != nil {
			return fmt.Errorf("failed to insert event %d: %w", i, err)
		}
	}
	return nil
}

func insertFindings(ctx context.Context, tx *sql.Tx, runID string, findings []validation.Finding) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO findings (run_id, seq, check_name, subgroup, day, kind,
			expected, observed, lower, upper, soft, passed, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare finding insert: %w", err)
	}
	defer stmt.Close()

	for i, f := range findings {
		if _, err := stmt.ExecContext(ctx, runID, i, f.Check, f.Subgroup, f.Day, string(f.Kind),
			f.Expected, f.Observed, f.Lower, f.Upper,
			boolToInt(f.Soft), boolToInt(f.Passed), f.Detail); err != nil {
			return fmt.Errorf("failed to insert finding %d: %w", i, err)
		}
	}
	return nil
}

const runColumns = `id, name, created_at, seed, days, model, config,
	births, deaths, conceptions, final_population, passed, elapsed_ns`

// GetRun returns the run whose ID equals id, or the single run whose ID
// starts with id.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id == "" {
		return nil, ErrRunNotFound
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE substr(id, 1, length(?)) = ? ORDER BY id`,
		id, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	defer rows.Close()

	var matches []RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		if r.ID == id {
			return &r, nil
		}
		matches = append(matches, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case 1:
		return &matches[0], nil
	default:
		return nil, fmt.Errorf("%w: %s matches %d runs", ErrAmbiguousRun, id, len(matches))
	}
}

// ListRuns returns every run, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context) ([]RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}

func scanRun(rows *sql.Rows) (RunRecord, error) {
	var (
		r         RunRecord
		createdAt string
		seed      string
		passed    int
		elapsed   int64
	)
	if err := rows.Scan(&r.ID, &r.Name, &createdAt, &seed, &r.Days, &r.Model, &r.Config,
		&r.Births, &r.Deaths, &r.Conceptions, &r.FinalPopulation, &passed, &elapsed); err != nil {
		return RunRecord{}, fmt.Errorf("failed to scan run: %w", err)
	}

	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return RunRecord{}, fmt.Errorf("run %s: invalid created_at %q: %w", r.ID, createdAt, err)
	}
	r.CreatedAt = t

	r.Seed, err = strconv.ParseUint(seed, 10, 64)
	if err != nil {
		return RunRecord{}, fmt.Errorf("run %s: invalid seed %q: %w", r.ID, seed, err)
	}

	r.Passed = passed != 0
	r.Elapsed = time.Duration(elapsed)
	return r, nil
}

// LoadEvents returns a run's events in log order.
func (s *SQLiteStore) LoadEvents(ctx context.Context, runID string) ([]models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.requireRun(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT day, type, individual_id, mother_id, sex, age_days, weight
		FROM events WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var (
			e                  models.Event
			typ, sex           string
			individual, mother int64
		)
		if err := rows.Scan(&e.Day, &typ, &individual, &mother, &sex, &e.AgeDays, &e.Weight); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if e.Type, err = models.ParseEventType(typ); err != nil {
			return nil, err
		}
		if e.Sex, err = models.ParseSex(sex); err != nil {
			return nil, err
		}
		e.IndividualID = models.ID(individual)
		e.MotherID = models.ID(mother)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return events, nil
}

// LoadFindings returns a run's findings in report order.
func (s *SQLiteStore) LoadFindings(ctx context.Context, runID string) ([]validation.Finding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.requireRun(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT check_name, subgroup, day, kind, expected, observed, lower, upper, soft, passed, detail
		FROM findings WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query findings: %w", err)
	}
	defer rows.Close()

	var findings []validation.Finding
	for rows.Next() {
		var (
			f            validation.Finding
			kind         string
			soft, passed int
		)
		if err := rows.Scan(&f.Check, &f.Subgroup, &f.Day, &kind, &f.Expected, &f.Observed,
			&f.Lower, &f.Upper, &soft, &passed, &f.Detail); err != nil {
			return nil, fmt.Errorf("failed to scan finding: %w", err)
		}
		f.Kind = validation.Kind(kind)
		f.Soft = soft != 0
		f.Passed = passed != 0
		findings = append(findings, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate findings: %w", err)
	}
	return findings, nil
}

func (s *SQLiteStore) requireRun(ctx context.Context, runID string) error {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, runID).Scan(&n); err != nil {
		return fmt.Errorf("failed to look up run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// DeleteRun removes a run; its events and findings cascade.
func (s *SQLiteStore) DeleteRun(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, runID)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	if err != nil && !errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
