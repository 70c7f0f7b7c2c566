package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed run history
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a new Store, opening the SQLite database and running migrations.
// The parent directory of dbPath is created if needed.
func New(dbPath string, logger *slog.Logger) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps ":memory:" databases shared across queries.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logger,
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Debug("Store initialized successfully", "path", dbPath)
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// ============================================================================
// InstallRun Operations
// ============================================================================

// CreateRun inserts a new InstallRun and sets its ID
func (s *Store) CreateRun(run *InstallRun) error {
	const query = `
		INSERT INTO install_runs (
			mirror, trusted_host, requirements, start_time, end_time,
			succeeded, failed, status
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.Exec(
		query,
		run.Mirror, run.TrustedHost, run.Requirements, run.StartTime, run.EndTime,
		run.Succeeded, run.Failed, run.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to insert install run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	run.ID = id
	return nil
}

// UpdateRun updates an existing InstallRun by ID
func (s *Store) UpdateRun(run *InstallRun) error {
	const query = `
		UPDATE install_runs SET
			mirror = ?, trusted_host = ?, requirements = ?, start_time = ?,
			end_time = ?, succeeded = ?, failed = ?, status = ?
		WHERE id = ?
	`

	result, err := s.db.Exec(
		query,
		run.Mirror, run.TrustedHost, run.Requirements, run.StartTime,
		run.EndTime, run.Succeeded, run.Failed, run.Status, run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update install run: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("install run not found: %d", run.ID)
	}

	return nil
}

// GetRun retrieves an InstallRun by ID
func (s *Store) GetRun(id int64) (*InstallRun, error) {
	const query = `
		SELECT id, mirror, trusted_host, requirements, start_time, end_time,
		       succeeded, failed, status
		FROM install_runs WHERE id = ?
	`

	run := &InstallRun{}
	err := s.db.QueryRow(query, id).Scan(
		&run.ID, &run.Mirror, &run.TrustedHost, &run.Requirements,
		&run.StartTime, &run.EndTime, &run.Succeeded, &run.Failed, &run.Status,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("install run not found: %d", id)
		}
		return nil, fmt.Errorf("failed to query install run: %w", err)
	}

	return run, nil
}

// ListRuns retrieves InstallRuns, newest first
func (s *Store) ListRuns(limit int) ([]InstallRun, error) {
	query := `
		SELECT id, mirror, trusted_host, requirements, start_time, end_time,
		       succeeded, failed, status
		FROM install_runs
		ORDER BY start_time DESC, id DESC
	`
	var args []interface{}

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query install runs: %w", err)
	}
	defer rows.Close()

	var runs []InstallRun
	for rows.Next() {
		run := InstallRun{}
		err := rows.Scan(
			&run.ID, &run.Mirror, &run.TrustedHost, &run.Requirements,
			&run.StartTime, &run.EndTime, &run.Succeeded, &run.Failed, &run.Status,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan install run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating install runs: %w", err)
	}

	return runs, nil
}

// LatestRun returns the most recently started run, or nil when none exist
func (s *Store) LatestRun() (*InstallRun, error) {
	runs, err := s.ListRuns(1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

// ============================================================================
// PackageResult Operations
// ============================================================================

// AddPackageResult inserts a PackageResult and sets its ID
func (s *Store) AddPackageResult(res *PackageResult) error {
	const query = `
		INSERT INTO package_results (
			run_id, specifier, status, error, exit_code, finished_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.Exec(
		query,
		res.RunID, res.Specifier, res.Status, res.Error, res.ExitCode, res.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert package result: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	res.ID = id
	return nil
}

// ListPackageResults retrieves the results of a run in install order,
// optionally filtered by status
func (s *Store) ListPackageResults(runID int64, status string) ([]PackageResult, error) {
	query := `
		SELECT id, run_id, specifier, status, error, exit_code, finished_at
		FROM package_results WHERE run_id = ?
	`
	args := []interface{}{runID}

	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	query += " ORDER BY id ASC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query package results: %w", err)
	}
	defer rows.Close()

	var results []PackageResult
	for rows.Next() {
		res := PackageResult{}
		err := rows.Scan(
			&res.ID, &res.RunID, &res.Specifier, &res.Status,
			&res.Error, &res.ExitCode, &res.FinishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan package result: %w", err)
		}
		results = append(results, res)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating package results: %w", err)
	}

	return results, nil
}
