// Package storage persists runs and step results: rows in sqlite, step
// output in per-step log files.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

var ErrRunNotFound = errors.New("run not found")

// Run statuses.
const (
	StatusPending = "pending"
	StatusRunning = "running"
	StatusPassed  = "passed"
	StatusFailed  = "failed"
)

type Run struct {
	ID        string    `json:"id"`
	Workflow  string    `json:"workflow"`
	Event     string    `json:"event"`
	Branch    string    `json:"branch"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type StepResult struct {
	RunID       string    `json:"runId"`
	Instance    string    `json:"instance"`
	Step        string    `json:"step"`
	Status      string    `json:"status"`
	LogPath     string    `json:"logPath"`
	Attestation string    `json:"attestation"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Store struct {
	db     *sql.DB
	logDir string
}

// Open connects to the sqlite database at dbPath, creates the schema if
// needed, and uses logDir for step output files.
func Open(dbPath, logDir string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			workflow TEXT,
			event TEXT,
			branch TEXT,
			status TEXT,
			created_at DATETIME,
			updated_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS steps (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT,
			instance TEXT,
			step TEXT,
			status TEXT,
			log_path TEXT,
			attestation TEXT,
			created_at DATETIME
		);`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, err
		}
	}
	return &Store{db: db, logDir: logDir}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// CreateRun inserts a pending run and returns its id.
func (s *Store) CreateRun(workflow, event, branch string) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC()
	_, err := s.db.Exec(
		`INSERT INTO runs (id, workflow, event, branch, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, workflow, event, branch, StatusPending, now, now)
	if err != nil {
		return "", err
	}
	return id, nil
}

// SetRunStatus updates a run's status.
func (s *Store) SetRunStatus(runID, status string) error {
	_, err := s.db.Exec(`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC(), runID)
	return err
}

// GetRun fetches one run.
func (s *Store) GetRun(runID string) (*Run, error) {
	var r Run
	err := s.db.QueryRow(
		`SELECT id, workflow, event, branch, status, created_at, updated_at FROM runs WHERE id = ?`, runID).
		Scan(&r.ID, &r.Workflow, &r.Event, &r.Branch, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRuns returns all runs, newest first.
func (s *Store) ListRuns() ([]Run, error) {
	rows, err := s.db.Query(
		`SELECT id, workflow, event, branch, status, created_at, updated_at FROM runs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Workflow, &r.Event, &r.Branch, &r.Status, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RecordStep writes the step output to a log file and inserts the step
// row. It returns the log path.
func (s *Store) RecordStep(runID, instance, step, status, output, attestation string) (string, error) {
	logPath, err := s.saveLog(instance, step, output)
	if err != nil {
		return "", err
	}
	_, err = s.db.Exec(
		`INSERT INTO steps (run_id, instance, step, status, log_path, attestation, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, instance, step, status, logPath, attestation, time.Now().UTC())
	if err != nil {
		return "", err
	}
	return logPath, nil
}

// ListSteps returns the recorded step results of a run, oldest first.
func (s *Store) ListSteps(runID string) ([]StepResult, error) {
	rows, err := s.db.Query(
		`SELECT run_id, instance, step, status, log_path, attestation, created_at FROM steps WHERE run_id = ? ORDER BY id`,
		runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []StepResult
	for rows.Next() {
		var sr StepResult
		if err := rows.Scan(&sr.RunID, &sr.Instance, &sr.Step, &sr.Status, &sr.LogPath, &sr.Attestation, &sr.CreatedAt); err != nil {
			return nil, err
		}
		steps = append(steps, sr)
	}
	return steps, rows.Err()
}

// saveLog writes step output under the log directory. Filenames carry a
// timestamp for uniqueness.
func (s *Store) saveLog(instance, step, output string) (string, error) {
	if err := os.MkdirAll(s.logDir, 0775); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s_%s_%s.log",
		sanitize(instance), sanitize(step), time.Now().UTC().Format("20060102_150405.000000000"))
	path := filepath.Join(s.logDir, name)
	if err := os.WriteFile(path, []byte(output), 0644); err != nil {
		return "", err
	}
	return path, nil
}

// sanitize strips characters that do not belong in a filename.
func sanitize(name string) string {
	clean := make([]rune, 0, len(name))
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' || r == '.' {
			clean = append(clean, r)
		}
	}
	if len(clean) == 0 {
		return "step"
	}
	return string(clean)
}
