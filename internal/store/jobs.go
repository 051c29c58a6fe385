package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/rpe-analytics/quarterlies-cli/internal/model"
)

// JobFilter specifies criteria for listing jobs.
type JobFilter struct {
	Status  model.JobStatus
	Company string
	Limit   int
}

// JobStore persists job state so background work stays observable across
// process restarts.
type JobStore interface {
	CreateJob(ctx context.Context, name, company string) (*model.Job, error)
	UpdateJobStatus(ctx context.Context, jobID string, status model.JobStatus) error
	CompleteJob(ctx context.Context, jobID string, result *model.RunResult, jobErr string) error
	GetJob(ctx context.Context, jobID string) (*model.Job, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error)
	Migrate(ctx context.Context) error
	Close() error
}

// SQLiteJobStore implements JobStore using modernc.org/sqlite.
type SQLiteJobStore struct {
	db *sql.DB
}

// NewSQLiteJobStore opens a SQLite database at the given path in WAL mode.
func NewSQLiteJobStore(dsn string) (*SQLiteJobStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "jobstore: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "jobstore: exec %s", pragma)
		}
	}
	return &SQLiteJobStore{db: db}, nil
}

const jobsMigration = `
CREATE TABLE IF NOT EXISTS jobs (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	company    TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'queued',
	result     TEXT,
	error      TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_jobs_company ON jobs(company);
`

func (s *SQLiteJobStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, jobsMigration)
	return eris.Wrap(err, "jobstore: migrate")
}

func (s *SQLiteJobStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteJobStore) CreateJob(ctx context.Context, name, company string) (*model.Job, error) {
	job := &model.Job{
		ID:        uuid.New().String(),
		Name:      name,
		Company:   company,
		Status:    model.JobQueued,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, name, company, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		job.ID, job.Name, job.Company, job.Status, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "jobstore: create job")
	}
	return job, nil
}

func (s *SQLiteJobStore) UpdateJobStatus(ctx context.Context, jobID string, status model.JobStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "jobstore: update job %s", jobID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return eris.Errorf("jobstore: job %s not found", jobID)
	}
	return nil
}

func (s *SQLiteJobStore) CompleteJob(ctx context.Context, jobID string, result *model.RunResult, jobErr string) error {
	status := model.JobComplete
	if jobErr != "" {
		status = model.JobFailed
	}

	var resultJSON []byte
	if result != nil {
		var err error
		resultJSON, err = json.Marshal(result)
		if err != nil {
			return eris.Wrap(err, "jobstore: marshal result")
		}
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, result = ?, error = ?, updated_at = ? WHERE id = ?`,
		status, nullable(resultJSON), jobErr, time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "jobstore: complete job %s", jobID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return eris.Errorf("jobstore: job %s not found", jobID)
	}
	return nil
}

func (s *SQLiteJobStore) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, company, status, result, error, created_at, updated_at FROM jobs WHERE id = ?`,
		jobID,
	)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("jobstore: job %s not found", jobID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "jobstore: get job %s", jobID)
	}
	return job, nil
}

func (s *SQLiteJobStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error) {
	query := `SELECT id, name, company, status, result, error, created_at, updated_at FROM jobs WHERE 1=1`
	var args []any
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.Company != "" {
		query += ` AND company = ?`
		args = append(args, filter.Company)
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "jobstore: list jobs")
	}
	defer rows.Close() //nolint:errcheck

	var jobs []model.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, eris.Wrap(err, "jobstore: scan job")
		}
		jobs = append(jobs, *job)
	}
	return jobs, eris.Wrap(rows.Err(), "jobstore: iterate jobs")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*model.Job, error) {
	var job model.Job
	var resultJSON sql.NullString
	var jobErr sql.NullString

	if err := row.Scan(&job.ID, &job.Name, &job.Company, &job.Status, &resultJSON, &jobErr, &job.CreatedAt, &job.UpdatedAt); err != nil {
		return nil, err
	}

	if resultJSON.Valid && resultJSON.String != "" {
		var result model.RunResult
		if err := json.Unmarshal([]byte(resultJSON.String), &result); err != nil {
			return nil, eris.Wrap(err, "unmarshal result")
		}
		job.Result = &result
	}
	job.Error = jobErr.String

	return &job, nil
}

func nullable(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
