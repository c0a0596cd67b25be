package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anime-shed/lecture-indexer-go/pkg/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS lecture_jobs (
	id         TEXT PRIMARY KEY,
	filename   TEXT NOT NULL,
	status     TEXT NOT NULL,
	result     JSONB,
	error      TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`

// PostgresJobStore keeps records in PostgreSQL so they outlive the process
type PostgresJobStore struct {
	pool *pgxpool.Pool
}

func NewPostgresJobStore(pool *pgxpool.Pool) *PostgresJobStore {
	return &PostgresJobStore{pool: pool}
}

// Migrate creates the jobs table if it does not exist
func (s *PostgresJobStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create jobs table: %w", err)
	}
	return nil
}

func (s *PostgresJobStore) Create(ctx context.Context, job *models.JobRecord) error {
	result, err := encodeResult(job.Result)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO lecture_jobs (id, filename, status, result, error, created_at, updated_at)
		VALUES ($1, $2, $3, $4::jsonb, $5, $6, $7)`

	_, err = s.pool.Exec(ctx, query,
		job.JobID, job.Filename, string(job.Status), result, job.Error, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: %s", ErrJobExists, job.JobID)
		}
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (s *PostgresJobStore) Get(ctx context.Context, jobID string) (*models.JobRecord, error) {
	query := `
		SELECT id, filename, status, result::text, error, created_at, updated_at
		FROM lecture_jobs WHERE id = $1`

	job, err := scanJob(s.pool.QueryRow(ctx, query, jobID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("find job by id: %w", err)
	}
	return job, nil
}

// Update only applies when the stored status may move to the new one.
func (s *PostgresJobStore) Update(ctx context.Context, job *models.JobRecord) error {
	result, err := encodeResult(job.Result)
	if err != nil {
		return err
	}

	query := `
		UPDATE lecture_jobs SET
			status = $2, result = $3::jsonb, error = $4, updated_at = $5
		WHERE id = $1 AND status = ANY($6)`

	tag, err := s.pool.Exec(ctx, query,
		job.JobID, string(job.Status), result, job.Error, job.UpdatedAt, allowedPredecessors(job.Status),
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	current, err := s.Get(ctx, job.JobID)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, job.Status)
}

func (s *PostgresJobStore) List(ctx context.Context) ([]*models.JobRecord, error) {
	query := `
		SELECT id, filename, status, result::text, error, created_at, updated_at
		FROM lecture_jobs ORDER BY created_at`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.JobRecord
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// allowedPredecessors lists the statuses a record may hold before moving to next.
// Non-terminal statuses may also be rewritten in place.
func allowedPredecessors(next models.JobStatus) []string {
	var from []string
	for _, s := range []models.JobStatus{
		models.JobStatusQueued, models.JobStatusProcessing, models.JobStatusCompleted, models.JobStatusFailed,
	} {
		if s.CanTransitionTo(next) || (s == next && !s.IsTerminal()) {
			from = append(from, string(s))
		}
	}
	return from
}

func scanJob(row pgx.Row) (*models.JobRecord, error) {
	job := &models.JobRecord{}
	var status string
	var result *string
	err := row.Scan(&job.JobID, &job.Filename, &status, &result, &job.Error, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return nil, err
	}
	job.Status = models.JobStatus(status)
	if result != nil {
		var report models.Report
		if err := json.Unmarshal([]byte(*result), &report); err != nil {
			return nil, fmt.Errorf("decode stored report: %w", err)
		}
		job.Result = &report
	}
	return job, nil
}

func encodeResult(report *models.Report) (*string, error) {
	if report == nil {
		return nil, nil
	}
	data, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	s := string(data)
	return &s, nil
}

var _ JobStore = (*PostgresJobStore)(nil)
