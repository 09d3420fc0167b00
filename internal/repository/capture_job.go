package repository

import (
	"context"
	"errors"
	"time"

	"github.com/inlet-labs/inlet/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CaptureJobRepository struct {
	db dbtx
}

func NewCaptureJobRepository(pool *pgxpool.Pool) *CaptureJobRepository {
	return &CaptureJobRepository{db: pool}
}

func NewCaptureJobRepositoryWithTx(tx pgx.Tx) *CaptureJobRepository {
	return &CaptureJobRepository{db: tx}
}

func (r *CaptureJobRepository) Create(ctx context.Context, job *domain.CaptureJob) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO capture_jobs (id, item_id, source_type, status, error, created_at, started_at, processed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		job.ID, job.ItemID, job.SourceType, job.Status, nullableString(job.Error),
		job.CreatedAt, job.StartedAt, job.ProcessedAt,
	)
	return err
}

func (r *CaptureJobRepository) GetByID(ctx context.Context, id string) (*domain.CaptureJob, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, item_id, source_type, status, error, created_at, started_at, processed_at
		 FROM capture_jobs WHERE id = $1`,
		id,
	)
	return scanCaptureJobRow(row)
}

// ClaimPending atomically claims up to limit pending jobs for this worker.
// SKIP LOCKED guarantees each job is delivered to at most one claimant.
func (r *CaptureJobRepository) ClaimPending(ctx context.Context, limit int) ([]*domain.CaptureJob, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.Query(ctx,
		`WITH cte AS (
			 SELECT id
			 FROM capture_jobs
			 WHERE status = $1
			 ORDER BY created_at ASC
			 FOR UPDATE SKIP LOCKED
			 LIMIT $2
		 )
		 UPDATE capture_jobs
		 SET status = $3,
		     error = NULL,
		     started_at = now(),
		     processed_at = NULL
		 FROM cte
		 WHERE capture_jobs.id = cte.id
		 RETURNING capture_jobs.id, capture_jobs.item_id, capture_jobs.source_type, capture_jobs.status,
		           capture_jobs.error, capture_jobs.created_at, capture_jobs.started_at, capture_jobs.processed_at`,
		domain.CaptureJobStatusPending, limit, domain.CaptureJobStatusProcessing,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*domain.CaptureJob
	for rows.Next() {
		job, err := scanCaptureJobRows(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (r *CaptureJobRepository) UpdateStatus(ctx context.Context, id string, status domain.CaptureJobStatus, errMsg string) error {
	var processedAt *time.Time
	if status == domain.CaptureJobStatusCompleted || status == domain.CaptureJobStatusFailed {
		now := time.Now().UTC()
		processedAt = &now
	}

	cmdTag, err := r.db.Exec(ctx,
		`UPDATE capture_jobs SET status = $1, error = $2, processed_at = $3 WHERE id = $4`,
		status, nullableString(errMsg), processedAt, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrCaptureJobNotFound
	}
	return nil
}

// FailStale marks processing jobs that started before the cutoff as failed
// and returns them so their items can be errored out too. A job goes stale
// when its worker dies mid-run; there is no other way out of processing.
func (r *CaptureJobRepository) FailStale(ctx context.Context, cutoff time.Time) ([]*domain.CaptureJob, error) {
	rows, err := r.db.Query(ctx,
		`UPDATE capture_jobs
		 SET status = $1, error = $2, processed_at = now()
		 WHERE status = $3 AND started_at < $4
		 RETURNING id, item_id, source_type, status, error, created_at, started_at, processed_at`,
		domain.CaptureJobStatusFailed, "processing timed out", domain.CaptureJobStatusProcessing, cutoff,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*domain.CaptureJob
	for rows.Next() {
		job, err := scanCaptureJobRows(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (r *CaptureJobRepository) CountByStatus(ctx context.Context) (map[domain.CaptureJobStatus]int, error) {
	rows, err := r.db.Query(ctx,
		`SELECT status, COUNT(*) FROM capture_jobs GROUP BY status`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.CaptureJobStatus]int)
	for rows.Next() {
		var status domain.CaptureJobStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func scanCaptureJobRow(row pgx.Row) (*domain.CaptureJob, error) {
	var job domain.CaptureJob
	var errMsg pgtype.Text
	err := row.Scan(&job.ID, &job.ItemID, &job.SourceType, &job.Status, &errMsg,
		&job.CreatedAt, &job.StartedAt, &job.ProcessedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCaptureJobNotFound
		}
		return nil, err
	}
	job.Error = errMsg.String
	return &job, nil
}

func scanCaptureJobRows(rows pgx.Rows) (*domain.CaptureJob, error) {
	var job domain.CaptureJob
	var errMsg pgtype.Text
	if err := rows.Scan(&job.ID, &job.ItemID, &job.SourceType, &job.Status, &errMsg,
		&job.CreatedAt, &job.StartedAt, &job.ProcessedAt); err != nil {
		return nil, err
	}
	job.Error = errMsg.String
	return &job, nil
}
