package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"contentgen/internal/domain"
	"contentgen/internal/infra"
	"contentgen/internal/sqlinline"
)

// JobRepositoryPG implements domain.JobRepository.
type JobRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(sql infra.SQLExecutor) *JobRepositoryPG {
	return &JobRepositoryPG{sql: sql}
}

// Create inserts a new PENDING job record.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.Job) error {
	if job == nil {
		return fmt.Errorf("%w: nil job", domain.ErrInvalidJob)
	}
	params, err := json.Marshal(job.Params)
	if err != nil {
		return fmt.Errorf("encode job params: %w", err)
	}
	row := r.sql.QueryRow(ctx, sqlinline.QInsertJob, job.ID, job.UserID, job.TargetCount, job.CostPerItem, params)
	if err := row.Scan(&job.CreatedAt, &job.UpdatedAt); err != nil {
		if infra.IsUniqueViolation(err) {
			return domain.ErrDuplicateOperation
		}
		return err
	}
	job.Status = domain.JobStatusPending
	job.CompletedCount = 0
	return nil
}

// GetByID fetches a job by its identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	return scanJob(r.sql.QueryRow(ctx, sqlinline.QSelectJobByID, jobID))
}

// GetForUser fetches a job only when it belongs to userID.
func (r *JobRepositoryPG) GetForUser(ctx context.Context, jobID, userID string) (*domain.Job, error) {
	return scanJob(r.sql.QueryRow(ctx, sqlinline.QSelectJobForUser, jobID, userID))
}

func (r *JobRepositoryPG) MarkInProgress(ctx context.Context, jobID string, leaseUntil time.Time) error {
	_, err := r.sql.Exec(ctx, sqlinline.QMarkJobInProgress, jobID, leaseUntil)
	return err
}

func (r *JobRepositoryPG) UpdateProgress(ctx context.Context, jobID string, completed int) error {
	_, err := r.sql.Exec(ctx, sqlinline.QUpdateJobProgress, jobID, completed)
	return err
}

// MarkCompleted reports false when the job was already terminal or the count
// does not match the target.
func (r *JobRepositoryPG) MarkCompleted(ctx context.Context, jobID string, completed int) (bool, error) {
	return terminalWrite(ctx, r.sql, sqlinline.QMarkJobCompleted, jobID, completed)
}

// MarkFailed reports false when the job was already terminal or every index
// has been produced. With a transactional executor the job row stays locked
// from before the recount until the status change commits.
func (r *JobRepositoryPG) MarkFailed(ctx context.Context, jobID, lastError string) (bool, error) {
	txr, ok := r.sql.(infra.Transactor)
	if !ok {
		return terminalWrite(ctx, r.sql, sqlinline.QMarkJobFailed, jobID, lastError)
	}
	var changed bool
	err := txr.InTx(ctx, func(tx infra.SQLExecutor) error {
		var id string
		if err := tx.QueryRow(ctx, sqlinline.QLockJobForFinish, jobID).Scan(&id); err != nil {
			if infra.IsNoRows(err) {
				return nil
			}
			return err
		}
		var err error
		changed, err = terminalWrite(ctx, tx, sqlinline.QMarkJobFailed, jobID, lastError)
		return err
	})
	return changed, err
}

func (r *JobRepositoryPG) MarkRefundSettled(ctx context.Context, jobID string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QMarkJobRefundSettled, jobID)
	return err
}

func terminalWrite(ctx context.Context, sql infra.SQLExecutor, query string, args ...any) (bool, error) {
	var id string
	if err := sql.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		if infra.IsNoRows(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ClaimNext leases the oldest claimable job for the given duration. It returns
// domain.ErrNotFound when nothing is claimable.
func (r *JobRepositoryPG) ClaimNext(ctx context.Context, lease time.Duration) (string, error) {
	var id string
	if err := r.sql.QueryRow(ctx, sqlinline.QClaimNextJob, int(lease/time.Second)).Scan(&id); err != nil {
		if infra.IsNoRows(err) {
			return "", domain.ErrNotFound
		}
		return "", err
	}
	return id, nil
}

// ListStale returns IN_PROGRESS jobs with an expired lease and FAILED jobs
// whose refund is unsettled.
func (r *JobRepositoryPG) ListStale(ctx context.Context, limit int) ([]domain.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.sql.Query(ctx, sqlinline.QListStaleJobs, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var jobs []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// Requeue moves an IN_PROGRESS job back to PENDING so any worker can resume it.
func (r *JobRepositoryPG) Requeue(ctx context.Context, jobID string) error {
	var id string
	if err := r.sql.QueryRow(ctx, sqlinline.QRequeueJob, jobID).Scan(&id); err != nil {
		if infra.IsNoRows(err) {
			return domain.ErrNotFound
		}
		return err
	}
	return nil
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var (
		job    domain.Job
		status string
		params []byte
	)
	if err := row.Scan(
		&job.ID,
		&job.UserID,
		&status,
		&job.TargetCount,
		&job.CompletedCount,
		&job.CostPerItem,
		&params,
		&job.LastError,
		&job.RefundSettled,
		&job.StartedAt,
		&job.CompletedAt,
		&job.ErrorAt,
		&job.LeaseUntil,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	job.Status = domain.JobStatus(status)
	if len(params) > 0 {
		if err := json.Unmarshal(params, &job.Params); err != nil {
			return nil, fmt.Errorf("decode job params: %w", err)
		}
	}
	return &job, nil
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)
