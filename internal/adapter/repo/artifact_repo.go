package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"contentgen/internal/domain"
	"contentgen/internal/infra"
	"contentgen/internal/sqlinline"
)

// ArtifactRepositoryPG implements domain.ArtifactRepository.
type ArtifactRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewArtifactRepository(sql infra.SQLExecutor) *ArtifactRepositoryPG {
	return &ArtifactRepositoryPG{sql: sql}
}

// Create inserts one artifact. It returns domain.ErrDuplicateOperation when
// the (job, index) pair already exists, the index is out of range, or the job
// is already terminal.
func (r *ArtifactRepositoryPG) Create(ctx context.Context, a *domain.Artifact) error {
	if a == nil {
		return errors.New("artifact is required")
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	row := r.sql.QueryRow(ctx, sqlinline.QInsertArtifact,
		a.ID,
		a.JobID,
		a.Index,
		a.Title,
		a.Content,
		a.Structured,
		a.Provider,
		a.Usage.PromptTokens,
		a.Usage.CompletionTokens,
		a.Usage.TotalTokens,
		a.RetryCountAtSuccess,
	)
	if err := row.Scan(&a.CreatedAt); err != nil {
		if infra.IsNoRows(err) || infra.IsUniqueViolation(err) {
			return domain.ErrDuplicateOperation
		}
		return err
	}
	return nil
}

func (r *ArtifactRepositoryPG) CountByJob(ctx context.Context, jobID string) (int, error) {
	var n int
	if err := r.sql.QueryRow(ctx, sqlinline.QCountArtifactsByJob, jobID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *ArtifactRepositoryPG) ListIndexes(ctx context.Context, jobID string) ([]int, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListArtifactIndexes, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int
	for rows.Next() {
		var idx int
		if err := rows.Scan(&idx); err != nil {
			return nil, err
		}
		out = append(out, idx)
	}
	return out, rows.Err()
}

func (r *ArtifactRepositoryPG) ListTitles(ctx context.Context, jobID string) ([]string, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListArtifactTitles, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, err
		}
		out = append(out, title)
	}
	return out, rows.Err()
}

func (r *ArtifactRepositoryPG) ListByJob(ctx context.Context, jobID string) ([]domain.Artifact, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListArtifactsByJob, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Artifact
	for rows.Next() {
		var a domain.Artifact
		if err := rows.Scan(
			&a.ID,
			&a.JobID,
			&a.Index,
			&a.Title,
			&a.Content,
			&a.Structured,
			&a.Provider,
			&a.Usage.PromptTokens,
			&a.Usage.CompletionTokens,
			&a.Usage.TotalTokens,
			&a.RetryCountAtSuccess,
			&a.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

var _ domain.ArtifactRepository = (*ArtifactRepositoryPG)(nil)
