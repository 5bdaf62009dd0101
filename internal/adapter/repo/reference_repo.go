package repo

import (
	"context"

	"contentgen/internal/domain"
	"contentgen/internal/infra"
	"contentgen/internal/sqlinline"
)

// ReferenceRepositoryPG stores precomputed reference summaries.
type ReferenceRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewReferenceRepository(sql infra.SQLExecutor) *ReferenceRepositoryPG {
	return &ReferenceRepositoryPG{sql: sql}
}

// Get returns domain.ErrNotFound on a cache miss.
func (r *ReferenceRepositoryPG) Get(ctx context.Context, sourceID, variantKey string) (string, error) {
	var summary string
	if err := r.sql.QueryRow(ctx, sqlinline.QSelectReferenceSummary, sourceID, variantKey).Scan(&summary); err != nil {
		if infra.IsNoRows(err) {
			return "", domain.ErrNotFound
		}
		return "", err
	}
	return summary, nil
}

func (r *ReferenceRepositoryPG) Put(ctx context.Context, sourceID, variantKey, summary string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QUpsertReferenceSummary, sourceID, variantKey, summary)
	return err
}

var _ domain.ReferenceRepository = (*ReferenceRepositoryPG)(nil)
