package repo

import (
	"context"
	"encoding/json"

	"contentgen/internal/infra"
	"contentgen/internal/sqlinline"
)

// UsageRepositoryPG appends rows to usage_events.
type UsageRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewUsageRepository(sql infra.SQLExecutor) *UsageRepositoryPG {
	return &UsageRepositoryPG{sql: sql}
}

func (r *UsageRepositoryPG) Insert(ctx context.Context, userID, jobID, eventType string, success bool, latencyMS int, props map[string]any) error {
	if props == nil {
		props = map[string]any{}
	}
	raw, err := json.Marshal(props)
	if err != nil {
		return err
	}
	_, err = r.sql.Exec(ctx, sqlinline.QInsertUsageEvent, userID, jobID, eventType, success, latencyMS, raw)
	return err
}
