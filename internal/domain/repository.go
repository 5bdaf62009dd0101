package domain

import (
	"context"
	"time"
)

// JobRepository defines persistence for generation jobs. Terminal writes only
// apply to non-terminal rows and report whether they changed anything.
// MarkFailed stores the persisted artifact count, not a caller-supplied one.
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	GetByID(ctx context.Context, jobID string) (*Job, error)
	GetForUser(ctx context.Context, jobID, userID string) (*Job, error)
	MarkInProgress(ctx context.Context, jobID string, leaseUntil time.Time) error
	UpdateProgress(ctx context.Context, jobID string, completed int) error
	MarkCompleted(ctx context.Context, jobID string, completed int) (bool, error)
	MarkFailed(ctx context.Context, jobID, lastError string) (bool, error)
	MarkRefundSettled(ctx context.Context, jobID string) error
}

// ArtifactRepository handles persistence for produced artifacts.
type ArtifactRepository interface {
	Create(ctx context.Context, artifact *Artifact) error
	CountByJob(ctx context.Context, jobID string) (int, error)
	ListIndexes(ctx context.Context, jobID string) ([]int, error)
	ListTitles(ctx context.Context, jobID string) ([]string, error)
	ListByJob(ctx context.Context, jobID string) ([]Artifact, error)
}

// CreditLedger reserves and refunds prepaid credits. Charge and Refund are
// idempotent per reference id.
type CreditLedger interface {
	Balance(ctx context.Context, userID string) (int64, error)
	Charge(ctx context.Context, userID string, amount int64, referenceType, referenceID string) error
	Refund(ctx context.Context, userID string, amount int64, referenceType, referenceID, reason string) error
}

// ReferenceRepository persists precomputed reference summaries.
type ReferenceRepository interface {
	Get(ctx context.Context, sourceID, variantKey string) (string, error)
	Put(ctx context.Context, sourceID, variantKey, summary string) error
}

// UsageRecorder appends usage and audit events.
type UsageRecorder interface {
	Insert(ctx context.Context, userID, jobID, eventType string, success bool, latencyMS int, props map[string]any) error
}
