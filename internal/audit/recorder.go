package audit

import (
	"context"
	"time"

	"contentgen/internal/domain"
	"contentgen/internal/infra"
)

const (
	EventItemGenerated = "item.generated"
	EventItemFailed    = "item.failed"
	EventJobCompleted  = "job.completed"
	EventJobFailed     = "job.failed"
)

const defaultWriteTimeout = 3 * time.Second

// Event is one audit row. Index and Attempt are zero for job-level events.
type Event struct {
	Type     string
	UserID   string
	JobID    string
	Index    int
	Attempt  int
	Success  bool
	Latency  time.Duration
	Provider string
	Usage    domain.TokenUsage
	Reason   string
}

// Recorder writes audit events on a best-effort basis: failures are logged and
// swallowed.
type Recorder struct {
	store   domain.UsageRecorder
	log     infra.Logger
	timeout time.Duration
}

func NewRecorder(store domain.UsageRecorder, log infra.Logger) *Recorder {
	return &Recorder{
		store:   store,
		log:     log.With().Str("component", "audit").Logger(),
		timeout: defaultWriteTimeout,
	}
}

// Record persists ev. The write outlives cancellation of ctx so that timeouts
// are still recorded, but is bounded by its own short deadline.
func (r *Recorder) Record(ctx context.Context, ev Event) {
	if r == nil || r.store == nil {
		return
	}
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	props := map[string]any{}
	if ev.Index > 0 {
		props["index"] = ev.Index
	}
	if ev.Attempt > 0 {
		props["attempt"] = ev.Attempt
	}
	if ev.Provider != "" {
		props["provider"] = ev.Provider
	}
	if ev.Usage.TotalTokens > 0 {
		props["prompt_tokens"] = ev.Usage.PromptTokens
		props["completion_tokens"] = ev.Usage.CompletionTokens
		props["total_tokens"] = ev.Usage.TotalTokens
	}
	if ev.Reason != "" {
		props["reason"] = ev.Reason
	}
	if err := r.store.Insert(writeCtx, ev.UserID, ev.JobID, ev.Type, ev.Success, int(ev.Latency/time.Millisecond), props); err != nil {
		r.log.Warn().Err(err).Str("event", ev.Type).Str("job_id", ev.JobID).Msg("audit write failed")
	}
}
