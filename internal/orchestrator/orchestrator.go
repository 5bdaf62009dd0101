package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"contentgen/internal/domain"
	"contentgen/internal/infra"
	"contentgen/internal/notify"
	"contentgen/internal/providers/writer"
)

// Generator produces one artifact; *ItemGenerator is the production implementation.
type Generator interface {
	Generate(ctx context.Context, jc JobContext, index, attempt int) error
}

// ReferenceResolver returns the shared generation context for a job.
type ReferenceResolver interface {
	Resolve(ctx context.Context, params domain.JobParams) string
}

// Publisher is a fire-and-forget notification sink.
type Publisher interface {
	Publish(ev notify.Event)
}

type Deps struct {
	Jobs       domain.JobRepository
	Artifacts  domain.ArtifactRepository
	Ledger     domain.CreditLedger
	Items      Generator
	References ReferenceResolver
	Notifier   Publisher
	Logger     *infra.Logger
}

// Orchestrator drives a job from PENDING/IN_PROGRESS to a terminal status.
type Orchestrator struct {
	cfg       Config
	jobs      domain.JobRepository
	artifacts domain.ArtifactRepository
	ledger    domain.CreditLedger
	items     Generator
	refs      ReferenceResolver
	notifier  Publisher
	log       infra.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func New(cfg Config, deps Deps) *Orchestrator {
	log := infra.NopLogger()
	if deps.Logger != nil {
		log = *deps.Logger
	}
	return &Orchestrator{
		cfg:       cfg.withDefaults(),
		jobs:      deps.Jobs,
		artifacts: deps.Artifacts,
		ledger:    deps.Ledger,
		items:     deps.Items,
		refs:      deps.References,
		notifier:  deps.Notifier,
		log:       log.With().Str("component", "orchestrator").Logger(),
		now:       time.Now,
		sleep:     sleepCtx,
	}
}

// runState is the per-run bookkeeping that never outlives Run.
type runState struct {
	attempts int
	timedOut bool
	lastErr  error
}

// Run executes (or resumes) jobID. It returns domain.ErrJobTimeout when the
// total deadline cut the run short, and store errors that prevented
// bookkeeping. Item failures are never returned.
func (o *Orchestrator) Run(ctx context.Context, jobID string) error {
	job, err := o.jobs.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job %s: %w", jobID, err)
	}
	log := o.log.With().Str("job_id", job.ID).Logger()

	switch job.Status {
	case domain.JobStatusCompleted:
		log.Debug().Msg("job already completed")
		return nil
	case domain.JobStatusFailed:
		if !job.RefundSettled {
			o.settleRefund(ctx, job)
		}
		return nil
	}

	start := o.now()
	if err := o.jobs.MarkInProgress(ctx, job.ID, start.Add(o.cfg.Lease)); err != nil {
		return fmt.Errorf("mark job in progress: %w", err)
	}
	runCtx, cancel := context.WithTimeout(ctx, o.cfg.TotalTimeout)
	defer cancel()

	jc := JobContext{Job: job}
	if o.refs != nil {
		jc.Reference = o.refs.Resolve(runCtx, job.Params)
	}

	state := &runState{}
	if err := o.attemptLoop(runCtx, ctx, jc, state); err != nil {
		return err
	}
	if ctx.Err() != nil {
		// Shutdown, not a job deadline: leave the row for the next claim.
		return ctx.Err()
	}
	if err := o.finish(ctx, job, state); err != nil {
		return err
	}
	if state.timedOut {
		return fmt.Errorf("job %s: %w", job.ID, domain.ErrJobTimeout)
	}
	return nil
}

// attemptLoop runs up to MaxRetry passes over the missing indices. runCtx
// carries the total deadline; bookkeeping uses ctx so it still lands after the
// deadline fires.
func (o *Orchestrator) attemptLoop(runCtx, ctx context.Context, jc JobContext, state *runState) error {
	job := jc.Job
	log := o.log.With().Str("job_id", job.ID).Logger()
	for attempt := 1; attempt <= o.cfg.MaxRetry; attempt++ {
		if runCtx.Err() != nil {
			state.timedOut = true
			return nil
		}
		pending, err := o.pending(ctx, job)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			return nil
		}
		state.attempts = attempt
		log.Debug().Int("attempt", attempt).Ints("pending", pending).Msg("attempt started")

		var failed []int
		batches := partition(pending, o.cfg.BatchSize)
		for i, batch := range batches {
			if runCtx.Err() != nil {
				state.timedOut = true
				return nil
			}
			batchFailed, batchErr := o.runBatch(runCtx, jc, batch, attempt)
			failed = append(failed, batchFailed...)
			if batchErr != nil {
				state.lastErr = batchErr
			}
			if len(batchFailed) > 0 && runCtx.Err() != nil {
				state.timedOut = true
			}
			count, err := o.artifacts.CountByJob(ctx, job.ID)
			if err != nil {
				return fmt.Errorf("recount artifacts: %w", err)
			}
			if err := o.jobs.UpdateProgress(ctx, job.ID, min(count, job.TargetCount)); err != nil {
				return fmt.Errorf("checkpoint progress: %w", err)
			}
			if state.timedOut {
				return nil
			}
			if i < len(batches)-1 && o.cfg.BatchDelay > 0 {
				if err := o.sleep(runCtx, o.cfg.BatchDelay); err != nil {
					state.timedOut = true
					return nil
				}
			}
		}
		if len(failed) == 0 {
			return nil
		}
		log.Warn().Int("attempt", attempt).Ints("failed", failed).Err(state.lastErr).Msg("attempt finished with failures")
		if attempt < o.cfg.MaxRetry {
			if err := o.sleep(runCtx, o.cfg.retryDelay(attempt)); err != nil {
				state.timedOut = true
				return nil
			}
		}
	}
	return nil
}

// runBatch generates every index concurrently and waits for all of them. It
// returns the failed indices and one representative error.
func (o *Orchestrator) runBatch(runCtx context.Context, jc JobContext, batch []int, attempt int) ([]int, error) {
	var (
		mu      sync.Mutex
		failed  []int
		lastErr error
	)
	g := new(errgroup.Group)
	g.SetLimit(o.cfg.BatchSize)
	for _, index := range batch {
		index := index
		g.Go(func() error {
			err := o.generateWithDeadline(runCtx, jc, index, attempt)
			if err == nil {
				return nil
			}
			o.logItemFailure(jc.Job.ID, index, attempt, err)
			mu.Lock()
			failed = append(failed, index)
			lastErr = fmt.Errorf("item %d: %w", index, err)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	sort.Ints(failed)
	return failed, lastErr
}

// generateWithDeadline races one item against SingleItemTimeout so that a
// call ignoring its context still counts as failed on time.
func (o *Orchestrator) generateWithDeadline(runCtx context.Context, jc JobContext, index, attempt int) error {
	itemCtx, cancel := context.WithTimeout(runCtx, o.cfg.SingleItemTimeout)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("%w: panic: %v", domain.ErrProviderFailure, r)
			}
		}()
		done <- o.items.Generate(itemCtx, jc, index, attempt)
	}()
	select {
	case err := <-done:
		if err != nil && errors.Is(itemCtx.Err(), context.DeadlineExceeded) {
			return o.deadlineError(runCtx, err)
		}
		return err
	case <-itemCtx.Done():
		return o.deadlineError(runCtx, itemCtx.Err())
	}
}

// deadlineError names whichever deadline cut the item short.
func (o *Orchestrator) deadlineError(runCtx context.Context, err error) error {
	if runCtx.Err() != nil {
		return fmt.Errorf("job deadline of %s reached: %w", o.cfg.TotalTimeout, err)
	}
	return fmt.Errorf("timed out after %s: %w", o.cfg.SingleItemTimeout, err)
}

func (o *Orchestrator) logItemFailure(jobID string, index, attempt int, err error) {
	e := o.log.Warn()
	if writer.IsTerminal(err) {
		e = o.log.Error().Bool("terminal", true)
	}
	e.Err(err).Str("job_id", jobID).Int("index", index).Int("attempt", attempt).Msg("item generation failed")
}

// pending lists the indices in 1..TargetCount without a persisted artifact.
func (o *Orchestrator) pending(ctx context.Context, job *domain.Job) ([]int, error) {
	done, err := o.artifacts.ListIndexes(ctx, job.ID)
	if err != nil {
		return nil, fmt.Errorf("list artifact indexes: %w", err)
	}
	have := make(map[int]struct{}, len(done))
	for _, idx := range done {
		have[idx] = struct{}{}
	}
	var out []int
	for idx := 1; idx <= job.TargetCount; idx++ {
		if _, ok := have[idx]; !ok {
			out = append(out, idx)
		}
	}
	return out, nil
}

// finish writes the terminal status exactly once and reconciles credits. The
// failure write recounts artifacts itself, so the refund follows the stored
// count even when a straggling call persisted an item after the recount here.
func (o *Orchestrator) finish(ctx context.Context, job *domain.Job, state *runState) error {
	log := o.log.With().Str("job_id", job.ID).Logger()
	count, err := o.artifacts.CountByJob(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("final recount: %w", err)
	}
	if count >= job.TargetCount {
		return o.complete(ctx, job, state)
	}

	reason := failureReason(job.TargetCount, count, state, o.cfg)
	reason = truncateRunes(reason, o.cfg.ErrorMaxLen)
	changed, err := o.jobs.MarkFailed(ctx, job.ID, reason)
	if err != nil {
		return fmt.Errorf("mark job failed: %w", err)
	}
	current, err := o.jobs.GetByID(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("reload job: %w", err)
	}
	switch current.Status {
	case domain.JobStatusFailed:
	case domain.JobStatusCompleted:
		log.Warn().Msg("job completed by another run")
		return nil
	default:
		// A late artifact filled the last gap before the failure write.
		return o.complete(ctx, job, state)
	}
	refunded := int64(0)
	if !current.RefundSettled {
		refunded = o.settleRefund(ctx, current)
	}
	if changed {
		log.Warn().Int("count", current.CompletedCount).Int("shortfall", current.Shortfall()).Str("reason", reason).Msg("job failed")
		o.publish(notify.Event{
			Kind:           notify.KindJobFailed,
			JobID:          job.ID,
			UserID:         job.UserID,
			TargetCount:    job.TargetCount,
			CompletedCount: current.CompletedCount,
			Shortfall:      current.Shortfall(),
			Refunded:       refunded,
			Reason:         reason,
		})
	}
	return nil
}

func (o *Orchestrator) complete(ctx context.Context, job *domain.Job, state *runState) error {
	changed, err := o.jobs.MarkCompleted(ctx, job.ID, job.TargetCount)
	if err != nil {
		return fmt.Errorf("mark job completed: %w", err)
	}
	if changed {
		o.log.Info().Str("job_id", job.ID).Int("count", job.TargetCount).Int("attempts", state.attempts).Msg("job completed")
		o.publish(notify.Event{
			Kind:           notify.KindJobCompleted,
			JobID:          job.ID,
			UserID:         job.UserID,
			TargetCount:    job.TargetCount,
			CompletedCount: job.TargetCount,
		})
	}
	return nil
}

// settleRefund credits shortfall × costPerItem back once per job. A ledger
// failure leaves refund_settled false so a later claim retries it.
func (o *Orchestrator) settleRefund(ctx context.Context, job *domain.Job) int64 {
	log := o.log.With().Str("job_id", job.ID).Logger()
	amount := int64(job.Shortfall()) * job.CostPerItem
	if amount > 0 {
		reason := fmt.Sprintf("shortfall %d of %d", job.Shortfall(), job.TargetCount)
		if err := o.ledger.Refund(ctx, job.UserID, amount, domain.LedgerReferenceJob, job.ID, reason); err != nil {
			log.Error().Err(err).Int64("amount", amount).Msg("refund failed; will retry")
			return 0
		}
	}
	if err := o.jobs.MarkRefundSettled(ctx, job.ID); err != nil {
		log.Error().Err(err).Msg("mark refund settled failed")
	}
	log.Info().Int64("amount", amount).Msg("refund settled")
	return amount
}

func (o *Orchestrator) publish(ev notify.Event) {
	if o.notifier == nil {
		return
	}
	ev.At = o.now().UTC()
	o.notifier.Publish(ev)
}

func failureReason(target, count int, state *runState, cfg Config) string {
	shortfall := target - count
	var msg string
	if state.timedOut {
		msg = fmt.Sprintf("job timed out after %s: %d of %d items missing", cfg.TotalTimeout, shortfall, target)
	} else {
		msg = fmt.Sprintf("%d of %d items missing after %d attempts", shortfall, target, state.attempts)
	}
	if state.lastErr != nil {
		msg += ": " + state.lastErr.Error()
	}
	return msg
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

func partition(indices []int, size int) [][]int {
	if size < 1 {
		size = 1
	}
	var out [][]int
	for start := 0; start < len(indices); start += size {
		end := min(start+size, len(indices))
		out = append(out, indices[start:end])
	}
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
