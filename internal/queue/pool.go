package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"contentgen/internal/domain"
	"contentgen/internal/infra"
)

// Claimer hands out the next runnable job id, or domain.ErrNotFound.
type Claimer interface {
	ClaimNext(ctx context.Context, lease time.Duration) (string, error)
}

// Handler runs one claimed job.
type Handler interface {
	Run(ctx context.Context, jobID string) error
}

type HandlerFunc func(ctx context.Context, jobID string) error

func (f HandlerFunc) Run(ctx context.Context, jobID string) error { return f(ctx, jobID) }

type Options struct {
	Concurrency  int
	PollInterval time.Duration
	Lease        time.Duration
	Logger       *infra.Logger
}

// Pool runs Concurrency claim loops against the durable job table. A crashed
// or panicking run leaves its row leased; the row becomes claimable again once
// the lease expires.
type Pool struct {
	claimer  Claimer
	handler  Handler
	workers  int
	interval time.Duration
	lease    time.Duration
	log      infra.Logger
}

func NewPool(claimer Claimer, handler Handler, opts Options) *Pool {
	log := infra.NopLogger()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	workers := opts.Concurrency
	if workers < 1 {
		workers = 1
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	lease := opts.Lease
	if lease <= 0 {
		lease = 35 * time.Minute
	}
	return &Pool{
		claimer:  claimer,
		handler:  handler,
		workers:  workers,
		interval: interval,
		lease:    lease,
		log:      log.With().Str("component", "queue").Logger(),
	}
}

// Run blocks until ctx is cancelled and every in-flight job has returned.
func (p *Pool) Run(ctx context.Context) {
	p.log.Info().Int("concurrency", p.workers).Dur("lease", p.lease).Msg("worker pool started")
	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			p.loop(ctx, workerID)
		}(i + 1)
	}
	wg.Wait()
	p.log.Info().Msg("worker pool stopped")
}

func (p *Pool) loop(ctx context.Context, workerID int) {
	log := p.log.With().Int("worker_id", workerID).Logger()
	for {
		if ctx.Err() != nil {
			return
		}
		jobID, err := p.claimer.ClaimNext(ctx, p.lease)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) && ctx.Err() == nil {
				log.Error().Err(err).Msg("claim job failed")
			}
			if !wait(ctx, p.interval) {
				return
			}
			continue
		}
		p.handle(ctx, log, jobID)
	}
}

func (p *Pool) handle(ctx context.Context, log infra.Logger, jobID string) {
	log = log.With().Str("job_id", jobID).Logger()
	log.Info().Msg("job claimed")
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("panic", fmt.Sprint(r)).Msg("job handler panic")
		}
	}()
	err := p.handler.Run(ctx, jobID)
	elapsed := time.Since(start)
	switch {
	case err == nil:
		log.Info().Dur("elapsed", elapsed).Msg("job run finished")
	case errors.Is(err, domain.ErrJobTimeout):
		log.Warn().Err(err).Dur("elapsed", elapsed).Msg("job run hit total deadline")
	case errors.Is(err, context.Canceled):
		log.Info().Msg("job run interrupted by shutdown")
	default:
		log.Error().Err(err).Dur("elapsed", elapsed).Msg("job run failed")
	}
}

func wait(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
