package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"contentgen/internal/infra"
)

const defaultDeliveryTimeout = 5 * time.Second

// Async delivers events in the background. Publish never blocks on delivery
// and never reports an error; failures and panics are logged.
type Async struct {
	next    Notifier
	log     infra.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewAsync(next Notifier, log infra.Logger, timeout time.Duration) *Async {
	if timeout <= 0 {
		timeout = defaultDeliveryTimeout
	}
	return &Async{
		next:    next,
		log:     log.With().Str("component", "notify").Logger(),
		timeout: timeout,
	}
}

func (a *Async) Publish(ev Event) {
	if a == nil || a.next == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				a.log.Error().Str("panic", fmt.Sprint(r)).Str("job_id", ev.JobID).Msg("notifier panic")
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		if err := a.next.Notify(ctx, ev); err != nil {
			a.log.Warn().Err(err).Str("kind", ev.Kind).Str("job_id", ev.JobID).Msg("notification failed")
		}
	}()
}

// Wait blocks until in-flight deliveries finish or ctx is done.
func (a *Async) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
