package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"contentgen/internal/infra"
)

const (
	KindJobCompleted = "job.completed"
	KindJobFailed    = "job.failed"
)

// Event describes a terminal job transition.
type Event struct {
	Kind           string    `json:"kind"`
	JobID          string    `json:"job_id"`
	UserID         string    `json:"user_id"`
	TargetCount    int       `json:"target_count"`
	CompletedCount int       `json:"completed_count"`
	Shortfall      int       `json:"shortfall,omitempty"`
	Refunded       int64     `json:"refunded,omitempty"`
	Reason         string    `json:"reason,omitempty"`
	At             time.Time `json:"at"`
}

// Notifier delivers job events to users or downstream systems.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// LogNotifier writes events to the structured log.
type LogNotifier struct {
	log infra.Logger
}

func NewLogNotifier(log infra.Logger) *LogNotifier {
	return &LogNotifier{log: log.With().Str("component", "notify").Logger()}
}

func (n *LogNotifier) Notify(ctx context.Context, ev Event) error {
	e := n.log.Info()
	if ev.Kind == KindJobFailed {
		e = n.log.Warn().Str("reason", ev.Reason).Int("shortfall", ev.Shortfall).Int64("refunded", ev.Refunded)
	}
	e.Str("kind", ev.Kind).
		Str("job_id", ev.JobID).
		Str("user_id", ev.UserID).
		Int("completed", ev.CompletedCount).
		Int("target", ev.TargetCount).
		Msg("job finished")
	return nil
}

// RedisNotifier publishes events as JSON on a pub/sub channel.
type RedisNotifier struct {
	rdb     goredis.Cmdable
	channel string
}

func NewRedisNotifier(rdb goredis.Cmdable, channel string) *RedisNotifier {
	if channel == "" {
		channel = "contentgen.jobs"
	}
	return &RedisNotifier{rdb: rdb, channel: channel}
}

func (n *RedisNotifier) Notify(ctx context.Context, ev Event) error {
	if n == nil || n.rdb == nil {
		return fmt.Errorf("redis notifier not initialized")
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return n.rdb.Publish(ctx, n.channel, raw).Err()
}

// Multi fans an event out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, ev Event) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
