package orchestrator

import "time"

// Config tunes one orchestrator run. Zero fields take the defaults.
type Config struct {
	MaxRetry          int
	BatchSize         int
	SingleItemTimeout time.Duration
	TotalTimeout      time.Duration
	RetryDelay        time.Duration
	BatchDelay        time.Duration
	ErrorMaxLen       int
	// Lease is how long the job row stays reserved for this run.
	Lease time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxRetry:          3,
		BatchSize:         1,
		SingleItemTimeout: 120 * time.Second,
		TotalTimeout:      30 * time.Minute,
		RetryDelay:        2 * time.Second,
		BatchDelay:        500 * time.Millisecond,
		ErrorMaxLen:       500,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxRetry < 1 {
		c.MaxRetry = def.MaxRetry
	}
	if c.BatchSize < 1 {
		c.BatchSize = def.BatchSize
	}
	if c.SingleItemTimeout <= 0 {
		c.SingleItemTimeout = def.SingleItemTimeout
	}
	if c.TotalTimeout <= 0 {
		c.TotalTimeout = def.TotalTimeout
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = 0
	}
	if c.BatchDelay < 0 {
		c.BatchDelay = 0
	}
	if c.ErrorMaxLen <= 0 {
		c.ErrorMaxLen = def.ErrorMaxLen
	}
	if c.Lease < c.TotalTimeout {
		c.Lease = c.TotalTimeout + 5*time.Minute
	}
	return c
}

// retryDelay returns the pause after a failed attempt: RetryDelay * 2^(attempt-1).
func (c Config) retryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := c.RetryDelay
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	return d
}
