package outbox

import "time"

// Config holds configuration for the remote mirror queue.
type Config struct {
	// Workers is the number of concurrent queue workers. Default: 2
	Workers int

	// MaxAttempts is the maximum attempts per task before it is marked
	// failed. Default: 5
	MaxAttempts int

	// Backoff is the delay between retries of a failed task. Default: 30s
	Backoff time.Duration

	// Timeout bounds a single task execution. Default: 1m
	Timeout time.Duration

	// ReleaseAfter is when stuck tasks are released back to the queue.
	// Default: 15m
	ReleaseAfter time.Duration

	// CleanupInterval is how often completed tasks are swept. Default: 1h
	CleanupInterval time.Duration

	// RetentionDuration is how long completed tasks are kept. Default: 24h
	RetentionDuration time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Workers:           2,
		MaxAttempts:       5,
		Backoff:           30 * time.Second,
		Timeout:           1 * time.Minute,
		ReleaseAfter:      15 * time.Minute,
		CleanupInterval:   1 * time.Hour,
		RetentionDuration: 24 * time.Hour,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Workers <= 0 {
		c.Workers = def.Workers
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.Backoff <= 0 {
		c.Backoff = def.Backoff
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.ReleaseAfter <= 0 {
		c.ReleaseAfter = def.ReleaseAfter
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = def.CleanupInterval
	}
	if c.RetentionDuration <= 0 {
		c.RetentionDuration = def.RetentionDuration
	}
	return c
}

// tuning holds the retry knobs the queue Config methods report. backlite
// reads queue configuration from the task type, so NewClient assigns this
// from its Config before any queue is built. Build queues only after the
// client exists.
var tuning = struct {
	MaxAttempts int
	Backoff     time.Duration
	Timeout     time.Duration
	Retention   time.Duration
}{
	MaxAttempts: 5,
	Backoff:     30 * time.Second,
	Timeout:     1 * time.Minute,
	Retention:   24 * time.Hour,
}

func applyTuning(cfg Config) {
	tuning.MaxAttempts = cfg.MaxAttempts
	tuning.Backoff = cfg.Backoff
	tuning.Timeout = cfg.Timeout
	tuning.Retention = cfg.RetentionDuration
}
