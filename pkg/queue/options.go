package queue

import (
	"log/slog"
	"time"
)

// Config holds the queue tuning knobs, loadable from the environment.
type Config struct {
	TickInterval time.Duration `env:"QUEUE_TICK_INTERVAL" envDefault:"1s"`
	Concurrency  int           `env:"QUEUE_CONCURRENCY" envDefault:"5"`
	MaxRetries   int           `env:"QUEUE_MAX_RETRIES" envDefault:"3"`
	RetryDelay   time.Duration `env:"QUEUE_RETRY_DELAY" envDefault:"5s"`
}

type options struct {
	tickInterval time.Duration
	retryDelay   time.Duration
	maxRetries   int
	concurrency  int
	logger       *slog.Logger
}

func defaultOptions() *options {
	return &options{
		tickInterval: time.Second,
		retryDelay:   5 * time.Second,
		maxRetries:   3,
		concurrency:  5,
		logger:       slog.Default(),
	}
}

// Option configures a Queue.
type Option func(*options)

// WithConfig applies an environment-loaded Config.
func WithConfig(cfg Config) Option {
	return func(o *options) {
		if cfg.TickInterval > 0 {
			o.tickInterval = cfg.TickInterval
		}
		if cfg.RetryDelay > 0 {
			o.retryDelay = cfg.RetryDelay
		}
		if cfg.MaxRetries >= 0 {
			o.maxRetries = cfg.MaxRetries
		}
		if cfg.Concurrency > 0 {
			o.concurrency = cfg.Concurrency
		}
	}
}

// WithTickInterval sets how often the queue looks for due jobs.
func WithTickInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.tickInterval = d
		}
	}
}

// WithRetryDelay sets the fixed delay before a failed job becomes
// eligible again.
func WithRetryDelay(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.retryDelay = d
		}
	}
}

// WithMaxRetries sets the per-job retry budget.
func WithMaxRetries(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.maxRetries = n
		}
	}
}

// WithConcurrency sets how many jobs a single tick may dispatch in
// parallel.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithLogger sets the queue logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
