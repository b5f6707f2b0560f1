package ratelimiter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Config describes the bucket applied to every key.
// Compose it with an envPrefix, e.g. `envPrefix:"CHAT_"` reads CHAT_RATE_CAPACITY.
type Config struct {
	Capacity       int           `env:"RATE_CAPACITY" envDefault:"0"`
	RefillRate     int           `env:"RATE_REFILL" envDefault:"1"`
	RefillInterval time.Duration `env:"RATE_INTERVAL" envDefault:"1s"`
}

// Enabled reports whether the config limits anything. A zero capacity disables limiting.
func (c Config) Enabled() bool {
	return c.Capacity > 0
}

func (c Config) validate() error {
	switch {
	case c.Capacity <= 0:
		return fmt.Errorf("%w: capacity must be positive, got %d", ErrInvalidConfig, c.Capacity)
	case c.RefillRate <= 0:
		return fmt.Errorf("%w: refill rate must be positive, got %d", ErrInvalidConfig, c.RefillRate)
	case c.RefillInterval <= 0:
		return fmt.Errorf("%w: refill interval must be positive, got %s", ErrInvalidConfig, c.RefillInterval)
	}
	return nil
}

// bucket represents a token bucket state.
type bucket struct {
	tokens     int
	lastRefill time.Time
	lastAccess time.Time // Used by cleanup to identify stale buckets
}

// Limiter is a keyed token bucket limiter. Safe for concurrent use.
type Limiter struct {
	cfg Config

	mu      sync.Mutex
	buckets map[string]*bucket
	running bool

	cleanupInterval time.Duration
	staleAfter      time.Duration
	now             func() time.Time
	logger          *slog.Logger

	// Observability metrics
	rejected atomic.Int64
	removed  atomic.Int64
}

// Stats provides observability metrics for monitoring and debugging.
type Stats struct {
	ActiveBuckets int   // Current number of buckets
	Rejected      int64 // Total number of denied Allow calls
	Removed       int64 // Total number of stale buckets removed
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithCleanupInterval sets how often the cleanup loop scans for stale buckets.
func WithCleanupInterval(d time.Duration) Option {
	return func(l *Limiter) {
		if d > 0 {
			l.cleanupInterval = d
		}
	}
}

// WithStaleAfter sets how long a bucket may stay untouched before cleanup removes it.
func WithStaleAfter(d time.Duration) Option {
	return func(l *Limiter) {
		if d > 0 {
			l.staleAfter = d
		}
	}
}

// WithClock replaces time.Now. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// WithLogger sets the logger for internal operations.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a Limiter. Returns ErrInvalidConfig for non-positive settings.
func New(cfg Config, opts ...Option) (*Limiter, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	l := &Limiter{
		cfg:             cfg,
		buckets:         make(map[string]*bucket),
		cleanupInterval: time.Minute,
		staleAfter:      10 * time.Minute,
		now:             time.Now,
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Allow consumes one token from key's bucket and reports whether it was available.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.cfg.Capacity, lastRefill: now}
		l.buckets[key] = b
	}
	b.lastAccess = now

	// Cap intervals to prevent integer overflow after long idle periods.
	maxIntervals := int64(l.cfg.Capacity/l.cfg.RefillRate + 1)
	intervals := int(min(int64(now.Sub(b.lastRefill)/l.cfg.RefillInterval), maxIntervals))
	if intervals > 0 {
		b.tokens = min(b.tokens+intervals*l.cfg.RefillRate, l.cfg.Capacity)
		b.lastRefill = now
	}

	if b.tokens <= 0 {
		l.rejected.Add(1)
		return false
	}
	b.tokens--
	return true
}

// Forget drops key's bucket, restoring full capacity.
func (l *Limiter) Forget(key string) {
	l.mu.Lock()
	delete(l.buckets, key)
	l.mu.Unlock()
}

// Stats returns current limiter statistics.
func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	active := len(l.buckets)
	l.mu.Unlock()

	return Stats{
		ActiveBuckets: active,
		Rejected:      l.rejected.Load(),
		Removed:       l.removed.Load(),
	}
}

// Start runs the cleanup loop until ctx is canceled. It blocks; use Run for errgroup.
func (l *Limiter) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return ErrAlreadyStarted
	}
	l.running = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
	}()

	l.logger.DebugContext(ctx, "rate limiter cleanup started",
		slog.Duration("cleanup_interval", l.cleanupInterval),
		slog.Duration("stale_after", l.staleAfter))

	ticker := time.NewTicker(l.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n := l.RemoveStale(); n > 0 {
				l.logger.DebugContext(ctx, "removed stale rate limit buckets", slog.Int("count", n))
			}
		}
	}
}

// Run provides errgroup compatibility for coordinated lifecycle management.
func (l *Limiter) Run(ctx context.Context) func() error {
	return func() error {
		err := l.Start(ctx)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return err
	}
}

// RemoveStale deletes buckets untouched for longer than the stale threshold
// and returns how many were removed.
func (l *Limiter) RemoveStale() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, b := range l.buckets {
		if now.Sub(b.lastAccess) > l.staleAfter {
			delete(l.buckets, key)
			removed++
		}
	}
	l.removed.Add(int64(removed))
	return removed
}
