package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/good-yellow-bee/alertwatch/internal/storage"
)

// RateLimitConfig holds rate limiter configuration.
type RateLimitConfig struct {
	MaxPerWindow int           `yaml:"max_per_window"` // default: 10
	Window       time.Duration `yaml:"window"`         // default: 5 minutes
	Enabled      bool          `yaml:"enabled"`
}

// DefaultRateLimitConfig returns default rate limit settings.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxPerWindow: 10,
		Window:       5 * time.Minute,
		Enabled:      true,
	}
}

// RateLimiter bounds sends per dedupe key over a sliding window. The
// window lives in storage rather than process memory: cron-driven
// invocations are short-lived, and an in-process window would reset on
// every run.
type RateLimiter struct {
	log    storage.NotificationLogRepository
	config RateLimitConfig
	now    func() time.Time
}

// NewRateLimiter creates a rate limiter backed by the given send log.
func NewRateLimiter(log storage.NotificationLogRepository, config RateLimitConfig) *RateLimiter {
	if config.MaxPerWindow <= 0 {
		config.MaxPerWindow = 10
	}
	if config.Window <= 0 {
		config.Window = 5 * time.Minute
	}
	return &RateLimiter{
		log:    log,
		config: config,
		now:    time.Now,
	}
}

// Allow reports whether a send for key fits in the current window and,
// if so, consumes a slot.
func (r *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if !r.config.Enabled {
		return true, nil
	}

	now := r.now()
	ok, err := r.log.AllowSend(ctx, key, now.Add(-r.config.Window), r.config.MaxPerWindow, now)
	if err != nil {
		return false, fmt.Errorf("rate limit check: %w", err)
	}
	return ok, nil
}

// Prune removes send records older than twice the window.
func (r *RateLimiter) Prune(ctx context.Context) (int64, error) {
	return r.log.DeleteBefore(ctx, r.now().Add(-2*r.config.Window))
}
