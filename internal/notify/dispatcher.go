package notify

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/good-yellow-bee/alertwatch/internal/metrics"
)

// Dispatcher fans a notification out to its channels, applying the
// per-key rate limit first. Channels are attempted independently; a
// failure on one never blocks the others, and there are no automatic
// retries (the next escalation cycle is the retry).
type Dispatcher struct {
	mu      sync.RWMutex
	senders map[Channel]Sender
	limiter *RateLimiter
	now     func() time.Time
}

// NewDispatcher creates a dispatcher with the given rate limiter.
// A nil limiter disables rate limiting (used in tests).
func NewDispatcher(limiter *RateLimiter) *Dispatcher {
	return &Dispatcher{
		senders: make(map[Channel]Sender),
		limiter: limiter,
		now:     time.Now,
	}
}

// Register adds a sender to the dispatcher.
func (d *Dispatcher) Register(s Sender) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.senders[s.Name()] = s
}

// Send dispatches the notification and returns one result per
// requested channel. Rate limiting applies to the notification as a
// whole: a full window reports every channel as rate_limited.
func (d *Dispatcher) Send(ctx context.Context, n *Notification) []Result {
	channels := n.Channels
	if len(channels) == 0 {
		channels = []Channel{ChannelPush, ChannelEmail}
	}

	if d.limiter != nil {
		allowed, err := d.limiter.Allow(ctx, n.Key())
		if err != nil {
			// A broken limiter store must not silence alerting.
			log.Printf("notify: rate limit check failed, sending anyway: %v", err)
		} else if !allowed {
			log.Printf("notify: rate limited %q (key %s)", n.Title, n.Key())
			metrics.NotificationsRateLimitedTotal.Inc()
			return d.allWithOutcome(channels, OutcomeRateLimited)
		}
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	results := make([]Result, 0, len(channels))
	for _, ch := range channels {
		at := d.now()
		sender, ok := d.senders[ch]
		if !ok {
			results = append(results, Result{Channel: ch, Outcome: OutcomeSkipped, Error: "channel not configured", At: at})
			metrics.NotificationsTotal.WithLabelValues(string(ch), string(OutcomeSkipped)).Inc()
			continue
		}

		err := sender.Send(ctx, n)
		result := Result{Channel: ch, Outcome: OutcomeDelivered, At: at}
		switch {
		case errors.Is(err, ErrSkipped):
			result.Outcome = OutcomeSkipped
		case err != nil:
			result.Outcome = OutcomeFailed
			result.Error = err.Error()
			log.Printf("notify: %s delivery failed for %q: %v", ch, n.Title, err)
		}
		metrics.NotificationsTotal.WithLabelValues(string(ch), string(result.Outcome)).Inc()
		results = append(results, result)
	}
	return results
}

// Close closes all registered senders.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var firstErr error
	for _, s := range d.senders {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	d.senders = make(map[Channel]Sender)
	return firstErr
}

func (d *Dispatcher) allWithOutcome(channels []Channel, outcome Outcome) []Result {
	at := d.now()
	results := make([]Result, 0, len(channels))
	for _, ch := range channels {
		results = append(results, Result{Channel: ch, Outcome: outcome, At: at})
	}
	return results
}
