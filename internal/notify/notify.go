// Package notify provides rate-limited notification dispatching for alerts.
package notify

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"
)

// Channel identifies a delivery channel.
type Channel string

const (
	ChannelPush  Channel = "push"
	ChannelEmail Channel = "email"
)

// Outcome classifies the result of one delivery attempt.
type Outcome string

const (
	OutcomeDelivered   Outcome = "delivered"
	OutcomeFailed      Outcome = "failed"
	OutcomeSkipped     Outcome = "skipped"
	OutcomeRateLimited Outcome = "rate_limited"
)

// Notification is a logical alert event to deliver.
type Notification struct {
	Title    string
	Message  string
	Priority int // 1-5, 5 most urgent
	Channels []Channel
	// DedupeKey groups notifications for rate limiting. Empty means
	// derive one from the title.
	DedupeKey string
}

// Key returns the effective dedupe key.
func (n *Notification) Key() string {
	if n.DedupeKey != "" {
		return n.DedupeKey
	}
	return Fingerprint(n.Title)
}

// Result is the per-channel outcome of a dispatch.
type Result struct {
	Channel Channel   `json:"channel"`
	Outcome Outcome   `json:"outcome"`
	Error   string    `json:"error,omitempty"`
	At      time.Time `json:"at"`
}

// Sender is a single delivery channel implementation.
type Sender interface {
	// Name returns the channel this sender serves.
	Name() Channel
	// Send delivers a notification. A skip (e.g. low priority email
	// suppression) is reported via ErrSkipped.
	Send(ctx context.Context, n *Notification) error
	// Close releases any resources.
	Close() error
}

// ErrSkipped marks a deliberate non-delivery, not a failure.
var ErrSkipped = fmt.Errorf("notification skipped")

// Fingerprint returns a stable dedupe key for a notification title.
func Fingerprint(title string) string {
	h := fnv.New64a()
	h.Write([]byte(title))
	return fmt.Sprintf("%016x", h.Sum64())
}
