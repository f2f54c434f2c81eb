// Package runlock provides single-instance mutual exclusion for
// periodic jobs driven by an external scheduler.
//
// A lock is a heartbeat row in storage. A holder that dies without
// releasing leaves a stale heartbeat; the next acquirer takes the lock
// over once the heartbeat is older than the TTL. Liveness is judged by
// the heartbeat timestamp, not by process IDs, so the check works the
// same on every platform.
package runlock

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/good-yellow-bee/alertwatch/internal/storage"
)

// DefaultTTL is how long a silent holder keeps the lock before it is
// considered dead.
const DefaultTTL = 10 * time.Minute

// Lock is a named, storage-backed job lock.
type Lock struct {
	repo  storage.LockRepository
	name  string
	owner string
	ttl   time.Duration

	mu       sync.Mutex
	held     bool
	stopBeat context.CancelFunc
	beatDone chan struct{}
}

// New creates a lock with the given name. ttl <= 0 uses DefaultTTL.
func New(repo storage.LockRepository, name string, ttl time.Duration) *Lock {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	hostname, _ := os.Hostname()
	return &Lock{
		repo:  repo,
		name:  name,
		owner: fmt.Sprintf("%s-%d-%s", hostname, os.Getpid(), uuid.New().String()[:8]),
		ttl:   ttl,
	}
}

// Acquire attempts to take the lock without blocking. On contention it
// returns false and the caller must skip this run entirely. On success
// a background heartbeat keeps the lock fresh until Release.
func (l *Lock) Acquire(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held {
		return true, nil
	}

	ok, err := l.repo.Acquire(ctx, l.name, l.owner, l.ttl, time.Now())
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", l.name, err)
	}
	if !ok {
		return false, nil
	}

	beatCtx, cancel := context.WithCancel(context.Background())
	l.held = true
	l.stopBeat = cancel
	l.beatDone = make(chan struct{})
	go l.heartbeat(beatCtx)

	return true, nil
}

// Release drops the lock. Safe to defer unconditionally: releasing a
// lock that was never acquired is a no-op.
func (l *Lock) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.held {
		return
	}
	l.stopBeat()
	<-l.beatDone
	l.held = false

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	// Best effort: a failed delete just leaves a heartbeat that will
	// expire on its own.
	_ = l.repo.Release(ctx, l.name, l.owner)
}

// Owner returns the generated holder identity, mostly for logging.
func (l *Lock) Owner() string {
	return l.owner
}

func (l *Lock) heartbeat(ctx context.Context) {
	defer close(l.beatDone)

	interval := l.ttl / 3
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			touchCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			if ok, err := l.repo.Touch(touchCtx, l.name, l.owner, time.Now()); err == nil && !ok {
				// Lost the lock to a stale takeover; stop touching.
				cancel()
				return
			}
			cancel()
		}
	}
}
