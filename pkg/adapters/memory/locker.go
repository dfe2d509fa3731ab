// Package memory provides an in-process ports.Locker. It lets several
// servers in one process share mutation locks, e.g. in tests or when
// embedding multiple toolgate instances.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/toolgate/pkg/ports"
)

// DefaultTTL is used when Lock is called with a non-positive ttl.
const DefaultTTL = 30 * time.Second

type lease struct {
	expires time.Time
	done    chan struct{} // closed when the lease ends
}

// Locker implements ports.Locker in memory.
// Safe for concurrent use.
type Locker struct {
	mu     sync.Mutex
	leases map[string]*lease
	now    func() time.Time
}

// NewLocker creates a new in-memory locker.
func NewLocker() *Locker {
	return &Locker{
		leases: make(map[string]*lease),
		now:    time.Now,
	}
}

// Lock waits until key is free, or its current lease has expired, and takes
// it for ttl.
func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	for {
		l.mu.Lock()
		now := l.now()
		cur, held := l.leases[key]
		if !held || !now.Before(cur.expires) {
			if held {
				close(cur.done)
			}
			ls := &lease{expires: now.Add(ttl), done: make(chan struct{})}
			l.leases[key] = ls
			l.mu.Unlock()
			return func(context.Context) error {
				l.release(key, ls)
				return nil
			}, nil
		}
		wait, done := cur.expires.Sub(now), cur.done
		l.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-done:
		case <-timer.C:
		}
		timer.Stop()
	}
}

// release ends ls if it is still the current lease of key. A holder whose
// lease expired and was taken over cannot release the new holder.
func (l *Locker) release(key string, ls *lease) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.leases[key] == ls {
		delete(l.leases, key)
		close(ls.done)
	}
}

// Held reports whether key has an unexpired lease.
func (l *Locker) Held(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	ls, ok := l.leases[key]
	return ok && l.now().Before(ls.expires)
}
