// Package mutation serializes side-effecting operations per key.
//
// Operations sharing a key run one at a time in arrival order; operations on
// different keys never wait for each other. Each key holds a chain of pending
// tickets and its entry is evicted as soon as the chain drains.
package mutation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/toolgate/internal/logging"
	"github.com/aretw0/toolgate/pkg/ports"
)

// ErrCancelled is returned when the caller's context ends before its
// operation was started. The operation is never run in that case.
var ErrCancelled = errors.New("mutation cancelled before start")

// DefaultLockTTL bounds how long a distributed lock outlives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// Operation is the exclusive body run under a key.
type Operation func(ctx context.Context) (any, error)

// chain holds the tickets of one key.
type chain struct {
	pending int
	tail    chan struct{} // closed when the newest ticket settles
}

var settled = func() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}()

// Serializer runs operations under an exclusive per-key FIFO lock.
type Serializer struct {
	mu     sync.Mutex
	chains map[string]*chain

	locker  ports.Locker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures a Serializer.
type Option func(*Serializer)

// WithLocker additionally takes a distributed lock for the key once the local
// turn is granted, so replicas sharing the locker stay exclusive too.
func WithLocker(locker ports.Locker, ttl time.Duration) Option {
	return func(s *Serializer) {
		s.locker = locker
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for deferred errors such as failed unlocks.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Serializer) {
		s.logger = logger
	}
}

// New creates an empty Serializer.
func New(opts ...Option) *Serializer {
	s := &Serializer{
		chains:  make(map[string]*chain),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Serialize runs op once every earlier operation for key has settled.
//
// If ctx ends while waiting, op is not run and an error wrapping ErrCancelled
// and ctx.Err() is returned; the ticket still settles behind its predecessor
// so later callers keep their order. Once op has started it runs to
// completion with a context detached from ctx's cancellation, and its own
// result is reported.
func (s *Serializer) Serialize(ctx context.Context, key string, op Operation) (any, error) {
	prev, done := s.enqueue(key)

	select {
	case <-prev:
	case <-ctx.Done():
		go func() {
			<-prev
			s.settle(key, done)
		}()
		return nil, fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
	}
	// select picks at random when both are ready; a done ctx always wins.
	if err := ctx.Err(); err != nil {
		s.settle(key, done)
		return nil, fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	defer s.settle(key, done)

	if s.locker != nil {
		unlock, err := s.locker.Lock(ctx, key, s.lockTTL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
			}
			return nil, fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"key", key,
					"err", err,
				)
			}
		}()
	}

	return op(context.WithoutCancel(ctx))
}

// enqueue appends a ticket for key and returns the channel of its
// predecessor and its own completion channel.
func (s *Serializer) enqueue(key string) (<-chan struct{}, chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.chains[key]
	if !ok {
		c = &chain{tail: settled}
		s.chains[key] = c
	}
	prev := c.tail
	done := make(chan struct{})
	c.tail = done
	c.pending++
	return prev, done
}

// settle marks a ticket finished and evicts the key once nothing is pending.
func (s *Serializer) settle(key string, done chan struct{}) {
	close(done)

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.chains[key]
	if !ok {
		return // Should not happen if paired correctly
	}
	c.pending--
	if c.pending <= 0 {
		delete(s.chains, key)
	}
}

// Pending returns the number of unsettled tickets for key.
func (s *Serializer) Pending(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.chains[key]; ok {
		return c.pending
	}
	return 0
}

// Keys returns the number of keys currently tracked.
func (s *Serializer) Keys() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chains)
}
