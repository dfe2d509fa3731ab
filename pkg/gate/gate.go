// Package gate bounds the number of in-flight calls of a registration unit.
//
// A Gate admits up to maxActive callers at once, parks up to maxQueue more in
// FIFO order and sheds everything beyond that immediately with a BusyError.
package gate

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultRetryAfter is the retry hint reported with BusyError.
const DefaultRetryAfter = time.Second

// Release returns a slot to the gate. It is safe to call more than once;
// only the first call has an effect.
type Release func()

// BusyError is returned when both the active slots and the wait queue are full.
type BusyError struct {
	Active     int
	Queued     int
	RetryAfter time.Duration
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("server busy: %d active, %d queued; retry after %s", e.Active, e.Queued, e.RetryAfter)
}

// CancelledError is returned when the caller's context ends while it is
// waiting in the queue.
type CancelledError struct {
	Cause error
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("cancelled while waiting for a slot: %v", e.Cause)
}

func (e *CancelledError) Unwrap() error { return e.Cause }

// Stats is a snapshot of the gate counters.
type Stats struct {
	Active    int
	Queued    int
	MaxActive int
	MaxQueue  int
}

// Gate is a FIFO admission controller with load shedding.
type Gate struct {
	maxActive  int
	maxQueue   int
	retryAfter time.Duration

	mu      sync.Mutex
	active  int
	waiters *list.List // of chan struct{}, closed on promotion
}

// Option configures a Gate.
type Option func(*Gate)

// WithRetryAfter sets the retry hint reported to shed callers.
func WithRetryAfter(d time.Duration) Option {
	return func(g *Gate) {
		g.retryAfter = d
	}
}

// New creates a gate. maxActive below one is raised to one; a negative
// maxQueue is treated as zero (no waiting, shed immediately).
func New(maxActive, maxQueue int, opts ...Option) *Gate {
	if maxActive < 1 {
		maxActive = 1
	}
	if maxQueue < 0 {
		maxQueue = 0
	}
	g := &Gate{
		maxActive:  maxActive,
		maxQueue:   maxQueue,
		retryAfter: DefaultRetryAfter,
		waiters:    list.New(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Acquire admits the caller or parks it until a slot frees up. It returns a
// *BusyError when the queue is full and a *CancelledError when ctx ends
// before the caller is promoted; in both cases no slot is held.
func (g *Gate) Acquire(ctx context.Context) (Release, error) {
	if err := ctx.Err(); err != nil {
		return nil, &CancelledError{Cause: err}
	}

	g.mu.Lock()
	// Newcomers never overtake parked callers.
	if g.active < g.maxActive && g.waiters.Len() == 0 {
		g.active++
		g.mu.Unlock()
		return g.releaser(), nil
	}
	if g.waiters.Len() >= g.maxQueue {
		err := &BusyError{Active: g.active, Queued: g.waiters.Len(), RetryAfter: g.retryAfter}
		g.mu.Unlock()
		return nil, err
	}
	ready := make(chan struct{})
	elem := g.waiters.PushBack(ready)
	g.mu.Unlock()

	select {
	case <-ready:
		return g.releaser(), nil
	case <-ctx.Done():
		g.mu.Lock()
		select {
		case <-ready:
			// Promoted concurrently with the cancellation: hand the slot on.
			g.mu.Unlock()
			g.releaseSlot()
		default:
			g.waiters.Remove(elem)
			g.mu.Unlock()
		}
		return nil, &CancelledError{Cause: ctx.Err()}
	}
}

func (g *Gate) releaser() Release {
	var once sync.Once
	return func() {
		once.Do(g.releaseSlot)
	}
}

// releaseSlot frees one active slot and promotes parked callers in order.
func (g *Gate) releaseSlot() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.active--
	for g.active < g.maxActive && g.waiters.Len() > 0 {
		front := g.waiters.Front()
		g.waiters.Remove(front)
		g.active++
		close(front.Value.(chan struct{}))
	}
}

// Stats returns the current counters.
func (g *Gate) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Stats{Active: g.active, Queued: g.waiters.Len(), MaxActive: g.maxActive, MaxQueue: g.maxQueue}
}
