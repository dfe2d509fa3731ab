package gate_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/toolgate/pkg/gate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGate_AdmitAndIdempotentRelease(t *testing.T) {
	g := gate.New(1, 0)

	release, err := g.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, g.Stats().Active)

	release()
	release()
	assert.Equal(t, 0, g.Stats().Active)

	// A double release must not have freed two slots.
	r1, err := g.Acquire(context.Background())
	require.NoError(t, err)
	_, err = g.Acquire(context.Background())
	var busy *gate.BusyError
	assert.ErrorAs(t, err, &busy)
	r1()
}

func TestGate_ShedsExactlyOneBeyondCapacity(t *testing.T) {
	const maxActive, maxQueue = 2, 3
	g := gate.New(maxActive, maxQueue, gate.WithRetryAfter(250*time.Millisecond))
	ctx := context.Background()

	var holders []gate.Release
	for i := 0; i < maxActive; i++ {
		r, err := g.Acquire(ctx)
		require.NoError(t, err)
		holders = append(holders, r)
	}

	var wg sync.WaitGroup
	results := make(chan error, maxQueue)
	for i := 0; i < maxQueue; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := g.Acquire(ctx)
			if err == nil {
				r()
			}
			results <- err
		}()
	}
	require.Eventually(t, func() bool { return g.Stats().Queued == maxQueue }, time.Second, time.Millisecond)

	_, err := g.Acquire(ctx)
	var busy *gate.BusyError
	require.ErrorAs(t, err, &busy)
	assert.Equal(t, maxActive, busy.Active)
	assert.Equal(t, maxQueue, busy.Queued)
	assert.Equal(t, 250*time.Millisecond, busy.RetryAfter)

	for _, r := range holders {
		r()
	}
	wg.Wait()
	close(results)
	for err := range results {
		assert.NoError(t, err, "queued callers complete once slots free up")
	}
	assert.Equal(t, gate.Stats{MaxActive: maxActive, MaxQueue: maxQueue}, g.Stats())
}

func TestGate_CancelWhileQueued(t *testing.T) {
	g := gate.New(1, 1)
	hold, err := g.Acquire(context.Background())
	require.NoError(t, err)
	defer hold()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		r, err := g.Acquire(ctx)
		if err == nil {
			r()
		}
		done <- err
	}()
	require.Eventually(t, func() bool { return g.Stats().Queued == 1 }, time.Second, time.Millisecond)

	cancel()
	err = <-done

	var cancelled *gate.CancelledError
	require.ErrorAs(t, err, &cancelled)
	assert.True(t, errors.Is(err, context.Canceled))
	var busy *gate.BusyError
	assert.False(t, errors.As(err, &busy))
	assert.Equal(t, 0, g.Stats().Queued)
	assert.Equal(t, 1, g.Stats().Active)
}

func TestGate_AlreadyCancelledContext(t *testing.T) {
	g := gate.New(1, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Acquire(ctx)
	var cancelled *gate.CancelledError
	assert.ErrorAs(t, err, &cancelled)
	assert.Equal(t, 0, g.Stats().Active)
}

func TestGate_FIFOPromotion(t *testing.T) {
	g := gate.New(1, 3)
	hold, err := g.Acquire(context.Background())
	require.NoError(t, err)

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	for i := 1; i <= 3; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			r, err := g.Acquire(context.Background())
			if err != nil {
				return
			}
			mu.Lock()
			order = append(order, id)
			mu.Unlock()
			r()
		}(i)
		want := i
		require.Eventually(t, func() bool { return g.Stats().Queued == want }, time.Second, time.Millisecond)
	}

	hold()
	wg.Wait()
	assert.Equal(t, []int{1, 2, 3}, order)
}
