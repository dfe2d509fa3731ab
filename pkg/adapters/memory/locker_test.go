package memory_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/toolgate"
	"github.com/aretw0/toolgate/pkg/adapters/memory"
	"github.com/aretw0/toolgate/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocker_LockUnlock(t *testing.T) {
	locker := memory.NewLocker()
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "k", time.Second)
	require.NoError(t, err)
	assert.True(t, locker.Held("k"))

	require.NoError(t, unlock(ctx))
	assert.False(t, locker.Held("k"))
	require.NoError(t, unlock(ctx), "unlocking twice is harmless")
}

func TestLocker_ContendedLockWaitsForRelease(t *testing.T) {
	locker := memory.NewLocker()
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "k", time.Minute)
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		second, err := locker.Lock(ctx, "k", time.Minute)
		if err == nil {
			close(acquired)
			_ = second(ctx)
		}
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while held")
	case <-time.After(30 * time.Millisecond):
	}

	require.NoError(t, unlock(ctx))
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second lock not acquired after release")
	}
}

func TestLocker_ContextCancel(t *testing.T) {
	locker := memory.NewLocker()
	_, err := locker.Lock(context.Background(), "k", time.Minute)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, "k", time.Minute)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLocker_ExpiredLeaseIsTakenOver(t *testing.T) {
	locker := memory.NewLocker()
	ctx := context.Background()

	stale, err := locker.Lock(ctx, "k", 20*time.Millisecond)
	require.NoError(t, err)

	fresh, err := locker.Lock(ctx, "k", time.Minute)
	require.NoError(t, err, "an expired lease does not block")

	require.NoError(t, stale(ctx))
	assert.True(t, locker.Held("k"), "a stale holder cannot release the new lease")
	require.NoError(t, fresh(ctx))
	assert.False(t, locker.Held("k"))
}

func TestLocker_SharedAcrossServers(t *testing.T) {
	locker := memory.NewLocker()
	var active, peak int32

	newServer := func() *toolgate.Server {
		tool := registry.NewTool("counter", registry.WithLocker(locker, time.Minute))
		tool.MustRegister(registry.Action{
			Name:  "bump",
			Flags: registry.Flags{Destructive: true},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				n := atomic.AddInt32(&active, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				time.Sleep(2 * time.Millisecond)
				atomic.AddInt32(&active, -1)
				return "ok", nil
			},
		})
		srv := toolgate.New()
		require.NoError(t, srv.Register(tool))
		return srv
	}
	replicas := []*toolgate.Server{newServer(), newServer()}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(srv *toolgate.Server) {
			defer wg.Done()
			resp, err := srv.Execute(context.Background(), "counter", map[string]any{"action": "bump"})
			assert.NoError(t, err)
			assert.False(t, resp.IsError, resp.String())
		}(replicas[i%2])
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&peak), "mutations never overlap across servers")
}
