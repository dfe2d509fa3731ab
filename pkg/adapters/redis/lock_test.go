package redis_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/toolgate/pkg/adapters/redis"
	"github.com/aretw0/toolgate/pkg/mutation"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocker(t *testing.T) (*redis.Locker, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })

	return redis.NewLocker(client, redis.WithPrefix("test:"), redis.WithPollInterval(5*time.Millisecond)), mr
}

func TestLocker_LockUnlock(t *testing.T) {
	locker, mr := newLocker(t)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "tasks.delete", time.Second)
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:lock:tasks.delete"))

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("test:lock:tasks.delete"))
}

func TestLocker_ContendedLockWaitsForRelease(t *testing.T) {
	locker, _ := newLocker(t)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "k", time.Second)
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		second, err := locker.Lock(ctx, "k", time.Second)
		if err == nil {
			close(acquired)
			_ = second(ctx)
		}
	}()

	select {
	case <-acquired:
		t.Fatal("lock acquired while held")
	case <-time.After(30 * time.Millisecond):
	}

	require.NoError(t, unlock(ctx))
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("lock not acquired after release")
	}
}

func TestLocker_ContextCancelled(t *testing.T) {
	locker, _ := newLocker(t)
	unlock, err := locker.Lock(context.Background(), "k", time.Second)
	require.NoError(t, err)
	defer unlock(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, "k", time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLocker_ExpiredLockIsNotReleasedByOldHolder(t *testing.T) {
	locker, mr := newLocker(t)
	ctx := context.Background()

	stale, err := locker.Lock(ctx, "k", time.Second)
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	fresh, err := locker.Lock(ctx, "k", time.Second)
	require.NoError(t, err)

	require.NoError(t, stale(ctx))
	assert.True(t, mr.Exists("test:lock:k"), "stale unlock must not delete the new holder's lock")
	require.NoError(t, fresh(ctx))
}

func TestLocker_WithSerializer(t *testing.T) {
	locker, _ := newLocker(t)
	s := mutation.New(mutation.WithLocker(locker, time.Second))

	var runs int32
	_, err := s.Serialize(context.Background(), "tasks.create", func(ctx context.Context) (any, error) {
		atomic.AddInt32(&runs, 1)
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), runs)
}
