package lock

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mortgage-workflow/internal/common/errors"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Redis Locker
// ==========================

func newMiniredisLocker(t *testing.T, opts Options) (*RedisLocker, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLocker(client, opts), mr
}

func TestRedisLocker_AcquireAndRelease(t *testing.T) {
	locker, mr := newMiniredisLocker(t, Options{TTL: time.Second, KeyPrefix: "lock:"})
	ctx := context.Background()

	lease, err := locker.Acquire(ctx, ApplicationKey("app-1"))
	require.NoError(t, err)
	assert.True(t, mr.Exists("lock:application:app-1"))

	require.NoError(t, lease.Release(ctx))
	assert.False(t, mr.Exists("lock:application:app-1"))
}

func TestRedisLocker_ContendedKeyTimesOut(t *testing.T) {
	locker, _ := newMiniredisLocker(t, Options{
		TTL:        time.Second,
		WaitFor:    30 * time.Millisecond,
		RetryEvery: 5 * time.Millisecond,
	})
	ctx := context.Background()

	first, err := locker.Acquire(ctx, "k")
	require.NoError(t, err)
	defer first.Release(ctx)

	_, err = locker.Acquire(ctx, "k")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrLockUnavailable))
}

func TestRedisLocker_ReleaseDoesNotDeleteForeignToken(t *testing.T) {
	locker, mr := newMiniredisLocker(t, Options{TTL: time.Second})
	ctx := context.Background()

	lease, err := locker.Acquire(ctx, "k")
	require.NoError(t, err)

	// the lease expired and another writer took the key
	require.NoError(t, mr.Set("k", "someone-else"))

	require.NoError(t, lease.Release(ctx))
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestRedisLocker_ConnectionErrorIsStorageFailure(t *testing.T) {
	client, mock := redismock.NewClientMock()
	locker := NewRedisLocker(client, Options{TTL: time.Second})
	locker.newToken = func() string { return "tok-1" }

	mock.ExpectSetNX("k", "tok-1", time.Second).SetErr(stderrors.New("connection refused"))

	_, err := locker.Acquire(context.Background(), "k")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrStorageFailure))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Local Locker
// ==========================

func TestLocalLocker_SerializesWriters(t *testing.T) {
	locker := NewLocalLocker(Options{WaitFor: time.Second})
	ctx := context.Background()

	var inside int32
	var maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := WithLock(ctx, locker, "app-1", func(context.Context) error {
				n := atomic.AddInt32(&inside, 1)
				if n > atomic.LoadInt32(&maxInside) {
					atomic.StoreInt32(&maxInside, n)
				}
				time.Sleep(2 * time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside)
}

func TestLocalLocker_TimesOut(t *testing.T) {
	locker := NewLocalLocker(Options{WaitFor: 10 * time.Millisecond})
	ctx := context.Background()

	lease, err := locker.Acquire(ctx, "k")
	require.NoError(t, err)
	defer lease.Release(ctx)

	_, err = locker.Acquire(ctx, "k")
	assert.True(t, stderrors.Is(err, errors.ErrLockUnavailable))
}

func TestWithLock_PropagatesError(t *testing.T) {
	locker := NewLocalLocker(Options{})
	boom := stderrors.New("boom")

	err := WithLock(context.Background(), locker, "k", func(context.Context) error { return boom })
	assert.Equal(t, boom, err)

	// released after error
	lease, err := locker.Acquire(context.Background(), "k")
	require.NoError(t, err)
	assert.NoError(t, lease.Release(context.Background()))
}
