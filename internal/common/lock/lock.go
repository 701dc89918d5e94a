// Package lock serializes writers per application across worker processes.
package lock

import (
	"context"
	"time"
)

// Locker hands out exclusive, expiring leases on a key.
type Locker interface {
	Acquire(ctx context.Context, key string) (Lease, error)
}

// Lease is a held lock. Release is safe to call once; a lease that expired is released as a no-op.
type Lease interface {
	Release(ctx context.Context) error
}

// Options tunes acquisition.
type Options struct {
	TTL        time.Duration
	WaitFor    time.Duration
	RetryEvery time.Duration
	KeyPrefix  string
}

func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = 10 * time.Second
	}
	if o.WaitFor < 0 {
		o.WaitFor = 0
	}
	if o.RetryEvery <= 0 {
		o.RetryEvery = 50 * time.Millisecond
	}
	return o
}

// ApplicationKey is the lock key guarding one application and everything it owns.
func ApplicationKey(applicationID string) string {
	return "application:" + applicationID
}

// WithLock runs fn while holding key. The lease is released even if fn panics.
func WithLock(ctx context.Context, l Locker, key string, fn func(ctx context.Context) error) (err error) {
	lease, err := l.Acquire(ctx, key)
	if err != nil {
		return err
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if relErr := lease.Release(releaseCtx); relErr != nil && err == nil {
			err = relErr
		}
	}()
	return fn(ctx)
}
