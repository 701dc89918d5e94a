package lock

import (
	"context"
	"sync"
	"time"

	"mortgage-workflow/internal/common/errors"
)

// LocalLocker is an in-process Locker for single-node and memory-backed deployments.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
	opts  Options
}

func NewLocalLocker(opts Options) *LocalLocker {
	return &LocalLocker{
		slots: make(map[string]chan struct{}),
		opts:  opts.withDefaults(),
	}
}

func (l *LocalLocker) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[key] = ch
	}
	return ch
}

func (l *LocalLocker) Acquire(ctx context.Context, key string) (Lease, error) {
	fullKey := l.opts.KeyPrefix + key
	ch := l.slot(fullKey)

	// fast path
	select {
	case ch <- struct{}{}:
		return &localLease{ch: ch}, nil
	default:
	}

	timer := time.NewTimer(l.opts.WaitFor)
	defer timer.Stop()
	select {
	case ch <- struct{}{}:
		return &localLease{ch: ch}, nil
	case <-timer.C:
		return nil, errors.NewLockUnavailableError(fullKey)
	case <-ctx.Done():
		return nil, errors.NewLockUnavailableError(fullKey)
	}
}

type localLease struct {
	once sync.Once
	ch   chan struct{}
}

func (l *localLease) Release(context.Context) error {
	l.once.Do(func() { <-l.ch })
	return nil
}
