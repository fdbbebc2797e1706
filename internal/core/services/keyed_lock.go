package services

import (
	"context"
	"sync"
	"time"

	"github.com/SscSPs/checkout_ledger_app/internal/apperrors"
)

// KeyedLocker serialises work per key. Different keys never contend.
type KeyedLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
	wait  time.Duration
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

// NewKeyedLocker returns a locker whose Lock gives up after wait.
func NewKeyedLocker(wait time.Duration) *KeyedLocker {
	return &KeyedLocker{locks: map[string]*keyLock{}, wait: wait}
}

// Lock blocks until key is free, ctx is done or the wait timeout passes.
// The returned unlock function is safe to call more than once.
func (l *KeyedLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	waitCtx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	select {
	case kl.ch <- struct{}{}:
	case <-waitCtx.Done():
		l.release(key, kl)
		return nil, apperrors.NewAppError(apperrors.KindConcurrencyConflict, key+" is busy, retry later", waitCtx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-kl.ch
			l.release(key, kl)
		})
	}, nil
}

func (l *KeyedLocker) release(key string, kl *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
}

// size reports how many keys are tracked.
func (l *KeyedLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
