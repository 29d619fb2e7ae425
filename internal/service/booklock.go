package service

import (
	"context"
	"sync"

	"github.com/pagetrail/pagetrail-server/internal/metrics"
)

// bookLocks serializes aggregate mutations per book. Waiting respects
// context cancellation, and entries are dropped once nobody holds or awaits them.
type bookLocks struct {
	mu    sync.Mutex
	locks map[string]*bookLock
}

type bookLock struct {
	sem  chan struct{}
	refs int
}

func newBookLocks() *bookLocks {
	return &bookLocks{locks: make(map[string]*bookLock)}
}

// Lock blocks until the lock for bookID is held or ctx is done.
// The returned func releases the lock and must be called exactly once.
func (l *bookLocks) Lock(ctx context.Context, bookID string) (func(), error) {
	l.mu.Lock()
	lk, ok := l.locks[bookID]
	if !ok {
		lk = &bookLock{sem: make(chan struct{}, 1)}
		l.locks[bookID] = lk
	}
	lk.refs++
	l.mu.Unlock()
	metrics.BookLocksHeld.Inc()

	select {
	case lk.sem <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-lk.sem
				l.release(bookID, lk)
			})
		}, nil
	case <-ctx.Done():
		l.release(bookID, lk)
		return nil, ctx.Err()
	}
}

func (l *bookLocks) release(bookID string, lk *bookLock) {
	l.mu.Lock()
	lk.refs--
	if lk.refs == 0 {
		delete(l.locks, bookID)
	}
	l.mu.Unlock()
	metrics.BookLocksHeld.Dec()
}

// size returns the number of tracked books.
func (l *bookLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
