package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/mamadbah2/kitchenledger/internal/domain/models"
)

// DefaultLockTimeout bounds how long Acquire waits for a contended key.
const DefaultLockTimeout = 250 * time.Millisecond

// Key builds the lock key of one entity.
func Key(entity, id string) string {
	return entity + ":" + id
}

// Locker hands out exclusive per-key locks. Keys are always taken in ascending order so two
// callers locking overlapping sets cannot deadlock, and a wait never outlives the timeout.
// A key's slot lives only while someone holds or waits on it.
type Locker struct {
	mu      sync.Mutex
	slots   map[string]*slot
	timeout time.Duration
}

type slot struct {
	ch   chan struct{}
	refs int
}

// NewLocker creates a Locker; a non-positive timeout falls back to DefaultLockTimeout.
func NewLocker(timeout time.Duration) *Locker {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	return &Locker{slots: make(map[string]*slot), timeout: timeout}
}

// Acquire locks every key or none. On success the returned release func unlocks them all and
// is safe to call more than once. Timeouts and context cancellation fail with a conflict.
func (l *Locker) Acquire(ctx context.Context, keys ...string) (func(), error) {
	ordered := slices.Clone(keys)
	slices.Sort(ordered)
	ordered = slices.Compact(ordered)

	timer := time.NewTimer(l.timeout)
	defer timer.Stop()

	held := make([]string, 0, len(ordered))
	unlock := func() {
		for i := len(held) - 1; i >= 0; i-- {
			l.release(held[i], true)
		}
		held = held[:0]
	}

	for _, key := range ordered {
		s := l.ref(key)
		select {
		case s.ch <- struct{}{}:
			held = append(held, key)
		case <-timer.C:
			l.release(key, false)
			unlock()
			return nil, models.Conflictf("lock", key, "timed out after %s waiting for a concurrent operation", l.timeout)
		case <-ctx.Done():
			l.release(key, false)
			unlock()
			return nil, &models.Error{Kind: models.KindConflict, Entity: "lock", ID: key, Message: "wait aborted", Err: ctx.Err()}
		}
	}

	var once sync.Once
	return func() { once.Do(unlock) }, nil
}

// ref returns the slot of key, counting the caller as a holder or waiter.
func (l *Locker) ref(key string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	return s
}

// release drops the caller's reference, unlocking first if it held the key.
func (l *Locker) release(key string, locked bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := l.slots[key]
	if locked {
		<-s.ch
	}
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

// size reports how many keys currently have a slot.
func (l *Locker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
