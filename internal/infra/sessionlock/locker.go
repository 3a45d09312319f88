// Package sessionlock provides a keyed mutex that serializes concurrent
// turns against the same conversational session (§5).
package sessionlock

import (
	"sync"

	"github.com/google/uuid"

	domain "github.com/kitchenops/ragqa/internal/domain/rag"
)

// KeyedMutex hands out one mutex per session id, backed by a sync.Map
// so unrelated sessions never contend with each other.
type KeyedMutex struct {
	locks sync.Map // uuid.UUID -> *sync.Mutex
}

// NewKeyedMutex constructs a locker.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{}
}

// TryLock acquires the session's mutex, blocking if another turn for
// the same session is already in flight, and returns the unlock
// function. It never fails to acquire (the bool is always true); the
// signature matches domain.SessionLocker so a future non-blocking
// variant can return false without touching callers.
func (k *KeyedMutex) TryLock(sessionID uuid.UUID) (func(), bool) {
	value, _ := k.locks.LoadOrStore(sessionID, &sync.Mutex{})
	mu := value.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock, true
}

var _ domain.SessionLocker = (*KeyedMutex)(nil)
