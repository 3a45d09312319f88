package sessionlock

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestTryLockSerializesSameSession(t *testing.T) {
	locker := NewKeyedMutex()
	sessionID := uuid.New()

	unlock, ok := locker.TryLock(sessionID)
	require.True(t, ok)

	acquired := make(chan struct{})
	go func() {
		unlock2, ok2 := locker.TryLock(sessionID)
		require.True(t, ok2)
		close(acquired)
		unlock2()
	}()

	select {
	case <-acquired:
		t.Fatal("second TryLock acquired while first still held")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	<-acquired
}

func TestTryLockIndependentSessionsDoNotBlock(t *testing.T) {
	locker := NewKeyedMutex()
	a, b := uuid.New(), uuid.New()

	unlockA, _ := locker.TryLock(a)
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB, _ := locker.TryLock(b)
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("unrelated session blocked")
	}
}

func TestTryLockConcurrentSameSessionNoRace(t *testing.T) {
	locker := NewKeyedMutex()
	sessionID := uuid.New()
	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, _ := locker.TryLock(sessionID)
			counter++
			unlock()
		}()
	}
	wg.Wait()
	require.Equal(t, 50, counter)
}
