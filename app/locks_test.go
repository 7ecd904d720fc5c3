package app

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLockManager_OppositeOrderDoesNotDeadlock(t *testing.T) {
	m := newLockManager()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		keys := []string{"pool/1", "account/a", "account/b"}
		if i%2 == 1 {
			keys = []string{"account/b", "account/a", "pool/1"}
		}
		wg.Add(1)
		go func(keys []string) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				release := m.Acquire(keys...)
				release()
			}
		}(keys)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("lock acquisition deadlocked")
	}
	require.Zero(t, m.held())
}

func TestLockManager_DuplicateKeys(t *testing.T) {
	m := newLockManager()
	release := m.Acquire("account/a", "account/a")
	require.Equal(t, 1, m.held())
	release()
	require.Zero(t, m.held())
}

func TestLockManager_KeyIsExclusive(t *testing.T) {
	m := newLockManager()
	release := m.Acquire("pool/1")

	acquired := make(chan struct{})
	go func() {
		r := m.Acquire("pool/1")
		close(acquired)
		r()
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired a held key")
	case <-time.After(50 * time.Millisecond):
	}

	release()
	select {
	case <-acquired:
	case <-time.After(5 * time.Second):
		t.Fatal("waiter never acquired the released key")
	}
}

func TestLockManager_AcquireAllExcludesOperations(t *testing.T) {
	m := newLockManager()
	releaseAll := m.AcquireAll()

	acquired := make(chan struct{})
	go func() {
		r := m.Acquire("pool/2")
		close(acquired)
		r()
	}()

	select {
	case <-acquired:
		t.Fatal("operation ran during an exclusive sweep")
	case <-time.After(50 * time.Millisecond):
	}

	releaseAll()
	<-acquired
}

func TestLockKeys(t *testing.T) {
	require.Equal(t, "pool/7", poolLock(7))
	require.Equal(t, "supply/uusdc", supplyLock("uusdc"))
}
