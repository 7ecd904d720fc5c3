package app

import (
	"fmt"
	"slices"
	"sync"

	sdk "github.com/cosmos/cosmos-sdk/types"
)

// Lock keys. Every operation locks the pools and accounts whose state it may
// write, so operations on disjoint pools and owners run in parallel.
func poolLock(poolID uint64) string { return fmt.Sprintf("pool/%d", poolID) }

func accountLock(addr sdk.AccAddress) string { return "account/" + addr.String() }

func supplyLock(denom string) string { return "supply/" + denom }

const (
	poolRegistryLock = "amm/pools"
	perpParamsLock   = "perp/params"
)

type keyedMutex struct {
	sync.Mutex
	refs int
}

// lockManager hands out keyed mutexes. Keys are always acquired in sorted
// order, which rules out lock-order deadlocks between operations. Sweeps that
// touch records across every pool take the world lock exclusively instead.
type lockManager struct {
	world sync.RWMutex

	mu    sync.Mutex
	locks map[string]*keyedMutex
}

func newLockManager() *lockManager {
	return &lockManager{locks: make(map[string]*keyedMutex)}
}

// Acquire blocks until every key is held and returns the release function.
func (m *lockManager) Acquire(keys ...string) (release func()) {
	keys = slices.Clone(keys)
	slices.Sort(keys)
	keys = slices.Compact(keys)

	m.world.RLock()
	held := make([]*keyedMutex, 0, len(keys))
	for _, key := range keys {
		l := m.ref(key)
		l.Lock()
		held = append(held, l)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
			m.unref(keys[i])
		}
		m.world.RUnlock()
	}
}

// AcquireAll waits for every in-flight operation and excludes new ones.
func (m *lockManager) AcquireAll() (release func()) {
	m.world.Lock()
	return m.world.Unlock
}

func (m *lockManager) ref(key string) *keyedMutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.locks[key]
	if !ok {
		l = &keyedMutex{}
		m.locks[key] = l
	}
	l.refs++
	return l
}

func (m *lockManager) unref(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l := m.locks[key]
	l.refs--
	if l.refs == 0 {
		delete(m.locks, key)
	}
}

// held reports how many keys are currently referenced. Used by tests.
func (m *lockManager) held() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
