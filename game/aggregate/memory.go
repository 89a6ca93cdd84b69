package aggregate

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is a Store that lives for the duration of the process
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]int64
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]int64)}
}

// Load returns the value of key, or zero if it was never written
func (m *MemoryStore) Load(_ context.Context, key string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.values[key], nil
}

// Store sets key to value
func (m *MemoryStore) Store(_ context.Context, key string, value int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// LocalBus is an in-process Broadcaster. Subscribers run synchronously on the
// broadcasting goroutine, in subscription order.
type LocalBus struct {
	mu     sync.RWMutex
	subs   map[uint64]func(key string)
	nextID uint64
}

// NewLocalBus creates a bus without subscribers
func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[uint64]func(key string))}
}

// Broadcast notifies every subscriber that key changed
func (b *LocalBus) Broadcast(_ context.Context, key string) error {
	for _, fn := range b.snapshot() {
		fn(key)
	}
	return nil
}

// Subscribe registers fn and returns a function removing it again
func (b *LocalBus) Subscribe(fn func(key string)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs[id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

func (b *LocalBus) snapshot() []func(key string) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ids := make([]uint64, 0, len(b.subs))
	for id := range b.subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	fns := make([]func(key string), len(ids))
	for i, id := range ids {
		fns[i] = b.subs[id]
	}
	return fns
}
