package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryPersistence keeps encoded snapshots in memory. Snapshots still go
// through the JSON encoding so loads behave like FilePersistence.
type MemoryPersistence struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryPersistence creates an empty in-memory snapshot store
func NewMemoryPersistence() *MemoryPersistence {
	return &MemoryPersistence{data: make(map[string][]byte)}
}

func (mp *MemoryPersistence) Save(_ context.Context, tabID string, snap *PersistedSnapshot) error {
	if snap == nil {
		return fmt.Errorf("snapshot cannot be nil")
	}
	data, err := MarshalSnapshot(snap)
	if err != nil {
		return err
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.data[tabID] = data
	return nil
}

func (mp *MemoryPersistence) Load(_ context.Context, tabID string) (*PersistedSnapshot, error) {
	mp.mu.RLock()
	data, ok := mp.data[tabID]
	mp.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: tab %s: %w", ErrPersistenceMiss, tabID, errNoSnapshot)
	}
	return UnmarshalSnapshot(data)
}

func (mp *MemoryPersistence) Delete(_ context.Context, tabID string) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if _, ok := mp.data[tabID]; !ok {
		return ErrTabNotFound
	}
	delete(mp.data, tabID)
	return nil
}

func (mp *MemoryPersistence) ListAll(_ context.Context) ([]string, error) {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	ids := make([]string, 0, len(mp.data))
	for id := range mp.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (mp *MemoryPersistence) Exists(_ context.Context, tabID string) bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	_, ok := mp.data[tabID]
	return ok
}

// Put stores raw bytes for a tab, e.g. to simulate a corrupted write
func (mp *MemoryPersistence) Put(tabID string, data []byte) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.data[tabID] = append([]byte(nil), data...)
}
