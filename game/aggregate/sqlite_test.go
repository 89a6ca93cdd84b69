package aggregate

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, path string) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_LoadStore(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, filepath.Join(t.TempDir(), "profile.db"))

	v, err := s.Load(ctx, TotalMovesKey)
	require.NoError(t, err)
	assert.Zero(t, v)

	require.NoError(t, s.Store(ctx, TotalMovesKey, 41))
	require.NoError(t, s.Store(ctx, TotalMovesKey, 42))

	v, err = s.Load(ctx, TotalMovesKey)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "profile.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	_, err = Increment(ctx, s, nil, TotalMovesKey)
	require.NoError(t, err)
	_, err = Increment(ctx, s, nil, TotalMovesKey)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened := openTestStore(t, path)
	v, err := reopened.Load(ctx, TotalMovesKey)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
}

func TestSQLiteStore_PollSkipsOwnWrites(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "profile.db")
	local := openTestStore(t, path)
	other := openTestStore(t, path)

	_, err := local.poll(ctx)
	require.NoError(t, err)

	require.NoError(t, local.Store(ctx, TotalMovesKey, 1))
	changed, err := local.poll(ctx)
	require.NoError(t, err)
	assert.Empty(t, changed, "own writes are already known")

	require.NoError(t, other.Store(ctx, TotalMovesKey, 2))
	require.NoError(t, other.Store(ctx, "memory.other", 7))
	changed, err = local.poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"memory.other", TotalMovesKey}, changed)

	changed, err = local.poll(ctx)
	require.NoError(t, err)
	assert.Empty(t, changed)
}

func TestSQLiteStore_WatchBroadcastsForeignWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.db")
	local := openTestStore(t, path)
	other := openTestStore(t, path)
	bus := NewLocalBus()

	var mu sync.Mutex
	var keys []string
	bus.Subscribe(func(key string) {
		mu.Lock()
		keys = append(keys, key)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- local.Watch(ctx, 10*time.Millisecond, bus) }()

	// Give the watcher time to prime before the foreign write lands
	time.Sleep(50 * time.Millisecond)
	_, err := Increment(context.Background(), other, nil, TotalMovesKey)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(keys) == 1 && keys[0] == TotalMovesKey
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not stop after cancel")
	}
}
