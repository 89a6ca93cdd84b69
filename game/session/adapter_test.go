package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/memory-match-game/game/aggregate"
	"github.com/wricardo/memory-match-game/game/engine"
)

// recordingPersistence wraps MemoryPersistence and records every write
type recordingPersistence struct {
	*MemoryPersistence
	mu     sync.Mutex
	writes []PersistedSnapshot
	err    error
}

func newRecordingPersistence() *recordingPersistence {
	return &recordingPersistence{MemoryPersistence: NewMemoryPersistence()}
}

func (r *recordingPersistence) Save(ctx context.Context, tabID string, snap *PersistedSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.writes = append(r.writes, *snap)
	return r.MemoryPersistence.Save(ctx, tabID, snap)
}

func (r *recordingPersistence) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.writes)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T) (*engine.GameEngine, *engine.ManualScheduler) {
	t.Helper()
	sched := engine.NewManualScheduler()
	eng, err := engine.NewEngine(engine.BoardShape{Rows: 4, Cols: 4},
		engine.WithScheduler(sched),
		engine.WithRand(rand.New(rand.NewSource(42))),
		engine.WithLogger(quietLogger()))
	require.NoError(t, err)
	t.Cleanup(eng.Close)
	return eng, sched
}

// findPair returns two tile ids holding the same symbol
func findPair(snap engine.Snapshot) (int, int) {
	first := make(map[string]int)
	for _, tile := range snap.Tiles {
		if id, ok := first[tile.Symbol]; ok {
			return id, tile.ID
		}
		first[tile.Symbol] = tile.ID
	}
	return -1, -1
}

func TestAdapter_SaveTriggers(t *testing.T) {
	ctx := context.Background()
	store := newRecordingPersistence()
	adapter := NewAdapter(store, WithAdapterLogger(quietLogger()))
	eng, sched := newTestEngine(t)

	detach := adapter.Attach(ctx, "tab1", eng)
	defer detach()

	a, b := findPair(eng.Snapshot())
	require.NoError(t, eng.Reveal(a))
	assert.Equal(t, 1, store.count(), "reveal saves")

	require.NoError(t, eng.Reveal(b))
	assert.Equal(t, 3, store.count(), "second reveal and move save")
	assert.Equal(t, 1, store.writes[2].Moves)

	sched.Advance(500 * time.Millisecond)
	assert.Equal(t, 4, store.count(), "match saves")
	assert.Equal(t, 1, store.writes[3].MatchedPairs)

	// Ticks save every fifth second only
	sched.Advance(4500 * time.Millisecond)
	assert.Equal(t, 5, store.count())
	assert.Equal(t, 5, store.writes[4].Seconds)

	sched.Advance(4 * time.Second)
	assert.Equal(t, 5, store.count())

	// A rejected reveal changes nothing and is not saved
	assert.Error(t, eng.Reveal(a))
	assert.Equal(t, 5, store.count())

	require.NoError(t, eng.NewGame(engine.BoardShape{Rows: 2, Cols: 2}))
	assert.Equal(t, 6, store.count(), "new game saves")
	assert.Equal(t, "2x2", store.writes[5].Difficulty)
	assert.False(t, store.writes[5].GameStarted)
}

func TestAdapter_MismatchSavesEachStep(t *testing.T) {
	ctx := context.Background()
	store := newRecordingPersistence()
	adapter := NewAdapter(store, WithAdapterLogger(quietLogger()))
	eng, sched := newTestEngine(t)
	adapter.Attach(ctx, "tab1", eng)

	snap := eng.Snapshot()
	a := 0
	b := -1
	for _, tile := range snap.Tiles[1:] {
		if tile.Symbol != snap.Tiles[a].Symbol {
			b = tile.ID
			break
		}
	}
	require.NotEqual(t, -1, b)

	require.NoError(t, eng.Reveal(a))
	require.NoError(t, eng.Reveal(b))
	sched.Advance(500 * time.Millisecond)
	sched.Advance(time.Second)

	// reveal, reveal, move, mismatch, hide; the single tick is not due yet
	require.Equal(t, 5, store.count())
	last := store.writes[4]
	assert.False(t, last.Tiles[a].IsFlipped)
	assert.False(t, last.Tiles[b].IsFlipped)
	assert.Equal(t, 1, last.Moves)
}

func TestAdapter_DropsStaleWrites(t *testing.T) {
	ctx := context.Background()
	store := newRecordingPersistence()
	adapter := NewAdapter(store)
	eng, _ := newTestEngine(t)

	require.NoError(t, eng.Reveal(0))
	newer := eng.Snapshot()
	older := newer
	older.Seq = newer.Seq - 1
	older.ElapsedSeconds = 1000

	require.NoError(t, adapter.Save(ctx, "tab1", newer))
	require.NoError(t, adapter.Save(ctx, "tab1", older))
	require.NoError(t, adapter.Save(ctx, "tab1", newer))

	assert.Equal(t, 1, store.count())
	loaded, err := adapter.Load(ctx, "tab1")
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.ElapsedSeconds)

	// Sequence tracking is per tab
	require.NoError(t, adapter.Save(ctx, "tab2", older))
	assert.Equal(t, 2, store.count())
}

func TestAdapter_CountsMoves(t *testing.T) {
	ctx := context.Background()
	counters := aggregate.NewMemoryStore()
	bus := aggregate.NewLocalBus()
	adapter := NewAdapter(NewMemoryPersistence(), WithCounters(counters, bus))

	var notified []string
	bus.Subscribe(func(key string) { notified = append(notified, key) })

	eng1, sched1 := newTestEngine(t)
	eng2, _ := newTestEngine(t)
	adapter.Attach(ctx, "tab1", eng1)
	adapter.Attach(ctx, "tab2", eng2)

	require.NoError(t, eng1.Reveal(0))
	require.NoError(t, eng1.Reveal(1))
	sched1.Advance(2 * time.Second)
	require.NoError(t, eng2.Reveal(3))
	require.NoError(t, eng2.Reveal(4))

	total, err := counters.Load(ctx, aggregate.TotalMovesKey)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, []string{aggregate.TotalMovesKey, aggregate.TotalMovesKey}, notified)
}

func TestAdapter_StorageFailuresAreLogged(t *testing.T) {
	ctx := context.Background()
	store := newRecordingPersistence()
	store.err = errors.New("disk full")

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelWarn}))
	adapter := NewAdapter(store, WithAdapterLogger(logger))

	eng, sched := newTestEngine(t)
	adapter.Attach(ctx, "tab1", eng)

	a, b := findPair(eng.Snapshot())
	require.NoError(t, eng.Reveal(a))
	require.NoError(t, eng.Reveal(b))
	sched.Advance(500 * time.Millisecond)

	// The game carries on in memory
	assert.Equal(t, 1, eng.Snapshot().MatchedPairs)
	assert.Contains(t, logs.String(), "failed to save game")
	assert.Contains(t, logs.String(), "disk full")
	assert.Zero(t, store.count())
}

func TestAdapter_ReattachResetsSequence(t *testing.T) {
	ctx := context.Background()
	store := newRecordingPersistence()
	adapter := NewAdapter(store)

	eng1, _ := newTestEngine(t)
	detach := adapter.Attach(ctx, "tab1", eng1)
	for i := 0; i < 3; i++ {
		require.NoError(t, eng1.NewGame(engine.BoardShape{Rows: 2, Cols: 2}))
	}
	detach()
	before := store.count()

	// A reopened tab has a new engine whose sequence starts low again
	eng2, _ := newTestEngine(t)
	adapter.Attach(ctx, "tab1", eng2)
	require.NoError(t, eng2.Reveal(0))
	assert.Equal(t, before+1, store.count())
}

func TestAdapter_Load(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryPersistence()
	adapter := NewAdapter(store)

	_, err := adapter.Load(ctx, "missing")
	assert.ErrorIs(t, err, ErrPersistenceMiss)
	assert.True(t, isNotFound(err))

	store.Put("corrupt", []byte("[]"))
	_, err = adapter.Load(ctx, "corrupt")
	assert.ErrorIs(t, err, ErrPersistenceMiss)
	assert.False(t, isNotFound(err))

	require.NoError(t, store.Save(ctx, "good", goldenSnapshot()))
	state, err := adapter.Load(ctx, "good")
	require.NoError(t, err)
	assert.Equal(t, 17, state.ElapsedSeconds)

	require.NoError(t, adapter.Forget(ctx, "good"))
	require.NoError(t, adapter.Forget(ctx, "good"))
	assert.False(t, store.Exists(ctx, "good"))
}
