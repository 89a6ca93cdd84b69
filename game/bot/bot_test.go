package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/memory-match-game/game/engine"
)

func fastEngine(t *testing.T, shape engine.BoardShape, seed int64, timing engine.Timing) *engine.GameEngine {
	t.Helper()
	eng, err := engine.NewEngine(shape,
		engine.WithTiming(timing),
		engine.WithRand(rand.New(rand.NewSource(seed))),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	t.Cleanup(eng.Close)
	return eng
}

var fastTiming = engine.Timing{
	MatchCheckDelay: time.Millisecond,
	FlipBackDelay:   time.Millisecond,
	TickInterval:    time.Hour,
}

func TestPlayer_CompletesGames(t *testing.T) {
	shapes := []engine.BoardShape{
		{Rows: 1, Cols: 2},
		{Rows: 2, Cols: 2},
		{Rows: 4, Cols: 4},
		{Rows: 6, Cols: 6},
	}

	for i, shape := range shapes {
		t.Run(shape.String(), func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			eng := fastEngine(t, shape, int64(i+1), fastTiming)
			result, err := NewPlayer(NewMemoryStrategy()).Play(ctx, eng)
			require.NoError(t, err)

			pairs := shape.Pairs()
			assert.True(t, eng.IsComplete())
			assert.Equal(t, pairs, result.Pairs)
			assert.GreaterOrEqual(t, result.Moves, pairs)
			assert.LessOrEqual(t, result.Moves, 2*pairs, "perfect memory needs at most 2n moves")
			assert.Equal(t, 2*result.Moves, result.Reveals)
		})
	}
}

func TestPlayer_ContextCancelled(t *testing.T) {
	slow := engine.Timing{MatchCheckDelay: time.Hour, FlipBackDelay: time.Hour, TickInterval: time.Hour}
	eng := fastEngine(t, engine.BoardShape{Rows: 4, Cols: 4}, 1, slow)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewPlayer(NewMemoryStrategy()).Play(ctx, eng)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, eng.MoveCount(), "the player waits while a pair is resolving")
}

func TestPlayer_MaxReveals(t *testing.T) {
	eng := fastEngine(t, engine.BoardShape{Rows: 4, Cols: 4}, 3, fastTiming)

	_, err := NewPlayer(NewMemoryStrategy(), WithMaxReveals(3)).Play(context.Background(), eng)
	assert.True(t, errors.Is(err, ErrGaveUp), "got %v", err)
	assert.False(t, eng.IsComplete())
}

func TestPlayer_AlreadyComplete(t *testing.T) {
	eng := fastEngine(t, engine.BoardShape{Rows: 2, Cols: 2}, 9, fastTiming)
	ctx := context.Background()

	first, err := NewPlayer(NewMemoryStrategy()).Play(ctx, eng)
	require.NoError(t, err)

	again, err := NewPlayer(NewMemoryStrategy()).Play(ctx, eng)
	require.NoError(t, err)
	assert.Equal(t, first.Moves, again.Moves)
	assert.Zero(t, again.Reveals)
}

func snapshotOf(symbols []string, revealed []int, phase engine.Phase) engine.Snapshot {
	tiles := make([]engine.Tile, len(symbols))
	for i, sym := range symbols {
		tiles[i] = engine.Tile{ID: i, Symbol: sym}
	}
	for _, id := range revealed {
		tiles[id].Revealed = true
	}
	return engine.Snapshot{
		SessionState: engine.SessionState{
			Tiles:      tiles,
			TotalPairs: len(symbols) / 2,
			Pending:    revealed,
		},
		Phase: phase,
	}
}

func TestMemoryStrategy_NextReveal(t *testing.T) {
	symbols := []string{"A", "B", "C", "A", "B", "C"}
	s := NewMemoryStrategy()

	idle := snapshotOf(symbols, nil, engine.PhaseIdle)
	assert.Equal(t, 0, s.NextReveal(idle), "nothing known: first tile")

	// Seeing a mismatch of 0 (A) and 1 (B)
	s.Observe(snapshotOf(symbols, []int{0, 1}, engine.PhaseResolving))
	assert.Equal(t, 2, s.Known())
	assert.Equal(t, -1, s.NextReveal(snapshotOf(symbols, []int{0, 1}, engine.PhaseResolving)))

	// With nothing paired yet, explore unseen tiles first
	assert.Equal(t, 2, s.NextReveal(idle))

	// Revealing 3 (A) shows the partner of 0
	oneUp := snapshotOf(symbols, []int{3}, engine.PhaseOneRevealed)
	s.Observe(oneUp)
	assert.Equal(t, 0, s.NextReveal(oneUp))

	// Once 4 (B) is seen too, the known B pair is played from idle
	s.Observe(snapshotOf(symbols, []int{4}, engine.PhaseOneRevealed))
	assert.Equal(t, 0, s.NextReveal(idle), "A pair is known: start with its first tile")

	complete := snapshotOf(symbols, nil, engine.PhaseComplete)
	assert.Equal(t, -1, s.NextReveal(complete))
}

func TestMemoryStrategy_ForgetsOnNewGame(t *testing.T) {
	s := NewMemoryStrategy()
	snap := snapshotOf([]string{"A", "A"}, []int{0}, engine.PhaseOneRevealed)
	snap.Generation = 1
	s.Observe(snap)
	assert.Equal(t, 1, s.Known())

	fresh := snapshotOf([]string{"B", "B"}, nil, engine.PhaseIdle)
	fresh.Generation = 2
	s.Observe(fresh)
	assert.Zero(t, s.Known())
}
