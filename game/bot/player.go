package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wricardo/memory-match-game/game/engine"
)

// ErrGaveUp is returned when a game is not finished within the reveal budget
var ErrGaveUp = errors.New("gave up before the game was complete")

// Board is the part of an engine a player needs
type Board interface {
	Snapshot() engine.Snapshot
	Reveal(tileID int) error
	Subscribe(l engine.Listener) (unsubscribe func())
}

// Result summarizes a finished game
type Result struct {
	Moves   int
	Seconds int
	Elapsed string
	Pairs   int
	Reveals int
}

// Player drives a Board with a Strategy until the game is complete
type Player struct {
	strategy   Strategy
	delay      time.Duration
	maxReveals int
	logger     *slog.Logger
}

// PlayerOption configures a Player
type PlayerOption func(*Player)

// WithDelay pauses between reveals
func WithDelay(d time.Duration) PlayerOption {
	return func(p *Player) {
		p.delay = d
	}
}

// WithMaxReveals bounds the number of reveals per game
func WithMaxReveals(n int) PlayerOption {
	return func(p *Player) {
		if n > 0 {
			p.maxReveals = n
		}
	}
}

// WithLogger sets the logger for per-reveal detail
func WithLogger(logger *slog.Logger) PlayerOption {
	return func(p *Player) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPlayer creates a player using strategy
func NewPlayer(strategy Strategy, opts ...PlayerOption) *Player {
	p := &Player{
		strategy:   strategy,
		maxReveals: 10000,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Play reveals tiles until the current game on board is complete. It waits
// for the board's events while a pair is being resolved.
func (p *Player) Play(ctx context.Context, board Board) (*Result, error) {
	var mu sync.Mutex
	wake := make(chan struct{}, 1)

	unsubscribe := board.Subscribe(func(ev engine.Event) {
		mu.Lock()
		p.strategy.Observe(ev.Snapshot)
		mu.Unlock()

		select {
		case wake <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	reveals := 0
	for {
		snap := board.Snapshot()
		if snap.Complete {
			return &Result{
				Moves:   snap.MoveCount,
				Seconds: snap.ElapsedSeconds,
				Elapsed: snap.Elapsed,
				Pairs:   snap.TotalPairs,
				Reveals: reveals,
			}, nil
		}

		mu.Lock()
		p.strategy.Observe(snap)
		next := p.strategy.NextReveal(snap)
		mu.Unlock()

		if next < 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-wake:
			}
			continue
		}

		if reveals >= p.maxReveals {
			return nil, fmt.Errorf("%w: %d reveals", ErrGaveUp, reveals)
		}

		err := board.Reveal(next)
		switch {
		case err == nil:
			reveals++
			p.logger.Debug("revealed", "tile", next, "moves", snap.MoveCount)
		case errors.Is(err, engine.ErrInvalidMove):
			// The board changed under us; look again
			p.logger.Debug("reveal rejected", "tile", next, "error", err)
		default:
			return nil, err
		}

		if p.delay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(p.delay):
			}
		} else if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
}
