package session

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"sync"
	"time"

	"github.com/wricardo/memory-match-game/game/aggregate"
	"github.com/wricardo/memory-match-game/game/engine"
)

const (
	// DefaultSaveEveryTicks is how many clock ticks pass between saves
	DefaultSaveEveryTicks = 5
	// DefaultWriteTimeout bounds a single storage write
	DefaultWriteTimeout = 2 * time.Second
)

// Adapter connects engines to storage. It saves snapshots when their tab
// changes and bumps the shared move counter. Storage failures are logged and
// never reach the game.
type Adapter struct {
	store    SnapshotPersistence
	counters aggregate.Store
	bus      aggregate.Broadcaster
	logger   *slog.Logger

	saveEveryTicks int
	writeTimeout   time.Duration

	mu      sync.Mutex
	lastSeq map[string]uint64
	ticks   map[string]int
}

// AdapterOption configures an Adapter
type AdapterOption func(*Adapter)

// WithCounters sets where the shared move counter lives and who hears about changes
func WithCounters(counters aggregate.Store, bus aggregate.Broadcaster) AdapterOption {
	return func(a *Adapter) {
		a.counters = counters
		a.bus = bus
	}
}

// WithSaveEveryTicks sets how many clock ticks pass between saves
func WithSaveEveryTicks(n int) AdapterOption {
	return func(a *Adapter) {
		if n > 0 {
			a.saveEveryTicks = n
		}
	}
}

// WithWriteTimeout bounds each storage write
func WithWriteTimeout(d time.Duration) AdapterOption {
	return func(a *Adapter) {
		if d > 0 {
			a.writeTimeout = d
		}
	}
}

// WithAdapterLogger sets the logger for storage warnings
func WithAdapterLogger(logger *slog.Logger) AdapterOption {
	return func(a *Adapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAdapter creates an adapter saving to store
func NewAdapter(store SnapshotPersistence, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		store:          store,
		logger:         slog.Default(),
		saveEveryTicks: DefaultSaveEveryTicks,
		writeTimeout:   DefaultWriteTimeout,
		lastSeq:        make(map[string]uint64),
		ticks:          make(map[string]int),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Attach subscribes to the engine's events for tabID and returns a function
// detaching it again. Sequence tracking for the tab starts over.
func (a *Adapter) Attach(ctx context.Context, tabID string, eng engine.Engine) func() {
	a.mu.Lock()
	delete(a.lastSeq, tabID)
	a.ticks[tabID] = 0
	a.mu.Unlock()

	return eng.Subscribe(func(ev engine.Event) {
		a.HandleEvent(ctx, tabID, ev)
	})
}

// Detach forgets the sequence tracking of a tab
func (a *Adapter) Detach(tabID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.lastSeq, tabID)
	delete(a.ticks, tabID)
}

// HandleEvent applies the save triggers to one engine event
func (a *Adapter) HandleEvent(ctx context.Context, tabID string, ev engine.Event) {
	switch ev.Type {
	case engine.EventMove:
		a.countMove(ctx, tabID)
		a.saveLogged(ctx, tabID, ev.Snapshot)
	case engine.EventReveal, engine.EventMatch, engine.EventMismatch, engine.EventHide,
		engine.EventComplete, engine.EventNewGame:
		a.saveLogged(ctx, tabID, ev.Snapshot)
	case engine.EventTick:
		if a.tickDue(tabID) {
			a.saveLogged(ctx, tabID, ev.Snapshot)
		}
	}
}

// Save writes the snapshot unless a newer one was already written for the tab.
// Events may be delivered out of order; the snapshot Seq decides.
func (a *Adapter) Save(ctx context.Context, tabID string, snap engine.Snapshot) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if last, ok := a.lastSeq[tabID]; ok && snap.Seq <= last {
		return nil
	}

	writeCtx, cancel := context.WithTimeout(ctx, a.writeTimeout)
	defer cancel()

	if err := a.store.Save(writeCtx, tabID, FromSnapshot(snap)); err != nil {
		return err
	}
	a.lastSeq[tabID] = snap.Seq
	return nil
}

// Load reads the stored game of a tab. Every failure wraps ErrPersistenceMiss.
func (a *Adapter) Load(ctx context.Context, tabID string) (*engine.SessionState, error) {
	readCtx, cancel := context.WithTimeout(ctx, a.writeTimeout)
	defer cancel()

	p, err := a.store.Load(readCtx, tabID)
	if err != nil {
		if !errors.Is(err, ErrPersistenceMiss) {
			err = errors.Join(ErrPersistenceMiss, err)
		}
		return nil, err
	}
	return p.ToState()
}

// Forget deletes the stored game of a tab
func (a *Adapter) Forget(ctx context.Context, tabID string) error {
	a.Detach(tabID)
	if err := a.store.Delete(ctx, tabID); err != nil && !errors.Is(err, ErrTabNotFound) {
		return err
	}
	return nil
}

func (a *Adapter) saveLogged(ctx context.Context, tabID string, snap engine.Snapshot) {
	if err := a.Save(ctx, tabID, snap); err != nil {
		a.logger.Warn("failed to save game", "tab", tabID, "seq", snap.Seq, "error", err)
	}
}

func (a *Adapter) tickDue(tabID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.ticks[tabID]++
	if a.ticks[tabID] < a.saveEveryTicks {
		return false
	}
	a.ticks[tabID] = 0
	return true
}

func (a *Adapter) countMove(ctx context.Context, tabID string) {
	if a.counters == nil {
		return
	}

	writeCtx, cancel := context.WithTimeout(ctx, a.writeTimeout)
	defer cancel()

	total, err := aggregate.Increment(writeCtx, a.counters, a.bus, aggregate.TotalMovesKey)
	if err != nil {
		a.logger.Warn("failed to update total moves", "tab", tabID, "error", err)
		return
	}
	a.logger.Debug("total moves", "tab", tabID, "total", total)
}

// isNotFound reports whether a load failed only because nothing was stored
func isNotFound(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, errNoSnapshot)
}
