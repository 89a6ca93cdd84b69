package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/wricardo/memory-match-game/game/aggregate"
	"github.com/wricardo/memory-match-game/game/engine"
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	counters aggregate.Store
	bus      aggregate.Broadcaster
	logger   *slog.Logger
}

// NewGameService creates a new game service instance. bus may be nil when no
// other tab needs to hear about moves.
func NewGameService(sessions SessionManager, configs ConfigManager, counters aggregate.Store, bus aggregate.Broadcaster, logger *slog.Logger) GameService {
	if logger == nil {
		logger = slog.Default()
	}
	if counters == nil {
		counters = aggregate.NewMemoryStore()
	}
	return &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
		counters: counters,
		bus:      bus,
		logger:   logger,
	}
}

// OpenTab opens a new tab, or resumes tabID if it has a stored game
func (s *gameServiceImpl) OpenTab(ctx context.Context, tabID string) (*TabInfo, error) {
	tab, err := s.sessions.Open(ctx, tabID)
	if err != nil {
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}
	return NewTabInfo(tab, tab.Engine.Snapshot()), nil
}

// CloseTab closes a tab; its game stays stored for a later OpenTab
func (s *gameServiceImpl) CloseTab(ctx context.Context, tabID string) error {
	return s.sessions.Close(ctx, tabID)
}

// ListTabs returns all open tabs
func (s *gameServiceImpl) ListTabs(ctx context.Context) ([]*TabInfo, error) {
	tabs := s.sessions.List()

	infos := make([]*TabInfo, 0, len(tabs))
	for _, tab := range tabs {
		infos = append(infos, NewTabInfo(tab, tab.Engine.Snapshot()))
	}
	return infos, nil
}

// NewGame starts a new game in the tab. An empty difficulty selects the default.
func (s *gameServiceImpl) NewGame(ctx context.Context, tabID, difficulty string) (*engine.Snapshot, error) {
	tab, err := s.sessions.Get(tabID)
	if err != nil {
		return nil, fmt.Errorf("tab not found: %w", err)
	}

	if difficulty == "" {
		difficulty = s.configs.DefaultDifficulty()
	}
	shape, err := s.configs.Difficulty(difficulty)
	if err != nil {
		var names []string
		for _, d := range s.configs.ListDifficulties() {
			names = append(names, d.Name)
		}
		return nil, fmt.Errorf("difficulty '%s' not available (try %v or RxC): %w", difficulty, names, err)
	}

	if err := tab.Engine.NewGame(shape); err != nil {
		return nil, fmt.Errorf("failed to start game: %w", err)
	}

	snap := tab.Engine.Snapshot()
	s.logger.Info("new game", "tab", tabID, "difficulty", shape.String())
	return &snap, nil
}

// Reveal turns over a tile. A rejected reveal is not an error: the result
// reports it and the state is unchanged.
func (s *gameServiceImpl) Reveal(ctx context.Context, tabID string, tileID int) (*RevealResult, error) {
	tab, err := s.sessions.Get(tabID)
	if err != nil {
		return nil, fmt.Errorf("tab not found: %w", err)
	}

	err = tab.Engine.Reveal(tileID)
	result := &RevealResult{
		Accepted: err == nil,
		Snapshot: tab.Engine.Snapshot(),
	}

	switch {
	case err == nil:
		if result.Snapshot.Phase == engine.PhaseResolving {
			result.Message = fmt.Sprintf("Moves: %d", result.Snapshot.MoveCount)
		}
	case errors.Is(err, engine.ErrInvalidMove):
		result.Message = err.Error()
		s.logger.Debug("reveal rejected", "tab", tabID, "tile", tileID, "reason", err)
	default:
		return nil, err
	}

	return result, nil
}

// GetState returns the current snapshot of a tab
func (s *gameServiceImpl) GetState(ctx context.Context, tabID string) (*engine.Snapshot, error) {
	tab, err := s.sessions.Get(tabID)
	if err != nil {
		return nil, fmt.Errorf("tab not found: %w", err)
	}

	snap := tab.Engine.Snapshot()
	return &snap, nil
}

// TotalMoves returns the moves made across every tab
func (s *gameServiceImpl) TotalMoves(ctx context.Context) (int64, error) {
	total, err := s.counters.Load(ctx, aggregate.TotalMovesKey)
	if err != nil {
		return 0, fmt.Errorf("failed to read total moves: %w", err)
	}
	return total, nil
}

// ListDifficulties returns the difficulty presets
func (s *gameServiceImpl) ListDifficulties(ctx context.Context) ([]*DifficultyInfo, error) {
	return s.configs.ListDifficulties(), nil
}

// Subscribe forwards the tab's engine events and every change of the shared
// total to fn. fn runs on the goroutine that produced the update.
func (s *gameServiceImpl) Subscribe(tabID string, fn func(Update)) (func(), error) {
	tab, err := s.sessions.Get(tabID)
	if err != nil {
		return nil, fmt.Errorf("tab not found: %w", err)
	}

	unsubscribeEngine := tab.Engine.Subscribe(func(ev engine.Event) {
		snap := ev.Snapshot
		fn(Update{Kind: UpdateState, Event: &ev, Snapshot: &snap})
	})

	unsubscribeBus := func() {}
	if s.bus != nil {
		unsubscribeBus = s.bus.Subscribe(func(key string) {
			if key != aggregate.TotalMovesKey {
				return
			}
			total, err := s.TotalMoves(context.Background())
			if err != nil {
				s.logger.Warn("failed to refresh total moves", "tab", tabID, "error", err)
				return
			}
			fn(Update{Kind: UpdateAggregate, TotalMoves: total})
		})
	}

	return func() {
		unsubscribeEngine()
		unsubscribeBus()
	}, nil
}
