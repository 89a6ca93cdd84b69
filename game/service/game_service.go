package service

import (
	"context"

	"github.com/wricardo/memory-match-game/game/engine"
)

// GameService defines all game-related operations
type GameService interface {
	// Tab Management
	OpenTab(ctx context.Context, tabID string) (*TabInfo, error)
	CloseTab(ctx context.Context, tabID string) error
	ListTabs(ctx context.Context) ([]*TabInfo, error)

	// Game Operations
	NewGame(ctx context.Context, tabID, difficulty string) (*engine.Snapshot, error)
	Reveal(ctx context.Context, tabID string, tileID int) (*RevealResult, error)

	// Game State
	GetState(ctx context.Context, tabID string) (*engine.Snapshot, error)
	TotalMoves(ctx context.Context) (int64, error)

	// Configuration
	ListDifficulties(ctx context.Context) ([]*DifficultyInfo, error)

	// Updates
	Subscribe(tabID string, fn func(Update)) (unsubscribe func(), err error)
}

// SessionManager defines tab lifecycle operations
type SessionManager interface {
	Open(ctx context.Context, id string) (*Tab, error)
	Get(id string) (*Tab, error)
	List() []*Tab
	Close(ctx context.Context, id string) error
	Count() int
	CloseAll(ctx context.Context)
}

// ConfigManager resolves difficulties
type ConfigManager interface {
	Difficulty(name string) (engine.BoardShape, error)
	ListDifficulties() []*DifficultyInfo
	DefaultDifficulty() string
}
