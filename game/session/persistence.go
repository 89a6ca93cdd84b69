package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wricardo/memory-match-game/game/engine"
)

var (
	// ErrPersistenceMiss means no usable snapshot exists for a tab. Callers fall
	// back to a fresh game.
	ErrPersistenceMiss = errors.New("no usable snapshot")
	ErrInvalidTabID    = errors.New("invalid tab ID")
	ErrTabNotFound     = errors.New("tab not found")

	errNoSnapshot = errors.New("no snapshot stored")
)

// SnapshotPersistence stores one snapshot per tab
type SnapshotPersistence interface {
	// Save replaces the snapshot stored for the tab
	Save(ctx context.Context, tabID string, snap *PersistedSnapshot) error

	// Load returns the stored snapshot, or an error wrapping ErrPersistenceMiss
	Load(ctx context.Context, tabID string) (*PersistedSnapshot, error)

	// Delete removes the stored snapshot
	Delete(ctx context.Context, tabID string) error

	// ListAll returns the ids of every tab with a stored snapshot
	ListAll(ctx context.Context) ([]string, error)

	// Exists checks if a snapshot is stored for the tab
	Exists(ctx context.Context, tabID string) bool
}

// PersistedTile is a tile as written to storage
type PersistedTile struct {
	ID        int    `json:"id"`
	Symbol    string `json:"symbol"`
	IsFlipped bool   `json:"isFlipped"`
	IsMatched bool   `json:"isMatched"`
}

// PersistedSnapshot represents the JSON structure stored per tab
type PersistedSnapshot struct {
	Tiles        []PersistedTile `json:"tiles"`
	MatchedPairs int             `json:"matchedPairs"`
	TotalPairs   int             `json:"totalPairs"`
	Moves        int             `json:"moves"`
	GameStarted  bool            `json:"gameStarted"`
	Seconds      int             `json:"seconds"`
	Difficulty   string          `json:"difficulty"`
}

// FromSnapshot converts an engine snapshot to its stored form
func FromSnapshot(snap engine.Snapshot) *PersistedSnapshot {
	tiles := make([]PersistedTile, len(snap.Tiles))
	for i, t := range snap.Tiles {
		tiles[i] = PersistedTile{ID: t.ID, Symbol: t.Symbol, IsFlipped: t.Revealed, IsMatched: t.Matched}
	}

	return &PersistedSnapshot{
		Tiles:        tiles,
		MatchedPairs: snap.MatchedPairs,
		TotalPairs:   snap.TotalPairs,
		Moves:        snap.MoveCount,
		GameStarted:  snap.Started,
		Seconds:      snap.ElapsedSeconds,
		Difficulty:   snap.Shape.String(),
	}
}

// ToState rebuilds a session from the stored form and checks its invariants.
// Whether the symbols fit the engine's alphabet is left to engine.Restore.
func (p *PersistedSnapshot) ToState() (*engine.SessionState, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: snapshot is empty", ErrPersistenceMiss)
	}

	shape, err := engine.ParseBoardShape(p.Difficulty)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceMiss, err)
	}

	tiles := make([]engine.Tile, len(p.Tiles))
	for i, t := range p.Tiles {
		tiles[i] = engine.Tile{ID: t.ID, Symbol: t.Symbol, Revealed: t.IsFlipped, Matched: t.IsMatched}
	}

	state := &engine.SessionState{
		Tiles:          tiles,
		TotalPairs:     p.TotalPairs,
		MatchedPairs:   p.MatchedPairs,
		MoveCount:      p.Moves,
		ElapsedSeconds: p.Seconds,
		Started:        p.GameStarted,
		Shape:          shape,
		Pending:        []int{},
	}

	if err := engine.ValidateState(state, shape.Pairs()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceMiss, err)
	}
	return state, nil
}

// MarshalSnapshot encodes a snapshot in the stored JSON format
func MarshalSnapshot(p *PersistedSnapshot) ([]byte, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return data, nil
}

// UnmarshalSnapshot decodes the stored JSON format
func UnmarshalSnapshot(data []byte) (*PersistedSnapshot, error) {
	var p PersistedSnapshot
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal snapshot: %v", ErrPersistenceMiss, err)
	}
	return &p, nil
}

// ValidateTabID rejects ids that cannot be used as storage keys
func ValidateTabID(id string) error {
	if id == "" || len(id) > 64 {
		return fmt.Errorf("%w: %q", ErrInvalidTabID, id)
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return fmt.Errorf("%w: %q", ErrInvalidTabID, id)
		}
	}
	return nil
}
