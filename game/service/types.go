package service

import (
	"time"

	"github.com/wricardo/memory-match-game/game/engine"
)

// Tab is one open game. Each tab owns its engine.
type Tab struct {
	ID       string
	Engine   engine.Engine
	OpenedAt time.Time
	// Resumed is set when the tab continued a stored game instead of starting fresh
	Resumed bool
}

// TabInfo provides information about an open tab
type TabInfo struct {
	ID           string       `json:"id"`
	Difficulty   string       `json:"difficulty"`
	Phase        engine.Phase `json:"phase"`
	Moves        int          `json:"moves"`
	MatchedPairs int          `json:"matched_pairs"`
	TotalPairs   int          `json:"total_pairs"`
	Elapsed      string       `json:"elapsed"`
	Complete     bool         `json:"complete"`
	Resumed      bool         `json:"resumed"`
	OpenedAt     time.Time    `json:"opened_at"`
}

// RevealResult contains the result of a reveal
type RevealResult struct {
	Accepted bool            `json:"accepted"`
	Message  string          `json:"message,omitempty"`
	Snapshot engine.Snapshot `json:"snapshot"`
}

// DifficultyInfo describes a difficulty preset
type DifficultyInfo struct {
	Name    string `json:"name"`
	Shape   string `json:"shape"`
	Rows    int    `json:"rows"`
	Cols    int    `json:"cols"`
	Pairs   int    `json:"pairs"`
	Default bool   `json:"default"`
}

// UpdateKind distinguishes the updates a subscriber receives
type UpdateKind string

const (
	// UpdateState carries an engine event of the subscribed tab
	UpdateState UpdateKind = "state"
	// UpdateAggregate carries a new total of moves across all tabs
	UpdateAggregate UpdateKind = "aggregate"
)

// Update is pushed to subscribers of a tab
type Update struct {
	Kind       UpdateKind       `json:"kind"`
	Event      *engine.Event    `json:"event,omitempty"`
	Snapshot   *engine.Snapshot `json:"snapshot,omitempty"`
	TotalMoves int64            `json:"total_moves,omitempty"`
}

// NewTabInfo summarizes a tab from a snapshot of its engine
func NewTabInfo(tab *Tab, snap engine.Snapshot) *TabInfo {
	return &TabInfo{
		ID:           tab.ID,
		Difficulty:   snap.Shape.String(),
		Phase:        snap.Phase,
		Moves:        snap.MoveCount,
		MatchedPairs: snap.MatchedPairs,
		TotalPairs:   snap.TotalPairs,
		Elapsed:      snap.Elapsed,
		Complete:     snap.Complete,
		Resumed:      tab.Resumed,
		OpenedAt:     tab.OpenedAt,
	}
}
