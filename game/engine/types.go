package engine

import "time"

// Phase is the turn engine state derived from the session.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseOneRevealed Phase = "one_revealed"
	PhaseResolving   Phase = "resolving"
	PhaseComplete    Phase = "complete"

	// Default timings
	DefaultMatchCheckDelay = 500 * time.Millisecond
	DefaultFlipBackDelay   = 1000 * time.Millisecond
	DefaultTickInterval    = time.Second
)

// Tile is a single face-down/face-up game piece
type Tile struct {
	ID       int    `json:"id"`
	Symbol   string `json:"symbol"`
	Revealed bool   `json:"revealed"`
	Matched  bool   `json:"matched"`
}

// SessionState is the authoritative record of one game's progress.
// It is owned by exactly one Engine; other components work on Snapshots.
type SessionState struct {
	Tiles          []Tile     `json:"tiles"`
	TotalPairs     int        `json:"total_pairs"`
	MatchedPairs   int        `json:"matched_pairs"`
	MoveCount      int        `json:"move_count"`
	ElapsedSeconds int        `json:"elapsed_seconds"`
	Started        bool       `json:"started"`
	Shape          BoardShape `json:"shape"`
	InputLocked    bool       `json:"input_locked"`
	Pending        []int      `json:"pending"`
}

// Clone returns a deep copy of the state
func (s *SessionState) Clone() *SessionState {
	if s == nil {
		return nil
	}
	c := *s
	c.Tiles = append([]Tile(nil), s.Tiles...)
	c.Pending = append([]int(nil), s.Pending...)
	return &c
}

// Complete reports whether every pair has been matched
func (s *SessionState) Complete() bool {
	return s.TotalPairs > 0 && s.MatchedPairs == s.TotalPairs
}

// Phase derives the turn engine phase from the state
func (s *SessionState) Phase() Phase {
	switch {
	case s.Complete():
		return PhaseComplete
	case len(s.Pending) == 2:
		return PhaseResolving
	case len(s.Pending) == 1:
		return PhaseOneRevealed
	default:
		return PhaseIdle
	}
}

// Snapshot is a read-only copy of a session handed to the UI and persistence layers.
type Snapshot struct {
	SessionState
	Phase    Phase  `json:"phase"`
	Elapsed  string `json:"elapsed"`
	Complete bool   `json:"complete"`

	// Seq increases with every transition of the owning engine.
	Seq uint64 `json:"seq"`
	// Generation identifies the game the snapshot belongs to; NewGame and Restore bump it.
	Generation uint64 `json:"generation"`
}

// EventType names a transition emitted by the engine
type EventType string

const (
	EventNewGame     EventType = "new_game"
	EventRestored    EventType = "restored"
	EventReveal      EventType = "reveal"
	EventMove        EventType = "move"
	EventMatch       EventType = "match"
	EventMismatch    EventType = "mismatch"
	EventHide        EventType = "hide"
	EventTick        EventType = "tick"
	EventComplete    EventType = "complete"
	EventInvalidMove EventType = "invalid_move"
)

// Event describes a transition together with the state right after it
type Event struct {
	Type      EventType `json:"type"`
	Message   string    `json:"message"`
	TileIDs   []int     `json:"tile_ids,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Snapshot  Snapshot  `json:"snapshot"`
}

// Listener receives engine events. It is never called with the engine lock held,
// so it may issue commands back into the engine.
type Listener func(Event)

// Timing holds the fixed delays of the turn engine.
type Timing struct {
	MatchCheckDelay time.Duration
	FlipBackDelay   time.Duration
	TickInterval    time.Duration
}

// DefaultTiming returns the standard delays
func DefaultTiming() Timing {
	return Timing{
		MatchCheckDelay: DefaultMatchCheckDelay,
		FlipBackDelay:   DefaultFlipBackDelay,
		TickInterval:    DefaultTickInterval,
	}
}
