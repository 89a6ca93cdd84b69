package engine

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"time"
)

// Engine provides the main interface for game operations
type Engine interface {
	// Commands
	NewGame(shape BoardShape) error
	Reveal(tileID int) error
	Restore(state *SessionState) error

	// State
	Snapshot() Snapshot
	IsComplete() bool
	MoveCount() int
	Elapsed() string
	Shape() BoardShape

	// Events
	Subscribe(l Listener) (unsubscribe func())

	Close()
}

// GameEngine implements the Engine interface. Every command and every scheduled
// callback runs under mu, so observers never see a half-applied transition.
type GameEngine struct {
	mu sync.Mutex

	state    *SessionState
	alphabet []string
	rng      *rand.Rand
	sched    Scheduler
	timing   Timing
	clock    *Clock
	logger   *slog.Logger
	now      func() time.Time

	// generation identifies the current game; scheduled resolutions carry the
	// generation they were created for and are dropped once it changes.
	generation   uint64
	seq          uint64
	resolveTimer Timer

	listeners    map[uint64]Listener
	nextListener uint64
	closed       bool
}

// Option configures a GameEngine
type Option func(*GameEngine)

// WithScheduler sets the scheduler used for resolution delays and clock ticks
func WithScheduler(s Scheduler) Option {
	return func(e *GameEngine) {
		e.sched = s
	}
}

// WithRand sets the random source used to shuffle decks
func WithRand(r *rand.Rand) Option {
	return func(e *GameEngine) {
		e.rng = r
	}
}

// WithAlphabet sets the symbol alphabet decks are drawn from
func WithAlphabet(symbols []string) Option {
	return func(e *GameEngine) {
		e.alphabet = append([]string(nil), symbols...)
	}
}

// WithTiming overrides the match-check, flip-back and tick delays
func WithTiming(t Timing) Option {
	return func(e *GameEngine) {
		e.timing = t
	}
}

// WithLogger sets the structured logger
func WithLogger(l *slog.Logger) Option {
	return func(e *GameEngine) {
		e.logger = l
	}
}

// WithNow sets the wall-clock source used for event timestamps
func WithNow(now func() time.Time) Option {
	return func(e *GameEngine) {
		e.now = now
	}
}

// NewEngine creates a new game engine and deals a first game on the given shape
func NewEngine(shape BoardShape, opts ...Option) (*GameEngine, error) {
	e := &GameEngine{
		alphabet:  DefaultSymbols,
		timing:    DefaultTiming(),
		sched:     RealScheduler{},
		logger:    slog.Default(),
		now:       time.Now,
		listeners: make(map[uint64]Listener),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	e.clock = NewClock(e.sched, e.timing.TickInterval)

	state, err := NewSessionState(shape, e.alphabet, e.rng)
	if err != nil {
		return nil, err
	}
	e.install(state)

	return e, nil
}

// NewEngineWithDefaults creates an engine on a 4x4 board with the default timings
func NewEngineWithDefaults() *GameEngine {
	e, err := NewEngine(BoardShape{Rows: 4, Cols: 4})
	if err != nil {
		// 4x4 always fits the default alphabet
		panic(err)
	}
	return e
}

// NewGame discards the current session and deals a new one. On a configuration
// error the current session is left untouched.
func (e *GameEngine) NewGame(shape BoardShape) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEngineClosed
	}

	state, err := NewSessionState(shape, e.alphabet, e.rng)
	if err != nil {
		e.mu.Unlock()
		return err
	}

	e.install(state)
	e.logger.Debug("new game", "shape", shape.String(), "pairs", state.TotalPairs, "generation", e.generation)
	events := []Event{e.event(EventNewGame, fmt.Sprintf("New %s game: find %d pairs", shape, state.TotalPairs), nil)}
	listeners := e.listenersLocked()
	e.mu.Unlock()

	dispatch(listeners, events)
	return nil
}

// Restore replaces the current session with a previously persisted one. Pending
// reveals are rebuilt from face-up unmatched tiles; a started, unfinished game
// resumes its clock from the stored elapsed seconds.
func (e *GameEngine) Restore(state *SessionState) error {
	if state == nil {
		return fmt.Errorf("state cannot be nil")
	}

	restored := state.Clone()
	restored.Pending = restored.Pending[:0]
	for _, t := range restored.Tiles {
		if t.Revealed && !t.Matched {
			restored.Pending = append(restored.Pending, t.ID)
		}
	}
	restored.InputLocked = len(restored.Pending) == 2
	if len(restored.Pending) > 0 || restored.MatchedPairs > 0 {
		restored.Started = true
	}
	if err := ValidateState(restored, len(e.alphabetSnapshot())); err != nil {
		return err
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEngineClosed
	}

	e.install(restored)
	if restored.Started && !restored.Complete() {
		e.clock.Start(e.tick)
	}
	if restored.InputLocked {
		e.scheduleLocked(e.timing.MatchCheckDelay, e.resolve)
	}

	e.logger.Debug("session restored",
		"shape", restored.Shape.String(),
		"moves", restored.MoveCount,
		"seconds", restored.ElapsedSeconds,
		"generation", e.generation)
	events := []Event{e.event(EventRestored, "Game restored", append([]int(nil), restored.Pending...))}
	listeners := e.listenersLocked()
	e.mu.Unlock()

	dispatch(listeners, events)
	return nil
}

// Reveal turns a tile face up. It returns an error wrapping ErrInvalidMove, and
// changes nothing, when input is locked, the game is complete, the id is out of
// range or the tile is already face up.
func (e *GameEngine) Reveal(tileID int) error {
	e.mu.Lock()
	events, err := e.revealLocked(tileID)
	listeners := e.listenersLocked()
	e.mu.Unlock()

	dispatch(listeners, events)
	return err
}

func (e *GameEngine) revealLocked(tileID int) ([]Event, error) {
	if e.closed {
		return nil, ErrEngineClosed
	}

	if reason := e.rejectReason(tileID); reason != "" {
		err := fmt.Errorf("%w: tile %d %s", ErrInvalidMove, tileID, reason)
		return []Event{e.event(EventInvalidMove, err.Error(), []int{tileID})}, err
	}

	s := e.state
	if !s.Started {
		s.Started = true
		e.clock.Start(e.tick)
	}

	s.Tiles[tileID].Revealed = true
	s.Pending = append(s.Pending, tileID)
	e.seq++
	events := []Event{e.event(EventReveal, fmt.Sprintf("Tile %d revealed", tileID), []int{tileID})}

	if len(s.Pending) == 2 {
		s.MoveCount++
		s.InputLocked = true
		e.seq++
		events = append(events, e.event(EventMove, fmt.Sprintf("Moves: %d", s.MoveCount), append([]int(nil), s.Pending...)))
		e.scheduleLocked(e.timing.MatchCheckDelay, e.resolve)
	}

	return events, nil
}

func (e *GameEngine) rejectReason(tileID int) string {
	s := e.state
	switch {
	case s.InputLocked:
		return "rejected: input is locked"
	case s.Complete():
		return "rejected: game is complete"
	case tileID < 0 || tileID >= len(s.Tiles):
		return fmt.Sprintf("is out of range [0, %d)", len(s.Tiles))
	case s.Tiles[tileID].Matched:
		return "is already matched"
	case s.Tiles[tileID].Revealed:
		return "is already revealed"
	}
	return ""
}

// resolve compares the two pending tiles once the match-check delay has passed
func (e *GameEngine) resolve(generation uint64) {
	e.mu.Lock()
	if e.closed || generation != e.generation || len(e.state.Pending) != 2 {
		e.mu.Unlock()
		return
	}
	e.resolveTimer = nil

	s := e.state
	a, b := &s.Tiles[s.Pending[0]], &s.Tiles[s.Pending[1]]
	pair := []int{a.ID, b.ID}
	var events []Event

	if a.Symbol == b.Symbol {
		a.Matched = true
		b.Matched = true
		s.MatchedPairs++
		s.Pending = s.Pending[:0]
		s.InputLocked = false
		e.seq++
		events = append(events, e.event(EventMatch, fmt.Sprintf("Match! %d/%d pairs found", s.MatchedPairs, s.TotalPairs), pair))

		if s.Complete() {
			e.clock.Stop()
			e.logger.Debug("game complete", "moves", s.MoveCount, "seconds", s.ElapsedSeconds)
			events = append(events, e.event(EventComplete,
				fmt.Sprintf("All %d pairs found in %d moves (%s)", s.TotalPairs, s.MoveCount, FormatElapsed(s.ElapsedSeconds)), nil))
		}
	} else {
		// input stays locked until the tiles are hidden again
		e.seq++
		events = append(events, e.event(EventMismatch, "No match", pair))
		e.scheduleLocked(e.timing.FlipBackDelay, e.hide)
	}

	listeners := e.listenersLocked()
	e.mu.Unlock()

	dispatch(listeners, events)
}

// hide turns a mismatched pair face down after the flip-back delay
func (e *GameEngine) hide(generation uint64) {
	e.mu.Lock()
	if e.closed || generation != e.generation || len(e.state.Pending) != 2 {
		e.mu.Unlock()
		return
	}
	e.resolveTimer = nil

	s := e.state
	pair := append([]int(nil), s.Pending...)
	for _, id := range pair {
		s.Tiles[id].Revealed = false
	}
	s.Pending = s.Pending[:0]
	s.InputLocked = false
	e.seq++

	events := []Event{e.event(EventHide, "Tiles hidden", pair)}
	listeners := e.listenersLocked()
	e.mu.Unlock()

	dispatch(listeners, events)
}

// tick advances the elapsed time by one second
func (e *GameEngine) tick(epoch uint64) {
	e.mu.Lock()
	if e.closed || !e.clock.Current(epoch) {
		e.mu.Unlock()
		return
	}

	e.state.ElapsedSeconds++
	e.seq++
	e.clock.Arm(e.tick)

	events := []Event{e.event(EventTick, FormatElapsed(e.state.ElapsedSeconds), nil)}
	listeners := e.listenersLocked()
	e.mu.Unlock()

	dispatch(listeners, events)
}

// scheduleLocked arms the single resolution timer for the current generation
func (e *GameEngine) scheduleLocked(d time.Duration, f func(generation uint64)) {
	generation := e.generation
	e.resolveTimer = e.sched.AfterFunc(d, func() { f(generation) })
}

// install swaps in a new session, cancelling everything scheduled for the old one
func (e *GameEngine) install(state *SessionState) {
	e.stopTimersLocked()
	e.generation++
	e.seq++
	e.state = state
}

func (e *GameEngine) stopTimersLocked() {
	if e.clock != nil {
		e.clock.Stop()
	}
	if e.resolveTimer != nil {
		e.resolveTimer.Stop()
		e.resolveTimer = nil
	}
}

// Snapshot returns a read-only copy of the current session
func (e *GameEngine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *GameEngine) snapshotLocked() Snapshot {
	s := e.state.Clone()
	return Snapshot{
		SessionState: *s,
		Phase:        s.Phase(),
		Elapsed:      FormatElapsed(s.ElapsedSeconds),
		Complete:     s.Complete(),
		Seq:          e.seq,
		Generation:   e.generation,
	}
}

func (e *GameEngine) event(t EventType, msg string, tiles []int) Event {
	return Event{
		Type:      t,
		Message:   msg,
		TileIDs:   tiles,
		Timestamp: e.now(),
		Snapshot:  e.snapshotLocked(),
	}
}

// IsComplete returns whether every pair has been matched
func (e *GameEngine) IsComplete() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Complete()
}

// MoveCount returns the number of resolved reveal pairs
func (e *GameEngine) MoveCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.MoveCount
}

// Elapsed returns the elapsed time as MM:SS
func (e *GameEngine) Elapsed() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return FormatElapsed(e.state.ElapsedSeconds)
}

// Shape returns the board shape of the current game
func (e *GameEngine) Shape() BoardShape {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Shape
}

// ClockRunning reports whether the elapsed-time clock is ticking
func (e *GameEngine) ClockRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clock.Running()
}

// Subscribe registers a listener for engine events
func (e *GameEngine) Subscribe(l Listener) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextListener++
	id := e.nextListener
	e.listeners[id] = l

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.listeners, id)
	}
}

// Close stops every timer. Further commands return ErrEngineClosed.
func (e *GameEngine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.closed = true
	e.stopTimersLocked()
}

func (e *GameEngine) alphabetSnapshot() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.alphabet
}

// listenersLocked returns the listeners in subscription order
func (e *GameEngine) listenersLocked() []Listener {
	ids := make([]uint64, 0, len(e.listeners))
	for id := range e.listeners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]Listener, 0, len(ids))
	for _, id := range ids {
		out = append(out, e.listeners[id])
	}
	return out
}

func dispatch(listeners []Listener, events []Event) {
	for _, ev := range events {
		for _, l := range listeners {
			l(ev)
		}
	}
}
