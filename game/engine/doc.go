// Package engine provides the core game logic for the Memory Match game.
//
// The engine package implements the game mechanics including:
//   - Deck building with an unbiased Fisher-Yates shuffle
//   - The reveal / match / mismatch state machine with input lockout
//   - The elapsed-time clock and its MM:SS formatting
//   - Session state invariants and validation of restored sessions
//
// Core Types:
//
// The Engine interface defines the main contract for game operations,
// implemented by GameEngine. SessionState is the authoritative record of one
// game; Snapshot is the read-only copy handed to everything else.
//
// Usage:
//
//	shape, err := engine.ParseBoardShape("4x4")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameEngine, err := engine.NewEngine(shape)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	unsubscribe := gameEngine.Subscribe(func(ev engine.Event) {
//		fmt.Println(ev.Type, ev.Snapshot.MoveCount, ev.Snapshot.Elapsed)
//	})
//	defer unsubscribe()
//
//	_ = gameEngine.Reveal(0)
//	_ = gameEngine.Reveal(5)
//
// Game Rules:
//
// Tiles are dealt face down, two per symbol. The player reveals two tiles per
// move. After the match-check delay a matching pair stays face up; otherwise the
// pair is hidden again after the flip-back delay. Input is locked while a pair is
// being resolved; reveals arriving meanwhile are dropped. The game is complete
// when every pair has been found, which stops the clock.
//
// Timing:
//
// Delays and clock ticks go through a Scheduler. RealScheduler uses wall-clock
// timers; ManualScheduler is advanced explicitly and makes timing deterministic
// in tests. Every scheduled callback belongs to one game generation and is
// discarded once NewGame or Restore has replaced that game.
package engine
