package bot

import (
	"github.com/wricardo/memory-match-game/game/engine"
)

// Strategy picks the next tile to reveal
type Strategy interface {
	// Observe is called with every snapshot the player sees
	Observe(snap engine.Snapshot)
	// NextReveal returns the tile to reveal, or -1 to wait
	NextReveal(snap engine.Snapshot) int
	// Reset forgets everything, e.g. when a new game starts
	Reset()
}

// MemoryStrategy remembers every symbol it has seen face up and never reveals a
// tile twice when it already knows where its partner is. It only looks at face
// up tiles.
type MemoryStrategy struct {
	known      map[int]string
	generation uint64
}

// NewMemoryStrategy creates a strategy with an empty memory
func NewMemoryStrategy() *MemoryStrategy {
	return &MemoryStrategy{known: make(map[int]string)}
}

// Observe records the symbols of face up tiles
func (s *MemoryStrategy) Observe(snap engine.Snapshot) {
	if snap.Generation != s.generation {
		s.Reset()
		s.generation = snap.Generation
	}
	for _, tile := range snap.Tiles {
		if tile.Revealed {
			s.known[tile.ID] = tile.Symbol
		}
	}
}

// Reset forgets every seen symbol
func (s *MemoryStrategy) Reset() {
	s.known = make(map[int]string)
}

// Known returns how many tiles the strategy has seen
func (s *MemoryStrategy) Known() int {
	return len(s.known)
}

// NextReveal picks a tile:
//   - with one tile up, its partner if known, otherwise an unseen tile
//   - with none up, one half of a known pair, otherwise an unseen tile
func (s *MemoryStrategy) NextReveal(snap engine.Snapshot) int {
	switch snap.Phase {
	case engine.PhaseOneRevealed:
		first := snap.Pending[0]
		symbol := snap.Tiles[first].Symbol
		if partner := s.findKnown(snap, symbol, first); partner >= 0 {
			return partner
		}
		return s.firstHidden(snap)

	case engine.PhaseIdle:
		if a := s.knownPair(snap); a >= 0 {
			return a
		}
		return s.firstHidden(snap)
	}

	return -1
}

// findKnown returns a face down tile other than exclude known to show symbol
func (s *MemoryStrategy) findKnown(snap engine.Snapshot, symbol string, exclude int) int {
	for _, tile := range snap.Tiles {
		if tile.ID == exclude || tile.Revealed || tile.Matched {
			continue
		}
		if sym, ok := s.known[tile.ID]; ok && sym == symbol {
			return tile.ID
		}
	}
	return -1
}

// knownPair returns one tile of a face down pair whose both positions are known
func (s *MemoryStrategy) knownPair(snap engine.Snapshot) int {
	firstSeen := make(map[string]int)
	for _, tile := range snap.Tiles {
		if tile.Revealed || tile.Matched {
			continue
		}
		sym, ok := s.known[tile.ID]
		if !ok {
			continue
		}
		if id, dup := firstSeen[sym]; dup {
			return id
		}
		firstSeen[sym] = tile.ID
	}
	return -1
}

// firstHidden returns the first face down tile, preferring unseen ones
func (s *MemoryStrategy) firstHidden(snap engine.Snapshot) int {
	fallback := -1
	for _, tile := range snap.Tiles {
		if tile.Revealed || tile.Matched {
			continue
		}
		if _, seen := s.known[tile.ID]; !seen {
			return tile.ID
		}
		if fallback < 0 {
			fallback = tile.ID
		}
	}
	return fallback
}
