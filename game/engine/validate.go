package engine

import "fmt"

// ValidateState checks the structural invariants of a session, e.g. one read back
// from storage. alphabetSize bounds the number of pairs the board may hold.
func ValidateState(s *SessionState, alphabetSize int) error {
	if s == nil {
		return fmt.Errorf("%w: state is nil", ErrConfiguration)
	}
	if err := s.Shape.Validate(alphabetSize); err != nil {
		return err
	}

	n := s.Shape.Tiles()
	if n == 0 || len(s.Tiles) == 0 {
		return fmt.Errorf("%w: board %s has no tiles", ErrConfiguration, s.Shape)
	}
	if len(s.Tiles) != n {
		return fmt.Errorf("%w: board %s needs %d tiles, got %d", ErrConfiguration, s.Shape, n, len(s.Tiles))
	}
	if s.TotalPairs < 1 || s.TotalPairs != n/2 {
		return fmt.Errorf("%w: total pairs must be %d, got %d", ErrConfiguration, n/2, s.TotalPairs)
	}
	if s.MoveCount < 0 || s.ElapsedSeconds < 0 {
		return fmt.Errorf("%w: counters cannot be negative", ErrConfiguration)
	}

	type pairInfo struct {
		count   int
		matched int
	}
	symbols := make(map[string]*pairInfo)
	matched := 0
	faceUp := 0

	for i, t := range s.Tiles {
		if t.ID != i {
			return fmt.Errorf("%w: tile at position %d has id %d", ErrConfiguration, i, t.ID)
		}
		info, ok := symbols[t.Symbol]
		if !ok {
			info = &pairInfo{}
			symbols[t.Symbol] = info
		}
		info.count++
		if t.Matched {
			if !t.Revealed {
				return fmt.Errorf("%w: tile %d is matched but face down", ErrConfiguration, i)
			}
			info.matched++
			matched++
		} else if t.Revealed {
			faceUp++
		}
	}

	for symbol, info := range symbols {
		if info.count != 2 {
			return fmt.Errorf("%w: symbol %q appears %d times", ErrConfiguration, symbol, info.count)
		}
		if info.matched == 1 {
			return fmt.Errorf("%w: symbol %q is only half matched", ErrConfiguration, symbol)
		}
	}

	if s.MatchedPairs != matched/2 {
		return fmt.Errorf("%w: matched pairs is %d but %d tiles are matched", ErrConfiguration, s.MatchedPairs, matched)
	}
	if faceUp > 2 || len(s.Pending) > 2 {
		return fmt.Errorf("%w: at most two unmatched tiles may be face up", ErrConfiguration)
	}
	for _, id := range s.Pending {
		if id < 0 || id >= n || !s.Tiles[id].Revealed || s.Tiles[id].Matched {
			return fmt.Errorf("%w: pending tile %d is not face up", ErrConfiguration, id)
		}
	}

	return nil
}
