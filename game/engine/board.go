package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// BoardShape is the grid a deck is laid out on.
type BoardShape struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
}

// ParseBoardShape parses the "RxC" form used by difficulty selectors, e.g. "4x4".
func ParseBoardShape(s string) (BoardShape, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "x")
	if len(parts) != 2 {
		return BoardShape{}, fmt.Errorf("%w: board shape %q must look like RxC", ErrConfiguration, s)
	}

	rows, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return BoardShape{}, fmt.Errorf("%w: board shape %q has invalid rows", ErrConfiguration, s)
	}
	cols, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return BoardShape{}, fmt.Errorf("%w: board shape %q has invalid cols", ErrConfiguration, s)
	}

	return BoardShape{Rows: rows, Cols: cols}, nil
}

// String returns the "RxC" form of the shape.
func (b BoardShape) String() string {
	return fmt.Sprintf("%dx%d", b.Rows, b.Cols)
}

// Tiles returns the number of tiles on the board.
func (b BoardShape) Tiles() int {
	return b.Rows * b.Cols
}

// Pairs returns the number of symbol pairs the board holds.
func (b BoardShape) Pairs() int {
	return b.Tiles() / 2
}

// MaxTiles bounds the size of any board, whatever the alphabet.
const MaxTiles = 4096

// Validate checks that the shape can be filled from an alphabet of the given size.
// The dimensions are bounded before Tiles is used, so the product cannot overflow.
func (b BoardShape) Validate(alphabetSize int) error {
	if b.Rows < 1 || b.Cols < 1 {
		return fmt.Errorf("%w: board %s must have at least one row and one column", ErrConfiguration, b)
	}
	if b.Rows > MaxTiles/b.Cols {
		return fmt.Errorf("%w: board %s is larger than %d tiles", ErrConfiguration, b, MaxTiles)
	}
	if b.Tiles()%2 != 0 {
		return fmt.Errorf("%w: board %s has an odd tile count (%d)", ErrConfiguration, b, b.Tiles())
	}
	if b.Pairs() > alphabetSize {
		return fmt.Errorf("%w: board %s needs %d symbols but only %d are available",
			ErrConfiguration, b, b.Pairs(), alphabetSize)
	}
	return nil
}
