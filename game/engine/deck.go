package engine

import (
	"fmt"
	"math/rand"
)

// BuildDeck lays out a shuffled deck for the shape. The first shape.Pairs() symbols
// of the alphabet are used, each twice. Ids are assigned after shuffling so that a
// tile's id is its board position.
func BuildDeck(shape BoardShape, alphabet []string, rng *rand.Rand) ([]Tile, error) {
	if err := shape.Validate(len(alphabet)); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: deck builder needs a random source", ErrConfiguration)
	}

	pairs := shape.Pairs()
	symbols := make([]string, 0, pairs*2)
	symbols = append(symbols, alphabet[:pairs]...)
	symbols = append(symbols, alphabet[:pairs]...)

	// Fisher-Yates
	rng.Shuffle(len(symbols), func(i, j int) {
		symbols[i], symbols[j] = symbols[j], symbols[i]
	})

	tiles := make([]Tile, len(symbols))
	for i, symbol := range symbols {
		tiles[i] = Tile{ID: i, Symbol: symbol}
	}
	return tiles, nil
}

// NewSessionState builds a fresh, unstarted session for the shape
func NewSessionState(shape BoardShape, alphabet []string, rng *rand.Rand) (*SessionState, error) {
	tiles, err := BuildDeck(shape, alphabet, rng)
	if err != nil {
		return nil, err
	}

	return &SessionState{
		Tiles:      tiles,
		TotalPairs: shape.Pairs(),
		Shape:      shape,
		Pending:    []int{},
	}, nil
}
