package aggregate

import (
	"context"
	"fmt"
)

// TotalMovesKey holds the number of moves made across every tab.
const TotalMovesKey = "memory.totalMoves"

// Store is a key/value store of shared counters. Missing keys read as zero.
type Store interface {
	Load(ctx context.Context, key string) (int64, error)
	Store(ctx context.Context, key string, value int64) error
}

// Broadcaster announces that a key has changed. Subscribers receive only the key
// and re-read the value from the Store.
type Broadcaster interface {
	Broadcast(ctx context.Context, key string) error
	Subscribe(fn func(key string)) (unsubscribe func())
}

// Increment adds one to key and announces the change on bus, which may be nil.
// The update is not atomic across writers.
func Increment(ctx context.Context, store Store, bus Broadcaster, key string) (int64, error) {
	current, err := store.Load(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", key, err)
	}

	next := current + 1
	if err := store.Store(ctx, key, next); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", key, err)
	}

	if bus != nil {
		if err := bus.Broadcast(ctx, key); err != nil {
			return next, fmt.Errorf("failed to broadcast %s: %w", key, err)
		}
	}
	return next, nil
}
