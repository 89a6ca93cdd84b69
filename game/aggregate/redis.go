package aggregate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

// ChangesChannel is the pub/sub channel carrying changed keys
const ChangesChannel = "memory:changes"

// RedisStore keeps counters in Redis and doubles as a Broadcaster over pub/sub,
// so tabs on different hosts see each other's moves.
type RedisStore struct {
	rdb    *redis.Client
	logger *slog.Logger

	mu      sync.Mutex
	subs    map[uint64]func(key string)
	nextID  uint64
	pubsub  *redis.PubSub
	cancel  context.CancelFunc
	stopped chan struct{}
}

// NewRedisStore connects to the server at url, e.g. "redis://localhost:6379/0"
func NewRedisStore(ctx context.Context, url string, logger *slog.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStore{
		rdb:    rdb,
		logger: logger,
		subs:   make(map[uint64]func(key string)),
	}, nil
}

// Load returns the value of key, or zero if it was never written
func (r *RedisStore) Load(ctx context.Context, key string) (int64, error) {
	v, err := r.rdb.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load %s: %w", key, err)
	}
	return v, nil
}

// Store sets key to value
func (r *RedisStore) Store(ctx context.Context, key string, value int64) error {
	if err := r.rdb.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("store %s: %w", key, err)
	}
	return nil
}

// Broadcast publishes key on ChangesChannel. Subscribers in this process are
// notified when the message comes back from the server.
func (r *RedisStore) Broadcast(ctx context.Context, key string) error {
	if err := r.rdb.Publish(ctx, ChangesChannel, key).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}
	return nil
}

// Subscribe registers fn for changed keys. The first subscriber starts the
// pub/sub listener.
func (r *RedisStore) Subscribe(fn func(key string)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pubsub == nil {
		r.startLocked()
	}

	r.nextID++
	id := r.nextID
	r.subs[id] = fn

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.subs, id)
	}
}

func (r *RedisStore) startLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.pubsub = r.rdb.Subscribe(ctx, ChangesChannel)
	r.stopped = make(chan struct{})

	// Wait for the subscription to be confirmed so early broadcasts are not lost
	if _, err := r.pubsub.Receive(ctx); err != nil {
		r.logger.Warn("redis subscribe failed", "channel", ChangesChannel, "error", err)
	}

	ch := r.pubsub.Channel()
	go func() {
		defer close(r.stopped)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				r.logger.Debug("aggregate changed", "key", msg.Payload)
				for _, fn := range r.subscribers() {
					fn(msg.Payload)
				}
			}
		}
	}()
}

func (r *RedisStore) subscribers() []func(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fns := make([]func(key string), 0, len(r.subs))
	for id := uint64(1); id <= r.nextID; id++ {
		if fn, ok := r.subs[id]; ok {
			fns = append(fns, fn)
		}
	}
	return fns
}

// Close stops the listener and closes the connection
func (r *RedisStore) Close() error {
	r.mu.Lock()
	pubsub, cancel, stopped := r.pubsub, r.cancel, r.stopped
	r.pubsub = nil
	r.mu.Unlock()

	if pubsub != nil {
		cancel()
		pubsub.Close()
		<-stopped
	}
	return r.rdb.Close()
}
