package aggregate

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

const currentSchemaVersion = 1

// DefaultWatchInterval is how often Watch polls for writes from other processes
const DefaultWatchInterval = 500 * time.Millisecond

// SQLiteStore persists counters in a SQLite profile database.
// Uses WAL mode so several processes can share one file.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger

	mu     sync.Mutex
	seen   map[string]int64 // last version observed per key
	primed bool
}

// Option configures a SQLiteStore
type Option func(*SQLiteStore)

// WithLogger sets the logger used for watch errors
func WithLogger(logger *slog.Logger) Option {
	return func(s *SQLiteStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// OpenSQLite creates or opens the profile database at path.
//
// The database is configured with:
//   - WAL mode for concurrent readers
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention between processes
func OpenSQLite(path string, opts ...Option) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: slog.Default(),
		seen:   make(map[string]int64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version < currentSchemaVersion {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}
	return nil
}

// Load returns the value of key, or zero if it was never written
func (s *SQLiteStore) Load(ctx context.Context, key string) (int64, error) {
	var value, version int64
	err := s.db.QueryRowContext(ctx,
		"SELECT value, version FROM kv WHERE key = ?", key).Scan(&value, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load %s: %w", key, err)
	}
	return value, nil
}

// Store sets key to value and bumps its version
func (s *SQLiteStore) Store(ctx context.Context, key string, value int64) error {
	var version int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			version = kv.version + 1,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
		RETURNING version`, key, value).Scan(&version)
	if err != nil {
		return fmt.Errorf("store %s: %w", key, err)
	}

	s.mu.Lock()
	s.seen[key] = version
	s.mu.Unlock()
	return nil
}

// Watch polls the database every interval and broadcasts keys that another
// process has written since they were last seen. It blocks until ctx is done.
func (s *SQLiteStore) Watch(ctx context.Context, interval time.Duration, bus Broadcaster) error {
	if interval <= 0 {
		interval = DefaultWatchInterval
	}

	// Writes made before the watch started are not news
	if _, err := s.poll(ctx); err != nil {
		s.logger.Warn("aggregate watch failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			changed, err := s.poll(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.Warn("aggregate watch failed", "error", err)
				continue
			}
			for _, key := range changed {
				s.logger.Debug("aggregate changed externally", "key", key)
				if err := bus.Broadcast(ctx, key); err != nil {
					s.logger.Warn("aggregate broadcast failed", "key", key, "error", err)
				}
			}
		}
	}
}

// poll records the current version of every key and returns the keys whose
// version moved since the last poll or local write
func (s *SQLiteStore) poll(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, version FROM kv ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("poll versions: %w", err)
	}
	defer rows.Close()

	s.mu.Lock()
	defer s.mu.Unlock()

	var changed []string
	for rows.Next() {
		var key string
		var version int64
		if err := rows.Scan(&key, &version); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		if seen, ok := s.seen[key]; !ok || version > seen {
			if s.primed {
				changed = append(changed, key)
			}
			s.seen[key] = version
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("poll versions: %w", err)
	}
	s.primed = true
	return changed, nil
}
