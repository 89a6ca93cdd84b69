package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/wricardo/memory-match-game/game/engine"
)

// Aggregate backends
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Settings mirrors the YAML settings file
type Settings struct {
	DefaultDifficulty string              `yaml:"default_difficulty"`
	Difficulties      map[string]string   `yaml:"difficulties"`
	Symbols           []string            `yaml:"symbols,omitempty"`
	Timing            TimingSettings      `yaml:"timing"`
	Persistence       PersistenceSettings `yaml:"persistence"`
	Aggregate         AggregateSettings   `yaml:"aggregate"`
	LogLevel          string              `yaml:"log_level"`
}

// TimingSettings holds the turn delays and the clock interval
type TimingSettings struct {
	MatchCheckDelay time.Duration `yaml:"match_check_delay"`
	FlipBackDelay   time.Duration `yaml:"flip_back_delay"`
	TickInterval    time.Duration `yaml:"tick_interval"`
}

// PersistenceSettings controls where tab snapshots are stored
type PersistenceSettings struct {
	SessionsDir    string `yaml:"sessions_dir"`
	SaveEveryTicks int    `yaml:"save_every_ticks"`
}

// AggregateSettings selects the store behind the shared move counter
type AggregateSettings struct {
	Backend       string        `yaml:"backend"`
	SQLitePath    string        `yaml:"sqlite_path"`
	RedisURL      string        `yaml:"redis_url"`
	WatchInterval time.Duration `yaml:"watch_interval"`
}

// DefaultSettings returns the built-in settings
func DefaultSettings() *Settings {
	return &Settings{
		DefaultDifficulty: "medium",
		Difficulties: map[string]string{
			"easy":   "2x4",
			"medium": "4x4",
			"hard":   "4x6",
			"expert": "6x6",
			"master": "8x8",
		},
		Timing: TimingSettings{
			MatchCheckDelay: engine.DefaultMatchCheckDelay,
			FlipBackDelay:   engine.DefaultFlipBackDelay,
			TickInterval:    engine.DefaultTickInterval,
		},
		Persistence: PersistenceSettings{
			SessionsDir:    "sessions",
			SaveEveryTicks: 5,
		},
		Aggregate: AggregateSettings{
			Backend:       BackendSQLite,
			SQLitePath:    "profile.db",
			WatchInterval: 500 * time.Millisecond,
		},
		LogLevel: "info",
	}
}

// ApplyEnv overrides settings from environment variables read through getenv
func (s *Settings) ApplyEnv(getenv func(string) string) {
	if v := getenv("MEMORY_SESSIONS_DIR"); v != "" {
		s.Persistence.SessionsDir = v
	}
	if v := getenv("MEMORY_AGGREGATE_BACKEND"); v != "" {
		s.Aggregate.Backend = strings.ToLower(v)
	}
	if v := getenv("MEMORY_SQLITE_PATH"); v != "" {
		s.Aggregate.SQLitePath = v
	}
	if v := getenv("REDIS_URL"); v != "" {
		s.Aggregate.RedisURL = v
	}
	if v := getenv("MEMORY_DIFFICULTY"); v != "" {
		s.DefaultDifficulty = v
	}
	if v := getenv("MEMORY_LOG_LEVEL"); v != "" {
		s.LogLevel = v
	}
}

// Alphabet returns the NFC-normalized symbols, or the default symbols when
// none are configured
func (s *Settings) Alphabet() []string {
	if len(s.Symbols) == 0 {
		return engine.DefaultSymbols
	}
	out := make([]string, len(s.Symbols))
	for i, sym := range s.Symbols {
		out[i] = norm.NFC.String(strings.TrimSpace(sym))
	}
	return out
}

// EngineTiming converts the timing settings for the engine
func (s *Settings) EngineTiming() engine.Timing {
	return engine.Timing{
		MatchCheckDelay: s.Timing.MatchCheckDelay,
		FlipBackDelay:   s.Timing.FlipBackDelay,
		TickInterval:    s.Timing.TickInterval,
	}
}

// Problems lists every problem with the settings, in a stable order
func (s *Settings) Problems() []string {
	var problems []string

	alphabet := s.Alphabet()
	seen := make(map[string]bool, len(alphabet))
	for i, sym := range alphabet {
		if sym == "" {
			problems = append(problems, fmt.Sprintf("symbols[%d] is empty", i))
			continue
		}
		if seen[sym] {
			problems = append(problems, fmt.Sprintf("symbols[%d] %q is a duplicate", i, sym))
		}
		seen[sym] = true
	}

	names := make([]string, 0, len(s.Difficulties))
	for name := range s.Difficulties {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		// Presets larger than the alphabet are only rejected when chosen
		shape, err := engine.ParseBoardShape(s.Difficulties[name])
		if err == nil {
			err = shape.Validate(shape.Pairs())
		}
		if err != nil {
			problems = append(problems, fmt.Sprintf("difficulty %s: %v", name, unwrapConfiguration(err)))
		}
	}

	if s.DefaultDifficulty == "" {
		problems = append(problems, "default_difficulty is required")
	} else if _, err := resolveDifficulty(s.Difficulties, s.DefaultDifficulty, len(alphabet)); err != nil {
		problems = append(problems, fmt.Sprintf("default_difficulty %q: %v", s.DefaultDifficulty, unwrapConfiguration(err)))
	}

	if s.Timing.MatchCheckDelay <= 0 {
		problems = append(problems, "timing.match_check_delay must be positive")
	}
	if s.Timing.FlipBackDelay <= 0 {
		problems = append(problems, "timing.flip_back_delay must be positive")
	}
	if s.Timing.TickInterval <= 0 {
		problems = append(problems, "timing.tick_interval must be positive")
	}

	if s.Persistence.SessionsDir == "" {
		problems = append(problems, "persistence.sessions_dir is required")
	}
	if s.Persistence.SaveEveryTicks < 1 {
		problems = append(problems, fmt.Sprintf("persistence.save_every_ticks must be at least 1, got %d", s.Persistence.SaveEveryTicks))
	}

	switch s.Aggregate.Backend {
	case BackendMemory:
	case BackendSQLite:
		if s.Aggregate.SQLitePath == "" {
			problems = append(problems, "aggregate.sqlite_path is required for the sqlite backend")
		}
	case BackendRedis:
		if s.Aggregate.RedisURL == "" {
			problems = append(problems, "aggregate.redis_url is required for the redis backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("aggregate.backend must be one of memory, sqlite, redis; got %q", s.Aggregate.Backend))
	}

	switch strings.ToLower(s.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("log_level must be one of debug, info, warn, error; got %q", s.LogLevel))
	}

	return problems
}

// Validate returns an error wrapping ErrInvalidConfig that lists every problem
func (s *Settings) Validate() error {
	problems := s.Problems()
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
}

// resolveDifficulty looks name up among the presets, then tries it as "RxC"
func resolveDifficulty(presets map[string]string, name string, alphabetSize int) (engine.BoardShape, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	raw, ok := presets[key]
	if !ok {
		raw = key
	}

	shape, err := engine.ParseBoardShape(raw)
	if err != nil {
		if !ok {
			return engine.BoardShape{}, fmt.Errorf("%w: %s", ErrDifficultyNotFound, name)
		}
		return engine.BoardShape{}, err
	}
	if err := shape.Validate(alphabetSize); err != nil {
		return engine.BoardShape{}, err
	}
	return shape, nil
}

// unwrapConfiguration trims the sentinel prefix for readable problem lists
func unwrapConfiguration(err error) string {
	msg := err.Error()
	if errors.Is(err, engine.ErrConfiguration) {
		msg = strings.TrimPrefix(msg, engine.ErrConfiguration.Error()+": ")
	}
	return msg
}
