package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/wricardo/memory-match-game/game/engine"
	"github.com/wricardo/memory-match-game/game/service"
)

var (
	ErrDifficultyNotFound = errors.New("difficulty not found")
	ErrInvalidConfig      = errors.New("invalid configuration")
)

// Manager holds the loaded settings and resolves difficulties
type Manager struct {
	path     string
	settings *Settings
	alphabet []string
	getenv   func(string) string
	mu       sync.RWMutex
}

// NewManager loads settings from path. A missing file, or an empty path,
// yields the built-in defaults.
func NewManager(path string) (*Manager, error) {
	settings, err := LoadSettings(path)
	if err != nil {
		return nil, err
	}
	return NewManagerFromSettings(path, settings)
}

// NewManagerFromSettings validates settings and wraps them in a Manager
func NewManagerFromSettings(path string, settings *Settings) (*Manager, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &Manager{
		path:     path,
		settings: settings,
		alphabet: settings.Alphabet(),
	}, nil
}

// LoadSettings reads a YAML settings file on top of the defaults
func LoadSettings(path string) (*Settings, error) {
	settings := DefaultSettings()
	if path == "" {
		return settings, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return settings, nil
		}
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	if err := decodeSettings(data, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

func decodeSettings(data []byte, settings *Settings) error {
	// An empty file decodes to io.EOF and keeps the defaults
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(settings); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: failed to parse settings: %v", ErrInvalidConfig, err)
	}

	// Preset names are matched case-insensitively
	presets := make(map[string]string, len(settings.Difficulties))
	for name, shape := range settings.Difficulties {
		presets[strings.ToLower(strings.TrimSpace(name))] = shape
	}
	settings.Difficulties = presets
	settings.Aggregate.Backend = strings.ToLower(settings.Aggregate.Backend)
	return nil
}

// Settings returns a copy of the current settings
func (m *Manager) Settings() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := *m.settings
	s.Difficulties = make(map[string]string, len(m.settings.Difficulties))
	for k, v := range m.settings.Difficulties {
		s.Difficulties[k] = v
	}
	s.Symbols = append([]string(nil), m.settings.Symbols...)
	return s
}

// Alphabet returns the tile symbols
func (m *Manager) Alphabet() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.alphabet...)
}

// Difficulty resolves a preset name (case-insensitive) or an "RxC" shape
func (m *Manager) Difficulty(name string) (engine.BoardShape, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return resolveDifficulty(m.settings.Difficulties, name, len(m.alphabet))
}

// DefaultDifficulty returns the difficulty used for fresh tabs
func (m *Manager) DefaultDifficulty() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings.DefaultDifficulty
}

// DefaultShape resolves the default difficulty
func (m *Manager) DefaultShape() engine.BoardShape {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Validated when the settings were loaded
	shape, _ := resolveDifficulty(m.settings.Difficulties, m.settings.DefaultDifficulty, len(m.alphabet))
	return shape
}

// ListDifficulties returns the playable presets ordered by board size
func (m *Manager) ListDifficulties() []*service.DifficultyInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	defaultShape, _ := resolveDifficulty(m.settings.Difficulties, m.settings.DefaultDifficulty, len(m.alphabet))

	var infos []*service.DifficultyInfo
	for name, raw := range m.settings.Difficulties {
		shape, err := engine.ParseBoardShape(raw)
		if err != nil || shape.Validate(len(m.alphabet)) != nil {
			continue
		}
		infos = append(infos, &service.DifficultyInfo{
			Name:    name,
			Shape:   shape.String(),
			Rows:    shape.Rows,
			Cols:    shape.Cols,
			Pairs:   shape.Pairs(),
			Default: shape == defaultShape,
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Pairs != infos[j].Pairs {
			return infos[i].Pairs < infos[j].Pairs
		}
		return infos[i].Name < infos[j].Name
	})
	return infos
}

// UseEnv makes Reload apply environment overrides read through getenv
func (m *Manager) UseEnv(getenv func(string) string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getenv = getenv
}

// Reload re-reads the settings file. The current settings stay in place when
// the file is invalid.
func (m *Manager) Reload() error {
	settings, err := LoadSettings(m.path)
	if err != nil {
		return err
	}
	m.mu.RLock()
	getenv := m.getenv
	m.mu.RUnlock()
	if getenv != nil {
		settings.ApplyEnv(getenv)
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = settings
	m.alphabet = settings.Alphabet()
	return nil
}

// SaveSettings writes settings as YAML to path
func SaveSettings(path string, settings *Settings) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create settings directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	return nil
}
