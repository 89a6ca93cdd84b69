package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wricardo/memory-match-game/game/engine"
	"github.com/wricardo/memory-match-game/game/service"
)

// Manager handles the lifecycle of open tabs
type Manager struct {
	tabs    map[string]*tabEntry
	adapter *Adapter
	mu      sync.RWMutex

	shape      engine.BoardShape
	engineOpts []engine.Option
	logger     *slog.Logger
	now        func() time.Time
}

type tabEntry struct {
	tab    *service.Tab
	detach func()
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithDefaultShape sets the board used for fresh games
func WithDefaultShape(shape engine.BoardShape) ManagerOption {
	return func(m *Manager) {
		m.shape = shape
	}
}

// WithEngineOptions passes options to every engine the manager creates
func WithEngineOptions(opts ...engine.Option) ManagerOption {
	return func(m *Manager) {
		m.engineOpts = append(m.engineOpts, opts...)
	}
}

// WithManagerLogger sets the logger for tab lifecycle messages
func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a tab manager saving through adapter
func NewManager(adapter *Adapter, opts ...ManagerOption) *Manager {
	m := &Manager{
		tabs:    make(map[string]*tabEntry),
		adapter: adapter,
		shape:   engine.BoardShape{Rows: 4, Cols: 4},
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open returns the tab with the given id, opening it if needed. An empty id
// opens a new tab under a fresh time-ordered id. A stored game is resumed;
// when none is usable the tab starts a fresh game at the default shape.
func (m *Manager) Open(ctx context.Context, id string) (*service.Tab, error) {
	if id == "" {
		generated, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("failed to generate tab id: %w", err)
		}
		id = generated.String()
	} else if err := ValidateTabID(id); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, exists := m.tabs[id]; exists {
		return entry.tab, nil
	}

	eng, err := engine.NewEngine(m.shape, m.engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	tab := &service.Tab{
		ID:       id,
		Engine:   eng,
		OpenedAt: m.now(),
	}
	tab.Resumed = m.resume(ctx, id, eng)

	detach := m.adapter.Attach(ctx, id, eng)
	if !tab.Resumed {
		// Store the fresh game right away so a reload finds this one
		m.adapter.saveLogged(ctx, id, eng.Snapshot())
	}

	m.tabs[id] = &tabEntry{tab: tab, detach: detach}
	m.logger.Info("tab opened", "tab", id, "resumed", tab.Resumed, "difficulty", eng.Shape().String())

	return tab, nil
}

// resume restores the stored game of a tab into eng. It reports whether a game
// was resumed; failures are logged and leave the fresh game in place.
func (m *Manager) resume(ctx context.Context, id string, eng engine.Engine) bool {
	state, err := m.adapter.Load(ctx, id)
	if err != nil {
		if isNotFound(err) {
			m.logger.Debug("no stored game", "tab", id)
		} else {
			m.logger.Warn("stored game unusable, starting fresh", "tab", id, "error", err)
		}
		return false
	}

	if err := eng.Restore(state); err != nil {
		m.logger.Warn("stored game rejected, starting fresh", "tab", id, "error", err)
		return false
	}
	return true
}

// Get retrieves an open tab by ID
func (m *Manager) Get(id string) (*service.Tab, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, exists := m.tabs[id]
	if !exists {
		return nil, ErrTabNotFound
	}
	return entry.tab, nil
}

// List returns all open tabs, oldest first
func (m *Manager) List() []*service.Tab {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*service.Tab, 0, len(m.tabs))
	for _, entry := range m.tabs {
		result = append(result, entry.tab)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].OpenedAt.Equal(result[j].OpenedAt) {
			return result[i].OpenedAt.Before(result[j].OpenedAt)
		}
		return result[i].ID < result[j].ID
	})

	return result
}

// Close saves the tab's game one last time and shuts its engine down.
// The stored game remains so the tab can be opened again.
func (m *Manager) Close(ctx context.Context, id string) error {
	m.mu.Lock()
	entry, exists := m.tabs[id]
	if exists {
		delete(m.tabs, id)
	}
	m.mu.Unlock()

	if !exists {
		return ErrTabNotFound
	}

	m.closeEntry(ctx, entry)
	return nil
}

// Delete closes the tab if it is open and removes its stored game
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := m.Close(ctx, id); err != nil && !errors.Is(err, ErrTabNotFound) {
		return err
	}
	return m.adapter.Forget(ctx, id)
}

// CloseAll closes every open tab
func (m *Manager) CloseAll(ctx context.Context) {
	m.mu.Lock()
	entries := make([]*tabEntry, 0, len(m.tabs))
	for id, entry := range m.tabs {
		entries = append(entries, entry)
		delete(m.tabs, id)
	}
	m.mu.Unlock()

	for _, entry := range entries {
		m.closeEntry(ctx, entry)
	}
}

// Count returns the number of open tabs
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tabs)
}

func (m *Manager) closeEntry(ctx context.Context, entry *tabEntry) {
	id := entry.tab.ID
	entry.detach()
	entry.tab.Engine.Close()

	// Ticks since the last periodic save are not stored yet
	m.adapter.saveLogged(ctx, id, entry.tab.Engine.Snapshot())
	m.adapter.Detach(id)
	m.logger.Info("tab closed", "tab", id)
}
