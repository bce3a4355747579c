package config

import (
	"log"
	"sync"
)

// Manager holds the current config snapshot and swaps it atomically on
// reload or update. Dispatches read a snapshot once and never see a
// half-written document.
type Manager struct {
	path    string
	mu      sync.RWMutex
	current *Config
}

func NewManager(path string) (*Manager, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	return &Manager{
		path:    path,
		current: cfg,
	}, nil
}

// Returns the current config snapshot. Callers must treat it as read-only.
func (m *Manager) Snapshot() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Re-reads the document from disk and swaps the snapshot.
func (m *Manager) Reload() error {
	cfg, err := Load(m.path)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.current = cfg
	m.mu.Unlock()

	log.Printf("Config reloaded from %s", m.path)
	return nil
}

// Applies fn to a copy of the current config, validates it, persists it
// back to the document and swaps the snapshot. Takes effect on the next
// credential resolution without a restart.
func (m *Manager) Update(fn func(*Config)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.current.Clone()
	fn(next)
	next.applyDefaults()

	if err := next.Validate(); err != nil {
		return err
	}

	if err := Save(m.path, next); err != nil {
		return err
	}

	m.current = next
	return nil
}

// Path returns the backing document location.
func (m *Manager) Path() string {
	return m.path
}
