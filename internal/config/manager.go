package config

import (
	"log/slog"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Manager holds the current configuration and reloads it when the file
// changes.
type Manager struct {
	v    *viper.Viper
	path string

	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)
}

// NewManager loads path (or DefaultPath when empty).
func NewManager(path string) (*Manager, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return nil, err
	}
	v := newViper(resolved)
	cfg, err := readInto(v)
	if err != nil {
		return nil, err
	}
	return &Manager{v: v, path: resolved, config: cfg}, nil
}

// Path is the resolved config file path, which may not exist.
func (m *Manager) Path() string { return m.path }

// Get returns the current config. Callers must not modify it.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// OnChange registers fn to run with every successfully reloaded config.
func (m *Manager) OnChange(fn func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, fn)
}

// Reload re-reads the file. On error the current config is kept.
func (m *Manager) Reload() error {
	cfg, err := readInto(m.v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.config = cfg
	callbacks := make([]func(*Config), len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.mu.Unlock()

	for _, fn := range callbacks {
		fn(cfg)
	}
	return nil
}

// Watch reloads the config whenever its file is written. Invalid edits are
// logged and ignored.
func (m *Manager) Watch(logger *slog.Logger) {
	m.v.OnConfigChange(func(e fsnotify.Event) {
		if err := m.Reload(); err != nil {
			if logger != nil {
				logger.Warn("config reload failed", "file", e.Name, "error", err)
			}
			return
		}
		if logger != nil {
			logger.Info("config reloaded", "file", e.Name)
		}
	})
	m.v.WatchConfig()
}
