// Package config provides settings persistence for the clicker.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"go.uber.org/zap"
)

// FileName is the settings file created inside the per-user config directory.
const FileName = "settings.json"

// Manager handles loading, validating and saving settings
type Manager struct {
	mu        sync.Mutex
	path      string
	settings  Settings
	onChanged []func(Settings)
	log       *zap.Logger
}

// NewManager creates a manager for the per-user settings file
func NewManager() (*Manager, error) {
	path, err := defaultPath()
	if err != nil {
		return nil, err
	}
	return NewManagerAt(path), nil
}

// NewManagerAt creates a manager for an explicit settings file path
func NewManagerAt(path string) *Manager {
	return &Manager{
		path:     path,
		settings: DefaultSettings(),
		log:      zap.L().Named("config"),
	}
}

// defaultPath returns the settings file location for the current OS
func defaultPath() (string, error) {
	var dir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, "Library", "Application Support", "omniclick")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		dir = filepath.Join(appData, "omniclick")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			dir = filepath.Join(xdg, "omniclick")
			break
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, ".config", "omniclick")
	}

	return filepath.Join(dir, FileName), nil
}

// Path returns the settings file location
func (m *Manager) Path() string {
	return m.path
}

// Load reads settings from disk. A missing file keeps the defaults; a
// malformed or invalid file is reported and leaves current settings untouched.
func (m *Manager) Load() error {
	m.mu.Lock()

	data, err := os.ReadFile(m.path)
	if errors.Is(err, os.ErrNotExist) {
		m.mu.Unlock()
		m.log.Info("Config: no settings file, using defaults", zap.String("path", m.path))
		return nil
	}
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("read settings: %w", err)
	}

	// Decode over a copy so a failed load never leaks partial values.
	next := m.settings.Clone()
	if err := json.Unmarshal(data, &next); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("parse %s: %w", m.path, err)
	}
	if err := next.Validate(); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("validate %s: %w", m.path, err)
	}
	m.settings = next
	m.mu.Unlock()

	m.log.Info("Config: loaded settings", zap.String("path", m.path))
	m.notify(next)
	return nil
}

// Save writes the current settings to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.MarshalIndent(m.settings, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}

	m.log.Info("Config: saving settings", zap.String("path", m.path), zap.Int("bytes", len(data)))
	return os.WriteFile(m.path, data, 0644)
}

// Get returns a copy of the current settings
func (m *Manager) Get() Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings.Clone()
}

// Update applies fn to a copy of the settings and keeps the result only when
// it validates. On error the previous value is retained.
func (m *Manager) Update(fn func(*Settings) error) error {
	m.mu.Lock()
	next := m.settings.Clone()
	if err := fn(&next); err != nil {
		m.mu.Unlock()
		return err
	}
	if err := next.Validate(); err != nil {
		m.mu.Unlock()
		return err
	}
	m.settings = next
	m.mu.Unlock()

	m.notify(next)
	return nil
}

// RegisterChangeCallback registers a function to be called when settings change
func (m *Manager) RegisterChangeCallback(fn func(Settings)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChanged = append(m.onChanged, fn)
}

func (m *Manager) notify(s Settings) {
	m.mu.Lock()
	callbacks := append([]func(Settings){}, m.onChanged...)
	m.mu.Unlock()

	for _, fn := range callbacks {
		fn(s.Clone())
	}
}
