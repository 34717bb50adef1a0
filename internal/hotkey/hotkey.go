// Package hotkey provides global system-wide hotkey and mouse button monitoring.
package hotkey

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Mouse button state names reported by the hooks.
const (
	MouseLeft   = "MOUSE1"
	MouseRight  = "MOUSE2"
	MouseMiddle = "MOUSE3"
)

// Action is what a bound combination triggers.
type Action int

const (
	ActionStart Action = iota
	ActionStop
	ActionEmergency
)

func (a Action) String() string {
	switch a {
	case ActionStart:
		return "start"
	case ActionStop:
		return "stop"
	case ActionEmergency:
		return "emergency"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Manager handles global hotkey and mouse button registration and matching
type Manager struct {
	mu           sync.RWMutex
	bindings     map[Action][]*registeredHotkey
	handlers     map[Action]func()
	currentState map[string]bool // map of current keys/buttons pressed
	disabled     atomic.Bool
	started      bool
	log          *zap.Logger
}

type registeredHotkey struct {
	parts    []string // e.g., ["CTRL", "ALT", "X"]
	original string
	active   bool // all parts held; cleared when any part is released
}

// NewManager creates a new hotkey manager
func NewManager() *Manager {
	return &Manager{
		bindings:     make(map[Action][]*registeredHotkey),
		handlers:     make(map[Action]func()),
		currentState: make(map[string]bool),
		log:          zap.L().Named("hotkey"),
	}
}

// Handle sets the callback run when any combination bound to action fires.
func (m *Manager) Handle(action Action, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[action] = fn
}

// Bind replaces every combination bound to action. Empty strings are skipped.
// If any combination is invalid nothing changes and the errors are returned.
func (m *Manager) Bind(action Action, combos ...string) error {
	var (
		next []*registeredHotkey
		errs []error
	)
	for _, c := range combos {
		if strings.TrimSpace(c) == "" {
			continue
		}
		if err := ValidateCombo(c); err != nil {
			errs = append(errs, fmt.Errorf("%s hotkey: %w", action, err))
			continue
		}
		next = append(next, &registeredHotkey{parts: tokens(c), original: c})
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	m.mu.Lock()
	m.bindings[action] = next
	m.mu.Unlock()

	for _, hk := range next {
		m.log.Debug("Hotkey: bound", zap.Stringer("action", action), zap.String("combo", hk.original))
	}
	return nil
}

// Bindings returns the combinations currently bound to action.
func (m *Manager) Bindings(action Action) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.bindings[action]))
	for _, hk := range m.bindings[action] {
		out = append(out, hk.original)
	}
	return out
}

// Clear removes all bindings
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bindings = make(map[Action][]*registeredHotkey)
}

// SetDisabled suppresses start and stop while set. Emergency stays live.
func (m *Manager) SetDisabled(disabled bool) {
	m.disabled.Store(disabled)
}

// Disabled reports whether start and stop are suppressed.
func (m *Manager) Disabled() bool {
	return m.disabled.Load()
}

// UpdateState updates the internal state of a key or button and checks for matches.
func (m *Manager) UpdateState(key string, isDown bool) {
	key = Token(key)

	m.mu.Lock()
	if isDown {
		m.currentState[key] = true
	} else {
		delete(m.currentState, key)
	}
	fired := m.checkMatches()
	m.mu.Unlock()

	for _, action := range fired {
		m.dispatch(action)
	}
}

// checkMatches marks combos whose parts are all held. A combo fires once per
// press; holding it down or auto-repeat does not fire it again.
func (m *Manager) checkMatches() []Action {
	var fired []Action
	for action, hks := range m.bindings {
		for _, hk := range hks {
			held := m.allDown(hk.parts)
			if held && !hk.active {
				m.log.Info("Hotkey triggered", zap.String("combo", hk.original), zap.Stringer("action", action))
				fired = append(fired, action)
			}
			hk.active = held
		}
	}
	return fired
}

func (m *Manager) dispatch(action Action) {
	if action != ActionEmergency && m.disabled.Load() {
		m.log.Debug("Hotkey: ignored while disabled", zap.Stringer("action", action))
		return
	}
	m.mu.RLock()
	fn := m.handlers[action]
	m.mu.RUnlock()
	if fn != nil {
		go fn()
	}
}

func (m *Manager) allDown(parts []string) bool {
	for _, p := range parts {
		if !m.currentState[p] {
			return false
		}
	}
	return len(parts) > 0
}

// IsDown reports whether a single key or mouse button is held.
func (m *Manager) IsDown(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentState[Token(key)]
}

// EmergencyHeld reports whether any emergency combination is fully held.
func (m *Manager) EmergencyHeld() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, hk := range m.bindings[ActionEmergency] {
		if m.allDown(hk.parts) {
			return true
		}
	}
	return false
}

// Start initiates the platform-specific global hooks.
// This is implemented in platform-specific files (hotkey_windows.go, hotkey_hook.go).
func (m *Manager) Start() error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = true
	m.mu.Unlock()
	return m.startPlatform()
}

// Stop removes the global hooks.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}
	m.started = false
	m.mu.Unlock()
	m.stopPlatform()
}
