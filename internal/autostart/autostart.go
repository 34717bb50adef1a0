// Package autostart registers omniclick to start at user login.
package autostart

import (
	"fmt"
	"os"
	"strings"
)

// Entry is the login item for one executable.
type Entry struct {
	// Name identifies the entry (registry value, plist label or desktop file).
	Name string
	// Exec is the absolute path that is started at login.
	Exec string
	// Args are appended to Exec.
	Args []string

	// home overrides the user home directory for file based entries
	home string
}

// New returns an entry that starts the running executable.
func New(name string, args ...string) (*Entry, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %w", err)
	}
	return &Entry{Name: name, Exec: exe, Args: args}, nil
}

// Enable registers the entry. Enabling twice rewrites it.
func (e *Entry) Enable() error {
	if err := enable(e); err != nil {
		return fmt.Errorf("enable autostart: %w", err)
	}
	return nil
}

// Disable removes the entry. A missing entry is not an error.
func (e *Entry) Disable() error {
	if err := disable(e); err != nil {
		return fmt.Errorf("disable autostart: %w", err)
	}
	return nil
}

// Enabled reports whether the entry is registered.
func (e *Entry) Enabled() bool {
	return enabled(e)
}

// Set enables or disables the entry.
func (e *Entry) Set(on bool) error {
	if on {
		return e.Enable()
	}
	return e.Disable()
}

func (e *Entry) homeDir() (string, error) {
	if e.home != "" {
		return e.home, nil
	}
	return os.UserHomeDir()
}

// commandLine quotes every part that contains a space.
func (e *Entry) commandLine() string {
	parts := make([]string, 0, len(e.Args)+1)
	for _, p := range append([]string{e.Exec}, e.Args...) {
		if strings.ContainsAny(p, " \t") {
			p = `"` + p + `"`
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, " ")
}
