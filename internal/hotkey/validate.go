package hotkey

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Validation errors
var (
	ErrEmptyCombo      = errors.New("empty hotkey")
	ErrTooManyParts    = errors.New("hotkey has more than 4 parts")
	ErrInvalidModifier = errors.New("invalid modifier")
	ErrInvalidKey      = errors.New("invalid key")
	ErrReservedCombo   = errors.New("combination is reserved by the system")
)

const maxParts = 4

var replacements = []struct{ from, to string }{
	{"control", "ctrl"},
	{"windows", "win"},
	{"command", "cmd"},
	{"option", "alt"},
	{"return", "enter"},
	{"escape", "esc"},
}

var modifiers = map[string]bool{
	"ctrl": true, "alt": true, "shift": true, "win": true, "cmd": true,
}

var mainKeys = map[string]bool{
	"enter": true, "space": true, "esc": true, "tab": true, "backspace": true,
	"delete": true, "insert": true, "home": true, "end": true,
	"page up": true, "page down": true, "up": true, "down": true, "left": true, "right": true,
}

// reserved holds canonical combos (sorted modifiers, then key).
var reserved = map[string]bool{}

func init() {
	for c := 'a'; c <= 'z'; c++ {
		mainKeys[string(c)] = true
	}
	for c := '0'; c <= '9'; c++ {
		mainKeys[string(c)] = true
	}
	for i := 1; i <= 12; i++ {
		mainKeys[fmt.Sprintf("f%d", i)] = true
	}
	for _, c := range []string{
		"ctrl+alt+delete", "ctrl+shift+esc", "alt+tab", "win+l",
		"ctrl+c", "ctrl+v", "ctrl+x", "ctrl+z",
	} {
		reserved[canonical(strings.Split(c, "+"))] = true
	}
}

// Normalize lower-cases a combo and rewrites platform aliases.
func Normalize(combo string) string {
	combo = strings.ToLower(strings.TrimSpace(combo))
	for _, r := range replacements {
		combo = strings.ReplaceAll(combo, r.from, r.to)
	}
	combo = strings.ReplaceAll(combo, "page_up", "page up")
	combo = strings.ReplaceAll(combo, "pageup", "page up")
	combo = strings.ReplaceAll(combo, "page_down", "page down")
	combo = strings.ReplaceAll(combo, "pagedown", "page down")

	parts := strings.Split(combo, "+")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return strings.Join(parts, "+")
}

// ValidateCombo checks a combo such as "ctrl+alt+x" or "f6". The last part
// is the main key; the others must be modifiers.
func ValidateCombo(combo string) error {
	norm := Normalize(combo)
	if norm == "" {
		return ErrEmptyCombo
	}
	parts := strings.Split(norm, "+")
	if len(parts) > maxParts {
		return fmt.Errorf("%w: %q", ErrTooManyParts, combo)
	}

	main := parts[len(parts)-1]
	for _, mod := range parts[:len(parts)-1] {
		if !modifiers[mod] {
			return fmt.Errorf("%w %q in %q", ErrInvalidModifier, mod, combo)
		}
	}
	if !mainKeys[main] {
		return fmt.Errorf("%w %q in %q", ErrInvalidKey, main, combo)
	}
	if reserved[canonical(parts)] {
		return fmt.Errorf("%w: %q", ErrReservedCombo, combo)
	}
	return nil
}

// canonical orders modifiers so reserved combos match in any order.
func canonical(parts []string) string {
	mods := append([]string(nil), parts[:len(parts)-1]...)
	sort.Strings(mods)
	return strings.Join(append(mods, parts[len(parts)-1]), "+")
}

// tokens converts a validated combo into the key-state names used by the hooks.
func tokens(combo string) []string {
	parts := strings.Split(Normalize(combo), "+")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, Token(p))
	}
	return out
}

// Token maps a key name onto the upper-case state name reported by the hooks.
func Token(name string) string {
	t := strings.ToUpper(strings.TrimSpace(name))
	switch t {
	case "WIN", "WINDOWS", "COMMAND", "SUPER", "RCMD", "LCMD":
		return "CMD"
	case "CONTROL", "RCTRL", "LCTRL":
		return "CTRL"
	case "OPTION", "RALT", "LALT":
		return "ALT"
	case "RSHIFT", "LSHIFT":
		return "SHIFT"
	case "ESCAPE":
		return "ESC"
	case "RETURN":
		return "ENTER"
	case "PAGE UP", "PAGE_UP":
		return "PAGEUP"
	case "PAGE DOWN", "PAGE_DOWN":
		return "PAGEDOWN"
	}
	return t
}
