package config

import (
	"errors"
	"fmt"
	"strings"

	"omniclick/internal/hotkey"
	"omniclick/internal/screen"
)

// Click modes
const (
	ModeNormal   = "normal"
	ModeColor    = "color"
	ModeImage    = "image"
	ModeKeyboard = "keyboard"
	ModeSequence = "sequence"
)

// Sequence step kinds stored in image_sequence.
const (
	StepTemplate = "template"
	StepFile     = "file"
	StepCapture  = "capture"
	StepKey      = "key"
)

// Limits applied when settings are edited or loaded.
const (
	MinInterval      = 0.001
	MaxInterval      = 2.0
	MaxPoints        = 50
	MaxImageSequence = 20
	MaxKeys          = 5
	MaxCount         = 100
	MaxRepeats       = 1000
	MinConfidence    = 0.1
	MaxConfidence    = 1.0
)

// Validation errors
var (
	ErrInvalidInterval   = errors.New("interval out of range")
	ErrInvalidButton     = errors.New("unknown click type")
	ErrInvalidMode       = errors.New("unknown click mode")
	ErrInvalidColor      = errors.New("invalid target color")
	ErrInvalidTolerance  = errors.New("color tolerance out of range")
	ErrInvalidConfidence = errors.New("image confidence out of range")
	ErrInvalidSequence   = errors.New("invalid sequence")
	ErrInvalidRepeats    = errors.New("repeat count out of range")
	ErrInvalidRecheck    = errors.New("recheck interval must be positive")
	ErrInvalidHotkey     = errors.New("invalid hotkey")
)

// PointStep is one entry of the point sequence.
type PointStep struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Clicks int `json:"clicks"`
}

// KeyStep is one entry of the keyboard sequence.
type KeyStep struct {
	Key     string `json:"key"`
	Presses int    `json:"presses"`
}

// SequenceStep is one entry of the mixed template/key sequence.
// Template-like steps use Path and Clicks, key steps use Key and Presses.
type SequenceStep struct {
	Type    string `json:"type"`
	Name    string `json:"name,omitempty"`
	Path    string `json:"path,omitempty"`
	Clicks  int    `json:"clicks,omitempty"`
	Key     string `json:"key,omitempty"`
	Presses int    `json:"presses,omitempty"`
}

// IsKey reports whether the step presses a key rather than matching a template.
func (s SequenceStep) IsKey() bool {
	return s.Type == StepKey
}

// Count returns how many actions the step needs before the sequence advances.
func (s SequenceStep) Count() int {
	n := s.Clicks
	if s.IsKey() {
		n = s.Presses
	}
	if n < 1 {
		return 1
	}
	return n
}

// Settings is the flat document persisted in settings.json.
type Settings struct {
	// Interval between clicks in seconds
	Interval float64 `json:"interval"`

	// ClickType is the mouse button: left, right or middle
	ClickType string `json:"click_type"`

	TurboMode   bool `json:"turbo_mode"`
	ExtremeMode bool `json:"extreme_mode"`

	PauseOnMouse  bool `json:"pause_on_mouse"`
	PauseOnWindow bool `json:"pause_on_window"`

	HotkeyStart string `json:"hotkey_start"`
	HotkeyStop  string `json:"hotkey_stop"`

	// EmergencyHotkeys stay active while interactive selection is running
	EmergencyHotkeys []string `json:"emergency_hotkeys"`

	ClickMode string `json:"click_mode"`

	TargetColor    string `json:"target_color"`
	ColorTolerance int    `json:"color_tolerance"`

	SequencePoints       []PointStep    `json:"sequence_points"`
	KeyboardSequence     []KeyStep      `json:"keyboard_sequence"`
	ImageSequence        []SequenceStep `json:"image_sequence"`
	ImageSequenceRepeats int            `json:"image_sequence_repeats"`

	// SearchArea restricts color and image search; nil means whole screen
	SearchArea *screen.Area `json:"search_area"`

	TemplateImage   string  `json:"template_image"`
	ImageConfidence float64 `json:"image_confidence"`

	// CaptureAreaFallback regenerates an oversized template from the search area
	CaptureAreaFallback bool `json:"capture_area_fallback"`

	// RecheckInterval is the number of ticks a cached position is trusted
	RecheckInterval int `json:"recheck_interval"`

	// TemplateDir holds temporary template captures; empty means working directory
	TemplateDir string `json:"template_dir,omitempty"`
}

// DefaultSettings returns the settings used when no file exists.
func DefaultSettings() Settings {
	return Settings{
		Interval:             0.1,
		ClickType:            "left",
		HotkeyStart:          "f6",
		HotkeyStop:           "f7",
		EmergencyHotkeys:     []string{"ctrl+alt+x", "f12"},
		ClickMode:            ModeNormal,
		TargetColor:          "#FF0000",
		ColorTolerance:       10,
		ImageSequenceRepeats: 1,
		ImageConfidence:      0.8,
		RecheckInterval:      50,
	}
}

// Clone returns a deep copy so callers can edit without touching shared state.
func (s Settings) Clone() Settings {
	c := s
	c.EmergencyHotkeys = append([]string(nil), s.EmergencyHotkeys...)
	c.SequencePoints = append([]PointStep(nil), s.SequencePoints...)
	c.KeyboardSequence = append([]KeyStep(nil), s.KeyboardSequence...)
	c.ImageSequence = append([]SequenceStep(nil), s.ImageSequence...)
	if s.SearchArea != nil {
		a := *s.SearchArea
		c.SearchArea = &a
	}
	return c
}

// Validate checks ranges and list limits, reporting every problem found.
func (s Settings) Validate() error {
	var errs []error

	if s.Interval < MinInterval || s.Interval > MaxInterval {
		errs = append(errs, fmt.Errorf("%w: %g not in [%g, %g]", ErrInvalidInterval, s.Interval, MinInterval, MaxInterval))
	}
	switch strings.ToLower(s.ClickType) {
	case "left", "right", "middle":
	default:
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidButton, s.ClickType))
	}
	switch s.ClickMode {
	case ModeNormal, ModeColor, ModeImage, ModeKeyboard, ModeSequence:
	default:
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidMode, s.ClickMode))
	}
	if _, err := screen.ParseHex(s.TargetColor); err != nil {
		errs = append(errs, fmt.Errorf("%w: %v", ErrInvalidColor, err))
	}
	if s.ColorTolerance < 0 || s.ColorTolerance > 100 {
		errs = append(errs, fmt.Errorf("%w: %d not in [0, 100]", ErrInvalidTolerance, s.ColorTolerance))
	}
	if s.ImageConfidence < MinConfidence || s.ImageConfidence > MaxConfidence {
		errs = append(errs, fmt.Errorf("%w: %g not in [%g, %g]", ErrInvalidConfidence, s.ImageConfidence, MinConfidence, MaxConfidence))
	}
	if s.ImageSequenceRepeats < 0 || s.ImageSequenceRepeats > MaxRepeats {
		errs = append(errs, fmt.Errorf("%w: %d not in [0, %d]", ErrInvalidRepeats, s.ImageSequenceRepeats, MaxRepeats))
	}
	if s.RecheckInterval < 1 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidRecheck, s.RecheckInterval))
	}
	errs = append(errs, s.validateHotkeys()...)
	errs = append(errs, s.validateSequences()...)

	return errors.Join(errs...)
}

func (s Settings) validateHotkeys() []error {
	var errs []error
	// an empty combo leaves the action unbound
	check := func(field, combo string) {
		if strings.TrimSpace(combo) == "" {
			return
		}
		if err := hotkey.ValidateCombo(combo); err != nil {
			errs = append(errs, fmt.Errorf("%w %s: %w", ErrInvalidHotkey, field, err))
		}
	}
	check("hotkey_start", s.HotkeyStart)
	check("hotkey_stop", s.HotkeyStop)
	for i, combo := range s.EmergencyHotkeys {
		check(fmt.Sprintf("emergency_hotkeys[%d]", i), combo)
	}
	return errs
}

func (s Settings) validateSequences() []error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidSequence}, args...)...))
	}

	if len(s.SequencePoints) > MaxPoints {
		bad("%d points, at most %d", len(s.SequencePoints), MaxPoints)
	}
	for i, p := range s.SequencePoints {
		if p.Clicks < 1 || p.Clicks > MaxCount {
			bad("point %d clicks %d not in [1, %d]", i, p.Clicks, MaxCount)
		}
	}

	if len(s.KeyboardSequence) > MaxKeys {
		bad("%d keys, at most %d", len(s.KeyboardSequence), MaxKeys)
	}
	seen := make(map[string]bool)
	for i, k := range s.KeyboardSequence {
		name := strings.ToLower(strings.TrimSpace(k.Key))
		if name == "" {
			bad("key %d is empty", i)
		}
		if seen[name] {
			bad("key %q listed twice", k.Key)
		}
		seen[name] = true
		if k.Presses < 1 || k.Presses > MaxCount {
			bad("key %q presses %d not in [1, %d]", k.Key, k.Presses, MaxCount)
		}
	}

	if len(s.ImageSequence) > MaxImageSequence {
		bad("%d sequence steps, at most %d", len(s.ImageSequence), MaxImageSequence)
	}
	for i, st := range s.ImageSequence {
		switch st.Type {
		case StepKey:
			if strings.TrimSpace(st.Key) == "" {
				bad("step %d has no key", i)
			}
		case StepTemplate, StepFile, StepCapture:
			if st.Path == "" {
				bad("step %d has no template path", i)
			}
		default:
			bad("step %d has unknown type %q", i, st.Type)
		}
		if n := st.Count(); n > MaxCount {
			bad("step %d count %d exceeds %d", i, n, MaxCount)
		}
	}
	return errs
}
