package clicker

import (
	"fmt"
	"image"
	"image/color"
	"slices"
	"time"

	"omniclick/internal/config"
	"omniclick/internal/input"
	"omniclick/internal/screen"
)

// Mode selects the click strategy.
type Mode string

const (
	ModeNormal   Mode = config.ModeNormal
	ModeColor    Mode = config.ModeColor
	ModeImage    Mode = config.ModeImage
	ModeKeyboard Mode = config.ModeKeyboard
	ModeSequence Mode = config.ModeSequence
)

// Speed selects how the interval is derived.
type Speed int

const (
	SpeedNormal Speed = iota
	SpeedTurbo
	SpeedExtreme
)

func (s Speed) String() string {
	switch s {
	case SpeedTurbo:
		return "turbo"
	case SpeedExtreme:
		return "extreme"
	}
	return "normal"
}

// Interval bounds
const (
	MinInterval     = time.Millisecond
	MaxInterval     = 2 * time.Second
	TurboInterval   = time.Millisecond
	ExtremeInterval = 100 * time.Microsecond
)

// Item is one step of a key list or a mixed template/key sequence.
type Item struct {
	Template string
	Key      string
	Count    int
}

// IsKey reports whether the item presses a key.
func (i Item) IsKey() bool {
	return i.Key != ""
}

func (i Item) count() int {
	if i.Count < 1 {
		return 1
	}
	return i.Count
}

// Point is one step of the point sequence.
type Point struct {
	image.Point
	Count int
}

// Options is an immutable snapshot of everything the dispatch loop reads.
type Options struct {
	Mode     Mode
	Interval time.Duration
	Speed    Speed
	Button   input.Button

	TargetColor color.RGBA
	Tolerance   int

	Confidence          float64
	TemplatePath        string
	CaptureAreaFallback bool

	// Area restricts color and image search; nil means whole screen
	Area *screen.Area

	Keys        []Item
	Points      []Point
	Sequence    []Item
	RepeatLimit int

	RecheckInterval int

	PauseOnMouse  bool
	PauseOnWindow bool
}

// DefaultOptions mirrors config.DefaultSettings.
func DefaultOptions() Options {
	o, _ := OptionsFromSettings(config.DefaultSettings())
	return o
}

// OptionsFromSettings converts persisted settings into loop options.
func OptionsFromSettings(s config.Settings) (Options, error) {
	btn, err := input.ParseButton(s.ClickType)
	if err != nil {
		return Options{}, err
	}
	target, err := screen.ParseHex(s.TargetColor)
	if err != nil {
		return Options{}, fmt.Errorf("target color: %w", err)
	}

	o := Options{
		Mode:                Mode(s.ClickMode),
		Interval:            time.Duration(s.Interval * float64(time.Second)),
		Button:              btn,
		TargetColor:         target,
		Tolerance:           s.ColorTolerance,
		Confidence:          s.ImageConfidence,
		TemplatePath:        s.TemplateImage,
		CaptureAreaFallback: s.CaptureAreaFallback,
		RepeatLimit:         s.ImageSequenceRepeats,
		RecheckInterval:     s.RecheckInterval,
		PauseOnMouse:        s.PauseOnMouse,
		PauseOnWindow:       s.PauseOnWindow,
	}
	switch {
	case s.ExtremeMode:
		o.Speed = SpeedExtreme
	case s.TurboMode:
		o.Speed = SpeedTurbo
	}
	if s.SearchArea != nil {
		a := s.SearchArea.Normalize()
		o.Area = &a
	}
	for _, k := range s.KeyboardSequence {
		o.Keys = append(o.Keys, Item{Key: k.Key, Count: k.Presses})
	}
	for _, p := range s.SequencePoints {
		o.Points = append(o.Points, Point{Point: image.Pt(p.X, p.Y), Count: p.Clicks})
	}
	for _, st := range s.ImageSequence {
		if st.IsKey() {
			o.Sequence = append(o.Sequence, Item{Key: st.Key, Count: st.Count()})
			continue
		}
		o.Sequence = append(o.Sequence, Item{Template: st.Path, Count: st.Count()})
	}
	return o, nil
}

// Delay returns the nominal pause after each tick. The loop does not sleep
// for delays below MinInterval.
func (o Options) Delay() time.Duration {
	switch o.Speed {
	case SpeedExtreme:
		return ExtremeInterval
	case SpeedTurbo:
		return TurboInterval
	}
	return min(max(o.Interval, MinInterval), MaxInterval)
}

// sequenceLen returns the length of the item list walked by the cursor in the current mode.
func (o Options) sequenceLen() int {
	switch o.Mode {
	case ModeKeyboard:
		return len(o.Keys)
	case ModeSequence:
		return len(o.Points)
	case ModeImage:
		return len(o.Sequence)
	}
	return 0
}

// sameSequence reports whether two snapshots walk the same steps.
func sameSequence(a, b *Options) bool {
	return a.Mode == b.Mode &&
		a.RepeatLimit == b.RepeatLimit &&
		slices.Equal(a.Keys, b.Keys) &&
		slices.Equal(a.Points, b.Points) &&
		slices.Equal(a.Sequence, b.Sequence)
}
