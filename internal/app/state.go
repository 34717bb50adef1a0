package app

import (
	"fmt"

	"omniclick/internal/config"
	"omniclick/internal/screen"
)

// State is what the user sees. Only the app loop writes it.
type State struct {
	Running  bool
	Count    uint64
	Mode     string
	Sequence bool
	Turbo    bool
	Extreme  bool
	Button   string
	// PauseOnMouse and PauseOnWindow mirror the activity pause options
	PauseOnMouse  bool
	PauseOnWindow bool
	Area          *screen.Area
	Template      string
	Selecting     bool
	// Notice is the last message worth showing, such as an error or a flow result
	Notice string
}

func (s *State) fromSettings(st config.Settings) {
	s.Mode = st.ClickMode
	s.Sequence = len(st.ImageSequence) > 0
	s.Turbo = st.TurboMode
	s.Extreme = st.ExtremeMode
	s.Button = st.ClickType
	s.PauseOnMouse = st.PauseOnMouse
	s.PauseOnWindow = st.PauseOnWindow
	s.Area = st.SearchArea
	s.Template = st.TemplateImage
}

// Activity describes what the current mode does.
func (s State) Activity() string {
	var text string
	switch s.Mode {
	case config.ModeColor:
		text = "Color search"
	case config.ModeImage:
		text = "Image search"
		if s.Sequence {
			text = "Template sequence"
		}
	case config.ModeKeyboard:
		text = "Key presses"
	case config.ModeSequence:
		text = "Point sequence"
	default:
		text = "Normal click"
	}
	switch {
	case s.Extreme:
		text += " (extreme)"
	case s.Turbo:
		text += " (turbo)"
	}
	return text
}

// Status is the one-line summary shown in the tray tooltip.
func (s State) Status() string {
	switch {
	case s.Selecting:
		return "Selecting on screen, esc to cancel"
	case s.Running:
		return fmt.Sprintf("%s: %d clicks", s.Activity(), s.Count)
	}
	return fmt.Sprintf("Stopped: %d clicks", s.Count)
}

// AreaText renders the search area for display.
func (s State) AreaText() string {
	if s.Area == nil {
		return "whole screen"
	}
	return s.Area.String()
}
