package main

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"omniclick/internal/app"
	"omniclick/internal/autostart"
	"omniclick/internal/config"
	"omniclick/internal/logger"
	"omniclick/internal/tray"
)

var modeTitles = []struct {
	mode  string
	title string
}{
	{config.ModeNormal, "Normal click"},
	{config.ModeColor, "Color search"},
	{config.ModeImage, "Image search"},
	{config.ModeKeyboard, "Key presses"},
	{config.ModeSequence, "Point sequence"},
}

var buttons = []string{"left", "right", "middle"}

// menu keeps the tray item ids so state changes can be rendered.
type menu struct {
	t        *tray.Tray
	status   int
	notice   int
	area     int
	start    int
	stop     int
	modes    map[string]int
	buttons  map[string]int
	turbo    int
	extreme  int
	pauseMou int
	pauseWin int
}

// newMenu builds the tray menu and subscribes it to app state.
func newMenu(t *tray.Tray, a *app.App, cfgMgr *config.Manager, login *autostart.Entry) *menu {
	m := &menu{
		t:       t,
		modes:   make(map[string]int),
		buttons: make(map[string]int),
	}
	s := cfgMgr.Get()

	m.status = t.AddMenuItem("Stopped", nil)
	m.notice = t.AddMenuItem("", nil)
	t.AddSeparator()

	m.start = t.AddMenuItem(hotkeyTitle("Start", s.HotkeyStart), func() { a.Do(app.CmdStart) })
	m.stop = t.AddMenuItem(hotkeyTitle("Stop", s.HotkeyStop), func() { a.Do(app.CmdStop) })
	t.AddMenuItem("Reset counter", func() { a.Do(app.CmdResetCounter) })
	t.AddSeparator()

	modes := t.AddSubMenu("Mode")
	for _, mt := range modeTitles {
		mode := mt.mode
		m.modes[mode] = t.AddSubMenuCheckbox(modes, mt.title, s.ClickMode == mode, func() {
			_ = a.Update(func(s *config.Settings) error {
				s.ClickMode = mode
				return nil
			})
		})
	}
	btns := t.AddSubMenu("Mouse button")
	for _, b := range buttons {
		m.buttons[b] = t.AddSubMenuCheckbox(btns, strings.ToUpper(b[:1])+b[1:], s.ClickType == b, func() {
			_ = a.Update(func(s *config.Settings) error {
				s.ClickType = b
				return nil
			})
		})
	}
	m.turbo = t.AddCheckbox("Turbo", s.TurboMode, func() {
		_ = a.Update(func(s *config.Settings) error {
			s.TurboMode = !s.TurboMode
			if s.TurboMode {
				s.ExtremeMode = false
			}
			return nil
		})
	})
	m.extreme = t.AddCheckbox("Extreme", s.ExtremeMode, func() {
		_ = a.Update(func(s *config.Settings) error {
			s.ExtremeMode = !s.ExtremeMode
			if s.ExtremeMode {
				s.TurboMode = false
			}
			return nil
		})
	})
	m.pauseMou = t.AddCheckbox("Pause on mouse movement", s.PauseOnMouse, func() {
		_ = a.Update(func(s *config.Settings) error {
			s.PauseOnMouse = !s.PauseOnMouse
			return nil
		})
	})
	m.pauseWin = t.AddCheckbox("Pause on window change", s.PauseOnWindow, func() {
		_ = a.Update(func(s *config.Settings) error {
			s.PauseOnWindow = !s.PauseOnWindow
			return nil
		})
	})
	t.AddSeparator()

	sel := t.AddSubMenu("Screen")
	m.area = t.AddSubMenuItem(sel, "Search area: whole screen", nil)
	t.AddSubMenuItem(sel, "Select search area", func() { a.Do(app.CmdSelectArea) })
	t.AddSubMenuItem(sel, "Clear search area", func() { a.Do(app.CmdClearArea) })
	t.AddSubMenuItem(sel, "Pick target color", func() { a.Do(app.CmdPickColor) })
	t.AddSubMenuItem(sel, "Capture template", func() { a.Do(app.CmdCaptureTemplate) })

	seq := t.AddSubMenu("Sequences")
	t.AddSubMenuItem(seq, "Add point", func() { a.Do(app.CmdAddPoint) })
	t.AddSubMenuItem(seq, "Clear points", func() { a.Do(app.CmdClearPoints) })
	t.AddSubMenuItem(seq, "Add captured template", func() { a.Do(app.CmdAddSequenceCapture) })
	t.AddSubMenuItem(seq, "Clear template sequence", func() { a.Do(app.CmdClearSequence) })
	t.AddSeparator()

	if login != nil {
		var id int
		id = t.AddCheckbox("Start at login", login.Enabled(), func() {
			if err := login.Set(!login.Enabled()); err != nil {
				logger.Named("menu").Warn("Autostart: failed to update login item", zap.Error(err))
			}
			t.SetItemChecked(id, login.Enabled())
		})
	}
	t.AddMenuItem("Save settings", func() { a.Do(app.CmdSaveSettings) })
	t.AddMenuItem("Reload settings", func() { a.Do(app.CmdReloadSettings) })
	t.AddSeparator()
	t.AddMenuItem("Quit", func() { a.Do(app.CmdQuit) })

	cfgMgr.RegisterChangeCallback(func(s config.Settings) {
		t.SetItemTitle(m.start, hotkeyTitle("Start", s.HotkeyStart))
		t.SetItemTitle(m.stop, hotkeyTitle("Stop", s.HotkeyStop))
	})
	a.OnState(m.render)
	return m
}

// render mirrors app state into the tray. It runs on the app loop.
func (m *menu) render(s app.State) {
	status := s.Status()
	tip := status
	if s.Notice != "" {
		tip = status + "\n" + s.Notice
	}
	m.t.SetStatus(tip, s.Running)
	m.t.SetItemTitle(m.status, status)
	m.t.SetItemTitle(m.notice, s.Notice)
	m.t.SetItemTitle(m.area, "Search area: "+s.AreaText())

	for mode, id := range m.modes {
		m.t.SetItemChecked(id, s.Mode == mode)
	}
	for b, id := range m.buttons {
		m.t.SetItemChecked(id, strings.EqualFold(s.Button, b))
	}
	m.t.SetItemChecked(m.turbo, s.Turbo)
	m.t.SetItemChecked(m.extreme, s.Extreme)
	m.t.SetItemChecked(m.pauseMou, s.PauseOnMouse)
	m.t.SetItemChecked(m.pauseWin, s.PauseOnWindow)
}

func hotkeyTitle(action, combo string) string {
	if combo == "" {
		return action
	}
	return fmt.Sprintf("%s (%s)", action, strings.ToUpper(combo))
}
