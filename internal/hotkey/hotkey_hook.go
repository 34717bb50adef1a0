//go:build !windows

package hotkey

import (
	hook "github.com/robotn/gohook"
)

func (m *Manager) startPlatform() error {
	events := hook.Start()
	go m.consume(events)
	m.log.Info("Hotkey Engine: gohook global hooks started")
	return nil
}

func (m *Manager) stopPlatform() {
	hook.End()
	m.log.Info("Hotkey Engine: gohook global hooks removed")
}

func (m *Manager) consume(events chan hook.Event) {
	for ev := range events {
		switch ev.Kind {
		case hook.KeyHold:
			if name := hook.RawcodetoKeychar(ev.Rawcode); name != "" {
				m.UpdateState(name, true)
			}
		case hook.KeyUp:
			if name := hook.RawcodetoKeychar(ev.Rawcode); name != "" {
				m.UpdateState(name, false)
			}
		case hook.MouseHold:
			if name := mouseName(ev.Button); name != "" {
				m.UpdateState(name, true)
			}
		case hook.MouseUp, hook.MouseDown:
			// gohook's MouseDown is the release event and MouseUp the click
			if name := mouseName(ev.Button); name != "" {
				m.UpdateState(name, false)
			}
		}
	}
	m.log.Debug("Hotkey Engine: event channel closed")
}

func mouseName(button uint16) string {
	switch button {
	case hook.MouseMap["left"]:
		return MouseLeft
	case hook.MouseMap["right"]:
		return MouseRight
	case hook.MouseMap["center"]:
		return MouseMiddle
	}
	return ""
}
