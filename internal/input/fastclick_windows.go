//go:build windows

package input

import (
	"fmt"

	"golang.org/x/sys/windows"
)

const (
	MOUSEEVENTF_LEFTDOWN   = 0x0002
	MOUSEEVENTF_LEFTUP     = 0x0004
	MOUSEEVENTF_RIGHTDOWN  = 0x0008
	MOUSEEVENTF_RIGHTUP    = 0x0010
	MOUSEEVENTF_MIDDLEDOWN = 0x0020
	MOUSEEVENTF_MIDDLEUP   = 0x0040
)

var (
	user32         = windows.NewLazySystemDLL("user32.dll")
	procMouseEvent = user32.NewProc("mouse_event")
)

// Win32Clicker calls mouse_event with down and up flags merged.
type Win32Clicker struct{}

// NewFastClicker returns the merged-click implementation, or ErrUnsupported
// when user32 does not export mouse_event.
func NewFastClicker() (FastClicker, error) {
	if err := procMouseEvent.Find(); err != nil {
		return nil, fmt.Errorf("mouse_event: %w", ErrUnsupported)
	}
	return &Win32Clicker{}, nil
}

func (c *Win32Clicker) FastClick(b Button) error {
	var flags uintptr
	switch b {
	case ButtonRight:
		flags = MOUSEEVENTF_RIGHTDOWN | MOUSEEVENTF_RIGHTUP
	case ButtonMiddle:
		flags = MOUSEEVENTF_MIDDLEDOWN | MOUSEEVENTF_MIDDLEUP
	default:
		flags = MOUSEEVENTF_LEFTDOWN | MOUSEEVENTF_LEFTUP
	}
	// mouse_event returns nothing useful
	procMouseEvent.Call(flags, 0, 0, 0, 0)
	return nil
}
