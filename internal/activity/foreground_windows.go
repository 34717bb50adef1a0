//go:build windows

package activity

import (
	"golang.org/x/sys/windows"
)

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	procGetForegroundWindow = user32.NewProc("GetForegroundWindow")
)

type win32Foreground struct{}

// NewForegroundTracker returns the GetForegroundWindow tracker.
func NewForegroundTracker() (ForegroundTracker, error) {
	if err := procGetForegroundWindow.Find(); err != nil {
		return nil, ErrUnsupported
	}
	return win32Foreground{}, nil
}

func (win32Foreground) Foreground() (uint64, error) {
	hwnd, _, _ := procGetForegroundWindow.Call()
	return uint64(hwnd), nil
}
