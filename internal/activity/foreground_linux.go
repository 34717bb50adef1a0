//go:build linux

package activity

import (
	"fmt"

	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
)

type x11Foreground struct {
	xu *xgbutil.XUtil
}

// NewForegroundTracker connects to the X server and reads _NET_ACTIVE_WINDOW.
func NewForegroundTracker() (ForegroundTracker, error) {
	xu, err := xgbutil.NewConn()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	if _, err := ewmh.ActiveWindowGet(xu); err != nil {
		xu.Conn().Close()
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	return &x11Foreground{xu: xu}, nil
}

func (f *x11Foreground) Foreground() (uint64, error) {
	win, err := ewmh.ActiveWindowGet(f.xu)
	if err != nil {
		return 0, fmt.Errorf("read active window: %w", err)
	}
	return uint64(win), nil
}
