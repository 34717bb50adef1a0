//go:build !windows && !linux

package activity

// NewForegroundTracker reports that window tracking is unavailable here.
func NewForegroundTracker() (ForegroundTracker, error) {
	return nil, ErrUnsupported
}
