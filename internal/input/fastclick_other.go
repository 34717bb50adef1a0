//go:build !windows

package input

// NewFastClicker reports that merged clicks are unavailable on this platform.
func NewFastClicker() (FastClicker, error) {
	return nil, ErrUnsupported
}
