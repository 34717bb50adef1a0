// Package input synthesizes mouse clicks and key presses.
package input

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupported is returned when the host cannot perform an operation.
var ErrUnsupported = errors.New("not supported on this platform")

// Button identifies a mouse button
type Button int

const (
	ButtonLeft Button = iota
	ButtonRight
	ButtonMiddle
)

// ParseButton accepts left, right or middle (case-insensitive).
func ParseButton(s string) (Button, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left", "":
		return ButtonLeft, nil
	case "right":
		return ButtonRight, nil
	case "middle", "center":
		return ButtonMiddle, nil
	}
	return ButtonLeft, fmt.Errorf("invalid button: %s (must be left, right, or middle)", s)
}

func (b Button) String() string {
	switch b {
	case ButtonRight:
		return "right"
	case ButtonMiddle:
		return "middle"
	default:
		return "left"
	}
}

// robotName returns the button name understood by robotgo.
func (b Button) robotName() string {
	if b == ButtonMiddle {
		return "center"
	}
	return b.String()
}
