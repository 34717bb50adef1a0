package input

import (
	"fmt"
	"image"

	"github.com/go-vgo/robotgo"
)

// Injector synthesizes mouse and keyboard input.
type Injector interface {
	// Click presses and releases a button at the current cursor position.
	Click(b Button) error
	// ClickAt moves the cursor and clicks.
	ClickAt(x, y int, b Button) error
	// KeyTap presses and releases a key given by its user-facing name.
	KeyTap(key string) error
	// Position returns the current cursor position.
	Position() image.Point
}

// FastClicker emits a merged down+up click in a single OS call.
type FastClicker interface {
	FastClick(b Button) error
}

// Robot injects input through robotgo.
type Robot struct{}

// NewRobot creates the robotgo-backed injector
func NewRobot() *Robot {
	return &Robot{}
}

func (r *Robot) Click(b Button) error {
	robotgo.Click(b.robotName(), false)
	return nil
}

func (r *Robot) ClickAt(x, y int, b Button) error {
	robotgo.Move(x, y)
	robotgo.Click(b.robotName(), false)
	return nil
}

func (r *Robot) KeyTap(key string) error {
	name := NormalizeKey(key)
	if err := robotgo.KeyTap(name); err != nil {
		return fmt.Errorf("key tap %q: %w", name, err)
	}
	return nil
}

func (r *Robot) Position() image.Point {
	x, y := robotgo.Location()
	return image.Pt(x, y)
}
