// Package screen captures screen regions and reads single pixels.
package screen

import (
	"encoding/json"
	"fmt"
	"image"
)

// Area is an axis-aligned search rectangle in screen coordinates.
// Like image.Rectangle, X2 and Y2 lie just outside the area.
type Area struct {
	X1, Y1, X2, Y2 int
}

// NewArea builds a normalized area from two corner points in any order.
func NewArea(a, b image.Point) Area {
	return Area{X1: a.X, Y1: a.Y, X2: b.X, Y2: b.Y}.Normalize()
}

// Normalize orders the corners so that X1<=X2 and Y1<=Y2.
func (a Area) Normalize() Area {
	if a.X1 > a.X2 {
		a.X1, a.X2 = a.X2, a.X1
	}
	if a.Y1 > a.Y2 {
		a.Y1, a.Y2 = a.Y2, a.Y1
	}
	return a
}

// Width returns the horizontal extent of the normalized area.
func (a Area) Width() int {
	n := a.Normalize()
	return n.X2 - n.X1
}

// Height returns the vertical extent of the normalized area.
func (a Area) Height() int {
	n := a.Normalize()
	return n.Y2 - n.Y1
}

// Empty reports whether the area has no extent in either direction.
func (a Area) Empty() bool {
	return a.Width() <= 0 || a.Height() <= 0
}

// Rect converts the area into an image.Rectangle.
func (a Area) Rect() image.Rectangle {
	n := a.Normalize()
	return image.Rect(n.X1, n.Y1, n.X2, n.Y2)
}

func (a Area) String() string {
	n := a.Normalize()
	return fmt.Sprintf("(%d,%d)-(%d,%d)", n.X1, n.Y1, n.X2, n.Y2)
}

// MarshalJSON writes the area as [x1,y1,x2,y2].
func (a Area) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]int{a.X1, a.Y1, a.X2, a.Y2})
}

// UnmarshalJSON reads the [x1,y1,x2,y2] form and normalizes it.
func (a *Area) UnmarshalJSON(data []byte) error {
	var v [4]int
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("search area must be [x1,y1,x2,y2]: %w", err)
	}
	*a = Area{X1: v[0], Y1: v[1], X2: v[2], Y2: v[3]}.Normalize()
	return nil
}

// Equal compares two optional areas, treating nil as the whole screen.
func Equal(a, b *Area) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Normalize() == b.Normalize()
}
