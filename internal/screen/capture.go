package screen

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"

	"github.com/go-vgo/robotgo"
	"github.com/kbinani/screenshot"
)

// ErrNoDisplay is returned when no active display can be captured.
var ErrNoDisplay = errors.New("no active display")

// Frame is a captured region together with its screen origin.
type Frame struct {
	Img    *image.RGBA
	Origin image.Point
}

// At returns the pixel at the given screen coordinate.
func (f Frame) At(x, y int) color.RGBA {
	return f.Img.RGBAAt(x-f.Origin.X+f.Img.Rect.Min.X, y-f.Origin.Y+f.Img.Rect.Min.Y)
}

// Bounds returns the frame rectangle in screen coordinates.
func (f Frame) Bounds() image.Rectangle {
	return image.Rectangle{Min: f.Origin, Max: f.Origin.Add(f.Img.Rect.Size())}
}

// Capturer grabs pixel data from the screen.
type Capturer interface {
	// Capture grabs the given area, or the whole primary display for nil.
	Capture(area *Area) (Frame, error)
	// PixelAt reads a single pixel.
	PixelAt(x, y int) (color.RGBA, error)
	// Bounds returns the primary display rectangle.
	Bounds() (image.Rectangle, error)
}

// Desktop captures through kbinani/screenshot and reads pixels via robotgo.
type Desktop struct{}

// NewDesktop returns the platform screen capturer.
func NewDesktop() *Desktop {
	return &Desktop{}
}

func (d *Desktop) Bounds() (image.Rectangle, error) {
	if screenshot.NumActiveDisplays() < 1 {
		return image.Rectangle{}, ErrNoDisplay
	}
	return screenshot.GetDisplayBounds(0), nil
}

func (d *Desktop) Capture(area *Area) (Frame, error) {
	bounds, err := d.Bounds()
	if err != nil {
		return Frame{}, err
	}
	rect := bounds
	if area != nil {
		rect = area.Rect()
	}
	if rect.Empty() {
		return Frame{}, fmt.Errorf("capture %v: empty area", rect)
	}

	img, err := screenshot.CaptureRect(rect)
	if err != nil {
		return Frame{}, fmt.Errorf("capture %v: %w", rect, err)
	}
	return Frame{Img: img, Origin: rect.Min}, nil
}

func (d *Desktop) PixelAt(x, y int) (color.RGBA, error) {
	hex := robotgo.GetPixelColor(x, y)
	c, err := ParseHex(hex)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("read pixel (%d,%d): %w", x, y, err)
	}
	return c, nil
}

// ParseHex parses "#RRGGBB" or "RRGGBB" into an opaque color.
func ParseHex(s string) (color.RGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color %q: want 6 hex digits", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// Hex formats a color as "#RRGGBB".
func Hex(c color.RGBA) string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}
