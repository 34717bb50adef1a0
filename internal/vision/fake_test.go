package vision

import (
	"image"
	"image/color"

	"omniclick/internal/screen"
)

// fakeScreen serves captures from an in-memory desktop image.
type fakeScreen struct {
	desktop  *image.RGBA
	captures []*screen.Area
	reads    int
}

func newFakeScreen(w, h int) *fakeScreen {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	return &fakeScreen{desktop: img}
}

func (f *fakeScreen) set(x, y int, c color.RGBA) {
	f.desktop.SetRGBA(x, y, c)
}

func (f *fakeScreen) Bounds() (image.Rectangle, error) {
	return f.desktop.Rect, nil
}

func (f *fakeScreen) Capture(area *screen.Area) (screen.Frame, error) {
	f.captures = append(f.captures, area)
	r := f.desktop.Rect
	if area != nil {
		r = area.Rect().Intersect(f.desktop.Rect)
	}
	img := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	for y := 0; y < r.Dy(); y++ {
		for x := 0; x < r.Dx(); x++ {
			img.SetRGBA(x, y, f.desktop.RGBAAt(r.Min.X+x, r.Min.Y+y))
		}
	}
	return screen.Frame{Img: img, Origin: r.Min}, nil
}

func (f *fakeScreen) PixelAt(x, y int) (color.RGBA, error) {
	f.reads++
	return f.desktop.RGBAAt(x, y), nil
}

var (
	red   = color.RGBA{R: 255, A: 255}
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)
