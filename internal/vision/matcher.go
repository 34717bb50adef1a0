package vision

import (
	"bytes"
	"image"
)

// Matcher locates a template inside a captured image. The returned point is
// the template's top-left corner relative to haystack.Rect.Min.
type Matcher interface {
	Match(haystack, needle *image.RGBA, confidence float64) (image.Point, bool, error)
	// Correlation reports whether confidence is honoured.
	Correlation() bool
}

// ExactMatcher requires every template pixel to be equal. Confidence is ignored.
type ExactMatcher struct{}

func (ExactMatcher) Correlation() bool { return false }

func (ExactMatcher) Match(haystack, needle *image.RGBA, _ float64) (image.Point, bool, error) {
	hb, nb := haystack.Rect, needle.Rect
	nw, nh := nb.Dx(), nb.Dy()
	if nw == 0 || nh == 0 || nw > hb.Dx() || nh > hb.Dy() {
		return image.Point{}, false, nil
	}

	rowLen := nw * 4
	first := needle.Pix[needle.PixOffset(nb.Min.X, nb.Min.Y):][:rowLen]
	for y := hb.Min.Y; y+nh <= hb.Max.Y; y++ {
		for x := hb.Min.X; x+nw <= hb.Max.X; x++ {
			off := haystack.PixOffset(x, y)
			if !bytes.Equal(haystack.Pix[off:off+rowLen], first) {
				continue
			}
			if rowsEqual(haystack, needle, x, y) {
				return image.Pt(x-hb.Min.X, y-hb.Min.Y), true, nil
			}
		}
	}
	return image.Point{}, false, nil
}

func rowsEqual(haystack, needle *image.RGBA, x, y int) bool {
	nb := needle.Rect
	rowLen := nb.Dx() * 4
	for r := 1; r < nb.Dy(); r++ {
		h := haystack.PixOffset(x, y+r)
		n := needle.PixOffset(nb.Min.X, nb.Min.Y+r)
		if !bytes.Equal(haystack.Pix[h:h+rowLen], needle.Pix[n:n+rowLen]) {
			return false
		}
	}
	return true
}
