package vision

import (
	"fmt"
	"image"
	"image/color"

	"go.uber.org/zap"

	"omniclick/internal/screen"
)

type colorKey struct {
	target    color.RGBA
	tolerance int
	area      screen.Area
	whole     bool
}

// ColorSearch locates the first pixel of a target color and caches it.
type ColorSearch struct {
	capturer screen.Capturer
	cache    *SearchCache
	key      colorKey
	log      *zap.Logger
}

// NewColorSearch creates a cached color search over the given capturer.
func NewColorSearch(c screen.Capturer, recheck int) *ColorSearch {
	return &ColorSearch{
		capturer: c,
		cache:    NewSearchCache(recheck),
		log:      zap.L().Named("vision"),
	}
}

// Invalidate drops any cached hit.
func (s *ColorSearch) Invalidate() {
	s.cache.Invalidate()
}

// SetRecheck changes how often a cached hit is re-verified.
func (s *ColorSearch) SetRecheck(n int) {
	s.cache.SetRecheck(n)
}

// Search returns the screen position of a matching pixel. A miss is reported
// as ok=false with a nil error; errors come only from the capture layer.
func (s *ColorSearch) Search(target color.RGBA, tolerance int, area *screen.Area) (image.Point, bool, error) {
	key := colorKey{target: target, tolerance: tolerance, whole: area == nil}
	if area != nil {
		key.area = area.Normalize()
	}
	if key != s.key {
		s.cache.Invalidate()
		s.key = key
	}

	if pos, ok, recheck := s.cache.Lookup(); ok {
		if !recheck {
			return pos, true, nil
		}
		px, err := s.capturer.PixelAt(pos.X, pos.Y)
		if err == nil && ColorMatches(px, target, tolerance) {
			return pos, true, nil
		}
		s.log.Debug("Vision: cached color position no longer matches", zap.Stringer("pos", pos))
		s.cache.Invalidate()
		return image.Point{}, false, nil
	}

	frame, err := s.capturer.Capture(area)
	if err != nil {
		return image.Point{}, false, fmt.Errorf("color search: %w", err)
	}
	pos, ok := scanColor(frame, target, tolerance)
	if ok {
		s.cache.Store(pos, image.Pt(1, 1))
	}
	return pos, ok, nil
}

// scanColor walks the frame row by row on the adaptive step grid.
func scanColor(f screen.Frame, target color.RGBA, tolerance int) (image.Point, bool) {
	b := f.Img.Rect
	step := ScanStep(b.Dx(), b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y += step {
		for x := b.Min.X; x < b.Max.X; x += step {
			if ColorMatches(f.Img.RGBAAt(x, y), target, tolerance) {
				return f.Origin.Add(image.Pt(x-b.Min.X, y-b.Min.Y)), true
			}
		}
	}
	return image.Point{}, false
}
