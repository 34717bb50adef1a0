package vision

import (
	"fmt"
	"image"

	"go.uber.org/zap"

	"omniclick/internal/screen"
)

// Hit is the outcome of one image search.
type Hit struct {
	// Point is the centre of the matched template in screen coordinates
	Point image.Point
	Found bool
	// Template is the file that was searched for
	Template string
	// Replaced is set when an oversized template was regenerated from the area
	Replaced string
}

// areaKey identifies a template searched inside one area.
type areaKey struct {
	path string
	area screen.Area
}

type imageKey struct {
	path       string
	confidence float64
	area       screen.Area
	whole      bool
}

// ImageSearch locates a template image on screen and caches the hit.
type ImageSearch struct {
	capturer screen.Capturer
	matcher  Matcher
	store    *TemplateStore
	cache    *SearchCache
	fallback bool

	key      imageKey
	tmpl     *image.RGBA
	tmplPath string
	// replaced maps an oversized template to the capture standing in for it
	replaced map[areaKey]string

	log *zap.Logger
}

// NewImageSearch creates a cached template search.
func NewImageSearch(c screen.Capturer, m Matcher, store *TemplateStore, recheck int) *ImageSearch {
	return &ImageSearch{
		capturer: c,
		matcher:  m,
		store:    store,
		cache:    NewSearchCache(recheck),
		replaced: make(map[areaKey]string),
		log:      zap.L().Named("vision"),
	}
}

// SetCaptureFallback enables regenerating oversized templates from the area.
func (s *ImageSearch) SetCaptureFallback(on bool) {
	s.fallback = on
}

// SetRecheck changes how often a cached hit is re-verified.
func (s *ImageSearch) SetRecheck(n int) {
	s.cache.SetRecheck(n)
}

// Invalidate drops any cached hit.
func (s *ImageSearch) Invalidate() {
	s.cache.Invalidate()
}

// Search finds the template at path inside area (nil for the whole screen).
// An empty path falls back to the newest temporary template.
func (s *ImageSearch) Search(path string, confidence float64, area *screen.Area) (Hit, error) {
	if path == "" {
		latest, err := s.store.Latest()
		if err != nil {
			return Hit{}, fmt.Errorf("no template chosen: %w", err)
		}
		s.log.Debug("Vision: using newest temporary template", zap.String("path", latest))
		path = latest
	}

	var ak areaKey
	if area != nil {
		ak = areaKey{path: path, area: area.Normalize()}
		if r, ok := s.replaced[ak]; ok {
			path = r
		}
	}

	key := imageKey{path: path, confidence: confidence, whole: area == nil}
	if area != nil {
		key.area = ak.area
	}
	if key != s.key {
		s.cache.Invalidate()
		s.key = key
	}
	if s.tmpl == nil || s.tmplPath != path {
		tmpl, err := LoadTemplate(path)
		if err != nil {
			s.tmpl, s.tmplPath = nil, ""
			if area != nil && path != ak.path {
				// the stand-in is gone, try the original again next time
				delete(s.replaced, ak)
			}
			return Hit{}, err
		}
		s.tmpl, s.tmplPath = tmpl, path
	}

	hit := Hit{Template: path}
	size := s.tmpl.Rect.Size()

	if pos, ok, recheck := s.cache.Lookup(); ok {
		if !recheck || s.stillThere(confidence) {
			hit.Found = true
			hit.Point = center(pos, size)
			return hit, nil
		}
		s.log.Debug("Vision: cached template position no longer matches", zap.String("template", path))
		s.cache.Invalidate()
		return hit, nil
	}

	searchArea := area
	if area != nil && (size.X > area.Width() || size.Y > area.Height()) {
		if s.fallback {
			replaced, err := s.replaceFromArea(area)
			if err != nil {
				return hit, err
			}
			s.replaced[ak] = replaced
			hit.Template, hit.Replaced = replaced, replaced
			size = s.tmpl.Rect.Size()
		} else {
			s.log.Warn("Vision: template larger than search area, searching whole screen",
				zap.String("template", path), zap.Stringer("area", area))
			searchArea = nil
		}
	}

	frame, err := s.capturer.Capture(searchArea)
	if err != nil {
		return hit, fmt.Errorf("image search: %w", err)
	}
	loc, found, err := s.matcher.Match(frame.Img, s.tmpl, confidence)
	if err != nil {
		return hit, fmt.Errorf("image search: %w", err)
	}
	if !found {
		return hit, nil
	}

	pos := frame.Origin.Add(loc)
	s.cache.Store(pos, size)
	hit.Found = true
	hit.Point = center(pos, size)
	return hit, nil
}

// stillThere re-matches the template against the cached rectangle only.
func (s *ImageSearch) stillThere(confidence float64) bool {
	r := s.cache.Rect()
	frame, err := s.capturer.Capture(&screen.Area{X1: r.Min.X, Y1: r.Min.Y, X2: r.Max.X, Y2: r.Max.Y})
	if err != nil {
		return false
	}
	_, found, err := s.matcher.Match(frame.Img, s.tmpl, confidence)
	return err == nil && found
}

// replaceFromArea captures the area as the new template and saves it.
func (s *ImageSearch) replaceFromArea(area *screen.Area) (string, error) {
	frame, err := s.capturer.Capture(area)
	if err != nil {
		return "", fmt.Errorf("capture area as template: %w", err)
	}
	path, err := s.store.SaveTemp(frame.Img)
	if err != nil {
		return "", err
	}
	s.log.Warn("Vision: template larger than search area, replaced with area capture",
		zap.String("old", s.tmplPath), zap.String("new", path))

	s.tmpl, s.tmplPath = toRGBA(frame.Img), path
	s.key.path = path
	s.cache.Invalidate()
	return path, nil
}

func center(pos, size image.Point) image.Point {
	return pos.Add(size.Div(2))
}
