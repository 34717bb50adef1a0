//go:build gocv

package vision

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// NewMatcher returns the OpenCV correlation matcher.
func NewMatcher() Matcher {
	return CorrelationMatcher{}
}

// CorrelationMatcher uses normalized cross-correlation and honours confidence.
type CorrelationMatcher struct{}

func (CorrelationMatcher) Correlation() bool { return true }

func (CorrelationMatcher) Match(haystack, needle *image.RGBA, confidence float64) (image.Point, bool, error) {
	if needle.Rect.Dx() > haystack.Rect.Dx() || needle.Rect.Dy() > haystack.Rect.Dy() {
		return image.Point{}, false, nil
	}

	src, err := gocv.ImageToMatRGB(haystack)
	if err != nil {
		return image.Point{}, false, fmt.Errorf("convert screen: %w", err)
	}
	defer src.Close()

	tmpl, err := gocv.ImageToMatRGB(needle)
	if err != nil {
		return image.Point{}, false, fmt.Errorf("convert template: %w", err)
	}
	defer tmpl.Close()

	result := gocv.NewMat()
	defer result.Close()
	mask := gocv.NewMat()
	defer mask.Close()

	gocv.MatchTemplate(src, tmpl, &result, gocv.TmCcoeffNormed, mask)
	_, maxVal, _, maxLoc := gocv.MinMaxLoc(result)
	if float64(maxVal) < confidence {
		return image.Point{}, false, nil
	}
	return maxLoc, true, nil
}
