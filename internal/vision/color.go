// Package vision finds colors and template images on screen.
package vision

import "image/color"

// ColorMatches reports whether p is within tolerance percent of target.
// The summed absolute channel difference must not exceed 3*255*tol/100.
func ColorMatches(p, target color.RGBA, tolerance int) bool {
	diff := absDiff(p.R, target.R) + absDiff(p.G, target.G) + absDiff(p.B, target.B)
	// diff*100 <= 765*tol avoids float rounding at the boundary
	return diff*100 <= 3*255*tolerance
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

// ScanStep is the grid step used when scanning a w x h region.
// Targets smaller than the step can be skipped.
func ScanStep(w, h int) int {
	step := min(w, h) / 100
	if step < 1 {
		return 1
	}
	return step
}
