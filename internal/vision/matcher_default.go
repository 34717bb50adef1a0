//go:build !gocv

package vision

// NewMatcher returns the exact matcher; build with -tags gocv for correlation.
func NewMatcher() Matcher {
	return ExactMatcher{}
}
