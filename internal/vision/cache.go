package vision

import "image"

// DefaultRecheckInterval is how many ticks a cached hit is trusted.
const DefaultRecheckInterval = 50

// SearchCache remembers the last hit of a search. It is owned by the
// dispatch loop and is only ever discarded as a whole.
type SearchCache struct {
	pos     image.Point
	size    image.Point
	valid   bool
	ticks   int
	recheck int
}

// NewSearchCache creates an empty cache that revalidates every recheck ticks.
func NewSearchCache(recheck int) *SearchCache {
	if recheck < 1 {
		recheck = DefaultRecheckInterval
	}
	return &SearchCache{recheck: recheck}
}

// Store records a fresh hit and restarts the recheck counter.
func (c *SearchCache) Store(pos, size image.Point) {
	c.pos = pos
	c.size = size
	c.valid = true
	c.ticks = 0
}

// Invalidate discards the entry.
func (c *SearchCache) Invalidate() {
	c.pos = image.Point{}
	c.size = image.Point{}
	c.valid = false
	c.ticks = 0
}

// Lookup returns the cached position, if any, and whether this tick is due
// for revalidation. Every call on a valid entry counts as one tick.
func (c *SearchCache) Lookup() (pos image.Point, ok, recheck bool) {
	if !c.valid {
		return image.Point{}, false, false
	}
	c.ticks++
	if c.ticks >= c.recheck {
		c.ticks = 0
		return c.pos, true, true
	}
	return c.pos, true, false
}

// Rect returns the cached hit rectangle, used to re-match templates.
func (c *SearchCache) Rect() image.Rectangle {
	return image.Rectangle{Min: c.pos, Max: c.pos.Add(c.size)}
}

// Valid reports whether an entry is present.
func (c *SearchCache) Valid() bool {
	return c.valid
}

// SetRecheck changes the revalidation period.
func (c *SearchCache) SetRecheck(n int) {
	if n < 1 {
		n = DefaultRecheckInterval
	}
	c.recheck = n
}
