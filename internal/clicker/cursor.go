package clicker

// Cursor tracks progress through an ordered list of steps that each need
// Count actions before moving on.
type Cursor struct {
	Index       int
	Progress    int
	RepeatCount int
	// RepeatLimit stops the session after that many full passes; 0 is unbounded
	RepeatLimit int
}

// Record counts one completed action on the current step of a list with
// length items. It reports whether the repeat limit has been reached.
func (c *Cursor) Record(count, length int) (finished bool) {
	if length == 0 {
		return false
	}
	c.Progress++
	if c.Progress < max(count, 1) {
		return false
	}
	return c.advance(length)
}

// Skip moves past the current step without completing it.
func (c *Cursor) Skip(length int) (finished bool) {
	if length == 0 {
		return false
	}
	return c.advance(length)
}

func (c *Cursor) advance(length int) bool {
	c.Progress = 0
	c.Index++
	if c.Index < length {
		return false
	}
	c.Index = 0
	c.RepeatCount++
	return c.RepeatLimit > 0 && c.RepeatCount >= c.RepeatLimit
}

// Clamp keeps Index valid after the list shrank.
func (c *Cursor) Clamp(length int) {
	if length == 0 || c.Index >= length {
		c.Index = 0
		c.Progress = 0
	}
}

// Reset rewinds to the first step and clears the repeat counter.
func (c *Cursor) Reset(limit int) {
	*c = Cursor{RepeatLimit: limit}
}
