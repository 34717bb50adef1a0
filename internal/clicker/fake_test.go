package clicker

import (
	"image"
	"image/color"
	"sync"
	"time"

	"omniclick/internal/input"
	"omniclick/internal/screen"
	"omniclick/internal/vision"
)

type click struct {
	At     image.Point
	Button input.Button
	Here   bool
}

type fakeInjector struct {
	mu      sync.Mutex
	clicks  []click
	keys    []string
	fast    int
	failKey error
	panicOn bool
}

func (f *fakeInjector) Click(b input.Button) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicOn {
		panic("injector exploded")
	}
	f.clicks = append(f.clicks, click{Button: b, Here: true})
	return nil
}

func (f *fakeInjector) ClickAt(x, y int, b input.Button) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clicks = append(f.clicks, click{At: image.Pt(x, y), Button: b})
	return nil
}

func (f *fakeInjector) KeyTap(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failKey != nil {
		return f.failKey
	}
	f.keys = append(f.keys, key)
	return nil
}

func (f *fakeInjector) Position() image.Point { return image.Point{} }

func (f *fakeInjector) FastClick(b input.Button) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fast++
	return nil
}

func (f *fakeInjector) clickCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clicks)
}

type fakeColors struct {
	pos         image.Point
	found       bool
	err         error
	searches    int
	invalidated int
}

func (f *fakeColors) Search(color.RGBA, int, *screen.Area) (image.Point, bool, error) {
	f.searches++
	return f.pos, f.found, f.err
}
func (f *fakeColors) Invalidate()    { f.invalidated++ }
func (f *fakeColors) SetRecheck(int) {}

type fakeImages struct {
	hits        map[string]vision.Hit
	errs        map[string]error
	searched    []string
	invalidated int
	fallback    bool
}

func newFakeImages() *fakeImages {
	return &fakeImages{hits: map[string]vision.Hit{}, errs: map[string]error{}}
}

func (f *fakeImages) Search(path string, _ float64, _ *screen.Area) (vision.Hit, error) {
	f.searched = append(f.searched, path)
	if err := f.errs[path]; err != nil {
		return vision.Hit{Template: path}, err
	}
	return f.hits[path], nil
}
func (f *fakeImages) Invalidate()                { f.invalidated++ }
func (f *fakeImages) SetRecheck(int)             {}
func (f *fakeImages) SetCaptureFallback(on bool) { f.fallback = on }

type fakeListener struct {
	mu       sync.Mutex
	counts   []uint64
	statuses []bool
	problems []error
	replaced []string
}

func (l *fakeListener) ClickPerformed(n uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counts = append(l.counts, n)
}

func (l *fakeListener) StatusChanged(running bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.statuses = append(l.statuses, running)
}

func (l *fakeListener) Problem(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.problems = append(l.problems, err)
}

func (l *fakeListener) TemplateReplaced(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.replaced = append(l.replaced, path)
}

// stopped reports whether the last status change was a stop.
func (l *fakeListener) stopped() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.statuses) > 1 && !l.statuses[len(l.statuses)-1]
}

func (l *fakeListener) problemCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.problems)
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }
