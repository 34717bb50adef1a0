// Package activity watches for user mouse movement and foreground-window changes.
package activity

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrUnsupported is returned when foreground-window tracking is unavailable.
var ErrUnsupported = errors.New("foreground window tracking not supported on this platform")

// Defaults
const (
	DefaultInterval  = 100 * time.Millisecond
	DefaultThreshold = 5
	DefaultIdleAfter = time.Second
)

// Event reports what changed since the previous poll.
type Event struct {
	MouseMoved    bool
	WindowChanged bool
	At            time.Time
}

// Any reports whether the event carries activity.
func (e Event) Any() bool {
	return e.MouseMoved || e.WindowChanged
}

// ForegroundTracker returns an opaque handle for the focused window.
type ForegroundTracker interface {
	Foreground() (uint64, error)
}

// Monitor polls the cursor and the foreground window.
type Monitor struct {
	Interval  time.Duration
	Threshold int
	IdleAfter time.Duration

	pointer func() image.Point
	fg      ForegroundTracker

	mu           sync.Mutex
	lastPos      image.Point
	havePos      bool
	target       image.Point
	haveTarget   bool
	lastWin      uint64
	haveWin      bool
	lastActivity time.Time
	idleFired    bool
	onActivity   []func(Event)
	onIdle       []func(time.Duration)

	now func() time.Time
	log *zap.Logger
}

// NewMonitor creates a monitor. fg may be nil, which disables window tracking.
func NewMonitor(pointer func() image.Point, fg ForegroundTracker) *Monitor {
	return &Monitor{
		Interval:     DefaultInterval,
		Threshold:    DefaultThreshold,
		IdleAfter:    DefaultIdleAfter,
		pointer:      pointer,
		fg:           fg,
		lastActivity: time.Now(),
		now:          time.Now,
		log:          zap.L().Named("activity"),
	}
}

// WindowTracking reports whether foreground-window changes are detected.
func (m *Monitor) WindowTracking() bool {
	return m.fg != nil
}

// OnActivity registers a callback for mouse or window activity.
func (m *Monitor) OnActivity(fn func(Event)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onActivity = append(m.onActivity, fn)
}

// OnIdle registers a callback fired once each time the user goes quiet.
func (m *Monitor) OnIdle(fn func(time.Duration)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onIdle = append(m.onIdle, fn)
}

// Sync announces a cursor position the program is about to move to. A poll
// that finds the cursor there, before or after the move lands, does not
// report it as user activity.
func (m *Monitor) Sync(p image.Point) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.target, m.haveTarget = p, true
}

// IdleFor returns how long no activity has been seen.
func (m *Monitor) IdleFor() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now().Sub(m.lastActivity)
}

// Poll samples once, runs callbacks and returns what changed.
func (m *Monitor) Poll() Event {
	pos := m.pointer()
	var (
		win    uint64
		winErr error = ErrUnsupported
	)
	if m.fg != nil {
		win, winErr = m.fg.Foreground()
	}

	m.mu.Lock()
	now := m.now()
	ev := Event{At: now}

	if m.havePos {
		ev.MouseMoved = m.far(pos, m.lastPos)
	}
	if ev.MouseMoved && m.haveTarget && !m.far(pos, m.target) {
		ev.MouseMoved = false
		m.lastPos = pos
	}
	// Sub-threshold drift is accumulated against the last reported position.
	if !m.havePos || ev.MouseMoved {
		m.lastPos, m.havePos = pos, true
	}
	if ev.MouseMoved {
		m.haveTarget = false
	}

	if winErr == nil {
		ev.WindowChanged = m.haveWin && win != m.lastWin
		m.lastWin, m.haveWin = win, true
	}

	var (
		activity []func(Event)
		idle     []func(time.Duration)
		idleFor  time.Duration
	)
	if ev.Any() {
		m.lastActivity = now
		m.idleFired = false
		activity = append(activity, m.onActivity...)
	} else if idleFor = now.Sub(m.lastActivity); idleFor > m.IdleAfter && !m.idleFired {
		m.idleFired = true
		idle = append(idle, m.onIdle...)
	}
	m.mu.Unlock()

	for _, fn := range activity {
		fn(ev)
	}
	for _, fn := range idle {
		fn(idleFor)
	}
	return ev
}

// Run polls until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	m.log.Info("Activity: monitor started",
		zap.Duration("interval", m.Interval),
		zap.Int("threshold", m.Threshold),
		zap.Bool("window_tracking", m.WindowTracking()))

	ticker := time.NewTicker(m.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.log.Info("Activity: monitor stopped")
			return nil
		case <-ticker.C:
			if ev := m.Poll(); ev.Any() {
				m.log.Debug("Activity: detected",
					zap.Bool("mouse", ev.MouseMoved), zap.Bool("window", ev.WindowChanged))
			}
		}
	}
}

func (m *Monitor) far(a, b image.Point) bool {
	return abs(a.X-b.X) >= m.Threshold || abs(a.Y-b.Y) >= m.Threshold
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
