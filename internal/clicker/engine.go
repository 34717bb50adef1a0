// Package clicker runs the click dispatch loop.
package clicker

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"omniclick/internal/activity"
	"omniclick/internal/input"
	"omniclick/internal/screen"
	"omniclick/internal/vision"
)

// Engine errors
var (
	ErrAlreadyRunning = errors.New("clicker already running")
	ErrStopTimeout    = errors.New("clicker did not stop in time")
	ErrNoKeys         = errors.New("keyboard mode has no keys configured")
	ErrNoPoints       = errors.New("sequence mode has no points configured")
	ErrUnknownMode    = errors.New("unknown click mode")
)

// Timing of the loop around the actual clicks.
const (
	StopTimeout = 2 * time.Second
	PauseAfter  = 500 * time.Millisecond
	idleWait    = 50 * time.Millisecond
)

// ColorFinder is the cached color search used in color mode.
type ColorFinder interface {
	Search(target color.RGBA, tolerance int, area *screen.Area) (image.Point, bool, error)
	Invalidate()
	SetRecheck(n int)
}

// ImageFinder is the cached template search used in image mode.
type ImageFinder interface {
	Search(path string, confidence float64, area *screen.Area) (vision.Hit, error)
	Invalidate()
	SetRecheck(n int)
	SetCaptureFallback(on bool)
}

// Listener receives session notifications. Implementations must not block.
type Listener interface {
	ClickPerformed(count uint64)
	StatusChanged(running bool)
	Problem(err error)
	TemplateReplaced(path string)
}

// TickResult describes what one loop iteration did.
type TickResult int

const (
	// TickIdle means the tick was skipped without trying to click
	TickIdle TickResult = iota
	// TickMissed means a search found nothing or an action failed
	TickMissed
	// TickActed means a click or key press was injected
	TickActed
	// TickStop means the session must end
	TickStop
)

// Deps are the collaborators of an Engine. Fast, Colors, Images, EmergencyHeld,
// CursorMoved and Listener are optional.
type Deps struct {
	Injector      input.Injector
	Fast          input.FastClicker
	Colors        ColorFinder
	Images        ImageFinder
	EmergencyHeld func() bool
	// CursorMoved is told about every position the engine clicks at
	CursorMoved func(image.Point)
	Listener    Listener
}

// Engine owns the dispatch loop and its per-session state.
type Engine struct {
	deps Deps

	opts      atomic.Pointer[Options]
	running   atomic.Bool
	selecting atomic.Bool
	activity  atomic.Bool
	pausedTil atomic.Int64
	count     atomic.Uint64

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	cursor Cursor

	// owned by the loop goroutine
	applied  *Options
	override string
	reported map[string]bool

	sleep func(ctx context.Context, d time.Duration) bool
	now   func() time.Time
	log   *zap.Logger
}

// NewEngine creates an engine with default options.
func NewEngine(deps Deps) *Engine {
	e := &Engine{
		deps:     deps,
		reported: make(map[string]bool),
		sleep:    sleepCtx,
		now:      time.Now,
		log:      zap.L().Named("clicker"),
	}
	if e.deps.Listener == nil {
		e.deps.Listener = nopListener{}
	}
	e.SetOptions(DefaultOptions())
	return e
}

// SetOptions publishes a new snapshot. The loop picks it up on its next tick.
// Extreme speed without a merged-click capability is downgraded to turbo.
func (e *Engine) SetOptions(o Options) {
	if o.Speed == SpeedExtreme && e.deps.Fast == nil {
		e.log.Info("Clicker: extreme mode unavailable on this platform, using turbo")
		o.Speed = SpeedTurbo
	}
	e.opts.Store(&o)
}

// Options returns the current snapshot.
func (e *Engine) Options() Options {
	return *e.opts.Load()
}

// Running reports whether the loop is active.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Count returns the number of successful actions in this session.
func (e *Engine) Count() uint64 {
	return e.count.Load()
}

// ResetCounter zeroes the action counter.
func (e *Engine) ResetCounter() {
	e.count.Store(0)
	e.deps.Listener.ClickPerformed(0)
}

// Cursor returns a copy of the sequence position.
func (e *Engine) Cursor() Cursor {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cursor
}

// SetSelecting pauses clicking while an interactive selection is in progress.
func (e *Engine) SetSelecting(on bool) {
	e.selecting.Store(on)
}

// NotifyActivity invalidates search caches at the next tick and, when
// configured, pauses clicking briefly.
func (e *Engine) NotifyActivity(ev activity.Event) {
	if !ev.Any() {
		return
	}
	e.activity.Store(true)

	o := e.opts.Load()
	if (o.PauseOnMouse && ev.MouseMoved) || (o.PauseOnWindow && ev.WindowChanged) {
		e.pausedTil.Store(e.now().Add(PauseAfter).UnixNano())
	}
}

// Start launches the dispatch loop.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running.Load() {
		e.mu.Unlock()
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})
	e.count.Store(0)
	e.cursor.Reset(e.opts.Load().RepeatLimit)
	e.applied = nil
	e.override = ""
	clear(e.reported)
	e.running.Store(true)

	o := e.opts.Load()
	e.log.Info("Clicker: started",
		zap.String("mode", string(o.Mode)),
		zap.Stringer("speed", o.Speed),
		zap.Duration("interval", o.Delay()))

	done := e.done
	e.mu.Unlock()

	e.deps.Listener.StatusChanged(true)
	go e.run(ctx, done)
	return nil
}

// Stop signals the loop and waits for it to exit.
func (e *Engine) Stop() error {
	e.mu.Lock()
	cancel, done := e.cancel, e.done
	e.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		return nil
	case <-time.After(StopTimeout):
		e.log.Error("Clicker: loop did not exit", zap.Duration("timeout", StopTimeout))
		return ErrStopTimeout
	}
}

// ForceStop signals the loop without waiting.
func (e *Engine) ForceStop() {
	e.mu.Lock()
	cancel := e.cancel
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (e *Engine) run(ctx context.Context, done chan struct{}) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("click loop crashed: %v", r)
			e.log.Error("Clicker: recovered from panic", zap.Error(err))
			e.deps.Listener.Problem(err)
		}
		e.mu.Lock()
		if e.cancel != nil {
			e.cancel()
			e.cancel = nil
		}
		e.mu.Unlock()
		e.running.Store(false)
		close(done)
		e.log.Info("Clicker: stopped", zap.Uint64("count", e.count.Load()))
		e.deps.Listener.StatusChanged(false)
	}()

	for ctx.Err() == nil {
		res := e.Tick(ctx)
		if res == TickStop {
			return
		}

		d := e.opts.Load().Delay()
		if res == TickIdle {
			d = idleWait
		}
		if d < MinInterval {
			runtime.Gosched()
			continue
		}
		if !e.sleep(ctx, d) {
			return
		}
	}
}

// Tick runs one iteration of the dispatch loop.
func (e *Engine) Tick(ctx context.Context) TickResult {
	if ctx.Err() != nil {
		return TickStop
	}
	o := e.apply()

	if e.selecting.Load() {
		return TickIdle
	}
	if e.deps.EmergencyHeld != nil && e.deps.EmergencyHeld() {
		e.log.Warn("Clicker: emergency combination held, stopping")
		return TickStop
	}
	if e.activity.Swap(false) {
		e.invalidate()
	}
	if e.now().UnixNano() < e.pausedTil.Load() {
		return TickIdle
	}

	acted, finished, err := e.dispatch(o)
	if err != nil {
		e.report(o, err)
		return TickMissed
	}
	if acted {
		n := e.count.Add(1)
		e.deps.Listener.ClickPerformed(n)
	}
	if finished {
		e.log.Info("Clicker: sequence repeat limit reached", zap.Int("repeats", e.Cursor().RepeatCount))
		return TickStop
	}
	if !acted {
		return TickMissed
	}
	return TickActed
}

// apply installs a newly published snapshot into the loop-owned state.
func (e *Engine) apply() *Options {
	o := e.opts.Load()
	if o == e.applied {
		return o
	}
	prev := e.applied
	e.applied = o

	if e.deps.Colors != nil {
		e.deps.Colors.SetRecheck(o.RecheckInterval)
	}
	if e.deps.Images != nil {
		e.deps.Images.SetRecheck(o.RecheckInterval)
		e.deps.Images.SetCaptureFallback(o.CaptureAreaFallback)
	}
	if prev != nil && prev.TemplatePath != o.TemplatePath {
		e.override = ""
	}
	clear(e.reported)

	e.mu.Lock()
	if prev == nil || !sameSequence(prev, o) {
		e.cursor.Reset(o.RepeatLimit)
	} else {
		e.cursor.Clamp(o.sequenceLen())
	}
	e.mu.Unlock()
	return o
}

func (e *Engine) invalidate() {
	if e.deps.Colors != nil {
		e.deps.Colors.Invalidate()
	}
	if e.deps.Images != nil {
		e.deps.Images.Invalidate()
	}
}

func (e *Engine) dispatch(o *Options) (acted, finished bool, err error) {
	switch o.Mode {
	case ModeNormal:
		if err := e.clickHere(o); err != nil {
			return false, false, err
		}
		return true, false, nil
	case ModeColor:
		return e.colorClick(o)
	case ModeImage:
		if len(o.Sequence) > 0 {
			return e.sequenceStep(o)
		}
		return e.imageClick(o, e.templatePath(o))
	case ModeKeyboard:
		return e.keyStep(o)
	case ModeSequence:
		return e.pointStep(o)
	}
	return false, false, fmt.Errorf("%w: %q", ErrUnknownMode, o.Mode)
}

func (e *Engine) clickHere(o *Options) error {
	if o.Speed == SpeedExtreme && e.deps.Fast != nil {
		return e.deps.Fast.FastClick(o.Button)
	}
	return e.deps.Injector.Click(o.Button)
}

// clickAt announces the target to the activity monitor before moving there.
func (e *Engine) clickAt(p image.Point, o *Options) error {
	if e.deps.CursorMoved != nil {
		e.deps.CursorMoved(p)
	}
	return e.deps.Injector.ClickAt(p.X, p.Y, o.Button)
}

func (e *Engine) colorClick(o *Options) (bool, bool, error) {
	if e.deps.Colors == nil {
		return false, false, fmt.Errorf("color search: %w", input.ErrUnsupported)
	}
	pos, ok, err := e.deps.Colors.Search(o.TargetColor, o.Tolerance, o.Area)
	if err != nil || !ok {
		return false, false, err
	}
	if err := e.clickAt(pos, o); err != nil {
		return false, false, err
	}
	return true, false, nil
}

func (e *Engine) templatePath(o *Options) string {
	if e.override != "" {
		return e.override
	}
	return o.TemplatePath
}

func (e *Engine) imageClick(o *Options, path string) (bool, bool, error) {
	if e.deps.Images == nil {
		return false, false, fmt.Errorf("image search: %w", input.ErrUnsupported)
	}
	hit, err := e.deps.Images.Search(path, o.Confidence, o.Area)
	if hit.Replaced != "" && len(o.Sequence) == 0 {
		e.override = hit.Replaced
		e.deps.Listener.TemplateReplaced(hit.Replaced)
	}
	if err != nil || !hit.Found {
		return false, false, err
	}
	if err := e.clickAt(hit.Point, o); err != nil {
		return false, false, err
	}
	return true, false, nil
}

func (e *Engine) sequenceStep(o *Options) (bool, bool, error) {
	e.mu.Lock()
	idx := e.cursor.Index
	e.mu.Unlock()
	item := o.Sequence[idx]

	if item.IsKey() {
		if err := e.deps.Injector.KeyTap(item.Key); err != nil {
			return false, false, err
		}
		return true, e.record(item.count(), len(o.Sequence)), nil
	}

	acted, _, err := e.imageClick(o, item.Template)
	if errors.Is(err, vision.ErrTemplateMissing) {
		e.report(o, err)
		return false, e.skip(len(o.Sequence)), nil
	}
	if err != nil || !acted {
		return false, false, err
	}
	return true, e.record(item.count(), len(o.Sequence)), nil
}

func (e *Engine) keyStep(o *Options) (bool, bool, error) {
	if len(o.Keys) == 0 {
		return false, false, ErrNoKeys
	}
	e.mu.Lock()
	item := o.Keys[e.cursor.Index]
	e.mu.Unlock()

	if err := e.deps.Injector.KeyTap(item.Key); err != nil {
		return false, false, err
	}
	e.record(item.count(), len(o.Keys))
	return true, false, nil
}

func (e *Engine) pointStep(o *Options) (bool, bool, error) {
	if len(o.Points) == 0 {
		return false, false, ErrNoPoints
	}
	e.mu.Lock()
	p := o.Points[e.cursor.Index]
	e.mu.Unlock()

	if err := e.clickAt(p.Point, o); err != nil {
		return false, false, err
	}
	e.record(max(p.Count, 1), len(o.Points))
	return true, false, nil
}

func (e *Engine) record(count, length int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cursor.Record(count, length)
}

func (e *Engine) skip(length int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cursor.Skip(length)
}

// report logs every failure and tells the listener once per distinct problem.
func (e *Engine) report(o *Options, err error) {
	e.log.Warn("Clicker: no action this tick", zap.String("mode", string(o.Mode)), zap.Error(err))
	msg := err.Error()
	if e.reported[msg] {
		return
	}
	e.reported[msg] = true
	e.deps.Listener.Problem(err)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

type nopListener struct{}

func (nopListener) ClickPerformed(uint64)   {}
func (nopListener) StatusChanged(bool)      {}
func (nopListener) Problem(error)           {}
func (nopListener) TemplateReplaced(string) {}
