package clicker

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omniclick/internal/activity"
	"omniclick/internal/config"
	"omniclick/internal/input"
	"omniclick/internal/screen"
	"omniclick/internal/vision"
)

type harness struct {
	engine   *Engine
	injector *fakeInjector
	colors   *fakeColors
	images   *fakeImages
	listener *fakeListener
	clock    *fakeClock
}

func newHarness(t *testing.T, withFast bool) *harness {
	t.Helper()
	h := &harness{
		injector: &fakeInjector{},
		colors:   &fakeColors{},
		images:   newFakeImages(),
		listener: &fakeListener{},
		clock:    &fakeClock{t: time.Unix(5000, 0)},
	}
	deps := Deps{
		Injector: h.injector,
		Colors:   h.colors,
		Images:   h.images,
		Listener: h.listener,
	}
	if withFast {
		deps.Fast = h.injector
	}
	h.engine = NewEngine(deps)
	h.engine.now = h.clock.now
	return h
}

func (h *harness) waitStopped(t *testing.T) {
	t.Helper()
	require.Eventually(t, h.listener.stopped, time.Second, time.Millisecond)
	require.False(t, h.engine.Running())
}

func (h *harness) ticks(t *testing.T, n int) []TickResult {
	t.Helper()
	out := make([]TickResult, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, h.engine.Tick(context.Background()))
	}
	return out
}

func TestNormalModeTenTicks(t *testing.T) {
	h := newHarness(t, false)
	o := DefaultOptions()
	o.Interval = 100 * time.Millisecond
	o.Button = input.ButtonLeft
	h.engine.SetOptions(o)

	h.ticks(t, 10)

	assert.Equal(t, uint64(10), h.engine.Count())
	require.Len(t, h.injector.clicks, 10)
	for _, c := range h.injector.clicks {
		assert.True(t, c.Here)
		assert.Equal(t, input.ButtonLeft, c.Button)
	}
	assert.Equal(t, uint64(10), h.listener.counts[9])
}

func TestRunLoopSleepsConfiguredInterval(t *testing.T) {
	h := newHarness(t, false)
	o := DefaultOptions()
	o.Interval = 100 * time.Millisecond
	h.engine.SetOptions(o)

	var delays []time.Duration
	h.engine.sleep = func(_ context.Context, d time.Duration) bool {
		delays = append(delays, d)
		return len(delays) < 10
	}

	require.NoError(t, h.engine.Start(context.Background()))
	h.waitStopped(t)

	assert.Equal(t, uint64(10), h.engine.Count())
	assert.Len(t, delays, 10)
	assert.Equal(t, 100*time.Millisecond, delays[0])
	assert.Equal(t, []bool{true, false}, h.listener.statuses)
}

func TestDelay(t *testing.T) {
	o := DefaultOptions()

	o.Interval = 0
	assert.Equal(t, MinInterval, o.Delay())
	o.Interval = 10 * time.Second
	assert.Equal(t, MaxInterval, o.Delay())
	o.Interval = 250 * time.Millisecond
	assert.Equal(t, 250*time.Millisecond, o.Delay())

	o.Speed = SpeedTurbo
	assert.Equal(t, TurboInterval, o.Delay())
	o.Speed = SpeedExtreme
	assert.Less(t, o.Delay(), MinInterval)
}

func TestExtremeWithoutFastClickerBehavesLikeTurbo(t *testing.T) {
	h := newHarness(t, false)
	o := DefaultOptions()
	o.Speed = SpeedExtreme
	h.engine.SetOptions(o)

	assert.Equal(t, SpeedTurbo, h.engine.Options().Speed)
	h.ticks(t, 1)
	assert.Equal(t, 1, h.injector.clickCount())
	assert.Zero(t, h.injector.fast)
}

func TestExtremeUsesFastClicker(t *testing.T) {
	h := newHarness(t, true)
	o := DefaultOptions()
	o.Speed = SpeedExtreme
	h.engine.SetOptions(o)

	h.ticks(t, 3)
	assert.Equal(t, 3, h.injector.fast)
	assert.Zero(t, h.injector.clickCount())
	assert.Equal(t, uint64(3), h.engine.Count())
}

func TestSelectingSkipsClicks(t *testing.T) {
	h := newHarness(t, false)
	h.engine.SetSelecting(true)

	assert.Equal(t, []TickResult{TickIdle, TickIdle}, h.ticks(t, 2))
	assert.Zero(t, h.injector.clickCount())

	h.engine.SetSelecting(false)
	assert.Equal(t, TickActed, h.engine.Tick(context.Background()))
}

func TestEmergencyHeldStopsWithoutClicking(t *testing.T) {
	h := newHarness(t, false)
	held := false
	h.engine.deps.EmergencyHeld = func() bool { return held }

	assert.Equal(t, TickActed, h.engine.Tick(context.Background()))
	held = true
	assert.Equal(t, TickStop, h.engine.Tick(context.Background()))
	assert.Equal(t, 1, h.injector.clickCount())
}

func TestEmergencyHeldEndsRunningSession(t *testing.T) {
	h := newHarness(t, false)
	h.engine.sleep = func(context.Context, time.Duration) bool { return true }
	h.engine.deps.EmergencyHeld = func() bool { return h.injector.clickCount() >= 5 }

	require.NoError(t, h.engine.Start(context.Background()))
	h.waitStopped(t)
	assert.Equal(t, 5, h.injector.clickCount())
}

func TestColorModeClicksFoundPosition(t *testing.T) {
	h := newHarness(t, false)
	o := DefaultOptions()
	o.Mode = ModeColor
	h.engine.SetOptions(o)

	var (
		synced       []image.Point
		clicksBefore []int
	)
	h.engine.deps.CursorMoved = func(p image.Point) {
		synced = append(synced, p)
		clicksBefore = append(clicksBefore, h.injector.clickCount())
	}

	assert.Equal(t, TickMissed, h.engine.Tick(context.Background()))
	assert.Zero(t, h.engine.Count())

	h.colors.pos, h.colors.found = image.Pt(50, 50), true
	assert.Equal(t, TickActed, h.engine.Tick(context.Background()))
	require.Len(t, h.injector.clicks, 1)
	assert.Equal(t, image.Pt(50, 50), h.injector.clicks[0].At)
	assert.Equal(t, []image.Point{{X: 50, Y: 50}}, synced)
	assert.Equal(t, []int{0}, clicksBefore, "target is announced before the cursor moves")
}

func TestColorModeCaptureErrorReportedOnce(t *testing.T) {
	h := newHarness(t, false)
	o := DefaultOptions()
	o.Mode = ModeColor
	h.engine.SetOptions(o)
	h.colors.err = errors.New("capture unavailable")

	assert.Equal(t, []TickResult{TickMissed, TickMissed, TickMissed}, h.ticks(t, 3))
	assert.Equal(t, 1, h.listener.problemCount())
}

func TestActivityInvalidatesCachesOnNextTick(t *testing.T) {
	h := newHarness(t, false)
	o := DefaultOptions()
	o.Mode = ModeColor
	h.engine.SetOptions(o)

	h.engine.NotifyActivity(activity.Event{})
	h.ticks(t, 1)
	assert.Zero(t, h.colors.invalidated)

	h.engine.NotifyActivity(activity.Event{MouseMoved: true})
	h.ticks(t, 2)
	assert.Equal(t, 1, h.colors.invalidated)
	assert.Equal(t, 1, h.images.invalidated)
}

func TestPauseOnMouse(t *testing.T) {
	h := newHarness(t, false)
	o := DefaultOptions()
	o.PauseOnMouse = true
	o.PauseOnWindow = false
	h.engine.SetOptions(o)

	h.engine.NotifyActivity(activity.Event{WindowChanged: true})
	assert.Equal(t, TickActed, h.engine.Tick(context.Background()), "window changes do not pause")

	h.engine.NotifyActivity(activity.Event{MouseMoved: true})
	assert.Equal(t, TickIdle, h.engine.Tick(context.Background()))

	h.clock.advance(PauseAfter)
	assert.Equal(t, TickActed, h.engine.Tick(context.Background()))
}

func TestImageSequenceRepeatLimitStopsSession(t *testing.T) {
	h := newHarness(t, false)
	h.images.hits["a.png"] = vision.Hit{Found: true, Point: image.Pt(1, 1), Template: "a.png"}
	h.images.hits["b.png"] = vision.Hit{Found: true, Point: image.Pt(2, 2), Template: "b.png"}

	o := DefaultOptions()
	o.Mode = ModeImage
	o.Sequence = []Item{{Template: "a.png", Count: 2}, {Template: "b.png", Count: 1}}
	o.RepeatLimit = 1
	h.engine.SetOptions(o)
	h.engine.sleep = func(context.Context, time.Duration) bool { return true }

	require.NoError(t, h.engine.Start(context.Background()))
	h.waitStopped(t)

	assert.Equal(t, uint64(3), h.engine.Count())
	assert.Equal(t, 1, h.engine.Cursor().RepeatCount)
	assert.Equal(t, []string{"a.png", "a.png", "b.png"}, h.images.searched)
}

func TestImageSequenceTemplateThenKeyUnbounded(t *testing.T) {
	h := newHarness(t, false)
	h.images.hits["t1.png"] = vision.Hit{Found: true, Point: image.Pt(10, 10), Template: "t1.png"}

	o := DefaultOptions()
	o.Mode = ModeImage
	o.Sequence = []Item{{Template: "t1.png", Count: 1}, {Key: "space", Count: 1}}
	o.RepeatLimit = 0
	h.engine.SetOptions(o)

	assert.Equal(t, []TickResult{TickActed, TickActed}, h.ticks(t, 2))
	c := h.engine.Cursor()
	assert.Equal(t, 0, c.Index)
	assert.Equal(t, 1, c.RepeatCount)
	assert.Equal(t, []string{"space"}, h.injector.keys)
	assert.Equal(t, image.Pt(10, 10), h.injector.clicks[0].At)
}

func TestImageSequenceWaitsForMatch(t *testing.T) {
	h := newHarness(t, false)
	o := DefaultOptions()
	o.Mode = ModeImage
	o.Sequence = []Item{{Template: "later.png", Count: 1}, {Key: "enter", Count: 1}}
	h.engine.SetOptions(o)

	assert.Equal(t, []TickResult{TickMissed, TickMissed}, h.ticks(t, 2))
	assert.Equal(t, 0, h.engine.Cursor().Index)
	assert.Empty(t, h.injector.keys)
}

func TestImageSequenceSkipsMissingTemplate(t *testing.T) {
	h := newHarness(t, false)
	h.images.errs["gone.png"] = vision.ErrTemplateMissing

	o := DefaultOptions()
	o.Mode = ModeImage
	o.Sequence = []Item{{Template: "gone.png", Count: 3}, {Key: "enter", Count: 1}}
	o.RepeatLimit = 0
	h.engine.SetOptions(o)

	h.ticks(t, 4)
	assert.Equal(t, []string{"enter", "enter"}, h.injector.keys)
	assert.Equal(t, 1, h.listener.problemCount())
}

func TestImageModeTemplateReplaced(t *testing.T) {
	h := newHarness(t, false)
	h.images.hits["big.png"] = vision.Hit{Found: true, Point: image.Pt(4, 4), Template: "temp_template_1.png", Replaced: "temp_template_1.png"}
	h.images.hits["temp_template_1.png"] = vision.Hit{Found: true, Point: image.Pt(4, 4), Template: "temp_template_1.png"}

	o := DefaultOptions()
	o.Mode = ModeImage
	o.TemplatePath = "big.png"
	o.CaptureAreaFallback = true
	o.Area = &screen.Area{X1: 0, Y1: 0, X2: 8, Y2: 8}
	h.engine.SetOptions(o)

	h.ticks(t, 2)
	assert.True(t, h.images.fallback)
	assert.Equal(t, []string{"big.png", "temp_template_1.png"}, h.images.searched)
	assert.Equal(t, []string{"temp_template_1.png"}, h.listener.replaced)
	assert.Equal(t, uint64(2), h.engine.Count())
}

func TestKeyboardModeWrapsSingleKey(t *testing.T) {
	h := newHarness(t, false)
	o := DefaultOptions()
	o.Mode = ModeKeyboard
	o.Keys = []Item{{Key: "a", Count: 2}}
	h.engine.SetOptions(o)

	h.ticks(t, 2)
	c := h.engine.Cursor()
	assert.Equal(t, 0, c.Index)
	assert.Equal(t, 0, c.Progress)
	assert.Equal(t, []string{"a", "a"}, h.injector.keys)
}

func TestKeyboardModeCyclesKeys(t *testing.T) {
	h := newHarness(t, false)
	o := DefaultOptions()
	o.Mode = ModeKeyboard
	o.Keys = []Item{{Key: "a", Count: 1}, {Key: "b", Count: 2}, {Key: "f6", Count: 1}}
	o.RepeatLimit = 1
	h.engine.SetOptions(o)

	results := h.ticks(t, 6)
	assert.Equal(t, []string{"a", "b", "b", "f6", "a", "b"}, h.injector.keys)
	assert.NotContains(t, results, TickStop, "repeat limit only applies to image sequences")
}

func TestKeyboardModeWithoutKeys(t *testing.T) {
	h := newHarness(t, false)
	o := DefaultOptions()
	o.Mode = ModeKeyboard
	h.engine.SetOptions(o)

	assert.Equal(t, TickMissed, h.engine.Tick(context.Background()))
	require.Equal(t, 1, h.listener.problemCount())
	assert.ErrorIs(t, h.listener.problems[0], ErrNoKeys)
}

func TestKeyTapFailureIsNotFatal(t *testing.T) {
	h := newHarness(t, false)
	o := DefaultOptions()
	o.Mode = ModeKeyboard
	o.Keys = []Item{{Key: "a", Count: 1}}
	h.engine.SetOptions(o)
	h.injector.failKey = errors.New("no display")

	assert.Equal(t, TickMissed, h.engine.Tick(context.Background()))
	h.injector.failKey = nil
	assert.Equal(t, TickActed, h.engine.Tick(context.Background()))
}

func TestPointSequence(t *testing.T) {
	h := newHarness(t, false)
	o := DefaultOptions()
	o.Mode = ModeSequence
	o.Points = []Point{{Point: image.Pt(1, 1), Count: 2}, {Point: image.Pt(9, 9), Count: 1}}
	h.engine.SetOptions(o)

	h.ticks(t, 4)
	var at []image.Point
	for _, c := range h.injector.clicks {
		at = append(at, c.At)
	}
	assert.Equal(t, []image.Point{{X: 1, Y: 1}, {X: 1, Y: 1}, {X: 9, Y: 9}, {X: 1, Y: 1}}, at)
}

func TestOptionsChangeResetsCursor(t *testing.T) {
	h := newHarness(t, false)
	o := DefaultOptions()
	o.Mode = ModeKeyboard
	o.Keys = []Item{{Key: "a", Count: 1}, {Key: "b", Count: 1}}
	h.engine.SetOptions(o)
	h.ticks(t, 1)
	require.Equal(t, 1, h.engine.Cursor().Index)

	o.Interval = time.Second
	h.engine.SetOptions(o)
	h.ticks(t, 1)
	assert.Equal(t, 0, h.engine.Cursor().Index, "same keys keep their position")
	assert.Equal(t, []string{"a", "b"}, h.injector.keys)

	o.Keys = []Item{{Key: "x", Count: 1}, {Key: "y", Count: 1}}
	h.engine.SetOptions(o)
	h.ticks(t, 1)
	assert.Equal(t, "x", h.injector.keys[2])
}

func TestStartStop(t *testing.T) {
	h := newHarness(t, false)
	assert.NoError(t, h.engine.Stop(), "stopping an idle engine is a no-op")

	require.NoError(t, h.engine.Start(context.Background()))
	assert.ErrorIs(t, h.engine.Start(context.Background()), ErrAlreadyRunning)
	assert.True(t, h.engine.Running())

	require.NoError(t, h.engine.Stop())
	assert.False(t, h.engine.Running())

	require.NoError(t, h.engine.Start(context.Background()))
	require.NoError(t, h.engine.Stop())
}

func TestPanicInLoopStopsSession(t *testing.T) {
	h := newHarness(t, false)
	h.injector.panicOn = true

	require.NoError(t, h.engine.Start(context.Background()))
	h.waitStopped(t)
	assert.Equal(t, 1, h.listener.problemCount())
}

func TestResetCounter(t *testing.T) {
	h := newHarness(t, false)
	h.ticks(t, 3)
	h.engine.ResetCounter()
	assert.Zero(t, h.engine.Count())
	assert.Equal(t, uint64(0), h.listener.counts[len(h.listener.counts)-1])
}

func TestOptionsFromSettings(t *testing.T) {
	s := config.DefaultSettings()
	s.ClickMode = config.ModeImage
	s.ClickType = "middle"
	s.TurboMode = true
	s.Interval = 0.25
	s.SearchArea = &screen.Area{X1: 50, Y1: 50, X2: 0, Y2: 0}
	s.ImageSequence = []config.SequenceStep{
		{Type: config.StepCapture, Path: "t.png", Clicks: 3},
		{Type: config.StepKey, Key: "space", Presses: 2},
	}
	s.KeyboardSequence = []config.KeyStep{{Key: "a", Presses: 4}}
	s.SequencePoints = []config.PointStep{{X: 3, Y: 4, Clicks: 1}}

	o, err := OptionsFromSettings(s)
	require.NoError(t, err)
	assert.Equal(t, ModeImage, o.Mode)
	assert.Equal(t, input.ButtonMiddle, o.Button)
	assert.Equal(t, SpeedTurbo, o.Speed)
	assert.Equal(t, 250*time.Millisecond, o.Interval)
	assert.Equal(t, &screen.Area{X1: 0, Y1: 0, X2: 50, Y2: 50}, o.Area)
	assert.Equal(t, []Item{{Template: "t.png", Count: 3}, {Key: "space", Count: 2}}, o.Sequence)
	assert.Equal(t, []Item{{Key: "a", Count: 4}}, o.Keys)
	assert.Equal(t, []Point{{Point: image.Pt(3, 4), Count: 1}}, o.Points)
	assert.Equal(t, 0.8, o.Confidence)
	assert.Equal(t, 50, o.RecheckInterval)
}
