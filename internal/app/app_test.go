package app

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omniclick/internal/activity"
	"omniclick/internal/clicker"
	"omniclick/internal/config"
	"omniclick/internal/hotkey"
	"omniclick/internal/screen"
	"omniclick/internal/selection"
	"omniclick/internal/vision"
)

const wait = 2 * time.Second

type fakeEngine struct {
	mu        sync.Mutex
	events    *Events
	running   bool
	starts    int
	stops     int
	forced    int
	resets    int
	opts      clicker.Options
	selecting bool
	activity  []activity.Event
}

func (f *fakeEngine) Start(context.Context) error {
	f.mu.Lock()
	if f.running {
		f.mu.Unlock()
		return clicker.ErrAlreadyRunning
	}
	f.running = true
	f.starts++
	f.mu.Unlock()
	f.events.StatusChanged(true)
	return nil
}

func (f *fakeEngine) Stop() error {
	f.mu.Lock()
	was := f.running
	f.running = false
	f.stops++
	f.mu.Unlock()
	if was {
		f.events.StatusChanged(false)
	}
	return nil
}

func (f *fakeEngine) ForceStop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forced++
	f.running = false
}

func (f *fakeEngine) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func (f *fakeEngine) Count() uint64 { return 0 }

func (f *fakeEngine) ResetCounter() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
}

func (f *fakeEngine) SetOptions(o clicker.Options) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opts = o
}

func (f *fakeEngine) SetSelecting(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selecting = on
}

func (f *fakeEngine) NotifyActivity(ev activity.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activity = append(f.activity, ev)
}

type engineState struct {
	running   bool
	starts    int
	stops     int
	forced    int
	resets    int
	opts      clicker.Options
	selecting bool
}

func (f *fakeEngine) snapshot() engineState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return engineState{
		running: f.running, starts: f.starts, stops: f.stops, forced: f.forced,
		resets: f.resets, opts: f.opts, selecting: f.selecting,
	}
}

type fakeSelector struct {
	area  screen.Area
	point image.Point
	color color.RGBA
	path  string
	err   error
	// gate holds every flow until closed
	gate chan struct{}
}

func (f *fakeSelector) wait(ctx context.Context) error {
	if f.gate == nil {
		return f.err
	}
	select {
	case <-f.gate:
		return f.err
	case <-ctx.Done():
		return selection.ErrCancelled
	}
}

func (f *fakeSelector) SelectArea(ctx context.Context) (screen.Area, error) {
	return f.area, f.wait(ctx)
}

func (f *fakeSelector) PickPoint(ctx context.Context) (image.Point, error) {
	return f.point, f.wait(ctx)
}

func (f *fakeSelector) PickColor(ctx context.Context) (image.Point, color.RGBA, error) {
	return f.point, f.color, f.wait(ctx)
}

func (f *fakeSelector) CaptureTemplate(ctx context.Context) (string, screen.Area, error) {
	return f.path, f.area, f.wait(ctx)
}

type recorder struct {
	mu     sync.Mutex
	states []State
}

func (r *recorder) view(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) last() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 {
		return State{}
	}
	return r.states[len(r.states)-1]
}

func (r *recorder) sawNotice(sub string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.states {
		if strings.Contains(s.Notice, sub) {
			return true
		}
	}
	return false
}

type fixture struct {
	app      *App
	engine   *fakeEngine
	selector *fakeSelector
	cfg      *config.Manager
	hotkeys  *hotkey.Manager
	store    *vision.TemplateStore
	views    *recorder
	cancel   context.CancelFunc
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	events := NewEvents(64)
	f := &fixture{
		engine:   &fakeEngine{events: events},
		selector: &fakeSelector{},
		cfg:      config.NewManagerAt(filepath.Join(dir, config.FileName)),
		hotkeys:  hotkey.NewManager(),
		store:    vision.NewTemplateStore(filepath.Join(dir, "templates")),
		views:    &recorder{},
	}
	f.app = New(Deps{
		Config:   f.cfg,
		Engine:   f.engine,
		Events:   events,
		Hotkeys:  f.hotkeys,
		Selector: f.selector,
		Store:    f.store,
	})
	f.app.OnState(f.views.view)
	return f
}

func (f *fixture) run(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	go func() { _ = f.app.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-f.app.Done():
		case <-time.After(wait):
			t.Error("app did not shut down")
		}
	})
}

func (f *fixture) press(key string) {
	f.hotkeys.UpdateState(key, true)
	f.hotkeys.UpdateState(key, false)
}

func TestNewAppliesSettings(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, clicker.ModeNormal, f.engine.snapshot().opts.Mode)
	assert.Equal(t, []string{"f6"}, f.hotkeys.Bindings(hotkey.ActionStart))
	assert.Equal(t, []string{"f7"}, f.hotkeys.Bindings(hotkey.ActionStop))
	assert.Equal(t, []string{"ctrl+alt+x", "f12"}, f.hotkeys.Bindings(hotkey.ActionEmergency))
}

func TestSettingsChangeReachesEngineAndHotkeys(t *testing.T) {
	f := newFixture(t)
	f.run(t)

	require.NoError(t, f.cfg.Update(func(s *config.Settings) error {
		s.ClickMode = config.ModeColor
		s.HotkeyStart = "f8"
		return nil
	}))

	require.Eventually(t, func() bool {
		return f.engine.snapshot().opts.Mode == clicker.ModeColor
	}, wait, time.Millisecond)
	assert.Eventually(t, func() bool {
		return len(f.hotkeys.Bindings(hotkey.ActionStart)) == 1 && f.hotkeys.Bindings(hotkey.ActionStart)[0] == "f8"
	}, wait, time.Millisecond)
	assert.Eventually(t, func() bool { return f.views.last().Mode == config.ModeColor }, wait, time.Millisecond)
}

func TestInvalidHotkeyRejected(t *testing.T) {
	f := newFixture(t)
	f.run(t)

	err := f.app.Update(func(s *config.Settings) error {
		s.HotkeyStart = "ctrl+alt+delete"
		return nil
	})
	require.ErrorIs(t, err, hotkey.ErrReservedCombo)
	assert.Equal(t, "f6", f.cfg.Get().HotkeyStart)
	assert.Equal(t, []string{"f6"}, f.hotkeys.Bindings(hotkey.ActionStart))
	assert.Eventually(t, func() bool { return f.views.sawNotice("Settings rejected") }, wait, time.Millisecond)
}

func TestBindFailureStillShowsAppliedSettings(t *testing.T) {
	f := newFixture(t)

	s := f.cfg.Get()
	s.ClickMode = config.ModeColor
	s.HotkeyStop = "hyper+q"
	f.app.applySettings(s)

	last := f.views.last()
	assert.Equal(t, config.ModeColor, last.Mode)
	assert.Contains(t, last.Notice, "Hotkeys not updated")
	assert.Equal(t, clicker.ModeColor, f.engine.snapshot().opts.Mode)
	assert.Equal(t, []string{"f7"}, f.hotkeys.Bindings(hotkey.ActionStop))
}

func TestStartAndStopHotkeys(t *testing.T) {
	f := newFixture(t)
	f.run(t)

	f.press("F6")
	require.Eventually(t, func() bool { return f.engine.snapshot().running }, wait, time.Millisecond)
	assert.Eventually(t, func() bool { return f.views.last().Running }, wait, time.Millisecond)

	f.press("F7")
	require.Eventually(t, func() bool { return !f.engine.snapshot().running }, wait, time.Millisecond)
	assert.Eventually(t, func() bool { return !f.views.last().Running }, wait, time.Millisecond)
}

func TestSelectAreaFlowIsExclusive(t *testing.T) {
	f := newFixture(t)
	f.selector.area = screen.Area{X1: 10, Y1: 20, X2: 110, Y2: 220}
	f.selector.gate = make(chan struct{})
	f.run(t)

	f.app.Do(CmdStart)
	require.Eventually(t, func() bool { return f.engine.snapshot().running }, wait, time.Millisecond)

	f.app.Do(CmdSelectArea)
	require.Eventually(t, func() bool {
		s := f.engine.snapshot()
		return s.selecting && !s.running && f.hotkeys.Disabled()
	}, wait, time.Millisecond)
	assert.Eventually(t, func() bool { return f.views.last().Selecting }, wait, time.Millisecond)

	f.press("F6")
	f.app.Do(CmdStart)
	f.app.Do(CmdPickColor)
	require.Eventually(t, func() bool { return f.views.sawNotice("Another selection") }, wait, time.Millisecond)
	assert.True(t, f.views.sawNotice("Finish the selection"))
	assert.Equal(t, 1, f.engine.snapshot().starts)

	close(f.selector.gate)
	require.Eventually(t, func() bool { return f.views.sawNotice("Search area set to") }, wait, time.Millisecond)

	s := f.engine.snapshot()
	assert.False(t, s.selecting)
	assert.False(t, s.running, "clicking is not resumed after a selection")
	assert.False(t, f.hotkeys.Disabled())
	require.NotNil(t, f.cfg.Get().SearchArea)
	assert.Equal(t, f.selector.area, *f.cfg.Get().SearchArea)
	assert.Eventually(t, func() bool {
		return screen.Equal(f.engine.snapshot().opts.Area, &f.selector.area)
	}, wait, time.Millisecond)
}

func TestCancelledFlowLeavesSettings(t *testing.T) {
	f := newFixture(t)
	f.selector.err = selection.ErrCancelled
	f.run(t)

	f.app.Do(CmdSelectArea)
	require.Eventually(t, func() bool { return f.views.sawNotice("Selection cancelled") }, wait, time.Millisecond)
	assert.Nil(t, f.cfg.Get().SearchArea)
	assert.Eventually(t, func() bool { return !f.hotkeys.Disabled() }, wait, time.Millisecond)
}

func TestPickColorFlow(t *testing.T) {
	f := newFixture(t)
	f.selector.point = image.Pt(3, 4)
	f.selector.color = color.RGBA{R: 10, G: 20, B: 30, A: 255}
	f.run(t)

	f.app.Do(CmdPickColor)
	require.Eventually(t, func() bool { return f.cfg.Get().TargetColor == "#0A141E" }, wait, time.Millisecond)
	assert.Eventually(t, func() bool { return f.views.sawNotice("Target color #0A141E") }, wait, time.Millisecond)
}

func TestSequenceFlowsAppend(t *testing.T) {
	f := newFixture(t)
	f.selector.point = image.Pt(5, 6)
	f.selector.path = "capture.png"
	f.run(t)

	f.app.Do(CmdAddPoint)
	require.Eventually(t, func() bool { return len(f.cfg.Get().SequencePoints) == 1 }, wait, time.Millisecond)
	f.app.Do(CmdAddSequenceCapture)
	require.Eventually(t, func() bool { return len(f.cfg.Get().ImageSequence) == 1 }, wait, time.Millisecond)

	s := f.cfg.Get()
	assert.Equal(t, config.PointStep{X: 5, Y: 6, Clicks: 1}, s.SequencePoints[0])
	assert.Equal(t, config.SequenceStep{Type: config.StepCapture, Path: "capture.png", Clicks: 1}, s.ImageSequence[0])

	f.app.Do(CmdClearPoints)
	f.app.Do(CmdClearSequence)
	require.Eventually(t, func() bool {
		s := f.cfg.Get()
		return len(s.SequencePoints) == 0 && len(s.ImageSequence) == 0
	}, wait, time.Millisecond)
}

func TestTemplateReplacedUpdatesSettings(t *testing.T) {
	f := newFixture(t)
	f.run(t)

	f.app.events.TemplateReplaced("temp_template_0badcafe.png")
	require.Eventually(t, func() bool {
		return f.cfg.Get().TemplateImage == "temp_template_0badcafe.png"
	}, wait, time.Millisecond)
}

func TestClickBurstsCollapse(t *testing.T) {
	f := newFixture(t)
	f.run(t)

	for i := uint64(1); i <= 100; i++ {
		f.app.events.ClickPerformed(i)
	}
	assert.Eventually(t, func() bool { return f.views.last().Count == 100 }, wait, time.Millisecond)
}

func TestResetCounter(t *testing.T) {
	f := newFixture(t)
	f.run(t)

	f.app.Do(CmdResetCounter)
	assert.Eventually(t, func() bool { return f.engine.snapshot().resets == 1 }, wait, time.Millisecond)
}

func TestQuitSavesChangesAndRemovesTemplates(t *testing.T) {
	f := newFixture(t)
	f.run(t)

	tmp, err := f.store.SaveTemp(image.NewRGBA(image.Rect(0, 0, 8, 8)))
	require.NoError(t, err)
	require.NoError(t, f.app.Update(func(s *config.Settings) error {
		s.ColorTolerance = 25
		return nil
	}))

	f.app.Do(CmdQuit)
	select {
	case <-f.app.Done():
	case <-time.After(wait):
		t.Fatal("app did not quit")
	}

	_, err = os.Stat(tmp)
	assert.True(t, os.IsNotExist(err))

	saved := config.NewManagerAt(f.cfg.Path())
	require.NoError(t, saved.Load())
	assert.Equal(t, 25, saved.Get().ColorTolerance)
}

func TestQuitWithoutChangesLeavesNoFile(t *testing.T) {
	f := newFixture(t)
	f.run(t)

	f.app.Quit()
	<-f.app.Done()
	_, err := os.Stat(f.cfg.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestUpdateRejectsInvalidSettings(t *testing.T) {
	f := newFixture(t)
	f.run(t)

	err := f.app.Update(func(s *config.Settings) error {
		s.Interval = 10
		return nil
	})
	require.ErrorIs(t, err, config.ErrInvalidInterval)
	assert.Eventually(t, func() bool { return f.views.sawNotice("Settings rejected") }, wait, time.Millisecond)
}

func TestEmergencyHotkeyShutsDown(t *testing.T) {
	f := newFixture(t)
	f.run(t)

	f.app.Do(CmdStart)
	require.Eventually(t, func() bool { return f.engine.snapshot().running }, wait, time.Millisecond)

	f.hotkeys.UpdateState("F12", true)
	select {
	case <-f.app.Done():
	case <-time.After(wait):
		t.Fatal("emergency stop did not shut the app down")
	}
	assert.True(t, f.app.Stopper().Triggered())
	assert.GreaterOrEqual(t, f.engine.snapshot().forced, 1)
	assert.False(t, f.engine.snapshot().running)
}

func TestStateText(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{State{Mode: config.ModeNormal}, "Stopped: 0 clicks"},
		{State{Mode: config.ModeColor, Running: true, Count: 7}, "Color search: 7 clicks"},
		{State{Mode: config.ModeImage, Sequence: true, Running: true, Extreme: true}, "Template sequence (extreme): 0 clicks"},
		{State{Mode: config.ModeKeyboard, Running: true, Turbo: true, Count: 2}, "Key presses (turbo): 2 clicks"},
		{State{Selecting: true, Running: true}, "Selecting on screen, esc to cancel"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.state.Status())
	}
	assert.Equal(t, "whole screen", State{}.AreaText())
}
