// Package app ties the click engine, hotkeys, selection flows and settings
// together behind a single event loop that owns the visible State.
package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"omniclick/internal/activity"
	"omniclick/internal/clicker"
	"omniclick/internal/config"
	"omniclick/internal/emergency"
	"omniclick/internal/hotkey"
	"omniclick/internal/screen"
	"omniclick/internal/vision"
)

// Loop timing
const (
	hotkeyDebounce = 500 * time.Millisecond
	renderEvery    = 100 * time.Millisecond
)

// Command is a user request from the tray or a hotkey.
type Command int

const (
	CmdStart Command = iota
	CmdStop
	CmdToggle
	CmdSelectArea
	CmdClearArea
	CmdPickColor
	CmdCaptureTemplate
	CmdAddSequenceCapture
	CmdClearSequence
	CmdAddPoint
	CmdClearPoints
	CmdResetCounter
	CmdSaveSettings
	CmdReloadSettings
	CmdQuit
)

var commandNames = map[Command]string{
	CmdStart:              "start",
	CmdStop:               "stop",
	CmdToggle:             "toggle",
	CmdSelectArea:         "select area",
	CmdClearArea:          "clear area",
	CmdPickColor:          "pick color",
	CmdCaptureTemplate:    "capture template",
	CmdAddSequenceCapture: "add sequence capture",
	CmdClearSequence:      "clear sequence",
	CmdAddPoint:           "add point",
	CmdClearPoints:        "clear points",
	CmdResetCounter:       "reset counter",
	CmdSaveSettings:       "save settings",
	CmdReloadSettings:     "reload settings",
	CmdQuit:               "quit",
}

func (c Command) String() string {
	if n, ok := commandNames[c]; ok {
		return n
	}
	return fmt.Sprintf("command(%d)", int(c))
}

// Engine is the part of clicker.Engine the app drives.
type Engine interface {
	Start(ctx context.Context) error
	Stop() error
	ForceStop()
	Running() bool
	Count() uint64
	ResetCounter()
	SetOptions(o clicker.Options)
	SetSelecting(on bool)
	NotifyActivity(ev activity.Event)
}

// Selector runs the interactive pick flows.
type Selector interface {
	SelectArea(ctx context.Context) (screen.Area, error)
	PickPoint(ctx context.Context) (image.Point, error)
	PickColor(ctx context.Context) (image.Point, color.RGBA, error)
	CaptureTemplate(ctx context.Context) (string, screen.Area, error)
}

// Deps are the collaborators of an App. Monitor is optional.
type Deps struct {
	Config   *config.Manager
	Engine   Engine
	Events   *Events
	Hotkeys  *hotkey.Manager
	Selector Selector
	Monitor  *activity.Monitor
	Store    *vision.TemplateStore
}

// App is the application controller.
type App struct {
	cfg      *config.Manager
	engine   Engine
	events   *Events
	hotkeys  *hotkey.Manager
	selector Selector
	monitor  *activity.Monitor
	store    *vision.TemplateStore
	stopper  *emergency.Stopper

	commands chan Command
	dirty    chan struct{}
	modified atomic.Bool
	flowBusy atomic.Bool

	// owned by the loop goroutine
	state      State
	views      []func(State)
	needRender bool

	debounceMu sync.Mutex
	lastHotkey map[hotkey.Action]time.Time

	quit     chan struct{}
	quitOnce sync.Once
	finished chan struct{}
	closing  sync.Once

	log *zap.Logger
}

// New wires the collaborators together. Call Run to start the loop.
func New(d Deps) *App {
	a := &App{
		cfg:        d.Config,
		engine:     d.Engine,
		events:     d.Events,
		hotkeys:    d.Hotkeys,
		selector:   d.Selector,
		monitor:    d.Monitor,
		store:      d.Store,
		commands:   make(chan Command, 16),
		dirty:      make(chan struct{}, 1),
		lastHotkey: make(map[hotkey.Action]time.Time),
		quit:       make(chan struct{}),
		finished:   make(chan struct{}),
		log:        zap.L().Named("app"),
	}
	if a.events == nil {
		a.events = NewEvents(64)
	}

	a.stopper = emergency.NewStopper(a.engine.ForceStop, a.emergencyShutdown)

	a.hotkeys.Handle(hotkey.ActionStart, a.onHotkey(hotkey.ActionStart, CmdStart))
	a.hotkeys.Handle(hotkey.ActionStop, a.onHotkey(hotkey.ActionStop, CmdStop))
	a.hotkeys.Handle(hotkey.ActionEmergency, a.stopper.Trigger)

	a.cfg.RegisterChangeCallback(func(config.Settings) {
		a.modified.Store(true)
		select {
		case a.dirty <- struct{}{}:
		default:
		}
	})

	if a.monitor != nil {
		a.monitor.OnActivity(a.engine.NotifyActivity)
		a.monitor.OnIdle(func(d time.Duration) {
			a.log.Debug("App: user idle", zap.Duration("for", d))
		})
	}

	a.applySettings(a.cfg.Get())
	return a
}

// OnState registers a view that is called from the loop on every change.
// Register views before Run.
func (a *App) OnState(fn func(State)) {
	a.views = append(a.views, fn)
}

// Stopper returns the emergency stop path.
func (a *App) Stopper() *emergency.Stopper {
	return a.stopper
}

// Do queues a command. It never blocks once the app is quitting.
func (a *App) Do(cmd Command) {
	if cmd == CmdQuit {
		a.Quit()
		return
	}
	select {
	case a.commands <- cmd:
	case <-a.quit:
	}
}

// Quit asks Run to return.
func (a *App) Quit() {
	a.quitOnce.Do(func() {
		a.log.Info("App: quit requested")
		close(a.quit)
	})
}

// Done is closed once Run has finished shutting down.
func (a *App) Done() <-chan struct{} {
	return a.finished
}

// Run processes events until ctx is cancelled or Quit is called, then stops
// the engine, saves modified settings and removes temporary templates.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.loop(gctx)
	})
	if a.monitor != nil {
		g.Go(func() error {
			err := a.monitor.Run(gctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}
	g.Go(func() error {
		select {
		case <-a.quit:
			cancel()
		case <-gctx.Done():
		}
		return nil
	})

	err := g.Wait()
	a.shutdown()
	return err
}

func (a *App) loop(ctx context.Context) error {
	a.log.Info("App: event loop started")
	a.render()

	ticker := time.NewTicker(renderEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd := <-a.commands:
			a.exec(ctx, cmd)
		case ev := <-a.events.ch:
			a.handle(ev)
		case <-a.events.counted:
			a.state.Count = a.events.count.Load()
			a.needRender = true
		case <-a.dirty:
			a.applySettings(a.cfg.Get())
		case <-ticker.C:
			if a.needRender {
				a.render()
			}
		}
	}
}

func (a *App) render() {
	a.needRender = false
	for _, fn := range a.views {
		fn(a.state)
	}
}

func (a *App) notice(format string, args ...any) {
	a.state.Notice = fmt.Sprintf(format, args...)
	a.log.Info("App: " + a.state.Notice)
	a.render()
}

func (a *App) handle(ev event) {
	switch ev.kind {
	case evStatus:
		a.state.Running = ev.running
		a.state.Count = a.engine.Count()
		a.render()
	case evProblem:
		a.notice("%v", ev.err)
	case evReplaced:
		err := a.cfg.Update(func(s *config.Settings) error {
			s.TemplateImage = ev.path
			return nil
		})
		if err != nil {
			a.notice("Could not switch template: %v", err)
			return
		}
		a.notice("Template larger than the search area, using capture %s", ev.path)
	case evSelecting:
		a.state.Selecting = ev.running
		a.render()
	case evNotice:
		a.notice("%s", ev.text)
	}
}

func (a *App) exec(ctx context.Context, cmd Command) {
	a.log.Debug("App: command", zap.Stringer("command", cmd))
	switch cmd {
	case CmdStart:
		a.start(ctx)
	case CmdStop:
		a.stop()
	case CmdToggle:
		if a.engine.Running() {
			a.stop()
		} else {
			a.start(ctx)
		}
	case CmdSelectArea:
		a.runFlow(ctx, cmd, a.selectArea)
	case CmdPickColor:
		a.runFlow(ctx, cmd, a.pickColor)
	case CmdCaptureTemplate:
		a.runFlow(ctx, cmd, a.captureTemplate)
	case CmdAddSequenceCapture:
		a.runFlow(ctx, cmd, a.addSequenceCapture)
	case CmdAddPoint:
		a.runFlow(ctx, cmd, a.addPoint)
	case CmdClearArea:
		a.update("Search area cleared", func(s *config.Settings) error {
			s.SearchArea = nil
			return nil
		})
	case CmdClearSequence:
		a.update("Template sequence cleared", func(s *config.Settings) error {
			s.ImageSequence = nil
			return nil
		})
	case CmdClearPoints:
		a.update("Point sequence cleared", func(s *config.Settings) error {
			s.SequencePoints = nil
			return nil
		})
	case CmdResetCounter:
		a.engine.ResetCounter()
	case CmdSaveSettings:
		if err := a.cfg.Save(); err != nil {
			a.notice("Could not save settings: %v", err)
			return
		}
		a.modified.Store(false)
		a.notice("Settings saved")
	case CmdReloadSettings:
		if err := a.cfg.Load(); err != nil {
			a.notice("Could not load settings: %v", err)
			return
		}
		a.modified.Store(false)
		a.notice("Settings reloaded")
	case CmdQuit:
		a.Quit()
	}
}

func (a *App) start(ctx context.Context) {
	if a.flowBusy.Load() {
		a.notice("Finish the selection before starting")
		return
	}
	err := a.engine.Start(ctx)
	if errors.Is(err, clicker.ErrAlreadyRunning) {
		return
	}
	if err != nil {
		a.notice("Could not start: %v", err)
	}
}

func (a *App) stop() {
	if err := a.engine.Stop(); err != nil {
		a.log.Error("App: stop failed, forcing", zap.Error(err))
		a.engine.ForceStop()
	}
}

// update changes settings from inside the loop and reports the outcome.
func (a *App) update(done string, fn func(*config.Settings) error) {
	if err := a.cfg.Update(fn); err != nil {
		a.notice("Settings rejected: %v", err)
		return
	}
	a.notice("%s", done)
}

// Update changes settings from any goroutine. Invalid values are rejected
// and reported as a notice.
func (a *App) Update(fn func(*config.Settings) error) error {
	err := a.cfg.Update(fn)
	if err != nil {
		a.events.post(event{kind: evNotice, text: fmt.Sprintf("Settings rejected: %v", err)})
	}
	return err
}

// applySettings pushes settings into the engine and the hotkey bindings.
func (a *App) applySettings(s config.Settings) {
	a.state.fromSettings(s)

	opts, err := clicker.OptionsFromSettings(s)
	if err != nil {
		a.notice("Settings not applied: %v", err)
		return
	}
	a.engine.SetOptions(opts)

	var errs []error
	errs = append(errs, a.hotkeys.Bind(hotkey.ActionStart, s.HotkeyStart))
	errs = append(errs, a.hotkeys.Bind(hotkey.ActionStop, s.HotkeyStop))
	errs = append(errs, a.hotkeys.Bind(hotkey.ActionEmergency, s.EmergencyHotkeys...))
	if err := errors.Join(errs...); err != nil {
		a.notice("Hotkeys not updated: %v", err)
		return
	}
	a.render()
}

func (a *App) onHotkey(action hotkey.Action, cmd Command) func() {
	return func() {
		a.debounceMu.Lock()
		if time.Since(a.lastHotkey[action]) < hotkeyDebounce {
			a.debounceMu.Unlock()
			return
		}
		a.lastHotkey[action] = time.Now()
		a.debounceMu.Unlock()
		a.Do(cmd)
	}
}

// shutdown stops everything Run started. It runs once.
func (a *App) shutdown() {
	a.closing.Do(func() {
		defer close(a.finished)

		if err := a.engine.Stop(); err != nil {
			a.log.Error("App: engine did not stop", zap.Error(err))
			a.engine.ForceStop()
		}
		if a.modified.Load() {
			if err := a.cfg.Save(); err != nil {
				a.log.Error("App: failed to save settings", zap.Error(err))
			}
		}
		if a.store != nil {
			n, err := a.store.Cleanup()
			if err != nil {
				a.log.Warn("App: template cleanup incomplete", zap.Error(err))
			}
			a.log.Info("App: shut down", zap.Int("templates_removed", n))
		}
	})
}

func (a *App) emergencyShutdown() error {
	a.Quit()
	<-a.finished
	return nil
}
