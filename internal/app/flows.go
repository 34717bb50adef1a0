package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"omniclick/internal/config"
	"omniclick/internal/screen"
	"omniclick/internal/selection"
)

// runFlow starts an interactive flow unless one is already active. Clicking
// stops first and start/stop hotkeys stay disabled until the flow ends.
// Clicking is not resumed afterwards.
func (a *App) runFlow(ctx context.Context, cmd Command, flow func(context.Context) (string, error)) {
	if !a.flowBusy.CompareAndSwap(false, true) {
		a.notice("Another selection is already in progress")
		return
	}

	go func() {
		text := a.exclusive(ctx, cmd, flow)
		a.flowBusy.Store(false)
		a.events.post(event{kind: evNotice, text: text})
	}()
}

func (a *App) exclusive(ctx context.Context, cmd Command, flow func(context.Context) (string, error)) string {
	if err := a.engine.Stop(); err != nil {
		a.log.Error("App: engine did not stop before selection", zap.Error(err))
		a.engine.ForceStop()
	}
	a.hotkeys.SetDisabled(true)
	a.engine.SetSelecting(true)
	a.events.post(event{kind: evSelecting, running: true})
	defer func() {
		a.engine.SetSelecting(false)
		a.hotkeys.SetDisabled(false)
		a.events.post(event{kind: evSelecting, running: false})
	}()

	a.log.Info("App: selection started", zap.Stringer("flow", cmd))
	text, err := flow(ctx)
	switch {
	case errors.Is(err, selection.ErrCancelled):
		return "Selection cancelled"
	case errors.Is(err, selection.ErrTimeout):
		return "Selection timed out"
	case err != nil:
		return fmt.Sprintf("%s failed: %v", cmd, err)
	}
	return text
}

func (a *App) selectArea(ctx context.Context) (string, error) {
	area, err := a.selector.SelectArea(ctx)
	if err != nil {
		return "", err
	}
	err = a.cfg.Update(func(s *config.Settings) error {
		s.SearchArea = &area
		return nil
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Search area set to %s", area), nil
}

func (a *App) pickColor(ctx context.Context) (string, error) {
	p, c, err := a.selector.PickColor(ctx)
	if err != nil {
		return "", err
	}
	hex := screen.Hex(c)
	err = a.cfg.Update(func(s *config.Settings) error {
		s.TargetColor = hex
		return nil
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Target color %s picked at %d,%d", hex, p.X, p.Y), nil
}

func (a *App) captureTemplate(ctx context.Context) (string, error) {
	path, area, err := a.selector.CaptureTemplate(ctx)
	if err != nil {
		return "", err
	}
	err = a.cfg.Update(func(s *config.Settings) error {
		s.TemplateImage = path
		return nil
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Template captured from %s", area), nil
}

func (a *App) addSequenceCapture(ctx context.Context) (string, error) {
	path, _, err := a.selector.CaptureTemplate(ctx)
	if err != nil {
		return "", err
	}
	var n int
	err = a.cfg.Update(func(s *config.Settings) error {
		s.ImageSequence = append(s.ImageSequence, config.SequenceStep{
			Type:   config.StepCapture,
			Path:   path,
			Clicks: 1,
		})
		n = len(s.ImageSequence)
		return nil
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Template %d added to the sequence", n), nil
}

func (a *App) addPoint(ctx context.Context) (string, error) {
	p, err := a.selector.PickPoint(ctx)
	if err != nil {
		return "", err
	}
	var n int
	err = a.cfg.Update(func(s *config.Settings) error {
		s.SequencePoints = append(s.SequencePoints, config.PointStep{X: p.X, Y: p.Y, Clicks: 1})
		n = len(s.SequencePoints)
		return nil
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Point %d added at %d,%d", n, p.X, p.Y), nil
}
