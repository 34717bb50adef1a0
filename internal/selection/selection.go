// Package selection implements the interactive pick flows: dragging out a
// search area, picking a point or a colour, and capturing a template.
package selection

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"time"

	"go.uber.org/zap"

	"omniclick/internal/hotkey"
	"omniclick/internal/screen"
	"omniclick/internal/vision"
)

// Selection errors
var (
	ErrCancelled = errors.New("selection cancelled")
	ErrTimeout   = errors.New("selection timed out")
	ErrEmptyArea = errors.New("selected area is empty")
)

// Timing defaults
const (
	DefaultTimeout = 60 * time.Second
	DefaultPoll    = 10 * time.Millisecond
)

// CancelKey aborts any running flow while held.
const CancelKey = "esc"

// Pointer reports the cursor position.
type Pointer interface {
	Position() image.Point
}

// Buttons reports held keys and mouse buttons, as hotkey.Manager does.
type Buttons interface {
	IsDown(key string) bool
}

// Selector runs one interactive flow at a time against the live screen.
type Selector struct {
	pointer Pointer
	buttons Buttons
	screen  screen.Capturer
	store   *vision.TemplateStore

	Timeout time.Duration
	Poll    time.Duration

	log *zap.Logger
}

// New creates a selector.
func New(p Pointer, b Buttons, c screen.Capturer, store *vision.TemplateStore) *Selector {
	return &Selector{
		pointer: p,
		buttons: b,
		screen:  c,
		store:   store,
		Timeout: DefaultTimeout,
		Poll:    DefaultPoll,
		log:     zap.L().Named("selection"),
	}
}

// SelectArea waits for a left-button drag and returns the covered area.
func (s *Selector) SelectArea(ctx context.Context) (screen.Area, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	s.log.Info("Selection: drag with the left mouse button to select an area, esc to cancel")
	from, to, err := s.drag(ctx)
	if err != nil {
		return screen.Area{}, err
	}
	a := screen.NewArea(from, to)
	if a.Empty() {
		return screen.Area{}, ErrEmptyArea
	}
	s.log.Info("Selection: area selected", zap.Stringer("area", a))
	return a, nil
}

// PickPoint waits for a left click and returns where it happened.
func (s *Selector) PickPoint(ctx context.Context) (image.Point, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	s.log.Info("Selection: click the target point, esc to cancel")
	p, _, err := s.drag(ctx)
	if err != nil {
		return image.Point{}, err
	}
	s.log.Info("Selection: point picked", zap.Int("x", p.X), zap.Int("y", p.Y))
	return p, nil
}

// PickColor waits for a left click and reads the pixel under it.
func (s *Selector) PickColor(ctx context.Context) (image.Point, color.RGBA, error) {
	p, err := s.PickPoint(ctx)
	if err != nil {
		return image.Point{}, color.RGBA{}, err
	}
	c, err := s.screen.PixelAt(p.X, p.Y)
	if err != nil {
		return p, color.RGBA{}, fmt.Errorf("read pixel: %w", err)
	}
	s.log.Info("Selection: colour picked", zap.String("color", screen.Hex(c)))
	return p, c, nil
}

// CaptureTemplate lets the user drag out an area and saves its pixels as a
// temporary template. It returns the saved path and the captured area.
func (s *Selector) CaptureTemplate(ctx context.Context) (string, screen.Area, error) {
	a, err := s.SelectArea(ctx)
	if err != nil {
		return "", screen.Area{}, err
	}
	if a.Width() < vision.MinTemplateSide || a.Height() < vision.MinTemplateSide {
		return "", a, fmt.Errorf("%w: %dx%d", vision.ErrTemplateTooSmall, a.Width(), a.Height())
	}
	frame, err := s.screen.Capture(&a)
	if err != nil {
		return "", a, fmt.Errorf("capture template: %w", err)
	}
	path, err := s.store.SaveTemp(frame.Img)
	if err != nil {
		return "", a, err
	}
	return path, a, nil
}

// drag returns the cursor position at left-button press and release.
func (s *Selector) drag(ctx context.Context) (from, to image.Point, err error) {
	// A click that opened this flow may still be held.
	if err = s.waitFor(ctx, func() bool { return !s.buttons.IsDown(hotkey.MouseLeft) }); err != nil {
		return
	}
	if err = s.waitFor(ctx, func() bool { return s.buttons.IsDown(hotkey.MouseLeft) }); err != nil {
		return
	}
	from = s.pointer.Position()
	if err = s.waitFor(ctx, func() bool { return !s.buttons.IsDown(hotkey.MouseLeft) }); err != nil {
		return
	}
	to = s.pointer.Position()
	return
}

func (s *Selector) waitFor(ctx context.Context, cond func() bool) error {
	t := time.NewTicker(s.Poll)
	defer t.Stop()
	for {
		if s.buttons.IsDown(CancelKey) {
			s.log.Info("Selection: cancelled")
			return ErrCancelled
		}
		if cond() {
			return nil
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				s.log.Info("Selection: timed out")
				return ErrTimeout
			}
			return ErrCancelled
		case <-t.C:
		}
	}
}
