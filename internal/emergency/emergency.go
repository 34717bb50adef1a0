// Package emergency implements the last-resort stop path.
package emergency

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// DefaultGrace is how long graceful shutdown may take before the process is killed.
const DefaultGrace = time.Second

// Stopper force-stops clicking, then races graceful shutdown against a hard exit.
type Stopper struct {
	forceStop func()
	graceful  func() error
	grace     time.Duration
	exit      func(int)

	once      sync.Once
	triggered atomic.Bool
	log       *zap.Logger
}

// NewStopper creates a stopper. forceStop must not block; graceful may.
func NewStopper(forceStop func(), graceful func() error) *Stopper {
	return &Stopper{
		forceStop: forceStop,
		graceful:  graceful,
		grace:     DefaultGrace,
		exit:      os.Exit,
		log:       zap.L().Named("emergency"),
	}
}

// SetGrace changes the graceful shutdown budget.
func (s *Stopper) SetGrace(d time.Duration) {
	s.grace = d
}

// Triggered reports whether Trigger has run.
func (s *Stopper) Triggered() bool {
	return s.triggered.Load()
}

// Trigger runs the stop sequence once; later calls are no-ops.
func (s *Stopper) Trigger() {
	s.once.Do(func() {
		s.triggered.Store(true)
		s.log.Warn("Emergency: stop triggered")

		s.safely("force stop", func() error {
			s.forceStop()
			return nil
		})

		done := make(chan struct{})
		go func() {
			defer close(done)
			s.safely("graceful shutdown", s.graceful)
		}()

		select {
		case <-done:
			s.log.Info("Emergency: graceful shutdown finished")
		case <-time.After(s.grace):
			s.log.Error("Emergency: graceful shutdown timed out, exiting", zap.Duration("grace", s.grace))
			_ = s.log.Sync()
			s.exit(1)
		}
	})
}

func (s *Stopper) safely(step string, fn func() error) {
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Emergency: step panicked", zap.String("step", step), zap.Error(fmt.Errorf("%v", r)))
		}
	}()
	if err := fn(); err != nil {
		s.log.Error("Emergency: step failed", zap.String("step", step), zap.Error(err))
	}
}
