package app

import (
	"sync/atomic"

	"go.uber.org/zap"
)

type eventKind int

const (
	evStatus eventKind = iota
	evProblem
	evReplaced
	evSelecting
	evNotice
)

type event struct {
	kind    eventKind
	running bool
	err     error
	path    string
	text    string
}

// Events is the queue between background goroutines and the app loop. It
// implements clicker.Listener without ever blocking the caller.
type Events struct {
	ch      chan event
	counted chan struct{}
	count   atomic.Uint64
	log     *zap.Logger
}

// NewEvents creates a queue holding up to buffer pending events.
func NewEvents(buffer int) *Events {
	return &Events{
		ch:      make(chan event, buffer),
		counted: make(chan struct{}, 1),
		log:     zap.L().Named("app"),
	}
}

// ClickPerformed records the latest count. Bursts collapse into one update.
func (e *Events) ClickPerformed(n uint64) {
	e.count.Store(n)
	select {
	case e.counted <- struct{}{}:
	default:
	}
}

func (e *Events) StatusChanged(running bool) {
	e.post(event{kind: evStatus, running: running})
}

func (e *Events) Problem(err error) {
	e.post(event{kind: evProblem, err: err})
}

func (e *Events) TemplateReplaced(path string) {
	e.post(event{kind: evReplaced, path: path})
}

func (e *Events) post(ev event) {
	select {
	case e.ch <- ev:
	default:
		e.log.Warn("App: event queue full, dropping event", zap.Int("kind", int(ev.kind)))
	}
}
