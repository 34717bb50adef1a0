// Package platform reports which optional features the host supports.
package platform

import (
	"runtime"

	"go.uber.org/zap"

	"omniclick/internal/activity"
	"omniclick/internal/input"
	"omniclick/internal/vision"
)

// Capabilities lists the optional features available on this host.
type Capabilities struct {
	OS string
	// ExtremeClick means merged down/up clicks can be injected
	ExtremeClick bool
	// ForegroundWindow means window changes can be observed
	ForegroundWindow bool
	// Display means a desktop session is reachable for capture and input
	Display bool
	// CorrelationMatcher means template matching tolerates small differences
	CorrelationMatcher bool
	Admin              bool
}

// Probes are the constructors Detect tries. Tests replace them.
type Probes struct {
	FastClicker func() (input.FastClicker, error)
	Foreground  func() (activity.ForegroundTracker, error)
	Matcher     func() vision.Matcher
	Display     func() bool
	Admin       func() bool
}

// DefaultProbes uses the real platform constructors.
func DefaultProbes() Probes {
	return Probes{
		FastClicker: input.NewFastClicker,
		Foreground:  activity.NewForegroundTracker,
		Matcher:     vision.NewMatcher,
		Display:     hasDisplay,
		Admin:       IsAdmin,
	}
}

// Host is the detected capabilities plus the working implementations.
type Host struct {
	Capabilities
	Fast       input.FastClicker
	Foreground activity.ForegroundTracker
	Matcher    vision.Matcher
}

// Detect probes the host once. Missing features are logged and left nil.
func Detect(p Probes) Host {
	log := zap.L().Named("platform")
	h := Host{Capabilities: Capabilities{OS: runtime.GOOS}}

	if fc, err := p.FastClicker(); err == nil {
		h.Fast, h.ExtremeClick = fc, true
	} else {
		log.Info("Platform: extreme click mode unavailable", zap.Error(err))
	}
	if fg, err := p.Foreground(); err == nil {
		h.Foreground, h.ForegroundWindow = fg, true
	} else {
		log.Info("Platform: foreground window tracking unavailable", zap.Error(err))
	}
	h.Matcher = p.Matcher()
	h.CorrelationMatcher = h.Matcher.Correlation()
	h.Display = p.Display()
	h.Admin = p.Admin()

	if !h.Display {
		log.Warn("Platform: no desktop session detected, capture and input will fail")
	}
	log.Info("Platform: capabilities detected",
		zap.String("os", h.OS),
		zap.Bool("extreme_click", h.ExtremeClick),
		zap.Bool("foreground_window", h.ForegroundWindow),
		zap.Bool("correlation_matcher", h.CorrelationMatcher),
		zap.Bool("admin", h.Admin))
	return h
}
