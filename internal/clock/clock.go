// Package clock supplies the current time to the banking core. Services never
// call time.Now directly; they receive a Clock so interest runs can be driven
// by simulated time.
package clock

import (
	"errors"
	"sync"
	"time"
)

// ErrSimulationDisabled is returned when advancing a simulator that is
// following the system clock.
var ErrSimulationDisabled = errors.New("time simulation is not enabled")

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// System returns the real wall clock in UTC.
type System struct{}

// Now returns the current system time.
func (System) Now() time.Time {
	return time.Now().UTC()
}

// Fixed always returns the same instant.
type Fixed struct {
	T time.Time
}

// Now returns the fixed time.
func (f Fixed) Now() time.Time {
	return f.T
}

// Simulator follows the system clock until simulation is enabled, after which
// it returns a manually controlled instant.
type Simulator struct {
	mu        sync.RWMutex
	base      Clock
	enabled   bool
	simulated time.Time
}

// NewSimulator wraps base (System when nil) with a controllable override.
func NewSimulator(base Clock) *Simulator {
	if base == nil {
		base = System{}
	}
	return &Simulator{base: base}
}

// Now returns the simulated instant when enabled, otherwise the base clock.
func (s *Simulator) Now() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.enabled {
		return s.simulated
	}
	return s.base.Now()
}

// Enable switches to simulated time starting at t.
func (s *Simulator) Enable(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = true
	s.simulated = t.UTC()
}

// Disable returns to the base clock.
func (s *Simulator) Disable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = false
}

// Advance moves simulated time forward by whole days.
func (s *Simulator) Advance(days int) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled {
		return time.Time{}, ErrSimulationDisabled
	}
	s.simulated = s.simulated.AddDate(0, 0, days)
	return s.simulated, nil
}

// Enabled reports whether simulated time is active.
func (s *Simulator) Enabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled
}

var (
	_ Clock = System{}
	_ Clock = Fixed{}
	_ Clock = (*Simulator)(nil)
)
