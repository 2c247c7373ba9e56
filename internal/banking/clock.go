package banking

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/congo-pay/banka/internal/access"
	"github.com/congo-pay/banka/internal/bankerr"
	"github.com/congo-pay/banka/internal/clock"
)

// ClockState reports the service time and whether it is simulated.
type ClockState struct {
	Now       time.Time
	Simulated bool
}

// Now returns the service time.
func (s *Service) Now() ClockState {
	sim, ok := s.clock.(*clock.Simulator)
	return ClockState{Now: s.clock.Now(), Simulated: ok && sim.Enabled()}
}

func (s *Service) simulator(sess access.Session) (*clock.Simulator, error) {
	if err := s.access.RequireAdmin(sess); err != nil {
		return nil, err
	}
	sim, ok := s.clock.(*clock.Simulator)
	if !ok {
		return nil, fmt.Errorf("%w: time simulation is not available", bankerr.ErrInvalidOperation)
	}
	return sim, nil
}

// SimulateTime switches the service to simulated time starting at t. Admin only.
func (s *Service) SimulateTime(sess access.Session, t time.Time) (ClockState, error) {
	sim, err := s.simulator(sess)
	if err != nil {
		return ClockState{}, err
	}
	sim.Enable(t)
	s.logger.Info("time simulation enabled", slog.Time("now", t), slog.String("by", sess.UserID))
	return s.Now(), nil
}

// AdvanceTime moves simulated time forward by days. Admin only.
func (s *Service) AdvanceTime(sess access.Session, days int) (ClockState, error) {
	sim, err := s.simulator(sess)
	if err != nil {
		return ClockState{}, err
	}
	if days <= 0 {
		return ClockState{}, fmt.Errorf("%w: days must be positive", bankerr.ErrInvalidAmount)
	}
	now, err := sim.Advance(days)
	if err != nil {
		return ClockState{}, fmt.Errorf("%w: %w", bankerr.ErrInvalidOperation, err)
	}
	s.logger.Info("simulated time advanced", slog.Int("days", days), slog.Time("now", now), slog.String("by", sess.UserID))
	return s.Now(), nil
}

// RealTime returns the service to the system clock. Admin only.
func (s *Service) RealTime(sess access.Session) (ClockState, error) {
	sim, err := s.simulator(sess)
	if err != nil {
		return ClockState{}, err
	}
	sim.Disable()
	s.logger.Info("time simulation disabled", slog.String("by", sess.UserID))
	return s.Now(), nil
}
