package clock

import (
	"errors"
	"testing"
	"time"
)

func TestSimulatorFollowsBaseUntilEnabled(t *testing.T) {
	base := Fixed{T: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)}
	sim := NewSimulator(base)

	if got := sim.Now(); !got.Equal(base.T) {
		t.Fatalf("expected base time %s, got %s", base.T, got)
	}
	if sim.Enabled() {
		t.Fatalf("expected simulation disabled by default")
	}

	start := time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)
	sim.Enable(start)
	if got := sim.Now(); !got.Equal(start) {
		t.Fatalf("expected simulated time %s, got %s", start, got)
	}

	sim.Disable()
	if got := sim.Now(); !got.Equal(base.T) {
		t.Fatalf("expected base time after disable, got %s", got)
	}
}

func TestSimulatorAdvance(t *testing.T) {
	sim := NewSimulator(nil)

	if _, err := sim.Advance(3); !errors.Is(err, ErrSimulationDisabled) {
		t.Fatalf("expected ErrSimulationDisabled, got %v", err)
	}

	start := time.Date(2030, 1, 30, 12, 0, 0, 0, time.UTC)
	sim.Enable(start)
	now, err := sim.Advance(30)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	want := start.AddDate(0, 0, 30)
	if !now.Equal(want) || !sim.Now().Equal(want) {
		t.Fatalf("expected %s, got %s", want, now)
	}
}
