package dynamo

import (
	"errors"
	"math"
	"testing"
)

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		state State
		valid bool
	}{
		{"empty", State{}, true},
		{"normal", State{7000, 0, 0, 0, 7.5, 0}, true},
		{"with NaN", State{1.0, math.NaN()}, false},
		{"with +Inf", State{1.0, math.Inf(1)}, false},
		{"with -Inf", State{1.0, math.Inf(-1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestState_Norm(t *testing.T) {
	tests := []struct {
		state    State
		expected float64
	}{
		{State{3, 4}, 5.0},
		{State{0, 0}, 0.0},
		{State{1, 1, 1, 1}, 2.0},
	}

	for _, tt := range tests {
		if got := tt.state.Norm(); math.Abs(got-tt.expected) > 1e-12 {
			t.Errorf("Norm(%v) = %v, want %v", tt.state, got, tt.expected)
		}
	}
}

func TestState_Arithmetic(t *testing.T) {
	a := State{1, 2, 3}
	b := State{4, 5, 6}

	if sum := a.Add(b); sum[0] != 5 || sum[1] != 7 || sum[2] != 9 {
		t.Errorf("Add failed: got %v", sum)
	}
	if diff := b.Sub(a); diff[0] != 3 || diff[1] != 3 || diff[2] != 3 {
		t.Errorf("Sub failed: got %v", diff)
	}
	if scaled := a.Scale(2); scaled[0] != 2 || scaled[1] != 4 || scaled[2] != 6 {
		t.Errorf("Scale failed: got %v", scaled)
	}

	c := a.Clone()
	c[0] = 99
	if a[0] == 99 {
		t.Error("Clone shares storage")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Dt <= 0 || cfg.Duration <= 0 || cfg.Tolerance <= 0 {
		t.Errorf("DefaultConfig has invalid step settings: %+v", cfg)
	}
	if cfg.MinDt >= cfg.MaxDt {
		t.Errorf("MinDt %v not below MaxDt %v", cfg.MinDt, cfg.MaxDt)
	}
	if cfg.SampleEvery != 1 {
		t.Errorf("SampleEvery = %d, want 1", cfg.SampleEvery)
	}
}

func TestSimError(t *testing.T) {
	err := SimError{Time: 1.5, Step: 150, Message: "test error"}
	expected := "step 150 (t=1.5000): test error"
	if err.Error() != expected {
		t.Errorf("SimError.Error() = %q, want %q", err.Error(), expected)
	}
}

func TestSimulationError_Unwrap(t *testing.T) {
	err := &SimulationError{Step: 3, Time: 30, Wrapped: ErrInvalidState}
	if !errors.Is(err, ErrInvalidState) {
		t.Error("SimulationError does not unwrap to its cause")
	}
	if err.Error() != ErrInvalidState.Error() {
		t.Errorf("Error() = %q", err.Error())
	}
}
