package integrators

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/varsens/internal/dynamo"
)

type harmonicOscillator struct{}

func (h *harmonicOscillator) StateDim() int { return 2 }

func (h *harmonicOscillator) Derive(t float64, x dynamo.State) dynamo.State {
	return dynamo.State{x[1], -x[0]}
}

func (h *harmonicOscillator) Energy(x dynamo.State) float64 {
	return 0.5 * (x[0]*x[0] + x[1]*x[1])
}

func TestRK4Accuracy(t *testing.T) {
	dyn := &harmonicOscillator{}
	integ := NewRK4()

	x := dynamo.State{1.0, 0.0}
	dt := 0.01
	steps := 100

	for i := 0; i < steps; i++ {
		x = integ.Step(dyn, x, float64(i)*dt, dt)
	}

	expectedX := math.Cos(float64(steps) * dt)
	expectedV := -math.Sin(float64(steps) * dt)

	if math.Abs(x[0]-expectedX) > 1e-8 {
		t.Errorf("position error too large: got %.10f, expected %.10f", x[0], expectedX)
	}

	if math.Abs(x[1]-expectedV) > 1e-8 {
		t.Errorf("velocity error too large: got %.10f, expected %.10f", x[1], expectedV)
	}
}

func TestRK4Backward(t *testing.T) {
	dyn := &harmonicOscillator{}
	integ := NewRK4()

	x := dynamo.State{1.0, 0.0}
	dt := 0.01
	for i := 0; i < 100; i++ {
		x = integ.Step(dyn, x, float64(i)*dt, dt)
	}
	for i := 100; i > 0; i-- {
		x = integ.Step(dyn, x, float64(i)*dt, -dt)
	}

	if math.Abs(x[0]-1) > 1e-8 || math.Abs(x[1]) > 1e-8 {
		t.Errorf("forward/backward round trip drifted: %v", x)
	}
}

func TestEulerStep(t *testing.T) {
	x := NewEuler().Step(&harmonicOscillator{}, dynamo.State{1.0, 0.0}, 0, 0.1)
	if x[0] != 1.0 || x[1] != -0.1 {
		t.Errorf("unexpected euler step: %v", x)
	}
}

func TestRK45_EnergyConservation(t *testing.T) {
	integrator := NewRK45()
	dyn := &harmonicOscillator{}
	x0 := dynamo.State{1.0, 0.0}

	initialEnergy := dyn.Energy(x0)
	x := x0.Clone()
	dt := 0.01

	for i := 0; i < 10000; i++ {
		x = integrator.Step(dyn, x, float64(i)*dt, dt)
	}

	drift := math.Abs(dyn.Energy(x)-initialEnergy) / initialEnergy
	if drift > 1e-6 {
		t.Errorf("RK45 energy drift too high: %e", drift)
	}
}

func TestRK45_AdaptiveStep(t *testing.T) {
	integrator := NewRK45()
	dyn := &harmonicOscillator{}

	x, newDt, err := integrator.StepAdaptive(dyn, dynamo.State{1.0, 0.0}, 0, 0.01, 1e-8)
	if err != nil {
		t.Errorf("StepAdaptive returned error: %v", err)
	}
	if !x.IsValid() {
		t.Error("StepAdaptive produced invalid state")
	}
	if newDt <= 0 {
		t.Errorf("StepAdaptive returned invalid dt: %f", newDt)
	}
}

func TestRK45_RejectsLargeStep(t *testing.T) {
	integrator := NewRK45()
	dyn := &harmonicOscillator{}

	_, newDt, err := integrator.StepAdaptive(dyn, dynamo.State{1.0, 0.0}, 0, 2.0, 1e-12)
	if !errors.Is(err, dynamo.ErrStepRejected) {
		t.Fatalf("expected rejection, got %v", err)
	}
	if newDt >= 2.0 || newDt <= 0 {
		t.Errorf("expected a smaller retry step, got %f", newDt)
	}
}

func TestExplicitConvergenceOrder(t *testing.T) {
	tests := []struct {
		name  string
		integ func() *Explicit
	}{
		{"euler", NewEuler},
		{"heun", NewHeun},
		{"rk4", NewRK4},
	}

	finalError := func(integ *Explicit, steps int) float64 {
		dyn := &harmonicOscillator{}
		x := dynamo.State{1.0, 0.0}
		dt := 1.0 / float64(steps)
		for i := 0; i < steps; i++ {
			x = integ.Step(dyn, x, float64(i)*dt, dt)
		}
		return math.Hypot(x[0]-math.Cos(1), x[1]+math.Sin(1))
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			integ := tt.integ()
			coarse := finalError(integ, 50)
			fine := finalError(integ, 100)
			order := math.Log2(coarse / fine)
			if math.Abs(order-float64(integ.Order())) > 0.2 {
				t.Errorf("observed order %.3f, want %d", order, integ.Order())
			}
		})
	}
}
