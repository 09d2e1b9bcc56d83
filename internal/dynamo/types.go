package dynamo

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Add(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] + other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

func (s State) Scale(factor float64) State {
	result := make(State, len(s))
	for i := range s {
		result[i] = s[i] * factor
	}
	return result
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// System is the right-hand side of dx/dt = f(t, x).
type System interface {
	Derive(t float64, x State) State
	StateDim() int
}

type Integrator interface {
	Step(dyn System, x State, t float64, dt float64) State
}

type AdaptiveIntegrator interface {
	Integrator
	StepAdaptive(dyn System, x State, t, dt, tol float64) (State, float64, error)
}

// Metric reduces a propagation to a scalar. The composite is [Φ | S] at t.
type Metric interface {
	Name() string
	Observe(t float64, x State, composite mat.Matrix)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(t float64, x State, composite mat.Matrix)
}

type Config struct {
	// Start is the initial time. A negative Dt propagates from Start back to
	// Start-Duration.
	Start         float64
	Dt            float64
	Duration      float64
	Tolerance     float64
	MaxDt         float64
	MinDt         float64
	Adaptive      bool
	ValidateState bool
	// SampleEvery keeps one composite matrix every n steps; the final one is
	// always kept. Zero keeps only the final composite.
	SampleEvery int
}

func DefaultConfig() Config {
	return Config{
		Dt:            10.0,
		Duration:      3600.0,
		Tolerance:     1e-10,
		MaxDt:         60.0,
		MinDt:         1e-6,
		Adaptive:      false,
		ValidateState: true,
		SampleEvery:   1,
	}
}

type SimError struct {
	Time    float64
	Step    int
	Message string
}

func (e SimError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %s", e.Step, e.Time, e.Message)
}
