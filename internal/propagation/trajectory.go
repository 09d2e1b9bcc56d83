package propagation

import (
	"context"
	"fmt"
	"slices"

	"gonum.org/v1/gonum/interp"

	"github.com/san-kum/varsens/internal/dynamo"
)

// Trajectory is a cubic Hermite interpolant of a nominal state history.
type Trajectory struct {
	start, end float64
	first      dynamo.State
	components []interp.PiecewiseCubic
}

// NewTrajectory fits states and their derivatives at times. Times must be
// strictly monotonic in either direction.
func NewTrajectory(times []float64, states, derivs []dynamo.State) (*Trajectory, error) {
	if len(times) == 0 || len(states) != len(times) || len(derivs) != len(times) {
		return nil, fmt.Errorf("%w: %d times, %d states, %d derivatives", dynamo.ErrDimensionMismatch, len(times), len(states), len(derivs))
	}
	tr := &Trajectory{start: times[0], end: times[len(times)-1], first: states[0].Clone()}
	if len(times) == 1 {
		return tr, nil
	}

	idx := make([]int, len(times))
	for i := range idx {
		idx[i] = i
	}
	if times[len(times)-1] < times[0] {
		slices.Reverse(idx)
	}
	xs := make([]float64, len(idx))
	for k, i := range idx {
		xs[k] = times[i]
		if k > 0 && xs[k] <= xs[k-1] {
			return nil, fmt.Errorf("propagation: trajectory times not strictly monotonic at %v", xs[k])
		}
	}

	dim := len(states[0])
	tr.components = make([]interp.PiecewiseCubic, dim)
	ys := make([]float64, len(idx))
	dys := make([]float64, len(idx))
	for c := 0; c < dim; c++ {
		for k, i := range idx {
			ys[k] = states[i][c]
			dys[k] = derivs[i][c]
		}
		tr.components[c].FitWithDerivatives(xs, ys, dys)
	}
	return tr, nil
}

// At evaluates the trajectory. Times outside the fitted span clamp to its
// ends.
func (tr *Trajectory) At(t float64) dynamo.State {
	if tr.components == nil {
		return tr.first.Clone()
	}
	x := make(dynamo.State, len(tr.components))
	for c := range tr.components {
		x[c] = tr.components[c].Predict(t)
	}
	return x
}

// Span returns the first and last fitted times.
func (tr *Trajectory) Span() (start, end float64) { return tr.start, tr.end }

// NominalTrajectory propagates the nominal dynamics alone with cfg and
// interpolates the result.
func (p *Propagator) NominalTrajectory(ctx context.Context, cfg dynamo.Config) (*Trajectory, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	sys := &nominalSystem{p: p}
	var times []float64
	var states, derivs []dynamo.State
	record := func(t float64, x dynamo.State) {
		times = append(times, t)
		states = append(states, x.Clone())
		derivs = append(derivs, sys.Derive(t, x))
	}

	p.applied = nil
	x0 := p.InitialState()
	record(cfg.Start, x0)
	loop := stepper{integrator: p.integrator, sys: sys, cfg: cfg}
	if _, err := loop.run(ctx, x0, func(_ int, t float64, x dynamo.State) bool {
		record(t, x)
		return true
	}); err != nil {
		return nil, err
	}
	return NewTrajectory(times, states, derivs)
}
