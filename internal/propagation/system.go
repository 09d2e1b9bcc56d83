package propagation

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/varsens/internal/dynamo"
	"github.com/san-kum/varsens/internal/variational"
)

func vec(v []float64) r3.Vec { return r3.Vec{X: v[0], Y: v[1], Z: v[2]} }

// augmentedSystem is [x | vec(Φ|S)] with the composite stored row-major.
type augmentedSystem struct {
	p    *Propagator
	n    int
	cols int
}

var _ dynamo.System = (*augmentedSystem)(nil)

func (s *augmentedSystem) StateDim() int { return s.n + s.n*s.cols }

func (s *augmentedSystem) Derive(t float64, x dynamo.State) dynamo.State {
	dx := make(dynamo.State, len(x))
	s.p.sync(x[:s.n])
	s.p.derive(x[:s.n], dx[:s.n])
	s.p.engine.EvaluateDerivativeTo(
		variational.CompositeView(dx[s.n:], s.n, s.cols), t,
		variational.CompositeView(x[s.n:], s.n, s.cols))
	return dx
}

// nominalSystem is the nominal dynamics alone.
type nominalSystem struct {
	p *Propagator
}

func (s *nominalSystem) StateDim() int { return s.p.engine.TotalStateSize() }

func (s *nominalSystem) Derive(t float64, x dynamo.State) dynamo.State {
	dx := make(dynamo.State, len(x))
	s.p.sync(x)
	s.p.derive(x, dx)
	return dx
}
