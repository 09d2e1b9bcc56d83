package variational

import (
	"github.com/san-kum/varsens/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// CompositeView wraps a row-major slice of a flat state as an n x p matrix
// without copying.
func CompositeView(x []float64, n, p int) *mat.Dense {
	return mat.NewDense(n, p, x[:n*p:n*p])
}

// Flatten copies m row-major into dst and returns the number of values
// written.
func Flatten(dst []float64, m mat.Matrix) int {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			dst[i*c+j] = m.At(i, j)
		}
	}
	return r * c
}

// Split separates the state transition matrix from the sensitivity matrix.
// s is nil when the composite has no auxiliary columns.
func Split(m *mat.Dense) (phi, s *mat.Dense) {
	n, p := m.Dims()
	phi = mat.DenseCopyOf(m.Slice(0, n, 0, n))
	if p > n {
		s = mat.DenseCopyOf(m.Slice(0, n, n, p))
	}
	return phi, s
}

// System integrates the composite alone, with the nominal state supplied by
// sync. sync must leave the environment in the nominal state at t.
type System struct {
	engine *Engine
	sync   func(t float64)
}

var _ dynamo.System = (*System)(nil)

func NewSystem(e *Engine, sync func(t float64)) *System {
	return &System{engine: e, sync: sync}
}

func (s *System) StateDim() int {
	return s.engine.TotalStateSize() * s.engine.NumberOfParameterValues()
}

func (s *System) Derive(t float64, x dynamo.State) dynamo.State {
	n, p := s.engine.TotalStateSize(), s.engine.NumberOfParameterValues()
	if s.sync != nil {
		s.sync(t)
	}
	dx := make(dynamo.State, n*p)
	s.engine.EvaluateDerivativeTo(CompositeView(dx, n, p), t, CompositeView(x, n, p))
	return dx
}
