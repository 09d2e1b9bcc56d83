package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/varsens/internal/dynamo"
)

// Liouville tracks max |det Φ - 1|. Conservative dynamics preserve phase
// volume, so the drift measures integration error.
type Liouville struct {
	max float64
}

func NewLiouville() *Liouville { return &Liouville{} }

func (l *Liouville) Name() string { return "liouville_drift" }

func (l *Liouville) Observe(t float64, _ dynamo.State, composite mat.Matrix) {
	l.max = math.Max(l.max, math.Abs(mat.Det(transition(composite))-1))
}

func (l *Liouville) Value() float64 { return l.max }
func (l *Liouville) Reset()         { l.max = 0 }

// transition returns the square Φ block of a composite.
func transition(composite mat.Matrix) mat.Matrix {
	n, _ := composite.Dims()
	if d, ok := composite.(*mat.Dense); ok {
		return d.Slice(0, n, 0, n)
	}
	phi := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			phi.Set(i, j, composite.At(i, j))
		}
	}
	return phi
}
