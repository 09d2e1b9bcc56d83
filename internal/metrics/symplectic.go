package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/varsens/internal/dynamo"
)

// Symplecticity tracks max ‖ΦᵀJΦ - J‖∞ of the 6x6 translational block at
// row. It stays near zero only for conservative forces acting on a single
// body.
type Symplecticity struct {
	row int
	j   *mat.Dense
	max float64
}

func NewSymplecticity(row int) *Symplecticity {
	j := mat.NewDense(6, 6, nil)
	for i := 0; i < 3; i++ {
		j.Set(i, i+3, 1)
		j.Set(i+3, i, -1)
	}
	return &Symplecticity{row: row, j: j}
}

func (s *Symplecticity) Name() string { return "symplectic_defect" }

func (s *Symplecticity) Observe(t float64, _ dynamo.State, composite mat.Matrix) {
	r, _ := composite.Dims()
	if r < s.row+6 {
		return
	}
	phi := mat.NewDense(6, 6, nil)
	for i := 0; i < 6; i++ {
		for k := 0; k < 6; k++ {
			phi.Set(i, k, composite.At(s.row+i, s.row+k))
		}
	}

	var jphi, defect mat.Dense
	jphi.Mul(s.j, phi)
	defect.Mul(phi.T(), &jphi)
	defect.Sub(&defect, s.j)
	s.max = math.Max(s.max, mat.Norm(&defect, math.Inf(1)))
}

func (s *Symplecticity) Value() float64 { return s.max }
func (s *Symplecticity) Reset()         { s.max = 0 }
