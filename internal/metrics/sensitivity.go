package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/varsens/internal/dynamo"
)

// PeakSensitivity is the largest Euclidean norm reached by one column of
// the composite, e.g. the sensitivity to a single parameter.
type PeakSensitivity struct {
	name   string
	column int
	peak   float64
}

func NewPeakSensitivity(name string, column int) *PeakSensitivity {
	return &PeakSensitivity{name: "peak_sensitivity_" + name, column: column}
}

func (p *PeakSensitivity) Name() string { return p.name }

func (p *PeakSensitivity) Observe(t float64, _ dynamo.State, composite mat.Matrix) {
	r, c := composite.Dims()
	if p.column >= c {
		return
	}
	sum := 0.0
	for i := 0; i < r; i++ {
		v := composite.At(i, p.column)
		sum += v * v
	}
	p.peak = math.Max(p.peak, math.Sqrt(sum))
}

func (p *PeakSensitivity) Value() float64 { return p.peak }
func (p *PeakSensitivity) Reset()         { p.peak = 0 }
