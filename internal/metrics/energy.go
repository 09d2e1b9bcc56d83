// Package metrics reduces a propagation to scalar figures of merit. Metrics
// observe the nominal state and the composite matrix [Φ | S] at every step.
package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/varsens/internal/dynamo"
)

// OrbitalEnergy is the largest relative drift of the specific two-body
// energy v²/2 - μ/r of the translational state at row.
type OrbitalEnergy struct {
	name    string
	row     int
	mu      float64
	initial float64
	max     float64
	samples int
}

func NewOrbitalEnergy(row int, mu float64) *OrbitalEnergy {
	return &OrbitalEnergy{name: "energy_drift", row: row, mu: mu}
}

func (e *OrbitalEnergy) Name() string { return e.name }

func (e *OrbitalEnergy) Observe(t float64, x dynamo.State, _ mat.Matrix) {
	if len(x) < e.row+6 {
		return
	}
	s := x[e.row : e.row+6]
	r := math.Sqrt(s[0]*s[0] + s[1]*s[1] + s[2]*s[2])
	energy := 0.5*(s[3]*s[3]+s[4]*s[4]+s[5]*s[5]) - e.mu/r

	if e.samples == 0 {
		e.initial = energy
	}
	e.samples++

	if e.initial != 0 {
		e.max = math.Max(e.max, math.Abs(energy-e.initial)/math.Abs(e.initial))
	}
}

func (e *OrbitalEnergy) Value() float64 { return e.max }

func (e *OrbitalEnergy) Reset() {
	e.initial = 0
	e.max = 0
	e.samples = 0
}
