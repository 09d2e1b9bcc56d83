package forces

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/varsens/internal/estimation"
	"github.com/san-kum/varsens/internal/partials"
)

// Empirical is a constant inertial acceleration, estimated as a 3-vector
// parameter identified by (EmpiricalAcceleration, body, detail).
type Empirical struct {
	affected string
	detail   string
	Value    r3.Vec
}

func NewEmpirical(affected, detail string, value r3.Vec) *Empirical {
	return &Empirical{affected: affected, detail: detail, Value: value}
}

func (e *Empirical) Affected() string    { return e.affected }
func (e *Empirical) Influencing() string { return e.affected }
func (e *Empirical) Acceleration() r3.Vec {
	return e.Value
}

func (e *Empirical) Update(t float64)                        {}
func (e *Empirical) WrtPositionOfAffected(dst *mat.Dense)    {}
func (e *Empirical) WrtPositionOfInfluencing(dst *mat.Dense) {}

func (e *Empirical) ParameterDependency(id estimation.ParameterID) int {
	if id.Kind == estimation.EmpiricalAcceleration && id.Body == e.affected && id.Detail == e.detail {
		return 3
	}
	return 0
}

func (e *Empirical) WriteParameterPartial(id estimation.ParameterID, dst *mat.Dense) {
	if e.ParameterDependency(id) == 0 {
		return
	}
	dst.Zero()
	partials.AddScaledIdentity(dst, 1)
}
