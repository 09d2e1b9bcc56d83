package forces

import (
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/varsens/internal/estimation"
)

// MassRate is the propellant flow of a constant-thrust engine,
// ṁ = -T/(Isp g0), with T in N and Isp in s.
type MassRate struct {
	affected string
	Thrust   float64
	Isp      float64
}

func NewMassRate(affected string, thrust, isp float64) *MassRate {
	return &MassRate{affected: affected, Thrust: thrust, Isp: isp}
}

func (m *MassRate) Affected() string    { return m.affected }
func (m *MassRate) Influencing() string { return m.affected }

func (m *MassRate) Rate() float64 {
	return -m.Thrust / (m.Isp * StandardGravity)
}

func (m *MassRate) Update(t float64) {}

// The flow does not depend on the current mass.
func (m *MassRate) WrtPositionOfAffected(dst *mat.Dense)    {}
func (m *MassRate) WrtPositionOfInfluencing(dst *mat.Dense) {}

func (m *MassRate) ParameterDependency(id estimation.ParameterID) int {
	if id.Kind == estimation.SpecificImpulse && id.Body == m.affected {
		return 1
	}
	return 0
}

func (m *MassRate) WriteParameterPartial(id estimation.ParameterID, dst *mat.Dense) {
	if m.ParameterDependency(id) == 0 {
		return
	}
	dst.Set(0, 0, m.Thrust/(m.Isp*m.Isp*StandardGravity))
}
