package forces

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/varsens/internal/estimation"
	"github.com/san-kum/varsens/internal/partials"
)

// PointMass is the central gravity of Influencing acting on Affected.
type PointMass struct {
	affected    string
	influencing string
	eph         Ephemeris

	wrtPosition partials.Block3
	wrtMu       r3.Vec
}

func NewPointMass(eph Ephemeris, affected, influencing string) *PointMass {
	return &PointMass{affected: affected, influencing: influencing, eph: eph}
}

func (p *PointMass) Affected() string    { return p.affected }
func (p *PointMass) Influencing() string { return p.influencing }

func (p *PointMass) relative() r3.Vec {
	return r3.Sub(p.eph.Position(p.affected), p.eph.Position(p.influencing))
}

func (p *PointMass) Acceleration() r3.Vec {
	d := p.relative()
	r := r3.Norm(d)
	return r3.Scale(-p.eph.GravitationalParameter(p.influencing)/(r*r*r), d)
}

// Update caches -μ/r³ (I - 3 r̂r̂ᵀ) and ∂a/∂μ = -r/r³.
func (p *PointMass) Update(t float64) {
	mu := p.eph.GravitationalParameter(p.influencing)
	d := p.relative()
	r := r3.Norm(d)
	r3inv := 1 / (r * r * r)

	p.wrtPosition.Identity(-mu * r3inv)
	p.wrtPosition.Outer(3*mu*r3inv/(r*r), d, d)
	p.wrtMu = r3.Scale(-r3inv, d)
}

func (p *PointMass) WrtPositionOfAffected(dst *mat.Dense)    { p.wrtPosition.AddTo(dst, 1) }
func (p *PointMass) WrtPositionOfInfluencing(dst *mat.Dense) { p.wrtPosition.AddTo(dst, -1) }

func (p *PointMass) ParameterDependency(id estimation.ParameterID) int {
	if id.Kind == estimation.GravitationalParameter && id.Body == p.influencing {
		return 1
	}
	return 0
}

func (p *PointMass) WriteParameterPartial(id estimation.ParameterID, dst *mat.Dense) {
	if p.ParameterDependency(id) == 0 {
		return
	}
	partials.SetColumn(dst, 0, p.wrtMu)
}
