package forces

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/varsens/internal/estimation"
	"github.com/san-kum/varsens/internal/partials"
)

// Atmosphere is an exponential density profile about a central body.
type Atmosphere struct {
	ReferenceDensity float64
	ReferenceRadius  float64
	ScaleHeight      float64
}

func (a Atmosphere) Density(r float64) float64 {
	return a.ReferenceDensity * math.Exp(-(r-a.ReferenceRadius)/a.ScaleHeight)
}

// Drag is cannonball drag in a non-rotating atmosphere of Central.
type Drag struct {
	affected string
	central  string
	eph      Ephemeris

	Coefficient float64
	Area        float64
	Atmosphere  Atmosphere

	wrtPosition partials.Block3
	wrtVelocity partials.Block3
	wrtCd       r3.Vec
}

func NewDrag(eph Ephemeris, affected, central string, cd, area float64, atm Atmosphere) *Drag {
	return &Drag{affected: affected, central: central, eph: eph, Coefficient: cd, Area: area, Atmosphere: atm}
}

func (d *Drag) Affected() string        { return d.affected }
func (d *Drag) Influencing() string     { return d.central }
func (d *Drag) DependsOnVelocity() bool { return true }

func (d *Drag) relative() (r3.Vec, r3.Vec) {
	pos := r3.Sub(d.eph.Position(d.affected), d.eph.Position(d.central))
	vel := r3.Sub(d.eph.Velocity(d.affected), d.eph.Velocity(d.central))
	return pos, vel
}

// perCoefficient is the acceleration divided by Cd.
func (d *Drag) perCoefficient(pos, vel r3.Vec) r3.Vec {
	rho := d.Atmosphere.Density(r3.Norm(pos))
	return r3.Scale(-0.5*rho*d.Area/d.eph.Mass(d.affected)*r3.Norm(vel), vel)
}

func (d *Drag) Acceleration() r3.Vec {
	pos, vel := d.relative()
	return r3.Scale(d.Coefficient, d.perCoefficient(pos, vel))
}

func (d *Drag) Update(t float64) {
	pos, vel := d.relative()
	r := r3.Norm(pos)
	speed := r3.Norm(vel)

	d.wrtCd = d.perCoefficient(pos, vel)
	acc := r3.Scale(d.Coefficient, d.wrtCd)

	d.wrtPosition.Reset()
	d.wrtPosition.Outer(-1/(d.Atmosphere.ScaleHeight*r), acc, pos)

	d.wrtVelocity.Reset()
	if speed > 0 {
		k := 0.5 * d.Atmosphere.Density(r) * d.Coefficient * d.Area / d.eph.Mass(d.affected)
		d.wrtVelocity.Identity(-k * speed)
		d.wrtVelocity.Outer(-k/speed, vel, vel)
	}
}

func (d *Drag) WrtPositionOfAffected(dst *mat.Dense)    { d.wrtPosition.AddTo(dst, 1) }
func (d *Drag) WrtPositionOfInfluencing(dst *mat.Dense) { d.wrtPosition.AddTo(dst, -1) }
func (d *Drag) WrtVelocityOfAffected(dst *mat.Dense)    { d.wrtVelocity.AddTo(dst, 1) }
func (d *Drag) WrtVelocityOfInfluencing(dst *mat.Dense) { d.wrtVelocity.AddTo(dst, -1) }

func (d *Drag) ParameterDependency(id estimation.ParameterID) int {
	if id.Kind == estimation.DragCoefficient && id.Body == d.affected {
		return 1
	}
	return 0
}

func (d *Drag) WriteParameterPartial(id estimation.ParameterID, dst *mat.Dense) {
	if d.ParameterDependency(id) == 0 {
		return
	}
	partials.SetColumn(dst, 0, d.wrtCd)
}
