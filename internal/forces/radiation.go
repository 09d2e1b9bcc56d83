package forces

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/varsens/internal/estimation"
	"github.com/san-kum/varsens/internal/partials"
)

// CannonballRadiation is the radiation pressure of Source on a sphere. The
// pressure falls off as (ReferenceDistance/d)². Units of Pressure*Area/Mass
// must match the acceleration units of the propagation.
type CannonballRadiation struct {
	affected string
	source   string
	eph      Ephemeris

	Coefficient       float64
	Area              float64
	Pressure          float64
	ReferenceDistance float64

	wrtPosition partials.Block3
	wrtCr       r3.Vec
}

func NewCannonballRadiation(eph Ephemeris, affected, source string, cr, area, pressure, refDistance float64) *CannonballRadiation {
	return &CannonballRadiation{
		affected:          affected,
		source:            source,
		eph:               eph,
		Coefficient:       cr,
		Area:              area,
		Pressure:          pressure,
		ReferenceDistance: refDistance,
	}
}

func (c *CannonballRadiation) Affected() string    { return c.affected }
func (c *CannonballRadiation) Influencing() string { return c.source }

// pressureAt returns the local pressure, the unit vector away from the source
// and the distance.
func (c *CannonballRadiation) pressureAt() (float64, r3.Vec, float64) {
	d := r3.Sub(c.eph.Position(c.affected), c.eph.Position(c.source))
	dist := r3.Norm(d)
	ratio := c.ReferenceDistance / dist
	return c.Pressure * ratio * ratio, r3.Scale(1/dist, d), dist
}

func (c *CannonballRadiation) Acceleration() r3.Vec {
	p, u, _ := c.pressureAt()
	return r3.Scale(c.Coefficient*c.Area*p/c.eph.Mass(c.affected), u)
}

// Update caches K (I/d - 3 d dᵀ/d³) with K = Cr A P / m, and P A / m d̂.
func (c *CannonballRadiation) Update(t float64) {
	p, u, dist := c.pressureAt()
	m := c.eph.Mass(c.affected)
	k := c.Coefficient * c.Area * p / m

	c.wrtPosition.Identity(k / dist)
	c.wrtPosition.Outer(-3*k/dist, u, u)
	c.wrtCr = r3.Scale(p*c.Area/m, u)
}

func (c *CannonballRadiation) WrtPositionOfAffected(dst *mat.Dense) {
	c.wrtPosition.AddTo(dst, 1)
}

func (c *CannonballRadiation) WrtPositionOfInfluencing(dst *mat.Dense) {
	c.wrtPosition.AddTo(dst, -1)
}

func (c *CannonballRadiation) ParameterDependency(id estimation.ParameterID) int {
	if id.Kind == estimation.RadiationPressureCoefficient && id.Body == c.affected {
		return 1
	}
	return 0
}

func (c *CannonballRadiation) WriteParameterPartial(id estimation.ParameterID, dst *mat.Dense) {
	if c.ParameterDependency(id) == 0 {
		return
	}
	partials.SetColumn(dst, 0, c.wrtCr)
}
