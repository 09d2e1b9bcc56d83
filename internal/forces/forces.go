// Package forces holds the force and rate model families. Every model is both
// a nominal contribution to its body's state derivative and a
// partials.Provider for the variational equations.
package forces

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/varsens/internal/partials"
)

// Ephemeris is the view of the environment models read from.
type Ephemeris interface {
	Position(name string) r3.Vec
	Velocity(name string) r3.Vec
	Mass(name string) float64
	GravitationalParameter(name string) float64
}

// Accelerator is a translational model.
type Accelerator interface {
	partials.Provider
	Acceleration() r3.Vec
}

// RateModel is a first-order scalar model, e.g. mass flow.
type RateModel interface {
	partials.Provider
	Rate() float64
}

// StandardGravity in m/s².
const StandardGravity = 9.80665

var (
	_ Accelerator               = (*PointMass)(nil)
	_ Accelerator               = (*CannonballRadiation)(nil)
	_ Accelerator               = (*Drag)(nil)
	_ partials.VelocityProvider = (*Drag)(nil)
	_ Accelerator               = (*Empirical)(nil)
	_ RateModel                 = (*MassRate)(nil)
)
