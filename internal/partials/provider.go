// Package partials defines the capability interface through which force and
// derivative models hand their partial derivatives to the variational
// equations, and the map that groups providers per propagated entity.
package partials

import (
	"github.com/san-kum/varsens/internal/estimation"
	"gonum.org/v1/gonum/mat"
)

// Provider supplies the partials of one entity's state derivative caused by
// one model. "Position" is the zeroth-order block of the state type: three
// components for translational dynamics, the whole state for first-order
// types.
//
// The Wrt methods add their block into dst, sized DerivativeRows x
// PositionWidth of the affected state type. WrtPositionOfInfluencing carries
// its own sign.
type Provider interface {
	// Affected is the entity whose derivative the model contributes to.
	Affected() string
	// Influencing is the entity exerting the model, e.g. the central body.
	Influencing() string
	// Update refreshes the cached partials at t from the current environment.
	Update(t float64)
	WrtPositionOfAffected(dst *mat.Dense)
	WrtPositionOfInfluencing(dst *mat.Dense)
	// ParameterDependency returns the column width of the partial w.r.t. id,
	// or zero when the model does not depend on it.
	ParameterDependency(id estimation.ParameterID) int
	// WriteParameterPartial overwrites dst, sized DerivativeRows x width, with
	// the partial w.r.t. id.
	WriteParameterPartial(id estimation.ParameterID, dst *mat.Dense)
}

// VelocityProvider is implemented by second-order models that also depend on
// velocity, such as drag.
type VelocityProvider interface {
	Provider
	DependsOnVelocity() bool
	WrtVelocityOfAffected(dst *mat.Dense)
	WrtVelocityOfInfluencing(dst *mat.Dense)
}

// Map lists, per state type, one provider list per estimated entity, in the
// same order as the parameter set's initial states of that type.
type Map map[estimation.StateType][][]Provider

// Count returns the number of providers in the map.
func (m Map) Count() int {
	n := 0
	for _, entities := range m {
		for _, list := range entities {
			n += len(list)
		}
	}
	return n
}
