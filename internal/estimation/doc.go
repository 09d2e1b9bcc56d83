// Package estimation describes what is estimated: the integrated state
// categories and the ordered set of parameters whose columns make up the
// composite sensitivity matrix [Φ | S].
//
// Initial dynamical state parameters always occupy the leading columns, in
// declaration order, so that their total width equals the propagated-state
// size and Φ is square. Auxiliary parameters (gravitational parameters,
// radiation-pressure and drag coefficients, empirical accelerations, ...)
// follow in declaration order.
package estimation
