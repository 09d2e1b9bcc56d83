// Package dynamo provides the ODE primitives shared by the integrators and
// the sensitivity propagator.
//
// The package defines the fundamental interfaces and types for numerical
// integration of first-order systems dX/dt = f(t, X):
//
//   - [State]: flat vector representing the integrated state
//   - [System]: interface for ODE right-hand sides
//   - [Integrator]: single-step numerical integrator interface
//   - [Metric]: observer reducing a run to a scalar figure
//
// Augmented variational systems flatten the composite matrix [Φ | S] row by
// row behind the nominal state, so every integrator in this module treats
// them as plain vectors.
//
// # Example
//
//	integ := integrators.NewRK4()
//	x := x0.Clone()
//	for i := 0; i < steps; i++ {
//		x = integ.Step(sys, x, t, dt)
//		t += dt
//	}
//
// # Thread Safety
//
// Integrators keep scratch buffers and are NOT thread-safe. Use one
// integrator per propagated arc.
package dynamo
