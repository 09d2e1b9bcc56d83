// Package variational assembles and propagates the linearisation of the
// equations of motion.
//
// For a composite matrix M = [Φ | S] of the state transition matrix Φ and
// the parameter sensitivity matrix S, the variational equations read
//
//	d/dt [Φ | S] = A [Φ | S] + [0 | B]
//
// where A holds the partials of every propagated entity's state derivative
// w.r.t. every propagated state and B the direct partials w.r.t. the
// auxiliary parameters. Both are assembled from partials.Provider values
// supplied by the force models.
//
// The structure (row/column placement, which provider depends on which
// parameter, central-body chain corrections) is fixed by [New]. Only the
// partial values change with time; [Engine.Update] refreshes them and is
// memoised on the exact time value.
//
// An Engine is not safe for concurrent use. Parallel estimation arcs use one
// engine each.
package variational
