package variational

import (
	"fmt"

	"github.com/san-kum/varsens/internal/estimation"
	"github.com/san-kum/varsens/internal/partials"
	"gonum.org/v1/gonum/mat"
)

// stateEntry places one provider's blocks in A.
type stateEntry struct {
	provider partials.Provider
	velocity partials.VelocityProvider

	row, rows   int
	width       int
	affected    int
	influencing int // -1 when the influencing entity is not propagated
	hasVelocity bool
}

// kinematicEntry marks an identity block d(position)/dt = velocity.
type kinematicEntry struct {
	row, width int
}

// chainPair adds a dependent's column block into its central body's. The
// inertial state of the dependent moves with the relative state of its
// central, so partials w.r.t. the central's propagated state include it.
type chainPair struct {
	dependent, central, width int
}

type statePartials struct {
	size      int
	entries   []stateEntry
	kinematic []kinematicEntry
	chain     []chainPair
}

func newStatePartials(index *IndexMap, m partials.Map, order []string) (*statePartials, error) {
	sp := &statePartials{size: index.StateSize()}

	for _, st := range index.StateTypes() {
		bodies := index.Bodies(st)
		for i, body := range bodies {
			start, _, err := index.StateRows(st, i)
			if err != nil {
				return nil, err
			}
			if st.KinematicRows() > 0 {
				sp.kinematic = append(sp.kinematic, kinematicEntry{row: start, width: st.KinematicRows()})
			}

			for _, p := range m[st][i] {
				if p.Affected() != body {
					return nil, &StructuralError{Op: "state partials", StateType: st, Body: body,
						Err: fmt.Errorf("%w: provider affects %q", ErrProviderMismatch, p.Affected())}
				}
				e := stateEntry{
					provider:    p,
					row:         start + st.KinematicRows(),
					rows:        st.DerivativeRows(),
					width:       st.PositionWidth(),
					affected:    start,
					influencing: -1,
				}
				if j, ok := index.Entity(st, p.Influencing()); ok && j != i {
					e.influencing, _, _ = index.StateRows(st, j)
				}
				if vp, ok := p.(partials.VelocityProvider); ok && st.Order() == 2 && vp.DependsOnVelocity() {
					e.velocity = vp
					e.hasVelocity = true
				}
				sp.entries = append(sp.entries, e)
			}
		}
	}

	// Dependents before their centrals, so a central receives fully
	// accumulated columns.
	st := estimation.Translational
	bodies, centrals := index.Bodies(st), index.Centrals(st)
	central := make(map[string]string, len(bodies))
	for i, b := range bodies {
		central[b] = centrals[i]
	}
	for i := len(order) - 1; i >= 0; i-- {
		body := order[i]
		c := central[body]
		if _, ok := index.Entity(st, c); !ok {
			continue
		}
		dep, width, _ := index.BodyRows(st, body)
		cen, _, _ := index.BodyRows(st, c)
		sp.chain = append(sp.chain, chainPair{dependent: dep, central: cen, width: width})
	}
	return sp, nil
}

// build overwrites a with the current partial values. Providers must have
// been updated.
func (sp *statePartials) build(a *mat.Dense) {
	a.Zero()

	for _, e := range sp.entries {
		e.provider.WrtPositionOfAffected(block(a, e.row, e.rows, e.affected, e.width))
		if e.influencing >= 0 {
			e.provider.WrtPositionOfInfluencing(block(a, e.row, e.rows, e.influencing, e.width))
		}
		if e.hasVelocity {
			e.velocity.WrtVelocityOfAffected(block(a, e.row, e.rows, e.affected+e.width, e.width))
			if e.influencing >= 0 {
				e.velocity.WrtVelocityOfInfluencing(block(a, e.row, e.rows, e.influencing+e.width, e.width))
			}
		}
	}

	for _, c := range sp.chain {
		for i := 0; i < sp.size; i++ {
			for j := 0; j < c.width; j++ {
				a.Set(i, c.central+j, a.At(i, c.central+j)+a.At(i, c.dependent+j))
			}
		}
	}

	// Kinematic rows relate relative position to relative velocity only and
	// take no chain correction.
	for _, k := range sp.kinematic {
		for j := 0; j < k.width; j++ {
			a.Set(k.row+j, k.row+k.width+j, 1)
		}
	}
}

func block(m *mat.Dense, row, rows, col, cols int) *mat.Dense {
	return m.Slice(row, row+rows, col, col+cols).(*mat.Dense)
}
