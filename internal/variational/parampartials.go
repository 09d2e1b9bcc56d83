package variational

import (
	"fmt"

	"github.com/san-kum/varsens/internal/estimation"
	"github.com/san-kum/varsens/internal/partials"
	"gonum.org/v1/gonum/mat"
)

// paramEntry places one (provider, parameter) partial in B. col is relative
// to the first auxiliary column.
type paramEntry struct {
	provider partials.Provider
	id       estimation.ParameterID

	row, rows  int
	col, width int
	scratch    *mat.Dense
}

type parameterPartials struct {
	rows, cols int
	entries    []paramEntry
}

func newParameterPartials(index *IndexMap, m partials.Map) (*parameterPartials, error) {
	aux := index.set.Auxiliary()
	pp := &parameterPartials{rows: index.StateSize(), cols: index.AuxiliaryColumns()}

	for _, st := range index.StateTypes() {
		for i := range index.Bodies(st) {
			start, _, err := index.StateRows(st, i)
			if err != nil {
				return nil, err
			}
			for _, p := range m[st][i] {
				for _, param := range aux {
					width := p.ParameterDependency(param.ID)
					if width == 0 {
						continue
					}
					col, size, err := index.ParameterColumns(param.ID)
					if err != nil {
						return nil, err
					}
					if width != size {
						return nil, &StructuralError{Op: "parameter partials", StateType: st, Body: p.Affected(),
							Err: fmt.Errorf("%w: %s has %d column(s), provider reports %d", ErrDimensionMismatch, param.ID, size, width)}
					}
					pp.entries = append(pp.entries, paramEntry{
						provider:  p,
						id:        param.ID,
						row:       start + st.KinematicRows(),
						rows:      st.DerivativeRows(),
						col:       col - index.StateSize(),
						width:     width,
						scratch:   mat.NewDense(st.DerivativeRows(), width, nil),
					})
				}
			}
		}
	}
	return pp, nil
}

// build overwrites b with the current direct parameter partials. Entries for
// the same parameter accumulate. Providers must have been updated.
func (pp *parameterPartials) build(b *mat.Dense) {
	if pp.cols == 0 {
		return
	}
	b.Zero()
	for _, e := range pp.entries {
		e.scratch.Zero()
		e.provider.WriteParameterPartial(e.id, e.scratch)
		view := block(b, e.row, e.rows, e.col, e.width)
		view.Add(view, e.scratch)
	}
}
