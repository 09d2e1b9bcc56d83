package estimation

import (
	"fmt"
	"slices"
)

// ParameterSet is an ordered collection of estimated parameters with their
// column ranges. It is immutable after construction.
type ParameterSet struct {
	params       []Parameter
	starts       []int
	index        map[ParameterID]int
	initialCount int
	initialSize  int
	totalSize    int
}

// NewParameterSet orders initial dynamical states first, grouped by state
// type in matrix order, and assigns columns.
func NewParameterSet(params ...Parameter) (*ParameterSet, error) {
	ordered := make([]Parameter, 0, len(params))
	for _, p := range params {
		if p.ID.Kind.IsInitialState() {
			ordered = append(ordered, p)
		}
	}
	slices.SortStableFunc(ordered, func(a, b Parameter) int {
		sa, _ := a.ID.Kind.StateType()
		sb, _ := b.ID.Kind.StateType()
		return int(sa) - int(sb)
	})
	initialCount := len(ordered)
	for _, p := range params {
		if !p.ID.Kind.IsInitialState() {
			ordered = append(ordered, p)
		}
	}

	s := &ParameterSet{
		params:       ordered,
		starts:       make([]int, len(ordered)),
		index:        make(map[ParameterID]int, len(ordered)),
		initialCount: initialCount,
	}

	col := 0
	for i, p := range ordered {
		if _, dup := s.index[p.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateParameter, p.ID)
		}
		if p.Size <= 0 {
			return nil, fmt.Errorf("%w: %s has size %d", ErrInvalidParameterSize, p.ID, p.Size)
		}
		if st, ok := p.ID.Kind.StateType(); ok && p.Size != st.Size() {
			return nil, fmt.Errorf("%w: %s has size %d, %s states have size %d",
				ErrInvalidParameterSize, p.ID, p.Size, st, st.Size())
		}
		s.index[p.ID] = i
		s.starts[i] = col
		col += p.Size
		if i < initialCount {
			s.initialSize = col
		}
	}
	s.totalSize = col

	return s, nil
}

// Parameters returns every parameter in column order.
func (s *ParameterSet) Parameters() []Parameter {
	return append([]Parameter(nil), s.params...)
}

// InitialStates returns the initial dynamical state parameters.
func (s *ParameterSet) InitialStates() []Parameter {
	return append([]Parameter(nil), s.params[:s.initialCount]...)
}

// Auxiliary returns the non-state parameters.
func (s *ParameterSet) Auxiliary() []Parameter {
	return append([]Parameter(nil), s.params[s.initialCount:]...)
}

// InitialStatesOf returns the propagated bodies of one state type, in order.
func (s *ParameterSet) InitialStatesOf(st StateType) []Parameter {
	var out []Parameter
	for _, p := range s.params[:s.initialCount] {
		if pst, _ := p.ID.Kind.StateType(); pst == st {
			out = append(out, p)
		}
	}
	return out
}

// Column returns the first column and width of a parameter.
func (s *ParameterSet) Column(id ParameterID) (start, size int, ok bool) {
	i, ok := s.index[id]
	if !ok {
		return 0, 0, false
	}
	return s.starts[i], s.params[i].Size, true
}

// InitialStateSize is the summed width of the initial dynamical states.
func (s *ParameterSet) InitialStateSize() int { return s.initialSize }

// TotalSize is the number of parameter values (composite column count).
func (s *ParameterSet) TotalSize() int { return s.totalSize }

// Labels returns one label per column, e.g. "initial_state(sat)[3]".
func (s *ParameterSet) Labels() []string {
	labels := make([]string, 0, s.totalSize)
	for _, p := range s.params {
		for k := 0; k < p.Size; k++ {
			if p.Size == 1 {
				labels = append(labels, p.ID.String())
			} else {
				labels = append(labels, fmt.Sprintf("%s[%d]", p.ID, k))
			}
		}
	}
	return labels
}
