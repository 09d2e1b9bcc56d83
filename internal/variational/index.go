package variational

import (
	"fmt"

	"github.com/san-kum/varsens/internal/estimation"
)

// IndexMap places entities on rows and parameters on columns of the
// composite matrix. Rows are grouped by state type in estimation.StateTypes
// order; within a type, entities follow the parameter set's declaration
// order.
type IndexMap struct {
	set       *estimation.ParameterSet
	types     []estimation.StateType
	typeStart map[estimation.StateType]int
	bodies    map[estimation.StateType][]string
	centrals  map[estimation.StateType][]string
	entity    map[estimation.StateType]map[string]int
	stateSize int
}

func NewIndexMap(set *estimation.ParameterSet) (*IndexMap, error) {
	m := &IndexMap{
		set:       set,
		typeStart: make(map[estimation.StateType]int),
		bodies:    make(map[estimation.StateType][]string),
		centrals:  make(map[estimation.StateType][]string),
		entity:    make(map[estimation.StateType]map[string]int),
	}

	row := 0
	for _, st := range estimation.StateTypes {
		states := set.InitialStatesOf(st)
		if len(states) == 0 {
			continue
		}
		m.types = append(m.types, st)
		m.typeStart[st] = row
		m.entity[st] = make(map[string]int, len(states))
		for i, p := range states {
			col, _, _ := set.Column(p.ID)
			if col != row+i*st.Size() {
				return nil, &StructuralError{Op: "index", StateType: st, Body: p.ID.Body,
					Err: fmt.Errorf("%w: initial state column %d does not match row %d", ErrDimensionMismatch, col, row+i*st.Size())}
			}
			m.entity[st][p.ID.Body] = i
			m.bodies[st] = append(m.bodies[st], p.ID.Body)
			m.centrals[st] = append(m.centrals[st], p.CentralBody)
		}
		row += len(states) * st.Size()
	}
	m.stateSize = row

	if m.stateSize != set.InitialStateSize() {
		return nil, fmt.Errorf("%w: state rows %d, initial state columns %d", ErrDimensionMismatch, m.stateSize, set.InitialStateSize())
	}
	return m, nil
}

// StateTypes returns the propagated state types in row order.
func (m *IndexMap) StateTypes() []estimation.StateType {
	return append([]estimation.StateType(nil), m.types...)
}

// StateSize is the total propagated-state size.
func (m *IndexMap) StateSize() int { return m.stateSize }

// Columns is the number of parameter values.
func (m *IndexMap) Columns() int { return m.set.TotalSize() }

// AuxiliaryColumns is the number of sensitivity columns.
func (m *IndexMap) AuxiliaryColumns() int { return m.set.TotalSize() - m.stateSize }

// Count is the number of entities of a state type.
func (m *IndexMap) Count(st estimation.StateType) int { return len(m.bodies[st]) }

// Bodies returns the entity names of a state type in row order.
func (m *IndexMap) Bodies(st estimation.StateType) []string {
	return append([]string(nil), m.bodies[st]...)
}

// Centrals returns the declared central bodies, parallel to Bodies.
func (m *IndexMap) Centrals(st estimation.StateType) []string {
	return append([]string(nil), m.centrals[st]...)
}

// Entity returns the index of a body among the entities of a state type.
func (m *IndexMap) Entity(st estimation.StateType, body string) (int, bool) {
	i, ok := m.entity[st][body]
	return i, ok
}

// StateRows returns the first row and width of an entity.
func (m *IndexMap) StateRows(st estimation.StateType, entity int) (start, width int, err error) {
	if entity < 0 || entity >= len(m.bodies[st]) {
		return 0, 0, &StructuralError{Op: "rows", StateType: st, Err: fmt.Errorf("%w: index %d", ErrUnknownEntity, entity)}
	}
	return m.typeStart[st] + entity*st.Size(), st.Size(), nil
}

// BodyRows is StateRows addressed by name.
func (m *IndexMap) BodyRows(st estimation.StateType, body string) (start, width int, err error) {
	i, ok := m.Entity(st, body)
	if !ok {
		return 0, 0, &StructuralError{Op: "rows", StateType: st, Body: body, Err: ErrUnknownEntity}
	}
	return m.StateRows(st, i)
}

// ParameterColumns returns the first column and width of a parameter.
func (m *IndexMap) ParameterColumns(id estimation.ParameterID) (start, width int, err error) {
	start, width, ok := m.set.Column(id)
	if !ok {
		return 0, 0, fmt.Errorf("%w: %s", ErrUnknownParameter, id)
	}
	return start, width, nil
}
