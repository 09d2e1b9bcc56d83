package estimation

import "fmt"

// StateType is a dynamical category integrated by the propagator.
type StateType int

const (
	Translational StateType = iota
	Rotational
	Mass
	Custom
)

// StateTypes lists every category in matrix order.
var StateTypes = []StateType{Translational, Rotational, Mass, Custom}

// Size is the per-entity state width.
func (s StateType) Size() int {
	switch s {
	case Translational:
		return 6
	case Rotational:
		return 7
	default:
		return 1
	}
}

// Order is the differential order of the equations of motion.
func (s StateType) Order() int {
	if s == Translational {
		return 2
	}
	return 1
}

// KinematicRows is the number of leading rows per entity that hold the
// structural d(position)/dt = velocity relation.
func (s StateType) KinematicRows() int {
	return s.Size() - s.Size()/s.Order()
}

// DerivativeRows is the number of rows per entity filled by force partials.
func (s StateType) DerivativeRows() int {
	return s.Size() - s.KinematicRows()
}

// PositionWidth is the width of the zeroth-order block of one entity.
func (s StateType) PositionWidth() int {
	return s.Size() / s.Order()
}

func (s StateType) String() string {
	switch s {
	case Translational:
		return "translational"
	case Rotational:
		return "rotational"
	case Mass:
		return "mass"
	case Custom:
		return "custom"
	default:
		return fmt.Sprintf("state_type(%d)", int(s))
	}
}

// ParseStateType is the inverse of String.
func ParseStateType(name string) (StateType, error) {
	for _, st := range StateTypes {
		if st.String() == name {
			return st, nil
		}
	}
	return 0, fmt.Errorf("estimation: unknown state type %q", name)
}
