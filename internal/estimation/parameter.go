package estimation

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateParameter   = errors.New("estimation: duplicate parameter")
	ErrInvalidParameterSize = errors.New("estimation: invalid parameter size")
)

// ParameterKind identifies what a parameter represents.
type ParameterKind int

const (
	InitialBodyState ParameterKind = iota
	InitialRotationalState
	InitialMass
	GravitationalParameter
	RadiationPressureCoefficient
	DragCoefficient
	EmpiricalAcceleration
	SpecificImpulse
)

var kindNames = map[ParameterKind]string{
	InitialBodyState:             "initial_state",
	InitialRotationalState:       "initial_rotational_state",
	InitialMass:                  "initial_mass",
	GravitationalParameter:       "gravitational_parameter",
	RadiationPressureCoefficient: "radiation_pressure_coefficient",
	DragCoefficient:              "drag_coefficient",
	EmpiricalAcceleration:        "empirical_acceleration",
	SpecificImpulse:              "specific_impulse",
}

func (k ParameterKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("parameter_kind(%d)", int(k))
}

// ParseParameterKind is the inverse of String.
func ParseParameterKind(name string) (ParameterKind, error) {
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("estimation: unknown parameter kind %q", name)
}

// IsInitialState reports whether the kind is an initial dynamical state.
func (k ParameterKind) IsInitialState() bool {
	_, ok := k.StateType()
	return ok
}

// StateType returns the integrated state category of an initial-state kind.
func (k ParameterKind) StateType() (StateType, bool) {
	switch k {
	case InitialBodyState:
		return Translational, true
	case InitialRotationalState:
		return Rotational, true
	case InitialMass:
		return Mass, true
	}
	return 0, false
}

// ParameterID is the identity of an estimated parameter. Body is the body the
// parameter belongs to; Detail disambiguates several parameters of the same
// kind on one body (e.g. the force model an empirical acceleration feeds).
type ParameterID struct {
	Kind   ParameterKind
	Body   string
	Detail string
}

func (id ParameterID) String() string {
	if id.Detail != "" {
		return fmt.Sprintf("%s(%s/%s)", id.Kind, id.Body, id.Detail)
	}
	return fmt.Sprintf("%s(%s)", id.Kind, id.Body)
}

// Parameter is one entry of a ParameterSet.
type Parameter struct {
	ID   ParameterID
	Size int
	// CentralBody is the reference body of an initial translational state.
	CentralBody string
}

// InitialState returns an initial dynamical state parameter of the given type.
func InitialState(st StateType, body, central string) Parameter {
	kind := InitialBodyState
	switch st {
	case Rotational:
		kind = InitialRotationalState
	case Mass:
		kind = InitialMass
	}
	return Parameter{ID: ParameterID{Kind: kind, Body: body}, Size: st.Size(), CentralBody: central}
}

// Scalar returns a single-valued auxiliary parameter.
func Scalar(kind ParameterKind, body string) Parameter {
	return Parameter{ID: ParameterID{Kind: kind, Body: body}, Size: 1}
}

// Vector returns a vector-valued auxiliary parameter.
func Vector(kind ParameterKind, body, detail string, size int) Parameter {
	return Parameter{ID: ParameterID{Kind: kind, Body: body, Detail: detail}, Size: size}
}
