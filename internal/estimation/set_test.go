package estimation

import (
	"errors"
	"testing"
)

func TestStateTypeLayout(t *testing.T) {
	tests := []struct {
		st        StateType
		size      int
		order     int
		kinematic int
		position  int
	}{
		{Translational, 6, 2, 3, 3},
		{Rotational, 7, 1, 0, 7},
		{Mass, 1, 1, 0, 1},
		{Custom, 1, 1, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.st.String(), func(t *testing.T) {
			if got := tt.st.Size(); got != tt.size {
				t.Errorf("Size() = %d, want %d", got, tt.size)
			}
			if got := tt.st.Order(); got != tt.order {
				t.Errorf("Order() = %d, want %d", got, tt.order)
			}
			if got := tt.st.KinematicRows(); got != tt.kinematic {
				t.Errorf("KinematicRows() = %d, want %d", got, tt.kinematic)
			}
			if got := tt.st.PositionWidth(); got != tt.position {
				t.Errorf("PositionWidth() = %d, want %d", got, tt.position)
			}
			if got := tt.st.DerivativeRows() + tt.st.KinematicRows(); got != tt.size {
				t.Errorf("rows do not add up to size: %d", got)
			}
		})
	}
}

func TestParseStateType(t *testing.T) {
	st, err := ParseStateType("mass")
	if err != nil || st != Mass {
		t.Errorf("ParseStateType(mass) = %v, %v", st, err)
	}
	if _, err := ParseStateType("spin"); err == nil {
		t.Error("expected error for unknown state type")
	}
}

func TestParameterSetOrdering(t *testing.T) {
	set, err := NewParameterSet(
		Scalar(RadiationPressureCoefficient, "sat"),
		InitialState(Translational, "sat", "Earth"),
		Vector(EmpiricalAcceleration, "sat", "rtn", 3),
		InitialState(Mass, "sat", ""),
	)
	if err != nil {
		t.Fatalf("NewParameterSet failed: %v", err)
	}

	if got := set.InitialStateSize(); got != 7 {
		t.Errorf("InitialStateSize() = %d, want 7", got)
	}
	if got := set.TotalSize(); got != 11 {
		t.Errorf("TotalSize() = %d, want 11", got)
	}

	start, size, ok := set.Column(ParameterID{Kind: InitialBodyState, Body: "sat"})
	if !ok || start != 0 || size != 6 {
		t.Errorf("initial state column = (%d, %d, %v)", start, size, ok)
	}
	start, size, ok = set.Column(ParameterID{Kind: InitialMass, Body: "sat"})
	if !ok || start != 6 || size != 1 {
		t.Errorf("initial mass column = (%d, %d, %v)", start, size, ok)
	}
	start, size, ok = set.Column(ParameterID{Kind: RadiationPressureCoefficient, Body: "sat"})
	if !ok || start != 7 || size != 1 {
		t.Errorf("cr column = (%d, %d, %v)", start, size, ok)
	}
	start, size, ok = set.Column(ParameterID{Kind: EmpiricalAcceleration, Body: "sat", Detail: "rtn"})
	if !ok || start != 8 || size != 3 {
		t.Errorf("empirical column = (%d, %d, %v)", start, size, ok)
	}

	if _, _, ok := set.Column(ParameterID{Kind: DragCoefficient, Body: "sat"}); ok {
		t.Error("unexpected column for undeclared parameter")
	}

	if got := len(set.InitialStatesOf(Translational)); got != 1 {
		t.Errorf("expected 1 translational state, got %d", got)
	}
	if got := len(set.Labels()); got != set.TotalSize() {
		t.Errorf("expected %d labels, got %d", set.TotalSize(), got)
	}
}

func TestParameterSetErrors(t *testing.T) {
	tests := []struct {
		name   string
		params []Parameter
		want   error
	}{
		{
			"duplicate",
			[]Parameter{Scalar(DragCoefficient, "sat"), Scalar(DragCoefficient, "sat")},
			ErrDuplicateParameter,
		},
		{
			"zero size",
			[]Parameter{Vector(EmpiricalAcceleration, "sat", "", 0)},
			ErrInvalidParameterSize,
		},
		{
			"wrong state size",
			[]Parameter{{ID: ParameterID{Kind: InitialBodyState, Body: "sat"}, Size: 3}},
			ErrInvalidParameterSize,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParameterSet(tt.params...)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
