package variational

import (
	"errors"
	"fmt"

	"github.com/san-kum/varsens/internal/estimation"
)

// Structural errors abort engine construction.
var (
	ErrMissingStateType    = errors.New("variational: no partials for estimated state type")
	ErrEntityCountMismatch = errors.New("variational: partial list size inconsistent with estimated entities")
	ErrCentralBodyCycle    = errors.New("variational: body defined relative to itself through its central bodies")
	ErrUnknownEntity       = errors.New("variational: unknown entity")
	ErrUnknownParameter    = errors.New("variational: unknown parameter")
	ErrProviderMismatch    = errors.New("variational: provider listed under another entity")
	ErrDimensionMismatch   = errors.New("variational: dimension mismatch")
)

// StructuralError locates a structural failure.
type StructuralError struct {
	Op        string
	StateType estimation.StateType
	Body      string
	Err       error
}

func (e *StructuralError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.StateType, e.Err)
	}
	return fmt.Sprintf("%s %s %q: %v", e.Op, e.StateType, e.Body, e.Err)
}

func (e *StructuralError) Unwrap() error {
	return e.Err
}
