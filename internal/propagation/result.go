package propagation

import (
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/varsens/internal/dynamo"
	"github.com/san-kum/varsens/internal/variational"
)

type Result struct {
	Mode      Mode
	Labels    []string
	StateSize int

	Times  []float64
	States []dynamo.State

	// Composites holds [Φ | S] every SampleEvery steps and at the end.
	CompositeTimes []float64
	Composites     []*mat.Dense

	Metrics    map[string]float64
	StepsTaken int
	Rejected   int
	Errors     []error
}

func (r *Result) addComposite(t float64, c mat.Matrix) {
	r.CompositeTimes = append(r.CompositeTimes, t)
	r.Composites = append(r.Composites, mat.DenseCopyOf(c))
}

// Final returns the last composite matrix.
func (r *Result) Final() *mat.Dense {
	if len(r.Composites) == 0 {
		return nil
	}
	return r.Composites[len(r.Composites)-1]
}

func (r *Result) FinalState() dynamo.State {
	if len(r.States) == 0 {
		return nil
	}
	return r.States[len(r.States)-1]
}

// TransitionMatrix returns the final Φ.
func (r *Result) TransitionMatrix() *mat.Dense {
	if f := r.Final(); f != nil {
		phi, _ := variational.Split(f)
		return phi
	}
	return nil
}

// Sensitivity returns the final S, nil without auxiliary parameters.
func (r *Result) Sensitivity() *mat.Dense {
	if f := r.Final(); f != nil {
		_, s := variational.Split(f)
		return s
	}
	return nil
}
