package integrators

import "github.com/san-kum/varsens/internal/dynamo"

// Tableau holds the coefficients of an explicit Runge-Kutta scheme.
// A is strictly lower triangular and stored row by row.
type Tableau struct {
	Name  string
	Order int
	A     [][]float64
	B     []float64
	C     []float64
}

var (
	EulerTableau = Tableau{
		Name:  "euler",
		Order: 1,
		A:     [][]float64{{}},
		B:     []float64{1},
		C:     []float64{0},
	}

	HeunTableau = Tableau{
		Name:  "heun",
		Order: 2,
		A:     [][]float64{{}, {1}},
		B:     []float64{0.5, 0.5},
		C:     []float64{0, 1},
	}

	// Stages 2 and 3 share t+dt/2 with different states.
	RK4Tableau = Tableau{
		Name:  "rk4",
		Order: 4,
		A:     [][]float64{{}, {0.5}, {0, 0.5}, {0, 0, 1}},
		B:     []float64{1.0 / 6, 1.0 / 3, 1.0 / 3, 1.0 / 6},
		C:     []float64{0, 0.5, 0.5, 1},
	}
)

// Explicit steps any explicit tableau. Stage buffers are reused between
// calls, so a value is not safe for concurrent use.
type Explicit struct {
	tab    Tableau
	stages []dynamo.State
	probe  dynamo.State
}

func NewExplicit(tab Tableau) *Explicit {
	return &Explicit{tab: tab}
}

func NewEuler() *Explicit { return NewExplicit(EulerTableau) }

func NewHeun() *Explicit { return NewExplicit(HeunTableau) }

func NewRK4() *Explicit { return NewExplicit(RK4Tableau) }

func (e *Explicit) Order() int { return e.tab.Order }

func (e *Explicit) resize(n int) {
	if len(e.probe) == n && len(e.stages) == len(e.tab.B) {
		return
	}
	e.stages = make([]dynamo.State, len(e.tab.B))
	for i := range e.stages {
		e.stages[i] = make(dynamo.State, n)
	}
	e.probe = make(dynamo.State, n)
}

func (e *Explicit) Step(dyn dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	n := len(x)
	e.resize(n)

	for s, row := range e.tab.A {
		copy(e.probe, x)
		for j, a := range row {
			if a == 0 {
				continue
			}
			kj := e.stages[j]
			for i := range e.probe {
				e.probe[i] += dt * a * kj[i]
			}
		}
		// Derive may return a view into the system's buffers.
		copy(e.stages[s], dyn.Derive(t+e.tab.C[s]*dt, e.probe))
	}

	out := x.Clone()
	for s, b := range e.tab.B {
		ks := e.stages[s]
		for i := range out {
			out[i] += dt * b * ks[i]
		}
	}
	return out
}
