package variational

import (
	"fmt"

	kitlog "github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/san-kum/varsens/internal/estimation"
	"github.com/san-kum/varsens/internal/partials"
	"gonum.org/v1/gonum/mat"
)

// Engine evaluates the variational equations of a fixed estimation problem.
type Engine struct {
	index     *IndexMap
	order     []string
	providers []partials.Provider
	states    *statePartials
	params    *parameterPartials

	a *mat.Dense
	b *mat.Dense // nil without auxiliary parameters

	current float64
	valid   bool
	updates int

	logger kitlog.Logger
}

type Option func(*Engine)

// WithLogger sets the logger for construction diagnostics.
func WithLogger(l kitlog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New validates m against set and precomputes the placement of every
// partial. m must hold one provider list per initial-state entry of set, per
// state type, in the same order.
func New(m partials.Map, set *estimation.ParameterSet, opts ...Option) (*Engine, error) {
	e := &Engine{logger: kitlog.NewNopLogger()}
	for _, opt := range opts {
		opt(e)
	}

	index, err := NewIndexMap(set)
	if err != nil {
		return nil, err
	}
	if index.StateSize() == 0 {
		return nil, &StructuralError{Op: "new",
			Err: fmt.Errorf("%w: no initial states estimated", ErrDimensionMismatch)}
	}
	if err := checkStructure(index, m); err != nil {
		return nil, err
	}

	bodies := index.Bodies(estimation.Translational)
	order, err := UpdateOrder(bodies, index.Centrals(estimation.Translational))
	if err != nil {
		return nil, err
	}

	states, err := newStatePartials(index, m, order)
	if err != nil {
		return nil, err
	}
	params, err := newParameterPartials(index, m)
	if err != nil {
		return nil, err
	}

	e.index = index
	e.order = order
	e.states = states
	e.params = params
	for _, st := range index.StateTypes() {
		for _, list := range m[st] {
			e.providers = append(e.providers, list...)
		}
	}

	n := index.StateSize()
	e.a = mat.NewDense(n, n, nil)
	if aux := index.AuxiliaryColumns(); aux > 0 {
		e.b = mat.NewDense(n, aux, nil)
	}

	level.Debug(e.logger).Log(
		"msg", "variational equations ready",
		"state_size", n,
		"parameters", index.Columns(),
		"providers", len(e.providers),
		"state_blocks", len(states.entries),
		"parameter_blocks", len(params.entries),
		"chain_corrections", len(states.chain),
	)
	return e, nil
}

func checkStructure(index *IndexMap, m partials.Map) error {
	for _, st := range index.StateTypes() {
		lists, ok := m[st]
		if !ok {
			return &StructuralError{Op: "new", StateType: st, Err: ErrMissingStateType}
		}
		if len(lists) != index.Count(st) {
			return &StructuralError{Op: "new", StateType: st,
				Err: fmt.Errorf("%w: %d provider lists, %d entities", ErrEntityCountMismatch, len(lists), index.Count(st))}
		}
	}
	for st, lists := range m {
		if len(lists) > 0 && index.Count(st) == 0 {
			return &StructuralError{Op: "new", StateType: st,
				Err: fmt.Errorf("%w: partials given for a state type that is not estimated", ErrMissingStateType)}
		}
	}
	return nil
}

// Update refreshes every provider and rebuilds A and B at t. Calls at the
// time of the last refresh are no-ops until Invalidate.
func (e *Engine) Update(t float64) {
	if e.valid && t == e.current {
		return
	}
	for _, p := range e.providers {
		p.Update(t)
	}
	e.states.build(e.a)
	if e.b != nil {
		e.params.build(e.b)
	}
	e.current = t
	e.valid = true
	e.updates++
}

// Invalidate forces the next Update to refresh. Integrators that evaluate
// several states at the same time must call it whenever the environment
// changes.
func (e *Engine) Invalidate() { e.valid = false }

// Updates counts the refreshes performed so far.
func (e *Engine) Updates() int { return e.updates }

// EvaluateDerivative returns A·m + [0|B] at t. m must be
// TotalStateSize x NumberOfParameterValues.
func (e *Engine) EvaluateDerivative(t float64, m mat.Matrix) *mat.Dense {
	dst := mat.NewDense(e.index.StateSize(), e.index.Columns(), nil)
	e.EvaluateDerivativeTo(dst, t, m)
	return dst
}

// EvaluateDerivativeTo is EvaluateDerivative writing into dst, which must not
// share storage with m. It panics with ErrDimensionMismatch on wrong shapes.
func (e *Engine) EvaluateDerivativeTo(dst *mat.Dense, t float64, m mat.Matrix) {
	n, p := e.index.StateSize(), e.index.Columns()
	if r, c := m.Dims(); r != n || c != p {
		panic(fmt.Errorf("%w: composite is %dx%d, want %dx%d", ErrDimensionMismatch, r, c, n, p))
	}
	if r, c := dst.Dims(); r != n || c != p {
		panic(fmt.Errorf("%w: destination is %dx%d, want %dx%d", ErrDimensionMismatch, r, c, n, p))
	}

	e.Update(t)
	dst.Mul(e.a, m)
	if e.b != nil {
		s := block(dst, 0, n, n, p-n)
		s.Add(s, e.b)
	}
}

// StateDerivativePartials returns a copy of A as of the last update.
func (e *Engine) StateDerivativePartials() *mat.Dense { return mat.DenseCopyOf(e.a) }

// ParameterPartials returns a copy of B as of the last update, or nil
// without auxiliary parameters.
func (e *Engine) ParameterPartials() *mat.Dense {
	if e.b == nil {
		return nil
	}
	return mat.DenseCopyOf(e.b)
}

// NumberOfParameterValues is the column count of the composite.
func (e *Engine) NumberOfParameterValues() int { return e.index.Columns() }

// TotalStateSize is the row count of the composite.
func (e *Engine) TotalStateSize() int { return e.index.StateSize() }

// Index exposes the row and column layout.
func (e *Engine) Index() *IndexMap { return e.index }

// UpdateOrder returns the translational bodies, central bodies first.
func (e *Engine) UpdateOrder() []string { return append([]string(nil), e.order...) }

// InitialComposite returns [I | 0], the composite at the initial epoch.
func (e *Engine) InitialComposite() *mat.Dense {
	n, p := e.index.StateSize(), e.index.Columns()
	m := mat.NewDense(n, p, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}
