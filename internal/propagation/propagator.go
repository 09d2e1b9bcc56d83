// Package propagation integrates the nominal dynamics of the estimated
// bodies together with their variational equations.
package propagation

import (
	"errors"
	"fmt"
	"strings"

	kitlog "github.com/go-kit/kit/log"

	"github.com/san-kum/varsens/internal/dynamo"
	"github.com/san-kum/varsens/internal/environment"
	"github.com/san-kum/varsens/internal/estimation"
	"github.com/san-kum/varsens/internal/forces"
	"github.com/san-kum/varsens/internal/partials"
	"github.com/san-kum/varsens/internal/variational"
)

var (
	ErrUnsupportedStateType = errors.New("propagation: state type has no nominal dynamics")
	ErrCentralMismatch      = errors.New("propagation: central body differs from the environment")
	ErrNoNominal            = errors.New("propagation: variational-only mode needs a nominal trajectory")
)

// Mode selects what the integrator carries.
type Mode int

const (
	// Augmented integrates the nominal state and the composite together.
	Augmented Mode = iota
	// VariationalOnly integrates the composite against a nominal trajectory
	// computed elsewhere.
	VariationalOnly
)

func (m Mode) String() string {
	switch m {
	case Augmented:
		return "augmented"
	case VariationalOnly:
		return "variational-only"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "augmented":
		return Augmented, nil
	case "variational-only", "variational_only", "separate":
		return VariationalOnly, nil
	}
	return 0, fmt.Errorf("propagation: unknown mode %q", s)
}

// Models lists the nominal models acting on each estimated body. The
// accelerations of a translational body describe its motion relative to
// its central body.
type Models struct {
	Accelerations map[string][]forces.Accelerator
	Rates         map[string][]forces.RateModel
}

// entity is one estimated state in row order.
type entity struct {
	st     estimation.StateType
	name   string
	row    int
	accels []forces.Accelerator
	rates  []forces.RateModel
}

type Propagator struct {
	env        *environment.Environment
	set        *estimation.ParameterSet
	engine     *variational.Engine
	integrator dynamo.Integrator
	entities   []entity
	mode       Mode
	nominal    func(t float64) dynamo.State
	metrics    []dynamo.Metric
	observers  []dynamo.Observer
	logger     kitlog.Logger

	x0      dynamo.State
	applied dynamo.State
}

type Option func(*Propagator)

func WithMode(m Mode) Option { return func(p *Propagator) { p.mode = m } }

// WithNominal supplies the nominal state history for VariationalOnly runs.
// Without it, Run propagates the nominal first and interpolates it.
func WithNominal(f func(t float64) dynamo.State) Option {
	return func(p *Propagator) { p.nominal = f }
}

func WithLogger(l kitlog.Logger) Option {
	return func(p *Propagator) {
		if l != nil {
			p.logger = l
		}
	}
}

func WithMetric(m dynamo.Metric) Option {
	return func(p *Propagator) { p.metrics = append(p.metrics, m) }
}

func WithObserver(o dynamo.Observer) Option {
	return func(p *Propagator) { p.observers = append(p.observers, o) }
}

// New builds the partials map from models and the variational engine for
// set. Initial states are read from env.
func New(env *environment.Environment, set *estimation.ParameterSet, models Models, integ dynamo.Integrator, opts ...Option) (*Propagator, error) {
	p := &Propagator{
		env:        env,
		set:        set,
		integrator: integ,
		logger:     kitlog.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}

	m := partials.Map{}
	row := 0
	for _, st := range estimation.StateTypes {
		states := set.InitialStatesOf(st)
		if len(states) == 0 {
			continue
		}
		if st != estimation.Translational && st != estimation.Mass {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedStateType, st)
		}
		lists := make([][]partials.Provider, len(states))
		for i, param := range states {
			b, err := env.Body(param.ID.Body)
			if err != nil {
				return nil, err
			}
			e := entity{st: st, name: b.Name, row: row}
			switch st {
			case estimation.Translational:
				if b.Central != param.CentralBody {
					return nil, fmt.Errorf("%w: %s is relative to %q, parameter says %q", ErrCentralMismatch, b.Name, b.Central, param.CentralBody)
				}
				e.accels = models.Accelerations[b.Name]
				for _, a := range e.accels {
					lists[i] = append(lists[i], a)
				}
			case estimation.Mass:
				e.rates = models.Rates[b.Name]
				for _, r := range e.rates {
					lists[i] = append(lists[i], r)
				}
			}
			p.entities = append(p.entities, e)
			row += st.Size()
		}
		m[st] = lists
	}

	engine, err := variational.New(m, set, variational.WithLogger(kitlog.With(p.logger, "component", "variational")))
	if err != nil {
		return nil, err
	}
	p.engine = engine
	p.x0 = p.readState()
	return p, nil
}

func (p *Propagator) Engine() *variational.Engine { return p.engine }
func (p *Propagator) Mode() Mode                  { return p.mode }

// InitialState is the nominal state of the estimated bodies when the
// propagator was built.
func (p *Propagator) InitialState() dynamo.State { return p.x0.Clone() }

func (p *Propagator) readState() dynamo.State {
	x := make(dynamo.State, p.engine.TotalStateSize())
	for _, e := range p.entities {
		b, _ := p.env.Body(e.name)
		switch e.st {
		case estimation.Translational:
			copy(x[e.row:], []float64{b.Position.X, b.Position.Y, b.Position.Z, b.Velocity.X, b.Velocity.Y, b.Velocity.Z})
		case estimation.Mass:
			x[e.row] = b.Mass
		}
	}
	return x
}

// apply writes x into the environment and reports whether it differs from
// the last applied state.
func (p *Propagator) apply(x dynamo.State) bool {
	if len(p.applied) == len(x) {
		same := true
		for i := range x {
			if x[i] != p.applied[i] {
				same = false
				break
			}
		}
		if same {
			return false
		}
	}
	p.applied = append(p.applied[:0], x...)

	for _, e := range p.entities {
		switch e.st {
		case estimation.Translational:
			r := x[e.row : e.row+6]
			p.env.SetState(e.name, vec(r[0:3]), vec(r[3:6]))
		case estimation.Mass:
			p.env.SetMass(e.name, x[e.row])
		}
	}
	return true
}

// sync moves the environment to x and drops engine partials computed for
// another state.
func (p *Propagator) sync(x dynamo.State) {
	if p.apply(x) {
		p.engine.Invalidate()
	}
}

// derive writes the nominal derivative of the environment's current state.
func (p *Propagator) derive(x, dx dynamo.State) {
	for _, e := range p.entities {
		switch e.st {
		case estimation.Translational:
			copy(dx[e.row:e.row+3], x[e.row+3:e.row+6])
			var a [3]float64
			for _, m := range e.accels {
				acc := m.Acceleration()
				a[0] += acc.X
				a[1] += acc.Y
				a[2] += acc.Z
			}
			copy(dx[e.row+3:e.row+6], a[:])
		case estimation.Mass:
			rate := 0.0
			for _, m := range e.rates {
				rate += m.Rate()
			}
			dx[e.row] = rate
		}
	}
}
