// Package experiment assembles a runnable propagation from a scenario.
package experiment

import (
	"context"
	"fmt"

	kitlog "github.com/go-kit/kit/log"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/varsens/internal/config"
	"github.com/san-kum/varsens/internal/dynamo"
	"github.com/san-kum/varsens/internal/environment"
	"github.com/san-kum/varsens/internal/estimation"
	"github.com/san-kum/varsens/internal/propagation"
)

type Experiment struct {
	Scenario   *config.Scenario
	Env        *environment.Environment
	Set        *estimation.ParameterSet
	Propagator *propagation.Propagator
}

type Option func(*options)

type options struct {
	logger    kitlog.Logger
	observers []dynamo.Observer
}

func WithLogger(l kitlog.Logger) Option { return func(o *options) { o.logger = l } }

func WithObserver(obs dynamo.Observer) Option {
	return func(o *options) { o.observers = append(o.observers, obs) }
}

// Build validates s and wires its bodies, parameters, forces and metrics
// into a propagator.
func (r *Registry) Build(s *config.Scenario, opts ...Option) (*Experiment, error) {
	o := options{logger: kitlog.NewNopLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	env := environment.New()
	for _, b := range s.Bodies {
		err := env.AddBody(environment.Body{
			Name:                   b.Name,
			Central:                b.Central,
			Position:               r3.Vec{X: b.Position[0], Y: b.Position[1], Z: b.Position[2]},
			Velocity:               r3.Vec{X: b.Velocity[0], Y: b.Velocity[1], Z: b.Velocity[2]},
			Mass:                   b.Mass,
			GravitationalParameter: b.GravitationalParameter,
			Radius:                 b.Radius,
		})
		if err != nil {
			return nil, err
		}
	}

	set, err := parameterSet(s, env)
	if err != nil {
		return nil, err
	}

	var models propagation.Models
	if err := r.AddForces(env, s.Forces, &models); err != nil {
		return nil, err
	}

	integ, err := r.GetIntegrator(s.Integrator)
	if err != nil {
		return nil, err
	}

	popts := []propagation.Option{propagation.WithLogger(kitlog.With(o.logger, "scenario", s.Name))}
	if s.Mode != "" {
		mode, err := propagation.ParseMode(s.Mode)
		if err != nil {
			return nil, err
		}
		popts = append(popts, propagation.WithMode(mode))
	}
	for _, name := range s.Metrics {
		m, err := r.GetMetric(name, set, env)
		if err != nil {
			return nil, fmt.Errorf("metric %s: %w", name, err)
		}
		popts = append(popts, propagation.WithMetric(m))
	}
	for _, obs := range o.observers {
		popts = append(popts, propagation.WithObserver(obs))
	}

	p, err := propagation.New(env, set, models, integ, popts...)
	if err != nil {
		return nil, err
	}
	return &Experiment{Scenario: s, Env: env, Set: set, Propagator: p}, nil
}

func parameterSet(s *config.Scenario, env *environment.Environment) (*estimation.ParameterSet, error) {
	params := make([]estimation.Parameter, 0, len(s.Estimate))
	for _, pc := range s.Estimate {
		kind, err := estimation.ParseParameterKind(pc.Kind)
		if err != nil {
			return nil, err
		}
		switch kind {
		case estimation.InitialBodyState:
			b, err := env.Body(pc.Body)
			if err != nil {
				return nil, err
			}
			params = append(params, estimation.InitialState(estimation.Translational, pc.Body, b.Central))
		case estimation.InitialRotationalState:
			params = append(params, estimation.InitialState(estimation.Rotational, pc.Body, ""))
		case estimation.InitialMass:
			params = append(params, estimation.InitialState(estimation.Mass, pc.Body, ""))
		case estimation.EmpiricalAcceleration:
			params = append(params, estimation.Vector(kind, pc.Body, pc.Detail, 3))
		default:
			params = append(params, estimation.Scalar(kind, pc.Body))
		}
	}
	return estimation.NewParameterSet(params...)
}

func (e *Experiment) Run(ctx context.Context) (*propagation.Result, error) {
	return e.Propagator.Run(ctx, e.Scenario.RunConfig())
}
