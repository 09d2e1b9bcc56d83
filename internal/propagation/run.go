package propagation

import (
	"context"
	"errors"

	"github.com/go-kit/kit/log/level"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/varsens/internal/dynamo"
	"github.com/san-kum/varsens/internal/variational"
)

// Run propagates from the initial state over cfg. Invalid states stop the
// run and are reported in Result.Errors when cfg.ValidateState is set.
func (p *Propagator) Run(ctx context.Context, cfg dynamo.Config) (*Result, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	n, cols := p.engine.TotalStateSize(), p.engine.NumberOfParameterValues()
	x0 := p.InitialState()
	p.applied = nil

	var (
		sys         dynamo.System
		x           dynamo.State
		nominalOf   func(t float64, x dynamo.State) dynamo.State
		compositeOf func(x dynamo.State) *mat.Dense
	)
	switch p.mode {
	case VariationalOnly:
		nominal := p.nominal
		if nominal == nil {
			tr, err := p.NominalTrajectory(ctx, cfg)
			if err != nil {
				return nil, err
			}
			nominal = tr.At
		}
		sys = variational.NewSystem(p.engine, func(t float64) { p.sync(nominal(t)) })
		x = make(dynamo.State, n*cols)
		variational.Flatten(x, p.engine.InitialComposite())
		nominalOf = func(t float64, _ dynamo.State) dynamo.State { return nominal(t) }
		compositeOf = func(x dynamo.State) *mat.Dense { return variational.CompositeView(x, n, cols) }
	default:
		sys = &augmentedSystem{p: p, n: n, cols: cols}
		x = make(dynamo.State, n+n*cols)
		copy(x, x0)
		variational.Flatten(x[n:], p.engine.InitialComposite())
		nominalOf = func(_ float64, x dynamo.State) dynamo.State { return x[:n] }
		compositeOf = func(x dynamo.State) *mat.Dense { return variational.CompositeView(x[n:], n, cols) }
	}

	for _, m := range p.metrics {
		m.Reset()
	}

	res := &Result{
		Mode:      p.mode,
		Labels:    p.set.Labels(),
		StateSize: n,
		Metrics:   make(map[string]float64),
	}

	level.Info(p.logger).Log(
		"msg", "propagation started",
		"mode", p.mode,
		"state_size", n,
		"parameters", cols,
		"start", cfg.Start,
		"duration", cfg.Duration,
		"dt", cfg.Dt,
		"adaptive", cfg.Adaptive,
	)

	lastT, last := cfg.Start, x
	sampledLast := false
	observe := func(step int, t float64, x dynamo.State) {
		xn := nominalOf(t, x)
		c := compositeOf(x)
		for _, m := range p.metrics {
			m.Observe(t, xn, c)
		}
		for _, o := range p.observers {
			o.OnStep(t, xn, c)
		}
		res.Times = append(res.Times, t)
		res.States = append(res.States, xn.Clone())
		sampledLast = cfg.SampleEvery > 0 && step%cfg.SampleEvery == 0
		if sampledLast {
			res.addComposite(t, c)
		}
		lastT, last = t, x
	}
	observe(0, cfg.Start, x)

	loop := stepper{integrator: p.integrator, sys: sys, cfg: cfg}
	stats, err := loop.run(ctx, x, func(step int, t float64, x dynamo.State) bool {
		observe(step, t, x)
		return true
	})
	res.StepsTaken = stats.steps
	res.Rejected = stats.rejected

	if err != nil {
		if !errors.Is(err, dynamo.ErrInvalidState) {
			return res, err
		}
		res.Errors = append(res.Errors, err)
		level.Warn(p.logger).Log("msg", "propagation stopped on invalid state", "t", lastT, "steps", stats.steps)
	}

	if !sampledLast {
		res.addComposite(lastT, compositeOf(last))
	}
	for _, m := range p.metrics {
		res.Metrics[m.Name()] = m.Value()
	}

	level.Info(p.logger).Log(
		"msg", "propagation finished",
		"steps", stats.steps,
		"rejected", stats.rejected,
		"t", lastT,
		"engine_updates", p.engine.Updates(),
	)
	return res, nil
}
