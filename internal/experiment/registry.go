package experiment

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/varsens/internal/config"
	"github.com/san-kum/varsens/internal/dynamo"
	"github.com/san-kum/varsens/internal/environment"
	"github.com/san-kum/varsens/internal/estimation"
	"github.com/san-kum/varsens/internal/forces"
	"github.com/san-kum/varsens/internal/integrators"
	"github.com/san-kum/varsens/internal/metrics"
	"github.com/san-kum/varsens/internal/propagation"
)

type accelerationBuilder func(env *environment.Environment, f config.ForceConfig) (forces.Accelerator, error)

type rateBuilder func(f config.ForceConfig) (forces.RateModel, error)

type metricBuilder func(set *estimation.ParameterSet, env *environment.Environment) (dynamo.Metric, error)

type Registry struct {
	integrators   map[string]func() dynamo.Integrator
	accelerations map[string]accelerationBuilder
	rates         map[string]rateBuilder
	metrics       map[string]metricBuilder
}

func NewRegistry() *Registry {
	r := &Registry{
		integrators:   make(map[string]func() dynamo.Integrator),
		accelerations: make(map[string]accelerationBuilder),
		rates:         make(map[string]rateBuilder),
		metrics:       make(map[string]metricBuilder),
	}

	r.integrators["euler"] = func() dynamo.Integrator { return integrators.NewEuler() }
	r.integrators["heun"] = func() dynamo.Integrator { return integrators.NewHeun() }
	r.integrators["rk4"] = func() dynamo.Integrator { return integrators.NewRK4() }
	r.integrators["rk45"] = func() dynamo.Integrator { return integrators.NewRK45() }

	r.accelerations["point_mass"] = func(env *environment.Environment, f config.ForceConfig) (forces.Accelerator, error) {
		return forces.NewPointMass(env, f.Body, f.Source), nil
	}
	r.accelerations["radiation"] = func(env *environment.Environment, f config.ForceConfig) (forces.Accelerator, error) {
		if f.ReferenceDistance <= 0 {
			return nil, fmt.Errorf("radiation on %s: reference_distance must be positive", f.Body)
		}
		return forces.NewCannonballRadiation(env, f.Body, f.Source, f.Coefficient, f.Area, f.Pressure, f.ReferenceDistance), nil
	}
	r.accelerations["drag"] = func(env *environment.Environment, f config.ForceConfig) (forces.Accelerator, error) {
		atm := forces.Atmosphere{ReferenceDensity: f.Density, ReferenceRadius: f.ReferenceRadius, ScaleHeight: f.ScaleHeight}
		return forces.NewDrag(env, f.Body, f.Source, f.Coefficient, f.Area, atm), nil
	}
	r.accelerations["empirical"] = func(_ *environment.Environment, f config.ForceConfig) (forces.Accelerator, error) {
		a := r3.Vec{X: f.Acceleration[0], Y: f.Acceleration[1], Z: f.Acceleration[2]}
		return forces.NewEmpirical(f.Body, f.Detail, a), nil
	}

	r.rates["mass_rate"] = func(f config.ForceConfig) (forces.RateModel, error) {
		return forces.NewMassRate(f.Body, f.Thrust, f.Isp), nil
	}

	r.metrics["liouville"] = func(*estimation.ParameterSet, *environment.Environment) (dynamo.Metric, error) {
		return metrics.NewLiouville(), nil
	}
	r.metrics["symplectic"] = func(set *estimation.ParameterSet, _ *environment.Environment) (dynamo.Metric, error) {
		row, _, err := firstTranslational(set)
		if err != nil {
			return nil, err
		}
		return metrics.NewSymplecticity(row), nil
	}
	r.metrics["energy"] = func(set *estimation.ParameterSet, env *environment.Environment) (dynamo.Metric, error) {
		row, p, err := firstTranslational(set)
		if err != nil {
			return nil, err
		}
		return metrics.NewOrbitalEnergy(row, env.GravitationalParameter(p.CentralBody)), nil
	}
	r.metrics["peak_sensitivity"] = func(set *estimation.ParameterSet, _ *environment.Environment) (dynamo.Metric, error) {
		aux := set.Auxiliary()
		if len(aux) == 0 {
			return nil, fmt.Errorf("peak_sensitivity needs an estimated auxiliary parameter")
		}
		col, _, _ := set.Column(aux[0].ID)
		return metrics.NewPeakSensitivity(aux[0].ID.Kind.String(), col), nil
	}

	return r
}

func firstTranslational(set *estimation.ParameterSet) (int, estimation.Parameter, error) {
	states := set.InitialStatesOf(estimation.Translational)
	if len(states) == 0 {
		return 0, estimation.Parameter{}, fmt.Errorf("no translational state estimated")
	}
	row, _, _ := set.Column(states[0].ID)
	return row, states[0], nil
}

func (r *Registry) GetIntegrator(name string) (dynamo.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(), nil
}

func (r *Registry) GetMetric(name string, set *estimation.ParameterSet, env *environment.Environment) (dynamo.Metric, error) {
	fn, ok := r.metrics[name]
	if !ok {
		return nil, fmt.Errorf("unknown metric: %s", name)
	}
	return fn(set, env)
}

// AddForces builds the models of a scenario onto models.
func (r *Registry) AddForces(env *environment.Environment, fs []config.ForceConfig, models *propagation.Models) error {
	for _, f := range fs {
		if fn, ok := r.accelerations[f.Type]; ok {
			a, err := fn(env, f)
			if err != nil {
				return err
			}
			if models.Accelerations == nil {
				models.Accelerations = make(map[string][]forces.Accelerator)
			}
			models.Accelerations[f.Body] = append(models.Accelerations[f.Body], a)
			continue
		}
		if fn, ok := r.rates[f.Type]; ok {
			m, err := fn(f)
			if err != nil {
				return err
			}
			if models.Rates == nil {
				models.Rates = make(map[string][]forces.RateModel)
			}
			models.Rates[f.Body] = append(models.Rates[f.Body], m)
			continue
		}
		return fmt.Errorf("unknown force: %s", f.Type)
	}
	return nil
}

func (r *Registry) ListIntegrators() []string { return sortedKeys(r.integrators) }
func (r *Registry) ListMetrics() []string     { return sortedKeys(r.metrics) }

func (r *Registry) ListForces() []string {
	names := append(sortedKeys(r.accelerations), sortedKeys(r.rates)...)
	sort.Strings(names)
	return names
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
