package automation

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	kitlog "github.com/go-kit/kit/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/varsens/internal/config"
	"github.com/san-kum/varsens/internal/dynamo"
	"github.com/san-kum/varsens/internal/estimation"
	"github.com/san-kum/varsens/internal/experiment"
)

// MonteCarloConfig sets the spread of random initial-state deviations.
type MonteCarloConfig struct {
	Trials        int
	PositionSigma float64
	VelocitySigma float64
	MassSigma     float64
	Seed          int64
	Parallel      int
}

// MonteCarloResult compares the nonlinear effect of one deviation of the
// initial state with its linear prediction Φ(t, t0)·δx0.
type MonteCarloResult struct {
	Trial         int
	Deviation     []float64
	Actual        dynamo.State
	Predicted     dynamo.State
	RelativeError float64
}

// RunMonteCarlo propagates sc and cfg.Trials perturbed copies of it, and
// checks how well the nominal transition matrix maps each initial
// deviation to the final one.
func RunMonteCarlo(ctx context.Context, sc *config.Scenario, reg *experiment.Registry, cfg MonteCarloConfig, logger kitlog.Logger) ([]MonteCarloResult, error) {
	if cfg.Trials <= 0 {
		return nil, fmt.Errorf("automation: monte carlo needs at least one trial")
	}
	exp, err := reg.Build(sc)
	if err != nil {
		return nil, err
	}
	set := exp.Set

	bodies := make(map[string]int, len(sc.Bodies))
	for i, b := range sc.Bodies {
		bodies[b.Name] = i
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	if cfg.Seed == 0 {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	n := set.InitialStateSize()
	scenarios := []*config.Scenario{sc}
	deviations := make([][]float64, cfg.Trials)
	for trial := range deviations {
		s := sc.Clone()
		s.Name = fmt.Sprintf("%s_mc%d", sc.Name, trial)
		s.SampleEvery = 0
		dx := make([]float64, n)
		for _, p := range set.InitialStates() {
			row, _, _ := set.Column(p.ID)
			b := &s.Bodies[bodies[p.ID.Body]]
			switch st, _ := p.ID.Kind.StateType(); st {
			case estimation.Translational:
				for k := 0; k < 3; k++ {
					dx[row+k] = rng.NormFloat64() * cfg.PositionSigma
					dx[row+3+k] = rng.NormFloat64() * cfg.VelocitySigma
					b.Position[k] += dx[row+k]
					b.Velocity[k] += dx[row+3+k]
				}
			case estimation.Mass:
				dx[row] = rng.NormFloat64() * cfg.MassSigma
				b.Mass += dx[row]
			default:
				return nil, fmt.Errorf("automation: cannot perturb %s", p.ID)
			}
		}
		deviations[trial] = dx
		scenarios = append(scenarios, s)
	}

	results, err := RunScenarios(ctx, scenarios, reg, cfg.Parallel, logger)
	if err != nil {
		return nil, err
	}

	nominal := results[0]
	phi := nominal.TransitionMatrix()
	xf := nominal.FinalState()

	out := make([]MonteCarloResult, cfg.Trials)
	for trial, res := range results[1:] {
		actual := res.FinalState().Sub(xf)
		predicted := make(dynamo.State, n)
		mat.NewVecDense(n, predicted).MulVec(phi, mat.NewVecDense(n, deviations[trial]))

		rel := 0.0
		if norm := floats.Norm(actual, 2); norm > 0 {
			rel = floats.Distance(actual, predicted, 2) / norm
		}
		out[trial] = MonteCarloResult{
			Trial:         trial,
			Deviation:     deviations[trial],
			Actual:        actual,
			Predicted:     predicted,
			RelativeError: rel,
		}
	}
	return out, nil
}

// LinearityStats returns the mean and the largest relative error.
func LinearityStats(results []MonteCarloResult) (mean, worst float64) {
	if len(results) == 0 {
		return 0, 0
	}
	for _, r := range results {
		mean += r.RelativeError
		worst = math.Max(worst, r.RelativeError)
	}
	return mean / float64(len(results)), worst
}
