package automation

import (
	"context"
	"fmt"
	"math"
	"slices"

	kitlog "github.com/go-kit/kit/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/varsens/internal/config"
	"github.com/san-kum/varsens/internal/experiment"
)

// SweepResult compares one timestep against the finest of a sweep.
type SweepResult struct {
	Dt             float64
	Steps          int
	StateError     float64
	CompositeError float64
	// Order is the observed convergence order of CompositeError between
	// this timestep and the next finer one, NaN where undefined.
	Order float64
}

// RunStepSweep propagates sc once per timestep and measures the final
// state and composite against the smallest |dt|. Results are ordered from
// the coarsest step to the finest.
func RunStepSweep(ctx context.Context, sc *config.Scenario, dts []float64, reg *experiment.Registry, parallel int, logger kitlog.Logger) ([]SweepResult, error) {
	if len(dts) < 2 {
		return nil, fmt.Errorf("automation: sweep needs at least two timesteps")
	}
	dts = slices.Clone(dts)
	slices.SortFunc(dts, func(a, b float64) int {
		switch {
		case math.Abs(a) > math.Abs(b):
			return -1
		case math.Abs(a) < math.Abs(b):
			return 1
		}
		return 0
	})

	scenarios := make([]*config.Scenario, len(dts))
	for i, dt := range dts {
		s := sc.Clone()
		s.Name = fmt.Sprintf("%s_dt%g", sc.Name, dt)
		s.Dt = dt
		s.Adaptive = false
		s.SampleEvery = 0
		scenarios[i] = s
	}

	results, err := RunScenarios(ctx, scenarios, reg, parallel, logger)
	if err != nil {
		return nil, err
	}

	ref := results[len(results)-1]
	refState := ref.FinalState()
	refComp := ref.Final()
	refNorm := mat.Norm(refComp, 2)

	out := make([]SweepResult, len(results))
	for i, res := range results {
		var diff mat.Dense
		diff.Sub(res.Final(), refComp)
		out[i] = SweepResult{
			Dt:             dts[i],
			Steps:          res.StepsTaken,
			StateError:     floats.Distance(res.FinalState(), refState, 2),
			CompositeError: mat.Norm(&diff, 2) / refNorm,
			Order:          math.NaN(),
		}
	}
	// The finest run is the reference, so orders use the pairs before it.
	for i := 0; i+2 < len(out); i++ {
		a, b := out[i], out[i+1]
		if a.CompositeError > 0 && b.CompositeError > 0 {
			out[i].Order = math.Log(a.CompositeError/b.CompositeError) / math.Log(math.Abs(a.Dt/b.Dt))
		}
	}
	return out, nil
}
