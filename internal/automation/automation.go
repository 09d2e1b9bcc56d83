// Package automation runs scripted groups of propagations: batches of
// scenarios, timestep convergence sweeps and Monte Carlo checks of the
// linearised dynamics.
package automation

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	kitlog "github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/varsens/internal/config"
	"github.com/san-kum/varsens/internal/experiment"
	"github.com/san-kum/varsens/internal/propagation"
)

// Batch is a set of independent runs propagated concurrently.
type Batch struct {
	Name     string     `yaml:"name"`
	Parallel int        `yaml:"parallel"`
	Runs     []BatchRun `yaml:"runs"`

	dir string
}

// BatchRun names a preset or a scenario file, with optional overrides.
type BatchRun struct {
	Name       string  `yaml:"name"`
	Preset     string  `yaml:"preset"`
	File       string  `yaml:"file"`
	Integrator string  `yaml:"integrator"`
	Mode       string  `yaml:"mode"`
	Dt         float64 `yaml:"dt"`
	Duration   float64 `yaml:"duration"`
}

// LoadBatch reads a batch file. Scenario files are resolved relative to it.
func LoadBatch(path string) (*Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var b Batch
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, err
	}
	b.dir = filepath.Dir(path)
	return &b, nil
}

// Scenarios resolves every run to a validated scenario.
func (b *Batch) Scenarios() ([]*config.Scenario, error) {
	out := make([]*config.Scenario, 0, len(b.Runs))
	for i, run := range b.Runs {
		var sc *config.Scenario
		switch {
		case run.Preset != "" && run.File != "":
			return nil, fmt.Errorf("run %d: both preset and file given", i+1)
		case run.Preset != "":
			if sc = config.GetPreset(run.Preset); sc == nil {
				return nil, fmt.Errorf("run %d: unknown preset %q", i+1, run.Preset)
			}
		case run.File != "":
			path := run.File
			if !filepath.IsAbs(path) {
				path = filepath.Join(b.dir, path)
			}
			var err error
			if sc, err = config.Load(path); err != nil {
				return nil, fmt.Errorf("run %d: %w", i+1, err)
			}
		default:
			return nil, fmt.Errorf("run %d: no preset or file", i+1)
		}

		if run.Name != "" {
			sc.Name = run.Name
		}
		if run.Integrator != "" {
			sc.Integrator = run.Integrator
		}
		if run.Mode != "" {
			sc.Mode = run.Mode
		}
		if run.Dt != 0 {
			sc.Dt = run.Dt
		}
		if run.Duration != 0 {
			sc.Duration = run.Duration
		}
		if err := sc.Validate(); err != nil {
			return nil, fmt.Errorf("run %d: %w", i+1, err)
		}
		out = append(out, sc)
	}
	return out, nil
}

// RunScenarios propagates each scenario as an independent arc, at most
// parallel at a time. Results follow the order of scenarios.
func RunScenarios(ctx context.Context, scenarios []*config.Scenario, reg *experiment.Registry, parallel int, logger kitlog.Logger) ([]*propagation.Result, error) {
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	arcs := make([]propagation.Arc, len(scenarios))
	for i, sc := range scenarios {
		arcs[i] = propagation.Arc{
			Name: sc.Name,
			Build: func() (*propagation.Propagator, error) {
				exp, err := reg.Build(sc, experiment.WithLogger(logger))
				if err != nil {
					return nil, err
				}
				return exp.Propagator, nil
			},
			Config: sc.RunConfig(),
		}
	}

	level.Info(logger).Log("msg", "running batch", "runs", len(arcs), "parallel", parallel)
	return propagation.RunArcs(ctx, arcs, parallel)
}

// RunBatch resolves and runs every entry of b.
func RunBatch(ctx context.Context, b *Batch, reg *experiment.Registry, logger kitlog.Logger) ([]*config.Scenario, []*propagation.Result, error) {
	scenarios, err := b.Scenarios()
	if err != nil {
		return nil, nil, err
	}
	results, err := RunScenarios(ctx, scenarios, reg, b.Parallel, logger)
	if err != nil {
		return nil, nil, err
	}
	return scenarios, results, nil
}
