// Package config reads and writes YAML scenario files describing an
// estimation problem: bodies, estimated parameters, force models and the
// integration settings.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/varsens/internal/dynamo"
	"github.com/san-kum/varsens/internal/estimation"
)

var ErrInvalidScenario = errors.New("config: invalid scenario")

// Units are km, s and kg throughout. Pressure, density and area must be
// given so that the resulting accelerations are in km/s².
type Scenario struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description,omitempty"`
	Integrator  string  `yaml:"integrator"`
	Mode        string  `yaml:"mode,omitempty"`
	Start       float64 `yaml:"start,omitempty"`
	Dt          float64 `yaml:"dt"`
	Duration    float64 `yaml:"duration"`
	Adaptive    bool    `yaml:"adaptive,omitempty"`
	Tolerance   float64 `yaml:"tolerance,omitempty"`
	MinDt       float64 `yaml:"min_dt,omitempty"`
	MaxDt       float64 `yaml:"max_dt,omitempty"`
	SampleEvery int     `yaml:"sample_every"`

	Bodies   []BodyConfig      `yaml:"bodies"`
	Estimate []ParameterConfig `yaml:"estimate"`
	Forces   []ForceConfig     `yaml:"forces"`
	Metrics  []string          `yaml:"metrics,omitempty"`
}

type BodyConfig struct {
	Name                   string     `yaml:"name"`
	Central                string     `yaml:"central,omitempty"`
	Position               [3]float64 `yaml:"position,flow"`
	Velocity               [3]float64 `yaml:"velocity,flow"`
	Mass                   float64    `yaml:"mass,omitempty"`
	GravitationalParameter float64    `yaml:"gravitational_parameter,omitempty"`
	Radius                 float64    `yaml:"radius,omitempty"`
}

type ParameterConfig struct {
	Kind   string `yaml:"kind"`
	Body   string `yaml:"body"`
	Detail string `yaml:"detail,omitempty"`
}

// ForceConfig describes one model. Only the fields of its type are read.
type ForceConfig struct {
	Type   string `yaml:"type"`
	Body   string `yaml:"body"`
	Source string `yaml:"source,omitempty"`

	Coefficient       float64 `yaml:"coefficient,omitempty"`
	Area              float64 `yaml:"area,omitempty"`
	Pressure          float64 `yaml:"pressure,omitempty"`
	ReferenceDistance float64 `yaml:"reference_distance,omitempty"`

	Density         float64 `yaml:"density,omitempty"`
	ReferenceRadius float64 `yaml:"reference_radius,omitempty"`
	ScaleHeight     float64 `yaml:"scale_height,omitempty"`

	Detail       string     `yaml:"detail,omitempty"`
	Acceleration [3]float64 `yaml:"acceleration,flow,omitempty"`

	Thrust float64 `yaml:"thrust,omitempty"`
	Isp    float64 `yaml:"isp,omitempty"`
}

// ForceTypes lists the model types a scenario may name.
var ForceTypes = []string{"point_mass", "radiation", "drag", "empirical", "mass_rate"}

// sourced reports whether the force type needs a source body.
func sourced(typ string) bool {
	switch typ {
	case "point_mass", "radiation", "drag":
		return true
	}
	return false
}

func DefaultScenario() *Scenario {
	return GetPreset("leo_two_body")
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Scenario, error) {
	s := &Scenario{SampleEvery: 1}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func Save(path string, s *Scenario) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// RunConfig returns the integration settings, falling back to the
// defaults for unset adaptive bounds.
func (s *Scenario) RunConfig() dynamo.Config {
	cfg := dynamo.DefaultConfig()
	cfg.Start = s.Start
	cfg.Dt = s.Dt
	cfg.Duration = s.Duration
	cfg.Adaptive = s.Adaptive
	cfg.SampleEvery = s.SampleEvery
	if s.Tolerance > 0 {
		cfg.Tolerance = s.Tolerance
	}
	if s.MinDt > 0 {
		cfg.MinDt = s.MinDt
	}
	if s.MaxDt > 0 {
		cfg.MaxDt = s.MaxDt
	}
	return cfg
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidScenario, fmt.Sprintf(format, args...))
}

func (s *Scenario) Validate() error {
	if s.Integrator == "" {
		return invalid("no integrator")
	}
	if s.Dt == 0 {
		return invalid("dt must be non-zero")
	}
	if s.Duration < 0 {
		return invalid("duration must be non-negative, got %g", s.Duration)
	}
	if s.SampleEvery < 0 {
		return invalid("sample_every must be non-negative")
	}

	bodies := make(map[string]BodyConfig, len(s.Bodies))
	for _, b := range s.Bodies {
		if b.Name == "" {
			return invalid("body without a name")
		}
		if _, ok := bodies[b.Name]; ok {
			return invalid("duplicate body %q", b.Name)
		}
		bodies[b.Name] = b
	}
	for _, b := range s.Bodies {
		if b.Central == "" {
			continue
		}
		if _, ok := bodies[b.Central]; !ok {
			return invalid("body %q relative to unknown body %q", b.Name, b.Central)
		}
	}
	for _, b := range s.Bodies {
		name := b.Central
		for hops := 0; name != ""; hops++ {
			if name == b.Name || hops > len(bodies) {
				return invalid("central-body cycle at %q", b.Name)
			}
			name = bodies[name].Central
		}
	}

	states := 0
	for _, p := range s.Estimate {
		kind, err := estimation.ParseParameterKind(p.Kind)
		if err != nil {
			return invalid("%v", err)
		}
		if _, ok := bodies[p.Body]; !ok {
			return invalid("parameter %s of unknown body %q", p.Kind, p.Body)
		}
		if kind.IsInitialState() {
			states++
		}
	}
	if states == 0 {
		return invalid("no initial state estimated")
	}

	for _, f := range s.Forces {
		known := false
		for _, t := range ForceTypes {
			known = known || t == f.Type
		}
		if !known {
			return invalid("unknown force type %q", f.Type)
		}
		if _, ok := bodies[f.Body]; !ok {
			return invalid("%s force on unknown body %q", f.Type, f.Body)
		}
		if sourced(f.Type) {
			if _, ok := bodies[f.Source]; !ok {
				return invalid("%s force from unknown body %q", f.Type, f.Source)
			}
		}
		if f.Type == "mass_rate" && f.Isp <= 0 {
			return invalid("mass_rate on %q needs a positive isp", f.Body)
		}
		if f.Type == "drag" && f.ScaleHeight <= 0 {
			return invalid("drag on %q needs a positive scale_height", f.Body)
		}
	}
	return nil
}

// Clone returns a deep copy.
func (s *Scenario) Clone() *Scenario {
	c := *s
	c.Bodies = append([]BodyConfig(nil), s.Bodies...)
	c.Estimate = append([]ParameterConfig(nil), s.Estimate...)
	c.Forces = append([]ForceConfig(nil), s.Forces...)
	c.Metrics = append([]string(nil), s.Metrics...)
	return &c
}
