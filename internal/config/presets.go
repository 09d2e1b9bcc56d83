package config

import "sort"

const (
	muEarth = 398600.4418
	muMoon  = 4902.8
	au      = 1.495978707e8
)

var leoBodies = []BodyConfig{
	{Name: "Earth", GravitationalParameter: muEarth, Radius: 6378.137},
	{Name: "Sun", Position: [3]float64{au, 0, 0}},
	{Name: "sat", Central: "Earth", Mass: 400,
		Position: [3]float64{6778, 0, 0}, Velocity: [3]float64{0, 7.6686, 0}},
}

var Presets = map[string]*Scenario{
	"leo_two_body": {
		Name:        "leo_two_body",
		Description: "circular LEO under Earth point-mass gravity, estimating state and GM",
		Integrator:  "rk4", Mode: "augmented", Dt: 10, Duration: 5400, SampleEvery: 6,
		Bodies: leoBodies,
		Estimate: []ParameterConfig{
			{Kind: "initial_state", Body: "sat"},
			{Kind: "gravitational_parameter", Body: "Earth"},
		},
		Forces: []ForceConfig{
			{Type: "point_mass", Body: "sat", Source: "Earth"},
		},
		Metrics: []string{"liouville", "symplectic", "energy", "peak_sensitivity"},
	},
	"leo_drag": {
		Name:        "leo_drag",
		Description: "LEO with exponential drag and cannonball radiation pressure",
		Integrator:  "rk4", Mode: "augmented", Dt: 10, Duration: 5400, SampleEvery: 6,
		Bodies: leoBodies,
		Estimate: []ParameterConfig{
			{Kind: "initial_state", Body: "sat"},
			{Kind: "drag_coefficient", Body: "sat"},
			{Kind: "radiation_pressure_coefficient", Body: "sat"},
		},
		Forces: []ForceConfig{
			{Type: "point_mass", Body: "sat", Source: "Earth"},
			// ρ in kg/km³, area in km².
			{Type: "drag", Body: "sat", Source: "Earth", Coefficient: 2.2, Area: 4e-6,
				Density: 3e-3, ReferenceRadius: 6778, ScaleHeight: 60},
			// Pressure in kg/(km s²) at one astronomical unit.
			{Type: "radiation", Body: "sat", Source: "Sun", Coefficient: 1.3, Area: 4e-6,
				Pressure: 4.56e-3, ReferenceDistance: au},
		},
		Metrics: []string{"energy", "peak_sensitivity"},
	},
	"lunar_chain": {
		Name:        "lunar_chain",
		Description: "probe orbiting the Moon, with the Moon itself propagated about Earth",
		Integrator:  "rk4", Mode: "augmented", Dt: 30, Duration: 86400, SampleEvery: 20,
		Bodies: []BodyConfig{
			{Name: "Earth", GravitationalParameter: muEarth, Radius: 6378.137},
			{Name: "Moon", Central: "Earth", GravitationalParameter: muMoon, Radius: 1737.4,
				Position: [3]float64{384400, 0, 0}, Velocity: [3]float64{0, 1.018, 0}},
			{Name: "probe", Central: "Moon", Mass: 100,
				Position: [3]float64{2000, 0, 0}, Velocity: [3]float64{0, 1.565, 0}},
		},
		Estimate: []ParameterConfig{
			{Kind: "initial_state", Body: "probe"},
			{Kind: "initial_state", Body: "Moon"},
			{Kind: "gravitational_parameter", Body: "Moon"},
		},
		Forces: []ForceConfig{
			{Type: "point_mass", Body: "probe", Source: "Moon"},
			{Type: "point_mass", Body: "probe", Source: "Earth"},
			{Type: "point_mass", Body: "Moon", Source: "Earth"},
		},
		Metrics: []string{"liouville", "peak_sensitivity"},
	},
	"mass_depletion": {
		Name:        "mass_depletion",
		Description: "LEO spacecraft burning propellant at constant thrust",
		Integrator:  "rk4", Mode: "augmented", Dt: 10, Duration: 1800, SampleEvery: 6,
		Bodies: leoBodies,
		Estimate: []ParameterConfig{
			{Kind: "initial_state", Body: "sat"},
			{Kind: "initial_mass", Body: "sat"},
			{Kind: "specific_impulse", Body: "sat"},
		},
		Forces: []ForceConfig{
			{Type: "point_mass", Body: "sat", Source: "Earth"},
			{Type: "mass_rate", Body: "sat", Thrust: 0.5, Isp: 220},
		},
		Metrics: []string{"energy", "peak_sensitivity"},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Scenario {
	s, ok := Presets[name]
	if !ok {
		return nil
	}
	return s.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
