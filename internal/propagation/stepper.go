package propagation

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/varsens/internal/dynamo"
)

func validateConfig(cfg dynamo.Config) error {
	if cfg.Dt == 0 || math.IsNaN(cfg.Dt) || math.IsInf(cfg.Dt, 0) {
		return fmt.Errorf("dt must be finite and non-zero, got %f", cfg.Dt)
	}
	if cfg.Duration < 0 || math.IsNaN(cfg.Duration) || math.IsInf(cfg.Duration, 0) {
		return fmt.Errorf("duration must be finite and non-negative, got %f", cfg.Duration)
	}
	if cfg.SampleEvery < 0 {
		return fmt.Errorf("sample interval must be non-negative, got %d", cfg.SampleEvery)
	}
	if cfg.Adaptive {
		if cfg.Tolerance <= 0 {
			return fmt.Errorf("tolerance must be positive for adaptive stepping")
		}
		if cfg.MinDt <= 0 || cfg.MaxDt < cfg.MinDt {
			return fmt.Errorf("adaptive step bounds invalid: min %g, max %g", cfg.MinDt, cfg.MaxDt)
		}
	}
	return nil
}

type stepStats struct {
	steps    int
	rejected int
}

// stepper drives an integrator from cfg.Start over cfg.Duration in the
// direction of cfg.Dt. The last step is shortened to land on the end time.
type stepper struct {
	integrator dynamo.Integrator
	sys        dynamo.System
	cfg        dynamo.Config
}

func (s *stepper) run(ctx context.Context, x dynamo.State, onStep func(step int, t float64, x dynamo.State) bool) (stepStats, error) {
	var st stepStats
	cfg := s.cfg
	dir := 1.0
	if cfg.Dt < 0 {
		dir = -1
	}
	t := cfg.Start
	end := cfg.Start + dir*cfg.Duration
	eps := 1e-12 * math.Max(1, math.Abs(end))
	h := math.Abs(cfg.Dt)
	if cfg.Adaptive {
		h = math.Min(math.Max(h, cfg.MinDt), cfg.MaxDt)
	}

	for math.Abs(end-t) > eps {
		select {
		case <-ctx.Done():
			return st, &dynamo.SimulationError{Step: st.steps, Time: t, State: x,
				Wrapped: fmt.Errorf("%w: %w", dynamo.ErrContextCanceled, ctx.Err())}
		default:
		}

		remaining := math.Abs(end - t)
		last := h >= remaining
		dt := math.Min(h, remaining)

		var newX dynamo.State
		if cfg.Adaptive {
			var next float64
			var err error
			newX, next, err = s.adaptiveStep(x, t, dir*dt)
			next = math.Abs(next)
			if errors.Is(err, dynamo.ErrStepRejected) {
				st.rejected++
				if next < cfg.MinDt {
					return st, &dynamo.SimulationError{Step: st.steps, Time: t, State: x, Wrapped: dynamo.ErrStepTooSmall}
				}
				h = next
				continue
			}
			if err != nil {
				return st, &dynamo.SimulationError{Step: st.steps, Time: t, State: x, Wrapped: err}
			}
			h = math.Min(math.Max(next, cfg.MinDt), cfg.MaxDt)
		} else {
			newX = s.integrator.Step(s.sys, x, t, dir*dt)
		}

		if cfg.ValidateState && !newX.IsValid() {
			return st, &dynamo.SimulationError{Step: st.steps, Time: t, State: x, Wrapped: dynamo.ErrInvalidState}
		}

		x = newX
		if last {
			t = end
		} else {
			t += dir * dt
		}
		st.steps++
		if onStep != nil && !onStep(st.steps, t, x) {
			break
		}
	}
	return st, nil
}

// adaptiveStep falls back to step doubling for fixed-step integrators.
func (s *stepper) adaptiveStep(x dynamo.State, t, dt float64) (dynamo.State, float64, error) {
	if adaptive, ok := s.integrator.(dynamo.AdaptiveIntegrator); ok {
		return adaptive.StepAdaptive(s.sys, x, t, dt, s.cfg.Tolerance)
	}

	x1 := s.integrator.Step(s.sys, x, t, dt)
	xHalf := s.integrator.Step(s.sys, x, t, dt/2)
	x2 := s.integrator.Step(s.sys, xHalf, t+dt/2, dt/2)

	err := x1.Sub(x2).Norm()

	if err > s.cfg.Tolerance && math.Abs(dt) > s.cfg.MinDt {
		return x, dt / 2, dynamo.ErrStepRejected
	}

	if err < s.cfg.Tolerance/10 && math.Abs(dt) < s.cfg.MaxDt {
		dt = math.Copysign(math.Min(math.Abs(dt)*2, s.cfg.MaxDt), dt)
	}

	return x2, dt, nil
}
