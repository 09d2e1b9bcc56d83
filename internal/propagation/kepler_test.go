package propagation

import (
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

func cdot(a, b []complex128) complex128 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

// keplerStep propagates a two-body state by dt through the f and g series in
// the eccentric anomaly difference. It is written in complex arithmetic so
// that complex-step differentiation gives exact partials.
func keplerStep(x []complex128, mu complex128, dt float64) []complex128 {
	r, v := x[:3], x[3:6]
	r0 := cmplx.Sqrt(cdot(r, r))
	v2 := cdot(v, v)
	a := 1 / (2/r0 - v2/mu)
	sqmu, sqa := cmplx.Sqrt(mu), cmplx.Sqrt(a)
	sigma0 := cdot(r, v) / sqmu
	m := sqmu / (a * sqa) * complex(dt, 0)

	e := m
	for i := 0; i < 50; i++ {
		s, c := cmplx.Sin(e), cmplx.Cos(e)
		f := e - (1-r0/a)*s + sigma0/sqa*(1-c) - m
		fp := 1 - (1-r0/a)*c + sigma0/sqa*s
		e -= f / fp
	}

	s, c := cmplx.Sin(e), cmplx.Cos(e)
	rn := a + (r0-a)*c + sigma0*sqa*s
	f := 1 - a/r0*(1-c)
	g := complex(dt, 0) - a*sqa/sqmu*(e-s)
	fd := -sqmu * sqa * s / (rn * r0)
	gd := 1 - a/rn*(1-c)

	out := make([]complex128, 6)
	for i := 0; i < 3; i++ {
		out[i] = f*r[i] + g*v[i]
		out[i+3] = fd*r[i] + gd*v[i]
	}
	return out
}

const complexStep = 1e-20

// keplerReference returns the propagated state, Φ and ∂x/∂μ.
func keplerReference(x0 []float64, mu, dt float64) ([]float64, *mat.Dense, []float64) {
	base := make([]complex128, 6)
	for i, v := range x0 {
		base[i] = complex(v, 0)
	}

	nominal := keplerStep(base, complex(mu, 0), dt)
	state := make([]float64, 6)
	for i, v := range nominal {
		state[i] = real(v)
	}

	phi := mat.NewDense(6, 6, nil)
	for j := 0; j < 6; j++ {
		x := append([]complex128(nil), base...)
		x[j] += complex(0, complexStep)
		out := keplerStep(x, complex(mu, 0), dt)
		for i := 0; i < 6; i++ {
			phi.Set(i, j, imag(out[i])/complexStep)
		}
	}

	dmu := make([]float64, 6)
	out := keplerStep(base, complex(mu, complexStep*mu), dt)
	for i := 0; i < 6; i++ {
		dmu[i] = imag(out[i]) / (complexStep * mu)
	}
	return state, phi, dmu
}
