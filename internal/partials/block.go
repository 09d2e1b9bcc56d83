package partials

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// AddScaledIdentity adds f*I to the leading square of dst.
func AddScaledIdentity(dst *mat.Dense, f float64) {
	r, c := dst.Dims()
	n := min(r, c)
	for i := 0; i < n; i++ {
		dst.Set(i, i, dst.At(i, i)+f)
	}
}

// AddOuter adds f * a bᵀ to the leading 3x3 block of dst.
func AddOuter(dst *mat.Dense, f float64, a, b r3.Vec) {
	av := [3]float64{a.X, a.Y, a.Z}
	bv := [3]float64{b.X, b.Y, b.Z}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			dst.Set(i, j, dst.At(i, j)+f*av[i]*bv[j])
		}
	}
}

// SetColumn writes v into column j of dst.
func SetColumn(dst *mat.Dense, j int, v r3.Vec) {
	dst.Set(0, j, v.X)
	dst.Set(1, j, v.Y)
	dst.Set(2, j, v.Z)
}

// Block3 is a cached 3x3 partial stored row-major.
type Block3 [9]float64

// AddTo adds sign*b into the leading 3x3 block of dst.
func (b *Block3) AddTo(dst *mat.Dense, sign float64) {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			dst.Set(i, j, dst.At(i, j)+sign*b[3*i+j])
		}
	}
}

// Reset zeroes b.
func (b *Block3) Reset() { *b = Block3{} }

// Identity sets b to f*I.
func (b *Block3) Identity(f float64) {
	*b = Block3{}
	b[0], b[4], b[8] = f, f, f
}

// Outer adds f * a bᵀ.
func (b *Block3) Outer(f float64, u, v r3.Vec) {
	uv := [3]float64{u.X, u.Y, u.Z}
	vv := [3]float64{v.X, v.Y, v.Z}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			b[3*i+j] += f * uv[i] * vv[j]
		}
	}
}
