package variational

import (
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/varsens/internal/estimation"
)

// constantProvider adds fixed blocks and counts refreshes.
type constantProvider struct {
	affected    string
	influencing string
	self        *mat.Dense
	other       *mat.Dense
	params      map[estimation.ParameterID]*mat.Dense
	updates     int
}

func (c *constantProvider) Affected() string    { return c.affected }
func (c *constantProvider) Influencing() string { return c.influencing }
func (c *constantProvider) Update(t float64)    { c.updates++ }

func (c *constantProvider) WrtPositionOfAffected(dst *mat.Dense) {
	if c.self != nil {
		dst.Add(dst, c.self)
	}
}

func (c *constantProvider) WrtPositionOfInfluencing(dst *mat.Dense) {
	if c.other != nil {
		dst.Add(dst, c.other)
	}
}

func (c *constantProvider) ParameterDependency(id estimation.ParameterID) int {
	if p, ok := c.params[id]; ok {
		_, w := p.Dims()
		return w
	}
	return 0
}

func (c *constantProvider) WriteParameterPartial(id estimation.ParameterID, dst *mat.Dense) {
	if p, ok := c.params[id]; ok {
		dst.Copy(p)
	}
}

// filled returns an r x c matrix with entries base + i*c + j.
func filled(r, c int, base float64) *mat.Dense {
	m := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			m.Set(i, j, base+float64(i*c+j))
		}
	}
	return m
}

func mustSet(t testing.TB, params ...estimation.Parameter) *estimation.ParameterSet {
	t.Helper()
	set, err := estimation.NewParameterSet(params...)
	if err != nil {
		t.Fatalf("NewParameterSet: %v", err)
	}
	return set
}
