package variational

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/varsens/internal/environment"
	"github.com/san-kum/varsens/internal/estimation"
	"github.com/san-kum/varsens/internal/forces"
	"github.com/san-kum/varsens/internal/partials"
)

const muEarth = 398600.4418

func twoBodyEngine(t testing.TB) (*Engine, r3.Vec) {
	t.Helper()
	r := r3.Vec{X: 7000, Y: -1200, Z: 300}
	env := environment.New()
	if err := env.AddBody(environment.Body{Name: "Earth", GravitationalParameter: muEarth}); err != nil {
		t.Fatal(err)
	}
	if err := env.AddBody(environment.Body{Name: "sat", Central: "Earth", Position: r, Velocity: r3.Vec{Y: 7.5}, Mass: 500}); err != nil {
		t.Fatal(err)
	}

	set := mustSet(t,
		estimation.InitialState(estimation.Translational, "sat", "Earth"),
		estimation.Scalar(estimation.GravitationalParameter, "Earth"),
	)
	m := partials.Map{estimation.Translational: {{forces.NewPointMass(env, "sat", "Earth")}}}
	e, err := New(m, set)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e, r
}

func TestTwoBodyAtEpoch(t *testing.T) {
	e, r := twoBodyEngine(t)
	e.Update(0)

	n := r3.Norm(r)
	rv := []float64{r.X, r.Y, r.Z}
	want := mat.NewDense(6, 6, nil)
	for i := 0; i < 3; i++ {
		want.Set(i, i+3, 1)
		for j := 0; j < 3; j++ {
			g := 3 * muEarth * rv[i] * rv[j] / math.Pow(n, 5)
			if i == j {
				g -= muEarth / (n * n * n)
			}
			want.Set(i+3, j, g)
		}
	}

	a := e.StateDerivativePartials()
	if !mat.EqualApprox(a, want, 1e-15) {
		t.Errorf("A mismatch\n got % .6e\nwant % .6e", mat.Formatted(a), mat.Formatted(want))
	}

	b := e.ParameterPartials()
	for i := 0; i < 3; i++ {
		if b.At(i, 0) != 0 {
			t.Errorf("B[%d] = %v, want 0 on kinematic rows", i, b.At(i, 0))
		}
		if got, want := b.At(i+3, 0), -rv[i]/(n*n*n); math.Abs(got-want) > 1e-18 {
			t.Errorf("B[%d] = %v, want %v", i+3, got, want)
		}
	}

	d := e.EvaluateDerivative(0, e.InitialComposite())
	var ab mat.Dense
	ab.Augment(a, b)
	if !mat.Equal(d, &ab) {
		t.Errorf("derivative of [I|0] should be [A|B]\n got % .4e", mat.Formatted(d))
	}
}

func TestEvaluateDerivativeMatchesProduct(t *testing.T) {
	e, _ := twoBodyEngine(t)
	m := filled(6, 7, -3)
	m.Scale(0.1, m)

	got := e.EvaluateDerivative(5, m)

	var want mat.Dense
	want.Mul(e.StateDerivativePartials(), m)
	b := e.ParameterPartials()
	for i := 0; i < 6; i++ {
		want.Set(i, 6, want.At(i, 6)+b.At(i, 0))
	}
	if !mat.EqualApprox(got, &want, 1e-18) {
		t.Errorf("EvaluateDerivative mismatch\n got % .4e\nwant % .4e", mat.Formatted(got), mat.Formatted(&want))
	}
}

func TestUpdateMemoised(t *testing.T) {
	p := &constantProvider{affected: "a", influencing: "origin", self: filled(3, 3, 1)}
	set := mustSet(t, estimation.InitialState(estimation.Translational, "a", "origin"))
	e, err := New(partials.Map{estimation.Translational: {{p}}}, set)
	if err != nil {
		t.Fatal(err)
	}

	steps := []struct {
		name       string
		do         func()
		wantUpdate int
	}{
		{"first update refreshes", func() { e.Update(1) }, 1},
		{"same time is cached", func() { e.Update(1) }, 1},
		{"evaluate reuses cache", func() { e.EvaluateDerivative(1, e.InitialComposite()) }, 1},
		{"new time refreshes", func() { e.Update(2) }, 2},
		{"invalidate forces refresh", func() { e.Invalidate(); e.Update(2) }, 3},
	}
	before := e.StateDerivativePartials()
	for _, s := range steps {
		s.do()
		if p.updates != s.wantUpdate || e.Updates() != s.wantUpdate {
			t.Fatalf("%s: provider updates %d, engine updates %d, want %d", s.name, p.updates, e.Updates(), s.wantUpdate)
		}
		if s.wantUpdate > 1 && !mat.Equal(before, e.StateDerivativePartials()) {
			t.Fatalf("%s: rebuilding with unchanged partials changed A", s.name)
		}
		before = e.StateDerivativePartials()
	}
}

func TestUnusedParameterColumnIsZero(t *testing.T) {
	env := environment.New()
	_ = env.AddBody(environment.Body{Name: "Earth", GravitationalParameter: muEarth})
	_ = env.AddBody(environment.Body{Name: "sat", Central: "Earth", Position: r3.Vec{X: 7000}, Velocity: r3.Vec{Y: 7.5}, Mass: 500})
	cd := estimation.Scalar(estimation.DragCoefficient, "sat")
	set := mustSet(t,
		estimation.InitialState(estimation.Translational, "sat", "Earth"),
		cd,
		estimation.Scalar(estimation.GravitationalParameter, "Earth"),
	)
	e, err := New(partials.Map{estimation.Translational: {{forces.NewPointMass(env, "sat", "Earth")}}}, set)
	if err != nil {
		t.Fatal(err)
	}

	m := e.InitialComposite()
	m.Set(2, 6, 4)
	m.Set(5, 6, -1)
	d := e.EvaluateDerivative(0, m)
	col, _, _ := e.Index().ParameterColumns(cd.ID)
	for i := 0; i < 6; i++ {
		if i < 3 && d.At(i, col) != m.At(i+3, col) {
			t.Errorf("kinematic row %d of unused column = %v", i, d.At(i, col))
		}
	}
	if b := e.ParameterPartials(); mat.Norm(b.ColView(0), 2) != 0 {
		t.Errorf("B column of an unused parameter is %v", mat.Formatted(b.ColView(0)))
	}
	if mat.Norm(e.ParameterPartials().ColView(1), 2) == 0 {
		t.Error("B column of μ should not be zero")
	}
}

// chainEngine propagates probe about moon about earth, declared in reverse.
func chainEngine(t *testing.T, chained bool) *Engine {
	t.Helper()
	central := func(c string) string {
		if chained {
			return c
		}
		return ""
	}
	set := mustSet(t,
		estimation.InitialState(estimation.Translational, "probe", central("moon")),
		estimation.InitialState(estimation.Translational, "moon", central("earth")),
		estimation.InitialState(estimation.Translational, "earth", central("SSB")),
	)
	m := partials.Map{estimation.Translational: {
		{&constantProvider{affected: "probe", influencing: "moon", self: filled(3, 3, 1), other: filled(3, 3, -20)}},
		{&constantProvider{affected: "moon", influencing: "earth", self: filled(3, 3, 40), other: filled(3, 3, -60)},
			&constantProvider{affected: "moon", influencing: "probe", other: filled(3, 3, 0.5)}},
		{&constantProvider{affected: "earth", influencing: "SSB", self: filled(3, 3, 100)}},
	}}
	e, err := New(m, set)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	e.Update(0)
	return e
}

func TestCentralBodyChainCorrection(t *testing.T) {
	chained := chainEngine(t, true)
	raw := chainEngine(t, false).StateDerivativePartials()
	a := chained.StateDerivativePartials()

	if got := chained.UpdateOrder(); got[0] != "earth" || got[1] != "moon" || got[2] != "probe" {
		t.Fatalf("UpdateOrder = %v", got)
	}

	const probe, moon, earth = 0, 6, 12
	for i := 0; i < 18; i++ {
		if i%6 < 3 {
			// Kinematic rows are never corrected.
			for j := 0; j < 18; j++ {
				if a.At(i, j) != raw.At(i, j) {
					t.Errorf("kinematic row %d column %d = %v, want %v", i, j, a.At(i, j), raw.At(i, j))
				}
			}
			continue
		}
		for j := 0; j < 6; j++ {
			if got, want := a.At(i, probe+j), raw.At(i, probe+j); got != want {
				t.Errorf("probe column [%d,%d] = %v, want %v", i, j, got, want)
			}
			if got, want := a.At(i, moon+j), raw.At(i, moon+j)+raw.At(i, probe+j); got != want {
				t.Errorf("moon column [%d,%d] = %v, want %v", i, j, got, want)
			}
			if got, want := a.At(i, earth+j), raw.At(i, earth+j)+raw.At(i, moon+j)+raw.At(i, probe+j); got != want {
				t.Errorf("earth column [%d,%d] = %v, want %v", i, j, got, want)
			}
		}
	}

	// Without chaining, the moon's partial w.r.t. the probe is still placed.
	if raw.At(moon+3, probe) != 0.5 {
		t.Errorf("influencing block not placed: %v", raw.At(moon+3, probe))
	}
}

func TestMixedStateTypes(t *testing.T) {
	isp := estimation.Scalar(estimation.SpecificImpulse, "sat")
	set := mustSet(t,
		estimation.InitialState(estimation.Mass, "sat", ""),
		estimation.InitialState(estimation.Translational, "sat", "Earth"),
		isp,
	)
	rate := forces.NewMassRate("sat", 0.5, 300)
	m := partials.Map{
		estimation.Translational: {{&constantProvider{affected: "sat", influencing: "Earth", self: filled(3, 3, 1)}}},
		estimation.Mass:          {{rate}},
	}
	e, err := New(m, set)
	if err != nil {
		t.Fatal(err)
	}
	e.Update(0)

	b := e.ParameterPartials()
	if r, c := b.Dims(); r != 7 || c != 1 {
		t.Fatalf("B is %dx%d, want 7x1", r, c)
	}
	want := 0.5 / (300 * 300 * forces.StandardGravity)
	if got := b.At(6, 0); math.Abs(got-want) > 1e-20 {
		t.Errorf("∂ṁ/∂Isp = %v, want %v", got, want)
	}
	if a := e.StateDerivativePartials(); a.At(6, 6) != 0 || a.At(3, 0) != 1 {
		t.Errorf("unexpected A:\n% v", mat.Formatted(a))
	}
}

func TestWithoutAuxiliaryParameters(t *testing.T) {
	set := mustSet(t, estimation.InitialState(estimation.Translational, "a", ""))
	e, err := New(partials.Map{estimation.Translational: {{}}}, set)
	if err != nil {
		t.Fatal(err)
	}
	if e.ParameterPartials() != nil {
		t.Error("ParameterPartials should be nil without auxiliary parameters")
	}
	d := e.EvaluateDerivative(0, e.InitialComposite())
	for i := 0; i < 3; i++ {
		if d.At(i, i+3) != 1 {
			t.Errorf("kinematic identity missing at row %d", i)
		}
	}
}

func TestStructuralErrors(t *testing.T) {
	sat := estimation.InitialState(estimation.Translational, "sat", "Earth")
	mu := estimation.Scalar(estimation.GravitationalParameter, "Earth")
	ok := func(affected string) partials.Provider {
		return &constantProvider{affected: affected, influencing: "Earth"}
	}

	tests := []struct {
		name   string
		params []estimation.Parameter
		m      partials.Map
		err    error
	}{
		{"no parameters", nil, partials.Map{}, ErrDimensionMismatch},
		{"no initial states", []estimation.Parameter{mu}, partials.Map{}, ErrDimensionMismatch},
		{"missing state type", []estimation.Parameter{sat}, partials.Map{}, ErrMissingStateType},
		{"partials for unestimated type", []estimation.Parameter{sat},
			partials.Map{estimation.Translational: {{ok("sat")}}, estimation.Mass: {{ok("sat")}}}, ErrMissingStateType},
		{"too many entities", []estimation.Parameter{sat},
			partials.Map{estimation.Translational: {{ok("sat")}, {ok("other")}}}, ErrEntityCountMismatch},
		{"too few entities", []estimation.Parameter{sat, estimation.InitialState(estimation.Translational, "b", "Earth")},
			partials.Map{estimation.Translational: {{ok("sat")}}}, ErrEntityCountMismatch},
		{"central cycle", []estimation.Parameter{
			estimation.InitialState(estimation.Translational, "a", "b"),
			estimation.InitialState(estimation.Translational, "b", "a")},
			partials.Map{estimation.Translational: {{ok("a")}, {ok("b")}}}, ErrCentralBodyCycle},
		{"provider under wrong entity", []estimation.Parameter{sat},
			partials.Map{estimation.Translational: {{ok("other")}}}, ErrProviderMismatch},
		{"parameter width mismatch", []estimation.Parameter{sat, mu},
			partials.Map{estimation.Translational: {{&constantProvider{affected: "sat", influencing: "Earth",
				params: map[estimation.ParameterID]*mat.Dense{mu.ID: mat.NewDense(3, 2, nil)}}}}}, ErrDimensionMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := New(tt.m, mustSet(t, tt.params...))
			if !errors.Is(err, tt.err) {
				t.Fatalf("err = %v, want %v", err, tt.err)
			}
			if e != nil {
				t.Error("engine returned alongside error")
			}
		})
	}
}

func TestEvaluateDerivativeShapePanics(t *testing.T) {
	e, _ := twoBodyEngine(t)
	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrDimensionMismatch) {
			t.Errorf("recovered %v, want ErrDimensionMismatch", r)
		}
	}()
	e.EvaluateDerivative(0, mat.NewDense(6, 6, nil))
}

func TestSystemFlattened(t *testing.T) {
	e, _ := twoBodyEngine(t)
	sys := NewSystem(e, nil)
	if sys.StateDim() != 42 {
		t.Fatalf("StateDim = %d, want 42", sys.StateDim())
	}

	x := make([]float64, 42)
	Flatten(x, e.InitialComposite())
	dx := sys.Derive(0, x)

	want := e.EvaluateDerivative(0, e.InitialComposite())
	if !mat.Equal(CompositeView(dx, 6, 7), want) {
		t.Error("flattened derivative differs from matrix derivative")
	}

	phi, s := Split(CompositeView(x, 6, 7))
	if !mat.Equal(phi, identity(6)) {
		t.Error("Split Φ is not the identity")
	}
	if r, c := s.Dims(); r != 6 || c != 1 {
		t.Errorf("Split S is %dx%d", r, c)
	}
}

func identity(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

func BenchmarkEvaluateDerivative(b *testing.B) {
	e, _ := twoBodyEngine(b)
	m := e.InitialComposite()
	dst := mat.NewDense(6, 7, nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.Invalidate()
		e.EvaluateDerivativeTo(dst, float64(i), m)
	}
}
