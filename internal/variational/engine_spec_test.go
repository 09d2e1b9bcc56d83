package variational_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/varsens/internal/environment"
	"github.com/san-kum/varsens/internal/estimation"
	"github.com/san-kum/varsens/internal/forces"
	"github.com/san-kum/varsens/internal/partials"
	"github.com/san-kum/varsens/internal/variational"
)

var _ = Describe("Engine", func() {
	var (
		env    *environment.Environment
		set    *estimation.ParameterSet
		engine *variational.Engine
		cr     estimation.Parameter
		mu     estimation.Parameter
	)

	BeforeEach(func() {
		env = environment.New()
		Expect(env.AddBody(environment.Body{Name: "Earth", GravitationalParameter: 398600.4418})).To(Succeed())
		Expect(env.AddBody(environment.Body{Name: "Sun", Position: r3.Vec{X: 1.496e8}})).To(Succeed())
		Expect(env.AddBody(environment.Body{
			Name: "sat", Central: "Earth", Mass: 400,
			Position: r3.Vec{X: 6878}, Velocity: r3.Vec{Y: 7.61},
		})).To(Succeed())

		cr = estimation.Scalar(estimation.RadiationPressureCoefficient, "sat")
		mu = estimation.Scalar(estimation.GravitationalParameter, "Earth")
		var err error
		set, err = estimation.NewParameterSet(
			estimation.InitialState(estimation.Translational, "sat", "Earth"), cr, mu)
		Expect(err).NotTo(HaveOccurred())
	})

	Context("with radiation pressure switched off", func() {
		BeforeEach(func() {
			m := partials.Map{estimation.Translational: {{
				forces.NewPointMass(env, "sat", "Earth"),
				forces.NewCannonballRadiation(env, "sat", "Sun", 1.3, 4, 0, 1.496e8),
			}}}
			var err error
			engine, err = variational.New(m, set)
			Expect(err).NotTo(HaveOccurred())
		})

		It("sizes the composite from the parameter set", func() {
			Expect(engine.TotalStateSize()).To(Equal(6))
			Expect(engine.NumberOfParameterValues()).To(Equal(8))
		})

		It("leaves the radiation coefficient column at zero", func() {
			d := engine.EvaluateDerivative(0, engine.InitialComposite())
			col, _, err := engine.Index().ParameterColumns(cr.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(mat.Norm(d.ColView(col), 2)).To(BeZero())
		})

		It("is linear in the composite apart from B", func() {
			m1 := engine.InitialComposite()
			m2 := engine.InitialComposite()
			m2.Scale(2, m2)

			d1 := engine.EvaluateDerivative(0, m1)
			d2 := engine.EvaluateDerivative(0, m2)
			b := engine.ParameterPartials()

			for i := 0; i < 6; i++ {
				for j := 0; j < 6; j++ {
					Expect(d2.At(i, j)).To(BeNumerically("~", 2*d1.At(i, j), 1e-18))
				}
				Expect(d2.At(i, 7)).To(Equal(b.At(i, 1)))
			}
		})

		It("refreshes when the environment moves and the cache is invalidated", func() {
			before := engine.EvaluateDerivative(0, engine.InitialComposite())
			env.SetState("sat", r3.Vec{X: 7578}, r3.Vec{Y: 7.25})

			Expect(mat.Equal(engine.EvaluateDerivative(0, engine.InitialComposite()), before)).To(BeTrue())
			engine.Invalidate()
			Expect(mat.Equal(engine.EvaluateDerivative(0, engine.InitialComposite()), before)).To(BeFalse())
		})
	})

	Context("with a mismatched partials map", func() {
		It("reports the structural error", func() {
			_, err := variational.New(partials.Map{}, set)
			Expect(err).To(MatchError(variational.ErrMissingStateType))
		})
	})
})
