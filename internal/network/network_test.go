package network

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/chaosnet/internal/dynamo"
)

func offDiagonalVariance(w *dynamo.Matrix) float64 {
	sum, sumSq, count := 0.0, 0.0, 0.0
	for i := 0; i < w.Rows; i++ {
		for j := 0; j < w.Cols; j++ {
			if i == j {
				continue
			}
			v := w.At(i, j)
			sum += v
			sumSq += v * v
			count++
		}
	}
	mean := sum / count
	return sumSq/count - mean*mean
}

var _ = Describe("Model", func() {
	Context("when constructed", func() {
		It("should zero the diagonal for every coupling", func() {
			src := NewSource(1)
			for _, n := range []int{1, 2, 17, 64} {
				for _, sigma := range []float64{0, 0.5, 1.5} {
					m, err := Generate(src, n, sigma, 1.0)
					Expect(err).NotTo(HaveOccurred())
					for _, d := range m.Connectivity().Diagonal() {
						Expect(d).To(Equal(0.0))
					}
				}
			}
		})

		It("should scale entry variance to sigma^2/N", func() {
			n := 200
			sigma := 1.5
			total := 0.0
			draws := 5
			for seed := int64(0); seed < int64(draws); seed++ {
				m, err := Generate(NewSource(seed), n, sigma, 1.0)
				Expect(err).NotTo(HaveOccurred())
				total += offDiagonalVariance(m.Connectivity())
			}
			want := sigma * sigma / float64(n)
			Expect(total / float64(draws)).To(BeNumerically("~", want, 0.03*want))
		})

		It("should set the nonlinearity argument to gain times sigma", func() {
			m, err := Generate(NewSource(3), 4, 1.2, 0.5)
			Expect(err).NotTo(HaveOccurred())
			Expect(m.GainArg()).To(BeNumerically("~", 0.6, 1e-15))
			Expect(m.GetParams()).To(HaveKeyWithValue("sigma", 1.2))
		})

		It("should reject a non-positive size", func() {
			_, err := Generate(NewSource(1), 0, 1.0, 1.0)
			Expect(err).To(MatchError(dynamo.ErrInvalidDimension))
		})

		It("should reject a negative coupling", func() {
			base, _ := BaseMatrix(NewSource(1), 3)
			_, err := New(base, -0.1, 1.0)
			Expect(err).To(MatchError(dynamo.ErrInvalidParameter))
		})

		It("should reject a non-square base", func() {
			base, _ := dynamo.NewMatrix(2, 3)
			_, err := New(base, 1.0, 1.0)
			Expect(err).To(MatchError(dynamo.ErrInvalidDimension))
		})
	})

	Context("when sweeping couplings", func() {
		It("should rescale one base draw without mutating it", func() {
			base, err := BaseMatrix(NewSource(28031987), 10)
			Expect(err).NotTo(HaveOccurred())
			snapshot := base.Clone()

			sigmas := []float64{1.05, 1.2, 2.0}
			models, err := Sweep(base, sigmas, 1.0)
			Expect(err).NotTo(HaveOccurred())
			Expect(models).To(HaveLen(3))
			Expect(base.Data).To(Equal(snapshot.Data))

			for k, m := range models {
				w := m.Connectivity()
				scale := sigmas[k] / math.Sqrt(10)
				for i := 0; i < 10; i++ {
					for j := 0; j < 10; j++ {
						if i == j {
							continue
						}
						Expect(w.At(i, j)).To(BeNumerically("~", scale*base.At(i, j), 1e-12))
					}
				}
			}
		})

		It("should report the offending sigma", func() {
			base, _ := BaseMatrix(NewSource(1), 4)
			_, err := Sweep(base, []float64{1.0, -2.0}, 1.0)
			Expect(err).To(MatchError(dynamo.ErrInvalidParameter))
			Expect(err.Error()).To(ContainSubstring("sigma=-2"))
		})
	})

	Context("vector field", func() {
		It("should reduce to -x without coupling", func() {
			m, err := Generate(NewSource(5), 3, 0, 1.0)
			Expect(err).NotTo(HaveOccurred())
			dx := m.Derive(dynamo.State{1, -2, 0.5}, 0)
			Expect(dx).To(Equal(dynamo.State{-1, 2, -0.5}))
		})

		It("should match a hand computed two-unit field", func() {
			base, _ := dynamo.MatrixFromRows([][]float64{{9, 1}, {-1, 9}})
			m, err := New(base, math.Sqrt(2), 1.0)
			Expect(err).NotTo(HaveOccurred())

			a := math.Sqrt(2)
			x := dynamo.State{0.3, -0.7}
			dx := m.Derive(x, 0)
			Expect(dx[0]).To(BeNumerically("~", -0.3+math.Tanh(-0.7*a), 1e-12))
			Expect(dx[1]).To(BeNumerically("~", 0.7-math.Tanh(0.3*a), 1e-12))
		})

		It("should have a Jacobian matching finite differences", func() {
			m, err := Generate(NewSource(9), 12, 1.5, 1.0)
			Expect(err).NotTo(HaveOccurred())
			x := InitialState(NewSource(10), 12)
			df := m.Jacobian(x)

			h := 1e-6
			for j := 0; j < 12; j++ {
				xp := x.Clone()
				xm := x.Clone()
				xp[j] += h
				xm[j] -= h
				fp := m.Derive(xp, 0)
				fm := m.Derive(xm, 0)
				for i := 0; i < 12; i++ {
					fd := (fp[i] - fm[i]) / (2 * h)
					Expect(df.At(i, j)).To(BeNumerically("~", fd, 1e-6))
				}
			}
		})
	})
})
