package metrics

import (
	"math"

	"github.com/san-kum/chaosnet/internal/dynamo"
)

// Activity is the root-mean-square unit activity over all observed samples.
type Activity struct {
	name    string
	sumSq   float64
	count   int
	samples int
}

func NewActivity() *Activity {
	return &Activity{name: "rms_activity"}
}

func (a *Activity) Name() string { return a.name }

func (a *Activity) Observe(x dynamo.State, t float64) {
	for _, v := range x {
		a.sumSq += v * v
	}
	a.count += len(x)
	a.samples++
}

func (a *Activity) Value() float64 {
	if a.count == 0 {
		return 0
	}
	return math.Sqrt(a.sumSq / float64(a.count))
}

func (a *Activity) Reset() {
	a.sumSq = 0
	a.count = 0
	a.samples = 0
}

// NormRatio is |x(t_last)| / |x(t_first)|. Values well below 1 mean the
// network relaxed toward the quiescent fixed point.
type NormRatio struct {
	name    string
	initial float64
	current float64
	samples int
}

func NewNormRatio() *NormRatio {
	return &NormRatio{name: "norm_ratio"}
}

func (n *NormRatio) Name() string { return n.name }

func (n *NormRatio) Observe(x dynamo.State, t float64) {
	norm := x.Norm()
	if n.samples == 0 {
		n.initial = norm
	}
	n.current = norm
	n.samples++
}

func (n *NormRatio) Value() float64 {
	if n.samples == 0 {
		return 0
	}
	if n.initial == 0 {
		if n.current == 0 {
			return 1
		}
		return math.Inf(1)
	}
	return n.current / n.initial
}

func (n *NormRatio) Reset() {
	n.initial = 0
	n.current = 0
	n.samples = 0
}

// Default returns the metric set recorded for every run.
func Default(threshold float64) []dynamo.Metric {
	return []dynamo.Metric{NewActivity(), NewNormRatio(), NewStability(threshold)}
}

// Collect feeds every sample of traj to each metric after a reset and returns
// the values keyed by metric name.
func Collect(traj *dynamo.Trajectory, ms ...dynamo.Metric) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		m.Reset()
		for i, x := range traj.States {
			m.Observe(x, traj.Times[i])
		}
		out[m.Name()] = m.Value()
	}
	return out
}
