package viz

import (
	"fmt"
	"math"

	"github.com/guptarohit/asciigraph"
)

const (
	plotWidth  = 80
	plotHeight = 12
)

// Downsample keeps at most n evenly spaced values, dropping non-finite ones
// asciigraph cannot scale.
func Downsample(data []float64, n int) []float64 {
	finite := make([]float64, 0, len(data))
	for _, v := range data {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	if n <= 0 || len(finite) <= n {
		return finite
	}
	out := make([]float64, n)
	step := float64(len(finite)-1) / float64(n-1)
	for i := range out {
		out[i] = finite[int(math.Round(float64(i)*step))]
	}
	return out
}

// PlotSeries renders one series as an asciigraph chart.
func PlotSeries(data []float64, caption string) string {
	d := Downsample(data, plotWidth*4)
	if len(d) == 0 {
		return Subtle.Render("(no finite samples) " + caption)
	}
	return asciigraph.Plot(d,
		asciigraph.Height(plotHeight),
		asciigraph.Width(plotWidth),
		asciigraph.Caption(caption))
}

// PlotUnits overlays the activity of several units.
func PlotUnits(series [][]float64, caption string) string {
	data := make([][]float64, 0, len(series))
	for _, s := range series {
		if d := Downsample(s, plotWidth*4); len(d) > 0 {
			data = append(data, d)
		}
	}
	if len(data) == 0 {
		return Subtle.Render("(no finite samples) " + caption)
	}
	colors := []asciigraph.AnsiColor{asciigraph.Green, asciigraph.Cyan, asciigraph.Yellow, asciigraph.Magenta}
	return asciigraph.PlotMany(data,
		asciigraph.Height(plotHeight),
		asciigraph.Width(plotWidth),
		asciigraph.SeriesColors(colors...),
		asciigraph.Caption(caption))
}

func PlotLyapunov(exponents []float64, sigma float64) string {
	// index 0 is the defined zero, not an estimate
	if len(exponents) > 1 {
		exponents = exponents[1:]
	}
	return PlotSeries(exponents, fmt.Sprintf("local lyapunov exponent (sigma=%g)", sigma))
}

func PlotCorrelation(corr []float64, sigma float64) string {
	return PlotSeries(corr, fmt.Sprintf("autocorrelation (sigma=%g)", sigma))
}
