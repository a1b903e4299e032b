package analysis

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// PowerSpectrum returns |X_k| for the first half of the spectrum of data.
func PowerSpectrum(data []float64) []float64 {
	if len(data) == 0 {
		return []float64{}
	}
	spec := fft.FFTReal(data)
	ps := make([]float64, len(spec)/2)

	for i := range ps {
		ps[i] = cmplx.Abs(spec[i])
	}

	return ps
}

// DominantFrequency returns the frequency (in 1/time units) of the largest
// non-DC bin for samples spaced dt apart.
func DominantFrequency(data []float64, dt float64) float64 {
	ps := PowerSpectrum(data)
	if len(ps) < 2 || dt <= 0 {
		return 0
	}
	maxPower := 0.0
	maxIdx := 0
	for i := 1; i < len(ps); i++ {
		if ps[i] > maxPower {
			maxPower = ps[i]
			maxIdx = i
		}
	}
	return float64(maxIdx) / (float64(len(data)) * dt)
}
