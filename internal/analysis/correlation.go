package analysis

import (
	"fmt"
	"math"

	"github.com/mjibson/go-dsp/fft"

	"github.com/san-kum/chaosnet/internal/dynamo"
)

// directLimit is the series length up to which the O(M^2) sum beats the FFT.
const directLimit = 256

type CorrelationMode string

const (
	SingleUnitMode CorrelationMode = "single"
	EnsembleMode   CorrelationMode = "ensemble"
)

func ParseCorrelationMode(s string) (CorrelationMode, error) {
	switch CorrelationMode(s) {
	case SingleUnitMode, EnsembleMode:
		return CorrelationMode(s), nil
	case "":
		return SingleUnitMode, nil
	}
	return "", fmt.Errorf("correlation mode %q: %w", s, dynamo.ErrInvalidParameter)
}

// FullAutocorrelation returns the non-circular autocorrelation of x at all
// 2M-1 lags: c[k] = sum_t x[t] x[t+k-M+1].
func FullAutocorrelation(x []float64) []float64 {
	if len(x) == 0 {
		return []float64{}
	}
	if len(x) <= directLimit {
		return fullAutocorrelationDirect(x)
	}
	return fullAutocorrelationFFT(x)
}

func fullAutocorrelationDirect(x []float64) []float64 {
	m := len(x)
	c := make([]float64, 2*m-1)
	for lag := 0; lag < m; lag++ {
		sum := 0.0
		for t := 0; t+lag < m; t++ {
			sum += x[t] * x[t+lag]
		}
		c[m-1+lag] = sum
		c[m-1-lag] = sum
	}
	return c
}

// fullAutocorrelationFFT zero-pads to a power of two of at least 2M-1 so the
// circular correlation of the padded signal equals the linear one.
func fullAutocorrelationFFT(x []float64) []float64 {
	m := len(x)
	size := 1
	for size < 2*m-1 {
		size <<= 1
	}
	padded := make([]float64, size)
	copy(padded, x)

	spec := fft.FFTReal(padded)
	for i, v := range spec {
		spec[i] = complex(real(v)*real(v)+imag(v)*imag(v), 0)
	}
	r := fft.IFFT(spec)

	c := make([]float64, 2*m-1)
	for k := range c {
		lag := k - (m - 1)
		if lag < 0 {
			lag = -lag
		}
		c[k] = real(r[lag])
	}
	return c
}

func l2(v []float64) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// SingleUnit returns the autocorrelation of one unit scaled to unit L2 norm.
func SingleUnit(traj *dynamo.Trajectory, unit int) ([]float64, error) {
	if traj.Len() == 0 {
		return nil, fmt.Errorf("empty trajectory: %w", dynamo.ErrInvalidDimension)
	}
	if unit < 0 || unit >= traj.Dim() {
		return nil, fmt.Errorf("unit %d outside [0, %d): %w", unit, traj.Dim(), dynamo.ErrInvalidParameter)
	}
	c := FullAutocorrelation(traj.Unit(unit))
	if norm := l2(c); norm > 0 {
		for i := range c {
			c[i] /= norm
		}
	}
	return c, nil
}

// Ensemble sums the raw autocorrelations of every unit, then divides the sum
// by N times its own L2 norm. Summing first lets coherent cross-unit structure
// shape the result; do not reorder into normalize-then-sum.
func Ensemble(traj *dynamo.Trajectory) ([]float64, error) {
	if traj.Len() == 0 || traj.Dim() == 0 {
		return nil, fmt.Errorf("empty trajectory: %w", dynamo.ErrInvalidDimension)
	}
	n := traj.Dim()
	sum := make([]float64, 2*traj.Len()-1)
	for i := 0; i < n; i++ {
		c := FullAutocorrelation(traj.Unit(i))
		for k, v := range c {
			sum[k] += v
		}
	}
	if norm := l2(sum); norm > 0 {
		denom := float64(n) * norm
		for k := range sum {
			sum[k] /= denom
		}
	}
	return sum, nil
}

// Correlate dispatches on mode; unit is ignored in ensemble mode.
func Correlate(traj *dynamo.Trajectory, mode CorrelationMode, unit int) ([]float64, error) {
	switch mode {
	case EnsembleMode:
		return Ensemble(traj)
	case SingleUnitMode, "":
		return SingleUnit(traj, unit)
	}
	return nil, fmt.Errorf("correlation mode %q: %w", mode, dynamo.ErrInvalidParameter)
}

// Lags returns the lag axis (k-M+1)*dt matching a 2M-1 correlation vector.
func Lags(m int, dt float64) []float64 {
	if m <= 0 {
		return []float64{}
	}
	lags := make([]float64, 2*m-1)
	for k := range lags {
		lags[k] = float64(k-(m-1)) * dt
	}
	return lags
}

// CorrelationTime is the first positive lag at which corr drops below half of
// its zero-lag value. It returns +Inf if it never does.
func CorrelationTime(corr []float64, dt float64) float64 {
	if len(corr) == 0 {
		return 0
	}
	m := (len(corr) + 1) / 2
	peak := corr[m-1]
	if peak <= 0 {
		return 0
	}
	for lag := 1; lag < m; lag++ {
		if corr[m-1+lag] < 0.5*peak {
			return float64(lag) * dt
		}
	}
	return math.Inf(1)
}
