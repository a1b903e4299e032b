package analysis

import (
	"fmt"
	"strings"

	"github.com/san-kum/chaosnet/internal/dynamo"
)

// BifurcationPoint holds the distinct local maxima of one unit for a given
// coupling strength.
type BifurcationPoint struct {
	Param  float64
	Values []float64
}

// LocalMaxima returns the distinct interior local maxima of series, quantized
// to 1e-3 to merge the revisits of a limit cycle. A series without interior
// maxima (a fixed point or monotone relaxation) yields its last value.
func LocalMaxima(series []float64) []float64 {
	if len(series) == 0 {
		return nil
	}
	values := make([]float64, 0, 16)
	seen := make(map[int64]bool)
	for i := 1; i < len(series)-1; i++ {
		if series[i] > series[i-1] && series[i] >= series[i+1] {
			key := int64(series[i] * 1000)
			if !seen[key] {
				seen[key] = true
				values = append(values, series[i])
			}
		}
	}
	if len(values) == 0 {
		values = append(values, series[len(series)-1])
	}
	return values
}

// Bifurcation builds a diagram from one observation trajectory per parameter
// value, reading the given unit.
func Bifurcation(params []float64, trajs []*dynamo.Trajectory, unit int) ([]BifurcationPoint, error) {
	if len(params) != len(trajs) {
		return nil, fmt.Errorf("%d parameters for %d trajectories: %w", len(params), len(trajs), dynamo.ErrDimensionMismatch)
	}
	results := make([]BifurcationPoint, 0, len(params))
	for i, tr := range trajs {
		if tr == nil || tr.Len() == 0 {
			continue
		}
		if unit < 0 || unit >= tr.Dim() {
			return nil, fmt.Errorf("unit %d outside [0, %d): %w", unit, tr.Dim(), dynamo.ErrInvalidParameter)
		}
		results = append(results, BifurcationPoint{
			Param:  params[i],
			Values: LocalMaxima(tr.Unit(unit)),
		})
	}
	return results, nil
}

// BifurcationToASCII converts bifurcation data to ASCII art
func BifurcationToASCII(data []BifurcationPoint, width, height int) string {
	if len(data) == 0 || width <= 0 || height <= 0 {
		return ""
	}

	var minVal, maxVal float64
	foundFirst := false
	for _, p := range data {
		for _, v := range p.Values {
			if !foundFirst {
				minVal, maxVal = v, v
				foundFirst = true
				continue
			}
			minVal, maxVal = min(minVal, v), max(maxVal, v)
		}
	}
	if !foundFirst {
		return ""
	}
	if maxVal == minVal {
		maxVal = minVal + 1
	}

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	for i, p := range data {
		col := i * width / len(data)
		if col >= width {
			col = width - 1
		}
		for _, v := range p.Values {
			row := height - 1 - int((v-minVal)/(maxVal-minVal)*float64(height-1))
			if row >= 0 && row < height {
				canvas[row][col] = '•'
			}
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}
