package export

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/san-kum/chaosnet/internal/analysis"
)

// TrajectoryToSVG draws points as one polyline scaled to the viewport.
func TrajectoryToSVG(points []analysis.Point, width, height int, strokeColor string) string {
	if len(points) < 2 {
		return ""
	}

	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	for _, p := range points {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, strokeColor))

	for i, p := range points {
		x := (p.X - minX) / rangeX * float64(width)
		y := float64(height) - (p.Y-minY)/rangeY*float64(height)

		if i == 0 {
			sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
		}
	}

	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}

// SeriesToSVG plots ys against xs. Non-finite samples are skipped.
func SeriesToSVG(xs, ys []float64, width, height int, strokeColor string) string {
	n := min(len(xs), len(ys))
	points := make([]analysis.Point, 0, n)
	for i := 0; i < n; i++ {
		if math.IsNaN(ys[i]) || math.IsInf(ys[i], 0) {
			continue
		}
		points = append(points, analysis.Point{X: xs[i], Y: ys[i]})
	}
	return TrajectoryToSVG(points, width, height, strokeColor)
}

// SVGSink writes plots into one directory.
type SVGSink struct {
	Dir           string
	Width, Height int
}

func NewSVGSink(dir string) *SVGSink {
	return &SVGSink{Dir: dir, Width: 800, Height: 600}
}

func (s *SVGSink) write(name, svg string) (string, error) {
	if svg == "" {
		return "", fmt.Errorf("%s: not enough points to plot", name)
	}
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(s.Dir, name)
	return path, os.WriteFile(path, []byte(svg), 0644)
}

func (s *SVGSink) WritePhase(name string, portrait *analysis.PhasePortrait2D) (string, error) {
	if portrait == nil {
		return "", fmt.Errorf("%s: no portrait", name)
	}
	return s.write(name, TrajectoryToSVG(portrait.Points, s.Width, s.Height, "#00ff88"))
}

func (s *SVGSink) WriteSeries(name string, xs, ys []float64) (string, error) {
	return s.write(name, SeriesToSVG(xs, ys, s.Width, s.Height, "#00ccff"))
}
