// Package export renders stored series as standalone SVG plots.
package export

import (
	"fmt"
	"html"
	"strings"
)

// SeriesToSVG draws y against x as a polyline with a caption. It returns
// an empty string when there are fewer than two points or the lengths
// differ.
func SeriesToSVG(xs, ys []float64, width, height int, strokeColor, caption string) string {
	if len(xs) < 2 || len(xs) != len(ys) {
		return ""
	}

	minX, maxX := xs[0], xs[0]
	minY, maxY := ys[0], ys[0]
	for i := range xs {
		minX, maxX = min(minX, xs[i]), max(maxX, xs[i])
		minY, maxY = min(minY, ys[i]), max(maxY, ys[i])
	}

	// Add padding
	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.05
	maxX += rangeX * 0.05
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<text x="8" y="16" fill="#9a9a9a" font-family="monospace" font-size="12">%s</text>
<text x="8" y="%d" fill="#6a6a6a" font-family="monospace" font-size="10">%.4g .. %.4g</text>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, html.EscapeString(caption), height-6, minY, maxY, strokeColor))

	for i := range xs {
		x := (xs[i] - minX) / rangeX * float64(width)
		y := float64(height) - (ys[i]-minY)/rangeY*float64(height)

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
