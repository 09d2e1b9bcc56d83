package export

import (
	"strings"
	"testing"
)

func TestSeriesToSVG(t *testing.T) {
	svg := SeriesToSVG([]float64{0, 1, 2}, []float64{0, 1, 0}, 200, 100, "#00ff00", "d x0 / d mu <1>")
	if !strings.HasPrefix(svg, "<?xml") || !strings.HasSuffix(svg, "</svg>") {
		t.Fatal("not an svg document")
	}
	if got := strings.Count(svg, " L"); got != 2 {
		t.Errorf("expected 2 line segments, got %d", got)
	}
	if !strings.Contains(svg, "&lt;1&gt;") {
		t.Error("caption should be escaped")
	}
	// The first point sits on the left padding at the bottom padding.
	if !strings.Contains(svg, `d="M9.1,91.7`) {
		t.Errorf("unexpected first point in %s", svg)
	}
}

func TestSeriesToSVGTooShort(t *testing.T) {
	if SeriesToSVG([]float64{1}, []float64{1}, 10, 10, "red", "") != "" {
		t.Error("expected empty output for one point")
	}
	if SeriesToSVG([]float64{1, 2}, []float64{1}, 10, 10, "red", "") != "" {
		t.Error("expected empty output for mismatched lengths")
	}
}
