package tui

import (
	"errors"
	"math"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/varsens/internal/dynamo"
)

type recorder struct{ msgs []tea.Msg }

func (r *recorder) Send(msg tea.Msg) { r.msgs = append(r.msgs, msg) }

func TestMonitorSummarisesComposite(t *testing.T) {
	rec := &recorder{}
	m := NewMonitor(rec, 0)

	composite := mat.NewDense(2, 3, []float64{3, 0, 1, 0, 4, 1})
	m.OnStep(5, dynamo.State{3, 4, 0}, composite)
	m.OnStep(10, dynamo.State{3, 4, 0}, composite)

	if len(rec.msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(rec.msgs))
	}
	msg := rec.msgs[1].(stepMsg)
	if msg.steps != 2 || msg.t != 10 {
		t.Errorf("unexpected step %+v", msg)
	}
	if msg.position != 5 || msg.phiNorm != 5 {
		t.Errorf("expected |r|=5 and ‖Φ‖=5, got %g and %g", msg.position, msg.phiNorm)
	}
	if !msg.hasParams || msg.sensNorm != math.Sqrt2 {
		t.Errorf("expected ‖S‖=√2, got %g", msg.sensNorm)
	}
}

func TestMonitorThrottles(t *testing.T) {
	rec := &recorder{}
	m := NewMonitor(rec, 1<<62)
	for i := 0; i < 5; i++ {
		m.OnStep(float64(i), dynamo.State{1}, nil)
	}
	if len(rec.msgs) != 1 {
		t.Errorf("expected 1 message, got %d", len(rec.msgs))
	}
}

func TestModelUpdate(t *testing.T) {
	cfg := dynamo.DefaultConfig()
	cfg.Duration = 100
	var m tea.Model = newModel("leo", cfg, nil)

	m, _ = m.Update(stepMsg{t: 50, steps: 5, phiNorm: 2})
	mm := m.(model)
	if mm.progress() != 0.5 {
		t.Errorf("expected progress 0.5, got %g", mm.progress())
	}
	if !strings.Contains(mm.View(), "leo") {
		t.Error("view should name the scenario")
	}

	m, cmd := m.Update(doneMsg{err: errors.New("boom")})
	if cmd == nil {
		t.Error("expected quit command after completion")
	}
	if !strings.Contains(m.View(), "boom") {
		t.Error("view should report the failure")
	}
}

func TestQuitCancels(t *testing.T) {
	canceled := false
	m := newModel("leo", dynamo.DefaultConfig(), func() { canceled = true })
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil || !canceled {
		t.Error("q should cancel the run and quit")
	}
}

func TestSparkline(t *testing.T) {
	s := sparkline([]float64{0, 1, 2, 3, 4, 5, 6, 7}, 8)
	if s != "▁▂▃▄▅▆▇█" {
		t.Errorf("unexpected sparkline %q", s)
	}
}
