// Package tui renders a live view of a running propagation.
package tui

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/varsens/internal/dynamo"
	"github.com/san-kum/varsens/internal/propagation"
)

var (
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	red    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

const historyLen = 60

type stepMsg struct {
	t         float64
	steps     int
	position  float64
	phiNorm   float64
	sensNorm  float64
	hasParams bool
}

type doneMsg struct{ err error }

type sender interface {
	Send(msg tea.Msg)
}

// Monitor forwards a throttled summary of each step to the live view.
type Monitor struct {
	out      sender
	interval time.Duration
	last     time.Time
	steps    int
}

func NewMonitor(out sender, interval time.Duration) *Monitor {
	return &Monitor{out: out, interval: interval}
}

func (m *Monitor) OnStep(t float64, x dynamo.State, composite mat.Matrix) {
	m.steps++
	now := time.Now()
	if m.interval > 0 && now.Sub(m.last) < m.interval {
		return
	}
	m.last = now

	msg := stepMsg{t: t, steps: m.steps}
	if len(x) >= 3 {
		msg.position = math.Sqrt(x[0]*x[0] + x[1]*x[1] + x[2]*x[2])
	}
	if composite != nil {
		n, p := composite.Dims()
		var phi, sens float64
		for i := 0; i < n; i++ {
			for j := 0; j < p; j++ {
				v := composite.At(i, j)
				if j < n {
					phi += v * v
				} else {
					sens += v * v
				}
			}
		}
		msg.phiNorm = math.Sqrt(phi)
		msg.sensNorm = math.Sqrt(sens)
		msg.hasParams = p > n
	}
	m.out.Send(msg)
}

type model struct {
	name     string
	start    float64
	duration float64
	cancel   func()

	last    stepMsg
	history []float64
	began   time.Time
	elapsed time.Duration

	done bool
	err  error
}

func newModel(name string, cfg dynamo.Config, cancel func()) model {
	return model{
		name:     name,
		start:    cfg.Start,
		duration: cfg.Duration,
		cancel:   cancel,
		history:  make([]float64, 0, historyLen),
		began:    time.Now(),
	}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
	case stepMsg:
		m.last = msg
		m.elapsed = time.Since(m.began)
		v := msg.phiNorm
		if msg.hasParams {
			v = msg.sensNorm
		}
		if len(m.history) == historyLen {
			m.history = append(m.history[:0], m.history[1:]...)
		}
		m.history = append(m.history, v)
	case doneMsg:
		m.done = true
		m.err = msg.err
		m.elapsed = time.Since(m.began)
		return m, tea.Quit
	}
	return m, nil
}

func (m model) progress() float64 {
	if m.duration <= 0 {
		return 1
	}
	return math.Min(math.Abs(m.last.t-m.start)/m.duration, 1)
}

func (m model) View() string {
	var b strings.Builder

	status := green.Render("●") + " " + green.Render("running")
	switch {
	case m.err != nil:
		status = red.Render("●") + " " + red.Render("failed")
	case m.done:
		status = cyan.Render("●") + " " + cyan.Render("done")
	}
	b.WriteString(fmt.Sprintf("\n   %s  %s\n", cyan.Render(m.name), status))

	barWidth := 36
	filled := int(m.progress() * float64(barWidth))
	bar := cyan.Render(strings.Repeat("━", filled)) + dimmer.Render(strings.Repeat("─", barWidth-filled))
	timeStr := fmt.Sprintf("t=%.0fs/%.0fs", m.last.t-m.start, m.duration)
	b.WriteString(fmt.Sprintf("   %s %s  %s\n\n", bar, dim.Render(timeStr), dim.Render(m.elapsed.Round(time.Millisecond).String())))

	b.WriteString(fmt.Sprintf("   %s%s  %s%s  %s%s\n",
		dim.Render("steps="), white.Render(fmt.Sprintf("%d", m.last.steps)),
		dim.Render("|r|="), white.Render(fmt.Sprintf("%.3f", m.last.position)),
		dim.Render("‖Φ‖="), white.Render(fmt.Sprintf("%.4g", m.last.phiNorm))))
	label := "‖Φ‖"
	if m.last.hasParams {
		label = "‖S‖"
		b.WriteString(fmt.Sprintf("   %s%s\n", dim.Render("‖S‖="), white.Render(fmt.Sprintf("%.4g", m.last.sensNorm))))
	}
	if len(m.history) > 1 {
		b.WriteString(fmt.Sprintf("   %s %s\n", dim.Render(label), cyan.Render(sparkline(m.history, 40))))
	}
	if m.err != nil {
		b.WriteString("\n   " + red.Render(m.err.Error()) + "\n")
	}
	if !m.done {
		b.WriteString("\n" + dim.Render("   q quit") + "\n")
	}
	return b.String()
}

func sparkline(data []float64, width int) string {
	if len(data) == 0 {
		return ""
	}
	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
	minVal, maxVal := data[0], data[0]
	for _, v := range data {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	rang := maxVal - minVal
	if rang == 0 {
		rang = 1
	}
	step := len(data) / width
	if step < 1 {
		step = 1
	}
	var sb strings.Builder
	for i := 0; i < width && i*step < len(data); i++ {
		idx := int((data[i*step] - minVal) / rang * 7)
		idx = max(0, min(idx, 7))
		sb.WriteRune(chars[idx])
	}
	return sb.String()
}

// RunFunc runs a propagation reporting every step to obs.
type RunFunc func(ctx context.Context, obs dynamo.Observer) (*propagation.Result, error)

// RunLive runs fn while rendering its progress. Quitting the view cancels
// the run.
func RunLive(ctx context.Context, name string, cfg dynamo.Config, fn RunFunc) (*propagation.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newModel(name, cfg, cancel))

	var (
		res    *propagation.Result
		runErr error
	)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		res, runErr = fn(ctx, NewMonitor(p, 33*time.Millisecond))
		p.Send(doneMsg{err: runErr})
	}()

	_, err := p.Run()
	cancel()
	<-finished
	if err != nil {
		return nil, err
	}
	return res, runErr
}
