// Package tui is the live rollout viewer: a bubbletea program stepping the
// hybrid integrator at a fixed frame rate and charting field means.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"

	"github.com/Oscarrrhhhh/neuralgcm/internal/grid"
	"github.com/Oscarrrhhhh/neuralgcm/internal/hybrid"
	"github.com/Oscarrrhhhh/neuralgcm/internal/nn"
	"github.com/Oscarrrhhhh/neuralgcm/internal/viz"
)

const historyCapacity = 600

type TickMsg time.Time

// Model holds the rollout state and chart buffers for the live view.
type Model struct {
	integrator *hybrid.Integrator
	params     *nn.Params
	state      *grid.State
	dt         float64
	maxSteps   int
	frameRate  int

	step    int
	field   string
	history []float64
	paused  bool
	failed  error
	done    bool
}

func NewModel(it *hybrid.Integrator, p *nn.Params, initial *grid.State, dt float64, maxSteps, frameRate int, field string) Model {
	if frameRate <= 0 {
		frameRate = 10
	}
	return Model{
		integrator: it,
		params:     p,
		state:      initial,
		dt:         dt,
		maxSteps:   maxSteps,
		frameRate:  frameRate,
		field:      field,
		history:    make([]float64, 0, historyCapacity),
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(m.frameRate), func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.paused = !m.paused
		}
		return m, nil

	case TickMsg:
		if m.done || m.failed != nil {
			return m, nil
		}
		if m.paused {
			return m, m.tick()
		}

		next, err := m.integrator.Step(m.state, m.params, m.dt)
		if err != nil {
			m.failed = err
			return m, nil
		}
		m.state = next
		m.step++

		if f, err := m.state.Field(m.field); err == nil {
			m.history = append(m.history, f.Mean())
			if len(m.history) > historyCapacity {
				m.history = m.history[1:]
			}
		}

		if m.maxSteps > 0 && m.step >= m.maxSteps {
			m.done = true
			return m, nil
		}
		return m, m.tick()
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(viz.HeaderStyle.Render("hybrid forecast: live"))
	b.WriteString("\n")

	status := viz.StatusRunning.Render("running")
	switch {
	case m.failed != nil:
		status = viz.StatusFailed.Render("diverged: " + m.failed.Error())
	case m.done:
		status = viz.StatusRunning.Render("complete")
	case m.paused:
		status = "paused"
	}

	stats := []string{
		viz.LabelStyle.Render("step") + viz.ValueStyle.Render(fmt.Sprintf("%d / %d", m.step, m.maxSteps)),
		viz.LabelStyle.Render("sim time") + viz.ValueStyle.Render(fmt.Sprintf("%.1f h", float64(m.step)*m.dt/3600)),
		viz.LabelStyle.Render("status") + status,
	}
	if len(m.history) > 0 {
		stats = append(stats,
			viz.LabelStyle.Render("mean "+m.field)+viz.ValueStyle.Render(fmt.Sprintf("%.4f", m.history[len(m.history)-1])))
	}
	b.WriteString(viz.PanelStyle.Render(strings.Join(stats, "\n")))
	b.WriteString("\n")

	if len(m.history) >= 2 {
		graph := asciigraph.Plot(m.history,
			asciigraph.Height(10),
			asciigraph.Width(72),
			asciigraph.Caption("global mean "+m.field),
		)
		b.WriteString(viz.GraphStyle.Render(graph))
		b.WriteString("\n")
	}

	b.WriteString(viz.HelpStyle.Render("space pause · q quit"))
	b.WriteString("\n")
	return b.String()
}

// Run starts the live viewer and blocks until it exits.
func Run(m Model) error {
	_, err := tea.NewProgram(m).Run()
	return err
}
