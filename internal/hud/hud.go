// Package hud renders the live pipeline state as a terminal dashboard.
package hud

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/hand"
	"github.com/ayusman/mudra/internal/pipeline"
	"github.com/ayusman/mudra/internal/smoothing"
)

const barWidth = 24

// gestureHold is how long a gesture label stays on screen.
const gestureHold = 1500 * time.Millisecond

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	labelStyle   = lipgloss.NewStyle().Width(9).Foreground(lipgloss.Color("245"))
	barStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	gestureStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57")).Padding(0, 1)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	panelStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

type tickMsg pipeline.Tick

type closedMsg struct{}

// Model is the bubbletea model of the HUD.
type Model struct {
	ticks   <-chan pipeline.Tick
	toggle  func() bool
	tick    pipeline.Tick
	enabled bool

	lastGesture gesture.Event
	shown       bool
	quitting    bool
}

// New creates a HUD fed by ticks. toggle flips detection on or off and
// returns the new state; it may be nil.
func New(ticks <-chan pipeline.Tick, toggle func() bool) Model {
	return Model{ticks: ticks, toggle: toggle, enabled: true}
}

// Init implements tea.Model interface.
func (m Model) Init() tea.Cmd {
	return waitForTick(m.ticks)
}

func waitForTick(ch <-chan pipeline.Tick) tea.Cmd {
	return func() tea.Msg {
		t, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return tickMsg(t)
	}
}

// Update implements tea.Model interface.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.tick = pipeline.Tick(msg)
		for _, k := range gesture.Kinds {
			if ev, ok := m.tick.Event(k); ok {
				m.lastGesture, m.shown = ev, true
				break
			}
		}
		return m, waitForTick(m.ticks)

	case closedMsg:
		m.quitting = true
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case " ":
			if m.toggle != nil {
				m.enabled = m.toggle()
			}
		}
	}
	return m, nil
}

// View implements tea.Model interface.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("mudra"))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  tick %d", m.tick.Seq)))
	b.WriteString("\n\n")

	status := "no hands"
	if m.tick.State.Tracking {
		status = "tracking"
	}
	if !m.enabled {
		status = "paused"
	}
	b.WriteString(labelStyle.Render("status") + status + "\n")

	label := dimStyle.Render("-")
	if m.shown && m.tick.At.Sub(m.lastGesture.At) <= gestureHold {
		label = gestureStyle.Render(m.lastGesture.Kind.Label())
	}
	b.WriteString(labelStyle.Render("gesture") + label + "\n\n")

	panels := lipgloss.JoinHorizontal(lipgloss.Top,
		panel(hand.SideLeft, m.tick.State.Left),
		" ",
		panel(hand.SideRight, m.tick.State.Right),
	)
	b.WriteString(panels)
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("space: pause/resume  q: quit"))
	return b.String()
}

func panel(side hand.Side, st smoothing.SideState) string {
	var b strings.Builder
	title := side.String()
	if !st.Seen {
		title += dimStyle.Render(" (unseen)")
	}
	b.WriteString(title + "\n")
	b.WriteString(labelStyle.Render("pinch") + bar(st.Pinch) + "\n")
	b.WriteString(labelStyle.Render("twist") + bar(st.Twist) + "\n")
	b.WriteString(labelStyle.Render("volume") + bar(st.Volume) + "\n")
	b.WriteString(labelStyle.Render("position") + fmt.Sprintf("%.2f, %.2f", st.Position.X, st.Position.Y))
	return panelStyle.Render(b.String())
}

// bar renders v in [0,1] as a fixed-width gauge.
func bar(v float64) string {
	if math.IsNaN(v) || v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	filled := int(math.Round(v * barWidth))
	return barStyle.Render(strings.Repeat("█", filled)) +
		dimStyle.Render(strings.Repeat("░", barWidth-filled)) +
		fmt.Sprintf(" %.2f", v)
}

// Run shows the HUD for p until the user quits or ctx is cancelled.
func Run(ctx context.Context, p *pipeline.Pipeline) error {
	sink := pipeline.NewChanSink(4)
	p.AddSink(sink)

	toggle := func() bool {
		p.SetEnabled(!p.Enabled())
		return p.Enabled()
	}

	model := New(sink.C(), toggle)
	model.enabled = p.Enabled()

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		return errors.Wrap(err, "run hud")
	}
	return nil
}
