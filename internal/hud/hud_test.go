package hud

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/hand"
	"github.com/ayusman/mudra/internal/pipeline"
)

var t0 = time.Unix(6000, 0)

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

func TestModel_ReceivesTicks(t *testing.T) {
	ch := make(chan pipeline.Tick, 1)
	m := New(ch, nil)

	tick := pipeline.Tick{
		Seq:    7,
		At:     t0,
		Events: []gesture.Event{{Kind: gesture.KindWave, Side: hand.SideRight, At: t0}},
	}
	tick.State.Tracking = true
	tick.State.Right.Seen = true
	tick.State.Right.Pinch = 0.5

	ch <- tick
	msg := m.Init()()
	require.IsType(t, tickMsg{}, msg)

	m, cmd := update(t, m, msg)
	assert.NotNil(t, cmd, "keeps listening for ticks")
	assert.Equal(t, uint64(7), m.tick.Seq)

	view := m.View()
	assert.Contains(t, view, "tick 7")
	assert.Contains(t, view, "tracking")
	assert.Contains(t, view, "WAVE (ROTATE)")
	assert.Contains(t, view, "0.50")
	assert.Contains(t, view, "(unseen)", "left hand never observed")
}

func TestModel_GestureLabelExpires(t *testing.T) {
	m := New(nil, nil)
	m, _ = update(t, m, tickMsg(pipeline.Tick{Seq: 1, At: t0, Events: []gesture.Event{{Kind: gesture.KindClap, At: t0}}}))
	assert.Contains(t, m.View(), "CLAP")

	m, _ = update(t, m, tickMsg(pipeline.Tick{Seq: 2, At: t0.Add(time.Second)}))
	assert.Contains(t, m.View(), "CLAP")

	m, _ = update(t, m, tickMsg(pipeline.Tick{Seq: 3, At: t0.Add(2 * time.Second)}))
	assert.NotContains(t, m.View(), "CLAP")
}

func TestModel_Keys(t *testing.T) {
	enabled := true
	m := New(nil, func() bool {
		enabled = !enabled
		return enabled
	})

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	assert.False(t, enabled)
	assert.Contains(t, m.View(), "paused")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, m.View())
}

func TestModel_ClosedChannelQuits(t *testing.T) {
	ch := make(chan pipeline.Tick)
	close(ch)
	m := New(ch, nil)

	msg := m.Init()()
	_, cmd := update(t, m, msg)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestBar(t *testing.T) {
	full := bar(1)
	assert.Equal(t, barWidth, strings.Count(full, "█"))
	assert.Equal(t, 0, strings.Count(bar(-3), "█"))
	assert.Contains(t, bar(2), "1.00")
	assert.Equal(t, barWidth/2, strings.Count(bar(0.5), "█"))
}
