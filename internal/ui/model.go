// ABOUTME: Bubbletea model for the session status TUI
// ABOUTME: Shows progress, breath phase, bilateral pan and the current affirmation
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/resonance-audio/resonance/internal/session"
)

const refreshInterval = 250 * time.Millisecond

// StatusMsg carries a fresh session snapshot
type StatusMsg session.Status

type tickMsg time.Time

// Model represents the TUI state
type Model struct {
	status   session.Status
	poll     func() session.Status
	quitChan chan<- struct{}
	fading   bool
	width    int
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))
	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))
	cueStyle = lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color("220"))
	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203"))
	helpStyle = lipgloss.NewStyle().Faint(true)
)

// NewModel creates a model that polls the session through poll
func NewModel(poll func() session.Status, quit chan<- struct{}) Model {
	m := Model{poll: poll, quitChan: quit}
	if poll != nil {
		m.status = poll()
	}
	return m
}

// Init starts the refresh ticker
func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tickMsg:
		if m.poll != nil {
			m.status = m.poll()
		}
		return m, tick()
	case StatusMsg:
		m.status = session.Status(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		if !m.fading {
			m.fading = true
			select {
			case m.quitChan <- struct{}{}:
			default:
			}
		}
	}
	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	st := m.status
	var b strings.Builder

	b.WriteString(titleStyle.Render("Resonance"))
	b.WriteString("\n")

	field(&b, "Preset: ", st.Preset)
	mode := string(st.Mode)
	if st.Mode == session.ModeFile && st.OutPath != "" {
		mode += " → " + st.OutPath
	}
	field(&b, "Output: ", mode)
	field(&b, "Tone:   ", fmt.Sprintf("%.2f Hz", st.Frequency))
	field(&b, "Time:   ", progress(st.Elapsed, st.Duration))
	b.WriteString("\n")

	field(&b, "Breath: ", fmt.Sprintf("%-8s [%s] cycle %d",
		st.Breath.Phase, renderBar(st.Breath.Envelope, 20), st.Breath.Cycle+1))
	field(&b, "Pan:    ", panMeter(st.Pan, 21))
	b.WriteString("\n")

	b.WriteString(headerStyle.Render("Affirmation: "))
	if st.Current != "" {
		b.WriteString(cueStyle.Render(truncate(st.Current, m.textWidth())))
	} else {
		b.WriteString(valueStyle.Render(st.Scheduler.String()))
	}
	b.WriteString("\n")
	field(&b, "Cues:   ", fmt.Sprintf("%d played, %d missed, %d deferred, %d cached",
		st.Cues.Played, st.Cues.Missed, st.Cues.Deferred, st.Cached))
	if st.Timeouts > 0 {
		b.WriteString(warnStyle.Render(fmt.Sprintf("%d clips were not ready in time", st.Timeouts)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch {
	case st.Done:
		b.WriteString(valueStyle.Render(fmt.Sprintf("Session %s", st.Outcome)))
	case m.fading || st.Cancelled:
		b.WriteString(valueStyle.Render("Fading out..."))
	default:
		b.WriteString(helpStyle.Render("Press 'q' or Ctrl+C to fade out and stop"))
	}
	b.WriteString("\n")

	return b.String()
}

func field(b *strings.Builder, label, value string) {
	b.WriteString(headerStyle.Render(label))
	b.WriteString(valueStyle.Render(value))
	b.WriteString("\n")
}

func (m Model) textWidth() int {
	if m.width > 20 {
		return m.width - 14
	}
	return 60
}

func progress(elapsed, total time.Duration) string {
	e := elapsed.Round(time.Second)
	if total <= 0 {
		return e.String()
	}
	return fmt.Sprintf("%s / %s [%s]", e, total.Round(time.Second), renderBar(elapsed.Seconds()/total.Seconds(), 20))
}

// renderBar draws a level in [0,1] as a bar of width cells
func renderBar(level float64, width int) string {
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}
	filled := int(level*float64(width) + 0.5)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// panMeter places a marker for pan in [-1,1] on a track of width cells
func panMeter(pan float64, width int) string {
	if pan < -1 {
		pan = -1
	}
	if pan > 1 {
		pan = 1
	}
	pos := int((pan+1)/2*float64(width-1) + 0.5)
	track := []rune(strings.Repeat("─", width))
	track[width/2] = '┼'
	track[pos] = '●'
	return "L " + string(track) + " R"
}

func truncate(s string, length int) string {
	r := []rune(s)
	if len(r) <= length {
		return s
	}
	return string(r[:length-3]) + "..."
}
