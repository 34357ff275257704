// ABOUTME: Tests for TUI model and state management
// ABOUTME: Tests status updates, quit handling and rendering helpers
package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/resonance-audio/resonance/internal/affirm"
	"github.com/resonance-audio/resonance/internal/pacer"
	"github.com/resonance-audio/resonance/internal/session"
)

func sampleStatus() session.Status {
	return session.Status{
		Preset:    "calm-alpha",
		Mode:      session.ModeLive,
		Frequency: 200,
		Elapsed:   90 * time.Second,
		Duration:  20 * time.Minute,
		Breath:    pacer.State{Cycle: 2, Phase: pacer.Inhale, Envelope: 0.5},
		Pan:       -0.5,
		Current:   "I am calm",
		Cues:      affirm.Stats{Played: 4, Missed: 1},
	}
}

func TestNewModel_Polls(t *testing.T) {
	calls := 0
	poll := func() session.Status {
		calls++
		return sampleStatus()
	}
	m := NewModel(poll, nil)
	if calls != 1 || m.status.Preset != "calm-alpha" {
		t.Fatalf("initial poll: calls=%d preset=%q", calls, m.status.Preset)
	}

	next, cmd := m.Update(tickMsg(time.Now()))
	if calls != 2 {
		t.Errorf("tick should poll again, calls=%d", calls)
	}
	if cmd == nil {
		t.Error("tick should schedule another tick")
	}
	if _, ok := next.(Model); !ok {
		t.Fatalf("Update returned %T", next)
	}
}

func TestStatusMsg(t *testing.T) {
	m := NewModel(nil, nil)
	st := sampleStatus()
	next, _ := m.Update(StatusMsg(st))
	got := next.(Model)
	if got.status.Current != "I am calm" || got.status.Cues.Played != 4 {
		t.Errorf("status not applied: %+v", got.status)
	}
}

func TestQuitKey_SignalsOnce(t *testing.T) {
	quit := make(chan struct{}, 1)
	m := NewModel(nil, quit)

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	m = next.(Model)
	if !m.fading {
		t.Error("expected fading after q")
	}
	select {
	case <-quit:
	default:
		t.Fatal("expected quit signal")
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = next.(Model)
	select {
	case <-quit:
		t.Error("second quit key should not signal again")
	default:
	}
	if !strings.Contains(m.View(), "Fading out") {
		t.Error("view should show fade-out")
	}
}

func TestView(t *testing.T) {
	m := NewModel(nil, nil)
	next, _ := m.Update(StatusMsg(sampleStatus()))
	view := next.(Model).View()

	for _, want := range []string{"calm-alpha", "200.00 Hz", "inhale", "I am calm", "4 played, 1 missed", "1m30s / 20m0s"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}

	done := sampleStatus()
	done.Done = true
	done.Outcome = session.OutcomeCompleted
	next, _ = m.Update(StatusMsg(done))
	if !strings.Contains(next.(Model).View(), "Session completed") {
		t.Error("view should show the outcome when done")
	}
}

func TestRenderBar(t *testing.T) {
	tests := []struct {
		level float64
		want  string
	}{
		{0, "░░░░"},
		{0.5, "██░░"},
		{1, "████"},
		{2, "████"},
		{-1, "░░░░"},
	}
	for _, tt := range tests {
		if got := renderBar(tt.level, 4); got != tt.want {
			t.Errorf("renderBar(%v) = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestPanMeter(t *testing.T) {
	tests := []struct {
		pan  float64
		want string
	}{
		{-1, "L ●─┼── R"},
		{0, "L ──●── R"},
		{1, "L ──┼─● R"},
	}
	for _, tt := range tests {
		if got := panMeter(tt.pan, 5); got != tt.want {
			t.Errorf("panMeter(%v) = %q, want %q", tt.pan, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := truncate("I release what I cannot change", 10); got != "I relea..." {
		t.Errorf("got %q", got)
	}
}
