// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program and reports quit requests to the caller
package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/resonance-audio/resonance/internal/session"
)

// TUI runs the status display for one session
type TUI struct {
	program  *tea.Program
	quitChan chan struct{}
}

// New creates a TUI polling status for its snapshots
func New(status func() session.Status) *TUI {
	quit := make(chan struct{}, 1)
	return &TUI{
		program:  tea.NewProgram(NewModel(status, quit), tea.WithAltScreen()),
		quitChan: quit,
	}
}

// Run blocks until Stop is called or the program fails
func (t *TUI) Run() error {
	_, err := t.program.Run()
	return err
}

// QuitChan signals when the user asks to stop
func (t *TUI) QuitChan() <-chan struct{} {
	return t.quitChan
}

// Update pushes a snapshot immediately instead of waiting for the next tick
func (t *TUI) Update(st session.Status) {
	t.program.Send(StatusMsg(st))
}

// Stop ends the program
func (t *TUI) Stop() {
	t.program.Quit()
}
