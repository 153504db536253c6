// Package tui implements the terminal scanner interface using Bubble Tea.
package tui

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"
)

// IsTTY returns true if stdout is connected to a terminal.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// Run starts the TUI program with the given model. The program renders
// inline so accepted scans printed above it stay in the scrollback.
func Run(m *Model) error {
	if !IsTTY() {
		return fmt.Errorf("the terminal interface needs a TTY; use the scan command instead")
	}
	p := tea.NewProgram(m)
	_, err := p.Run()
	return err
}
