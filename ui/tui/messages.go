package tui

import (
	"time"

	"barcodescanner/types"

	tea "github.com/charmbracelet/bubbletea"
)

// CamerasMsg carries the result of a camera enumeration.
type CamerasMsg struct {
	Options []types.CameraOption
}

// TickMsg asks for one scan tick on behalf of the run that scheduled it.
type TickMsg struct {
	Epoch uint64
}

// tickCmd schedules the next tick for the given run.
func tickCmd(interval time.Duration, epoch uint64) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return TickMsg{Epoch: epoch}
	})
}
