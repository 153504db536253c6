package tui

import (
	"fmt"
	"strings"
	"time"

	"barcodescanner/camera"
	"barcodescanner/config"
	"barcodescanner/scanner"
	"barcodescanner/types"
	"barcodescanner/utils"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
)

// payloadWidth is the number of runes of a payload shown in the table
const payloadWidth = 48

// Options configures the terminal interface.
type Options struct {
	TickInterval    time.Duration
	CooldownSeconds int
	AutoStart       bool

	// Camera is the device index preselected when detected. Otherwise the
	// first detected camera is selected.
	Camera int

	// Enumerate lists the available cameras. It runs off the UI loop.
	Enumerate func() []types.CameraOption
}

// Model is the Bubble Tea model of the terminal scanner.
type Model struct {
	session *scanner.Session
	opts    Options

	keys  KeyMap
	help  help.Model
	table table.Model

	cameras   []types.CameraOption
	cameraIdx int
	cooldown  int
	rows      int
	quitting  bool
}

// NewModel creates the terminal model around a session it will own.
func NewModel(session *scanner.Session, opts Options) *Model {
	columns := []table.Column{
		{Title: "Timestamp", Width: 19},
		{Title: "Type", Width: 12},
		{Title: "Data", Width: payloadWidth},
	}

	return &Model{
		session: session,
		opts:    opts,
		keys:    DefaultKeyMap,
		help:    help.New(),
		table: table.New(
			table.WithColumns(columns),
			table.WithFocused(true),
			table.WithHeight(10),
		),
		cameraIdx: -1,
		cooldown:  utils.ClampCooldown(opts.CooldownSeconds),
	}
}

// Init starts the first camera enumeration.
func (m *Model) Init() tea.Cmd {
	m.session.ReportInitializing()
	return m.refreshCmd()
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case CamerasMsg:
		return m, m.applyCameras(msg.Options)

	case TickMsg:
		return m, m.tick(msg.Epoch)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

// handleKey maps key presses to session actions.
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.session.Stop()
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Start):
		return m, m.start()

	case key.Matches(msg, m.keys.Stop):
		m.session.Stop()
		return m, nil

	case key.Matches(msg, m.keys.Copy):
		m.session.CopySelected(m.selectedRow())
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		m.session.ReportInitializing()
		return m, m.refreshCmd()

	case key.Matches(msg, m.keys.Camera):
		if len(m.cameras) > 0 {
			m.cameraIdx = (m.cameraIdx + 1) % len(m.cameras)
		}
		return m, nil

	case key.Matches(msg, m.keys.Increase):
		m.setCooldown(m.cooldown + 1)
		return m, nil

	case key.Matches(msg, m.keys.Decrease):
		m.setCooldown(m.cooldown - 1)
		return m, nil
	}

	// Everything else navigates the history table
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// refreshCmd enumerates cameras without blocking the UI loop.
func (m *Model) refreshCmd() tea.Cmd {
	enumerate := m.opts.Enumerate
	return func() tea.Msg {
		if enumerate == nil {
			return CamerasMsg{}
		}
		return CamerasMsg{Options: enumerate()}
	}
}

// applyCameras repopulates the camera list, selecting the preferred device
// or the first entry.
func (m *Model) applyCameras(options []types.CameraOption) tea.Cmd {
	m.cameras = options
	if len(options) == 0 {
		m.cameraIdx = -1
		m.session.ReportNoCameras()
		return nil
	}

	m.cameraIdx = camera.DefaultSelection(options, m.opts.Camera)
	if m.opts.AutoStart && !m.session.Running() {
		return m.start()
	}
	return nil
}

// start opens the selected camera and schedules the first tick of the run.
func (m *Model) start() tea.Cmd {
	if err := m.session.Start(m.selectedCamera(), m.cooldown); err != nil {
		return nil
	}
	return tickCmd(m.opts.TickInterval, m.session.Epoch())
}

// tick runs a scheduled tick and schedules the next one for the same run.
func (m *Model) tick(epoch uint64) tea.Cmd {
	if epoch != m.session.Epoch() {
		return nil
	}

	result := m.session.TickEpoch(epoch)
	if !result.Ran {
		return nil
	}

	cmds := []tea.Cmd{tickCmd(m.opts.TickInterval, epoch)}
	if len(result.Accepted) > 0 {
		m.syncRows()
		for _, record := range result.Accepted {
			cmds = append(cmds, tea.Println(record.TraceLine()))
		}
	}
	return tea.Batch(cmds...)
}

// syncRows appends history entries not yet shown and scrolls to the newest.
func (m *Model) syncRows() {
	log := m.session.History()
	if log.Len() == m.rows {
		return
	}

	rows := m.table.Rows()
	for _, record := range log.Entries()[m.rows:] {
		rows = append(rows, table.Row{record.FormattedTime(), record.Symbology, utils.Truncate(record.Payload, payloadWidth)})
	}
	m.rows = len(rows)
	m.table.SetRows(rows)
	m.table.GotoBottom()
}

// selectedRow returns the highlighted history position, or -1 when the table is empty.
func (m *Model) selectedRow() int {
	if len(m.table.Rows()) == 0 {
		return -1
	}
	return m.table.Cursor()
}

func (m *Model) selectedCamera() *types.CameraOption {
	if m.cameraIdx < 0 || m.cameraIdx >= len(m.cameras) {
		return nil
	}
	return &m.cameras[m.cameraIdx]
}

func (m *Model) setCooldown(seconds int) {
	m.cooldown = utils.ClampCooldown(seconds)
	m.session.SetCooldown(m.cooldown)
}

// View renders the interface.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(TitleStyle.Render("Barcode Scanner"))
	b.WriteString("\n\n")

	cameraText := "none"
	if cam := m.selectedCamera(); cam != nil {
		cameraText = fmt.Sprintf("%s (%d/%d)", cam.Label, m.cameraIdx+1, len(m.cameras))
	}
	state := "idle"
	if m.session.Running() {
		state = "running"
	}
	fmt.Fprintf(&b, "Camera: %s   Cooldown: %ds (%d-%d)   %s\n",
		cameraText, m.cooldown, config.MinCooldown, config.MaxCooldown, DimStyle.Render(state))
	b.WriteString(m.session.Type())
	b.WriteString("\n\n")

	b.WriteString(m.table.View())
	b.WriteString("\n")
	b.WriteString(StatusBarStyle.Render(renderStatus(m.session.Status())))
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	b.WriteString("\n")

	return b.String()
}

// renderStatus colors the status line by outcome.
func renderStatus(status string) string {
	switch {
	case strings.HasPrefix(status, "Copied"):
		return SuccessStyle.Render(status)
	case status == scanner.StatusReadFailed,
		status == scanner.StatusCameraUnavailable,
		status == scanner.StatusNoCameras,
		status == scanner.StatusNoCameraSelected,
		status == scanner.StatusNoSelection:
		return WarningStyle.Render(status)
	}
	return status
}
