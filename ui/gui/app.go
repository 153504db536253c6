// Package gui implements the desktop scanner window using fyne.
package gui

import (
	"context"
	"image"
	"strconv"
	"time"

	"barcodescanner/camera"
	"barcodescanner/config"
	"barcodescanner/logging"
	"barcodescanner/scanner"
	"barcodescanner/types"
	"barcodescanner/utils"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// historyColumns are the history table headers
var historyColumns = []string{"Timestamp", "Type", "Data"}

// Options configures the desktop window.
type Options struct {
	TickInterval    time.Duration
	CooldownSeconds int
	AutoStart       bool
	DisplayWidth    int
	DisplayHeight   int

	// Camera is the device index preselected when detected. Otherwise the
	// first detected camera is selected.
	Camera int

	// Enumerate lists the available cameras. It runs off the UI thread.
	Enumerate func() []types.CameraOption
}

// App represents the scanner window
type App struct {
	fyneApp fyne.App
	window  fyne.Window
	session *scanner.Session
	opts    Options

	cameras     []types.CameraOption
	selectedRow int
	cooldown    int

	video         *canvas.Image
	statusLabel   *widget.Label
	typeLabel     *widget.Label
	cooldownSel   *widget.Select
	cameraSel     *widget.Select
	startButton   *widget.Button
	stopButton    *widget.Button
	copyButton    *widget.Button
	refreshButton *widget.Button
	historyTable  *widget.Table

	cancel context.CancelFunc
}

// NewApp creates the scanner window around a session it will own
func NewApp(session *scanner.Session, opts Options) *App {
	return newAppWith(app.New(), session, opts)
}

// newAppWith builds the window on an existing fyne application
func newAppWith(fyneApp fyne.App, session *scanner.Session, opts Options) *App {
	window := fyneApp.NewWindow("Barcode Scanner")

	a := &App{
		fyneApp:     fyneApp,
		window:      window,
		session:     session,
		opts:        opts,
		selectedRow: -1,
		cooldown:    utils.ClampCooldown(opts.CooldownSeconds),
	}
	a.setupUI()
	session.SetDisplay(a)
	return a
}

// SetStatus implements notify.Display
func (a *App) SetStatus(text string) {
	a.statusLabel.SetText(text)
}

// SetType implements notify.Display
func (a *App) SetType(text string) {
	a.typeLabel.SetText(text)
}

// setupUI lays out the video pane, controls and history table
func (a *App) setupUI() {
	a.video = canvas.NewImageFromImage(nil)
	a.video.FillMode = canvas.ImageFillContain
	a.video.SetMinSize(fyne.NewSize(float32(a.opts.DisplayWidth), float32(a.opts.DisplayHeight)))

	a.statusLabel = widget.NewLabel(a.session.Status())
	a.typeLabel = widget.NewLabel(a.session.Type())

	cooldownOptions := make([]string, 0, config.MaxCooldown-config.MinCooldown+1)
	for s := config.MinCooldown; s <= config.MaxCooldown; s++ {
		cooldownOptions = append(cooldownOptions, strconv.Itoa(s))
	}
	a.cooldownSel = widget.NewSelect(cooldownOptions, a.onCooldownChanged)
	a.cooldownSel.SetSelected(strconv.Itoa(a.cooldown))

	a.cameraSel = widget.NewSelect(nil, nil)
	a.cameraSel.PlaceHolder = "No camera"

	a.startButton = widget.NewButton("Start", a.onStart)
	a.stopButton = widget.NewButton("Stop", a.onStop)
	a.copyButton = widget.NewButton("Copy Selected", a.onCopySelected)
	a.refreshButton = widget.NewButton("Refresh Cameras", a.Refresh)

	a.historyTable = widget.NewTableWithHeaders(
		func() (int, int) { return a.session.History().Len(), 3 },
		func() fyne.CanvasObject { return widget.NewLabel("0000-00-00 00:00:00") },
		a.updateHistoryCell,
	)
	a.historyTable.ShowHeaderColumn = false
	a.historyTable.CreateHeader = func() fyne.CanvasObject {
		return widget.NewLabelWithStyle("", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	}
	a.historyTable.UpdateHeader = func(id widget.TableCellID, o fyne.CanvasObject) {
		if id.Col >= 0 && id.Col < len(historyColumns) {
			o.(*widget.Label).SetText(historyColumns[id.Col])
		}
	}
	a.historyTable.SetColumnWidth(0, 170)
	a.historyTable.SetColumnWidth(1, 110)
	a.historyTable.SetColumnWidth(2, 420)
	a.historyTable.OnSelected = func(id widget.TableCellID) {
		a.selectedRow = id.Row
	}
	a.historyTable.OnUnselected = func(widget.TableCellID) {
		a.selectedRow = -1
	}

	controls := container.NewVBox(
		a.statusLabel,
		a.typeLabel,
		widget.NewForm(
			widget.NewFormItem("Cooldown (s)", a.cooldownSel),
			widget.NewFormItem("Camera", a.cameraSel),
		),
		container.NewHBox(a.startButton, a.stopButton),
		container.NewHBox(a.copyButton, a.refreshButton),
	)

	top := container.NewHBox(a.video, controls)
	content := container.NewBorder(top, nil, nil, nil, a.historyTable)
	a.window.SetContent(content)
	a.window.SetOnClosed(a.shutdown)

	a.syncControls()
}

// updateHistoryCell renders one history cell
func (a *App) updateHistoryCell(id widget.TableCellID, o fyne.CanvasObject) {
	label := o.(*widget.Label)
	record, err := a.session.History().Get(id.Row)
	if err != nil {
		label.SetText("")
		return
	}
	switch id.Col {
	case 0:
		label.SetText(record.FormattedTime())
	case 1:
		label.SetText(record.Symbology)
	default:
		label.SetText(record.Payload)
	}
}

// Run shows the window, starts the tick loop and blocks until the window closes
func (a *App) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	go func() {
		err := scanner.Run(ctx, a.session, a.opts.TickInterval, fyne.DoAndWait, a.onTick)
		logging.DebugLog("Tick loop ended: %v", err)
	}()

	a.Refresh()
	a.window.ShowAndRun()
}

// Refresh re-enumerates cameras off the UI thread and repopulates the selector
func (a *App) Refresh() {
	a.beginRefresh()
	enumerate := a.opts.Enumerate
	go func() {
		var options []types.CameraOption
		if enumerate != nil {
			options = enumerate()
		}
		fyne.Do(func() { a.applyCameras(options) })
	}()
}

// beginRefresh reports the enumeration while the session is idle
func (a *App) beginRefresh() {
	a.session.ReportInitializing()
	a.syncControls()
}

// applyCameras repopulates the selector, defaulting to the preferred device
// or the first entry
func (a *App) applyCameras(options []types.CameraOption) {
	a.cameras = options

	labels := make([]string, len(options))
	for i, opt := range options {
		labels[i] = opt.Label
	}
	a.cameraSel.Options = labels
	a.cameraSel.Refresh()

	if len(options) == 0 {
		a.cameraSel.ClearSelected()
		a.session.ReportNoCameras()
		a.syncControls()
		return
	}

	a.cameraSel.SetSelectedIndex(camera.DefaultSelection(options, a.opts.Camera))
	if a.opts.AutoStart && !a.session.Running() {
		a.onStart()
	}
	a.syncControls()
}

// selectedCamera returns the option picked in the selector
func (a *App) selectedCamera() *types.CameraOption {
	idx := a.cameraSel.SelectedIndex()
	if idx < 0 || idx >= len(a.cameras) {
		return nil
	}
	return &a.cameras[idx]
}

func (a *App) onStart() {
	if err := a.session.Start(a.selectedCamera(), a.cooldown); err != nil {
		logging.DebugLog("Start failed: %v", err)
	}
	a.syncControls()
}

func (a *App) onStop() {
	a.session.Stop()
	a.showFrame(nil)
	a.syncControls()
}

func (a *App) onCopySelected() {
	if err := a.session.CopySelected(a.selectedRow); err != nil {
		logging.DebugLog("Copy selected: %v", err)
	}
}

func (a *App) onCooldownChanged(value string) {
	seconds, err := utils.ParseCooldown(value, a.cooldown)
	if err != nil {
		logging.LogWarning("%v", err)
	}
	a.cooldown = seconds
	a.session.SetCooldown(seconds)
}

// onTick renders the tick outcome; it runs on the UI thread
func (a *App) onTick(result scanner.TickResult) {
	if result.Err == nil {
		img, err := result.Image()
		if err == nil {
			a.showFrame(img)
		}
	}

	if len(result.Accepted) > 0 {
		a.historyTable.Refresh()
		a.historyTable.ScrollToBottom()
	}
}

// showFrame replaces the video pane contents; nil clears it
func (a *App) showFrame(img image.Image) {
	a.video.Image = img
	a.video.Refresh()
}

// syncControls enables Start while idle and Stop while running
func (a *App) syncControls() {
	if a.session.Running() {
		a.startButton.Disable()
		a.stopButton.Enable()
	} else {
		a.startButton.Enable()
		a.stopButton.Disable()
	}
}

// shutdown performs the same teardown as Stop when the window closes
func (a *App) shutdown() {
	if a.cancel != nil {
		a.cancel()
	}
	a.session.Stop()
	logging.LogInfo("Window closed after %d scans", a.session.History().Len())
}
