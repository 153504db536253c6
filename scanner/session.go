package scanner

import (
	"errors"
	"fmt"
	"time"

	"barcodescanner/camera"
	"barcodescanner/history"
	"barcodescanner/imageprocessor"
	"barcodescanner/logging"
	"barcodescanner/notify"
	"barcodescanner/types"

	"github.com/google/uuid"
	"gocv.io/x/gocv"
)

// Session runs the capture, decode and notify loop against one camera at a
// time. It moves between idle and running; a running session is only
// restarted after a full stop.
//
// A Session is not safe for concurrent use. Every method must be called from
// the event loop that owns it.
type Session struct {
	source  camera.Source
	decoder FrameDecoder
	history *history.Log
	opts    Options

	state   State
	capture camera.Capture
	epoch   uint64

	frame   gocv.Mat
	display gocv.Mat
}

// NewSession creates an idle session
func NewSession(source camera.Source, decoder FrameDecoder, log *history.Log, opts Options) *Session {
	s := &Session{
		source:  source,
		decoder: decoder,
		history: log,
		opts:    opts.withDefaults(),
		frame:   gocv.NewMat(),
		display: gocv.NewMat(),
	}
	s.state.Type = notify.NoTypeText
	return s
}

// Start opens the camera and enters the running state. A running session is
// stopped first so the new run never reuses the previous capture handle.
func (s *Session) Start(opt *types.CameraOption, cooldownSeconds int) error {
	if s.state.Running {
		s.Stop()
	}

	s.SetCooldown(cooldownSeconds)

	if opt == nil {
		s.state.SelectedCamera = nil
		s.setStatus(StatusNoCameraSelected)
		return ErrNoCameraFound
	}
	selected := *opt
	s.state.SelectedCamera = &selected

	capture, err := s.source.Open(selected.Index)
	if err != nil {
		s.setStatus(StatusCameraUnavailable)
		logging.LogError("Opening camera %d failed: %v", selected.Index, err)
		if !errors.Is(err, camera.ErrCameraUnavailable) {
			err = fmt.Errorf("%v: %w", err, camera.ErrCameraUnavailable)
		}
		return fmt.Errorf("start %s: %w", selected.Label, err)
	}

	s.capture = capture
	s.epoch++
	s.state.Running = true
	s.state.RunID = uuid.NewString()
	s.setStatus(StatusScanning)
	logging.LogInfo("Scanning started on %s (run %s, cooldown %ds)", selected.Label, s.state.RunID, s.state.CooldownSeconds)

	return nil
}

// Stop cancels pending ticks, releases the camera and returns to idle.
// Calling Stop on an idle session does nothing.
func (s *Session) Stop() {
	if !s.state.Running {
		return
	}

	s.epoch++
	if err := s.capture.Close(); err != nil {
		logging.LogWarning("Closing camera failed: %v", err)
	}
	s.capture = nil
	s.state.Running = false

	// Clear the displayed frame
	s.display.Close()
	s.display = gocv.NewMat()

	s.setStatus(StatusStopped)
	logging.LogInfo("Scanning stopped (run %s)", s.state.RunID)
}

// Tick reads one frame, decodes it and notifies accepted scans. It does
// nothing while idle. A failed read is reported and the session keeps running.
func (s *Session) Tick() TickResult {
	if !s.state.Running {
		return TickResult{}
	}

	result := TickResult{Ran: true}

	if err := s.capture.Read(&s.frame); err != nil {
		s.setStatus(StatusReadFailed)
		logging.DebugLog("Frame read failed: %v", err)
		result.Err = err
		return result
	}
	if s.state.Status == StatusReadFailed {
		s.setStatus(StatusScanning)
	}

	barcodes, err := s.decoder.Decode(s.frame)
	if err != nil {
		logging.LogWarning("Decoding frame failed: %v", err)
	}

	now := s.opts.Now()
	cooldown := time.Duration(max(0, s.state.CooldownSeconds)) * time.Second

	for _, barcode := range barcodes {
		imageprocessor.DrawBoundingBox(&s.frame, barcode.Bounds)

		// LastScan is updated immediately, so later barcodes in the same
		// frame are measured against this acceptance
		if now.Sub(s.state.LastScan) >= cooldown {
			s.state.LastScan = now
			result.Accepted = append(result.Accepted, s.handleScan(barcode, now))
		}
	}
	result.Barcodes = barcodes

	if !s.frame.Empty() {
		if err := imageprocessor.ResizeForDisplay(s.frame, &s.display, s.opts.DisplayWidth, s.opts.DisplayHeight); err != nil {
			logging.DebugLog("Resizing frame failed: %v", err)
		}
	}
	result.Display = s.display

	return result
}

// handleScan records an accepted barcode and fans it out to every sink
func (s *Session) handleScan(barcode types.Barcode, now time.Time) types.ScanRecord {
	record := types.ScanRecord{
		RunID:       s.state.RunID,
		Timestamp:   now,
		Symbology:   barcode.Symbology,
		Payload:     barcode.Payload,
		CameraIndex: -1,
	}
	if s.state.SelectedCamera != nil {
		record.CameraIndex = s.state.SelectedCamera.Index
	}

	s.history.Append(record)
	s.setStatus(CopiedStatus(record.Payload))
	s.setType(notify.TypeText(record.Symbology))

	notify.CopyText(s.opts.Clipboard, record.Payload)
	s.opts.Beeper.Beep()
	for _, sink := range s.opts.Sinks {
		sink.Notify(record)
	}
	logging.LogScan(record)

	return record
}

// CopySelected copies the payload of the history row at position. A
// negative position means nothing is selected.
func (s *Session) CopySelected(position int) error {
	record, err := s.history.Get(position)
	if err != nil {
		s.setStatus(StatusNoSelection)
		return fmt.Errorf("%w: %v", ErrNoSelection, err)
	}

	notify.CopyText(s.opts.Clipboard, record.Payload)
	s.setStatus(CopiedSelectionStatus(record.Payload))
	s.opts.Beeper.Beep()
	return nil
}

// SetCooldown changes the cooldown; the next tick uses the new value.
// Negative values are treated as zero.
func (s *Session) SetCooldown(seconds int) {
	s.state.CooldownSeconds = max(0, seconds)
}

// ReportNoCameras records that enumeration found no devices
func (s *Session) ReportNoCameras() error {
	s.setStatus(StatusNoCameras)
	return ErrNoCameraFound
}

// ReportInitializing records that camera enumeration is in progress. A
// running session keeps its status since scanning continues meanwhile.
func (s *Session) ReportInitializing() {
	if s.state.Running {
		return
	}
	s.setStatus(StatusInitializing)
}

// Epoch identifies the current run. It changes on every start and stop.
func (s *Session) Epoch() uint64 {
	return s.epoch
}

// TickEpoch runs a tick that was scheduled during the given epoch. A tick
// scheduled before the latest start or stop is dropped.
func (s *Session) TickEpoch(epoch uint64) TickResult {
	if epoch != s.epoch {
		return TickResult{}
	}
	return s.Tick()
}

// Running reports whether the session holds an open camera
func (s *Session) Running() bool {
	return s.state.Running
}

// State returns a snapshot of the session state
func (s *Session) State() State {
	return s.state
}

// Status returns the current status line
func (s *Session) Status() string {
	return s.state.Status
}

// Type returns the current detected-type line
func (s *Session) Type() string {
	return s.state.Type
}

// History returns the session's history log
func (s *Session) History() *history.Log {
	return s.history
}

// AddSink registers another sink for accepted scans
func (s *Session) AddSink(sink notify.Sink) {
	s.opts.Sinks = append(s.opts.Sinks, sink)
}

// SetDisplay replaces the status and type display
func (s *Session) SetDisplay(display notify.Display) {
	s.opts.Display = display
}

// Close stops the session and releases its frame buffers
func (s *Session) Close() {
	s.Stop()
	s.frame.Close()
	s.display.Close()
}

func (s *Session) setStatus(text string) {
	s.state.Status = text
	if s.opts.Display != nil {
		s.opts.Display.SetStatus(text)
	}
}

func (s *Session) setType(text string) {
	s.state.Type = text
	if s.opts.Display != nil {
		s.opts.Display.SetType(text)
	}
}
