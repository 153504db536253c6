package scanner

import (
	"errors"
	"image"
	"time"

	"barcodescanner/imageprocessor"
	"barcodescanner/notify"
	"barcodescanner/types"

	"gocv.io/x/gocv"
)

var (
	// ErrNoCameraFound is returned when enumeration found nothing or no camera is selected
	ErrNoCameraFound = errors.New("no camera found")

	// ErrNoSelection is returned when copy is requested without a selected history row
	ErrNoSelection = errors.New("no selection")
)

// Status texts shown in the status line
const (
	StatusInitializing      = "Initializing camera..."
	StatusNoCameras         = "No cameras detected."
	StatusNoCameraSelected  = "No camera selected."
	StatusCameraUnavailable = "Unable to open camera."
	StatusScanning          = "Scanning..."
	StatusReadFailed        = "Failed to read frame."
	StatusStopped           = "Stopped."
	StatusNoSelection       = "No selection to copy."
)

// CopiedStatus is shown after an accepted scan was copied
func CopiedStatus(payload string) string {
	return "Copied: " + payload
}

// CopiedSelectionStatus is shown after a history row was copied
func CopiedSelectionStatus(payload string) string {
	return "Copied selection: " + payload
}

// FrameDecoder finds barcodes in a frame
type FrameDecoder interface {
	Decode(frame gocv.Mat) ([]types.Barcode, error)
}

// Options configures a scan session. Zero values select the defaults.
type Options struct {
	DisplayWidth  int
	DisplayHeight int

	Clipboard notify.Clipboard
	Beeper    notify.Beeper
	Display   notify.Display
	Sinks     []notify.Sink

	// Now is the clock used for cooldown and history timestamps
	Now func() time.Time
}

// withDefaults fills unset options
func (o Options) withDefaults() Options {
	if o.DisplayWidth <= 0 {
		o.DisplayWidth = imageprocessor.DisplayWidth
	}
	if o.DisplayHeight <= 0 {
		o.DisplayHeight = imageprocessor.DisplayHeight
	}
	if o.Clipboard == nil {
		o.Clipboard = notify.NoClipboard{}
	}
	if o.Beeper == nil {
		o.Beeper = notify.NoBeeper{}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// State is a snapshot of the session state
type State struct {
	SelectedCamera  *types.CameraOption
	CooldownSeconds int
	LastScan        time.Time
	Running         bool
	RunID           string
	Status          string
	Type            string
}

// TickResult describes what one tick did
type TickResult struct {
	// Display is the annotated frame at display size. It is owned by the
	// session and valid until the next tick or stop.
	Display gocv.Mat

	// Barcodes holds every barcode decoded in the frame, in decoder order
	Barcodes []types.Barcode

	// Accepted holds the scans that cleared the cooldown, in order
	Accepted []types.ScanRecord

	// Err is set when the frame could not be read
	Err error

	// Ran is false when the tick was skipped because the session was idle or stale
	Ran bool
}

// Image converts the display frame for rendering
func (r TickResult) Image() (image.Image, error) {
	return imageprocessor.ToImage(r.Display)
}
