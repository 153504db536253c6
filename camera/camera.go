// Package camera provides access to local capture devices through OpenCV.
package camera

import (
	"errors"
	"fmt"

	"barcodescanner/logging"
	"barcodescanner/types"

	"gocv.io/x/gocv"
)

// DefaultProbeCount is the number of device indices probed during enumeration
const DefaultProbeCount = 10

var (
	// ErrCameraUnavailable is returned when a device cannot be opened
	ErrCameraUnavailable = errors.New("camera unavailable")

	// ErrReadFailed is returned when a frame could not be read from an open device
	ErrReadFailed = errors.New("failed to read frame")
)

// Capture is an open capture device handle
type Capture interface {
	// Read blocks until one frame has been copied into dst
	Read(dst *gocv.Mat) error

	// Close releases the device. Calling Close more than once is a no-op.
	Close() error
}

// Source opens capture devices by index
type Source interface {
	Open(index int) (Capture, error)
}

// Enumerate probes device indices 0..probe-1 in ascending order and returns
// an option for every device that opens and delivers one test frame.
// Devices that fail either step are skipped silently.
func Enumerate(src Source, probe int) []types.CameraOption {
	options := make([]types.CameraOption, 0, probe)

	frame := gocv.NewMat()
	defer frame.Close()

	for idx := 0; idx < probe; idx++ {
		capture, err := src.Open(idx)
		if err != nil {
			logging.DebugLog("Camera probe %d: %v", idx, err)
			continue
		}

		readErr := capture.Read(&frame)
		capture.Close()

		if readErr != nil {
			logging.DebugLog("Camera probe %d: test read failed: %v", idx, readErr)
			continue
		}
		options = append(options, types.NewCameraOption(idx))
	}

	return options
}

// DefaultSelection returns the position of the given device in options, or
// 0 when it was not detected. It returns -1 for an empty list. Options keep
// their enumeration order.
func DefaultSelection(options []types.CameraOption, device int) int {
	if len(options) == 0 {
		return -1
	}
	for i, opt := range options {
		if opt.Index == device {
			return i
		}
	}
	if device >= 0 {
		logging.DebugLog("Camera %d not detected, selecting %s", device, options[0].Label)
	}
	return 0
}

// DeviceSource opens local devices with gocv.VideoCapture
type DeviceSource struct {
	// API selects the capture backend, e.g. gocv.VideoCaptureDshow on Windows
	API gocv.VideoCaptureAPI
}

// NewDeviceSource creates a device source for the platform default backend
func NewDeviceSource() *DeviceSource {
	return &DeviceSource{
		API: defaultAPI,
	}
}

// Open opens the device with the given index
func (s *DeviceSource) Open(index int) (Capture, error) {
	webcam, err := gocv.OpenVideoCaptureWithAPI(index, s.API)
	if err != nil {
		return nil, fmt.Errorf("open device %d: %v: %w", index, err, ErrCameraUnavailable)
	}
	if !webcam.IsOpened() {
		webcam.Close()
		return nil, fmt.Errorf("open device %d: %w", index, ErrCameraUnavailable)
	}

	return &deviceCapture{index: index, webcam: webcam}, nil
}

// deviceCapture wraps an open gocv.VideoCapture
type deviceCapture struct {
	index  int
	webcam *gocv.VideoCapture
}

// Read reads the next frame into dst
func (c *deviceCapture) Read(dst *gocv.Mat) error {
	if c.webcam == nil {
		return fmt.Errorf("device %d is closed: %w", c.index, ErrReadFailed)
	}
	if ok := c.webcam.Read(dst); !ok || dst.Empty() {
		return fmt.Errorf("device %d: %w", c.index, ErrReadFailed)
	}
	return nil
}

// Close releases the underlying device
func (c *deviceCapture) Close() error {
	if c.webcam == nil {
		return nil
	}
	err := c.webcam.Close()
	c.webcam = nil
	return err
}
