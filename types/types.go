package types

import (
	"fmt"
	"time"
)

// CameraOption identifies a capture device found during enumeration
type CameraOption struct {
	Index int    `json:"index"`
	Label string `json:"label"`
}

// NewCameraOption builds the option for a device index with its display label
func NewCameraOption(index int) CameraOption {
	return CameraOption{
		Index: index,
		Label: fmt.Sprintf("Camera %d", index),
	}
}

// Rect is an axis-aligned bounding box in frame pixels
type Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Barcode is a single decoded symbol within a frame
type Barcode struct {
	Payload   string `json:"payload"`
	Symbology string `json:"symbology"`
	Bounds    Rect   `json:"bounds"`
}

// ScanRecord holds an accepted scan as shown in the history table and
// stored in the archive
type ScanRecord struct {
	ID          int64     `json:"id"`
	RunID       string    `json:"run_id"`
	CameraIndex int       `json:"camera_index"`
	Timestamp   time.Time `json:"timestamp"`
	Symbology   string    `json:"symbology"`
	Payload     string    `json:"payload"`
}

// TimestampLayout is the layout used for history rows and trace lines
const TimestampLayout = "2006-01-02 15:04:05"

// FormattedTime returns the record timestamp in the history display layout
func (r ScanRecord) FormattedTime() string {
	return r.Timestamp.Format(TimestampLayout)
}

// TraceLine renders the console line emitted for an accepted scan
func (r ScanRecord) TraceLine() string {
	return fmt.Sprintf("[%s] %s: %s", r.FormattedTime(), r.Symbology, r.Payload)
}
