package imageprocessor

import (
	"fmt"
	"image"
	"image/color"

	"barcodescanner/types"

	"gocv.io/x/gocv"
)

// Default size of the frame shown in the video pane
const (
	DisplayWidth  = 800
	DisplayHeight = 450
)

// boxColor is BGR-ordered green once handed to OpenCV
var boxColor = color.RGBA{R: 0, G: 255, B: 0, A: 0}

const boxThickness = 2

// DrawBoundingBox outlines a barcode region on the frame
func DrawBoundingBox(frame *gocv.Mat, bounds types.Rect) {
	if frame.Empty() {
		return
	}
	rect := image.Rect(bounds.X, bounds.Y, bounds.X+bounds.W, bounds.Y+bounds.H)
	gocv.Rectangle(frame, rect, boxColor, boxThickness)
}

// ResizeForDisplay scales the frame into dst at the given display size
func ResizeForDisplay(frame gocv.Mat, dst *gocv.Mat, width, height int) error {
	if frame.Empty() {
		return fmt.Errorf("cannot resize empty frame")
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid display size %dx%d", width, height)
	}

	gocv.Resize(frame, dst, image.Point{X: width, Y: height}, 0, 0, gocv.InterpolationLinear)
	return nil
}

// ToImage converts a BGR frame into an RGB Go image for rendering or decoding
func ToImage(frame gocv.Mat) (image.Image, error) {
	if frame.Empty() {
		return nil, fmt.Errorf("cannot convert empty frame")
	}
	img, err := frame.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	return img, nil
}
