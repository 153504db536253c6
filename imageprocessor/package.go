// Package imageprocessor provides frame operations for the scan loop and
// loaders for decoding barcodes from still image files.
package imageprocessor

import "gocv.io/x/gocv"

// ImageLoader is the interface that all image loaders must implement
type ImageLoader interface {
	// CanLoad checks if the loader can handle the given file
	CanLoad(path string) bool

	// LoadImage loads and returns the image as a BGR frame
	LoadImage(path string) (gocv.Mat, error)
}
