package imageprocessor

import (
	"fmt"
	"os"

	"barcodescanner/logging"

	"gocv.io/x/gocv"
)

// BaseImageLoader provides common functionality for all image loaders
type BaseImageLoader struct {
	// Formats this loader can handle
	SupportedFormats []FormatType
}

// CanLoad checks if this loader supports the file's format
func (l *BaseImageLoader) CanLoad(path string) bool {
	format := GetFileFormat(path)

	for _, supported := range l.SupportedFormats {
		if format == supported {
			return fileExists(path)
		}
	}

	return false
}

// DefaultLoadImage reads the file with OpenCV in color
func (l *BaseImageLoader) DefaultLoadImage(path string) (gocv.Mat, error) {
	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		return img, newImageLoadError("failed to load image", path)
	}
	return img, nil
}

// StandardImageLoader handles common image formats like JPEG, PNG, etc.
type StandardImageLoader struct {
	BaseImageLoader
}

// NewStandardImageLoader creates a new loader for standard image formats
func NewStandardImageLoader() *StandardImageLoader {
	return &StandardImageLoader{
		BaseImageLoader: BaseImageLoader{
			SupportedFormats: []FormatType{
				FormatJPEG,
				FormatPNG,
				FormatGIF,
				FormatBMP,
				FormatWEBP,
			},
		},
	}
}

// LoadImage loads a standard image format. OpenCV has no GIF reader, so
// anything it rejects is retried with the Go image decoders.
func (l *StandardImageLoader) LoadImage(path string) (gocv.Mat, error) {
	img, err := l.DefaultLoadImage(path)
	if err == nil {
		return img, nil
	}
	img.Close()

	logging.DebugLog("OpenCV could not read %s, trying Go image packages", path)
	goImg, goErr := tryGoImagePackages(path)
	if goErr != nil {
		return gocv.NewMat(), fmt.Errorf("%v (fallback: %v)", err, goErr)
	}
	return gocvMatFromGoImage(goImg)
}

// TiffImageLoader specializes in TIFF format loading
type TiffImageLoader struct {
	BaseImageLoader
}

// NewTiffImageLoader creates a new TIFF image loader
func NewTiffImageLoader() *TiffImageLoader {
	return &TiffImageLoader{
		BaseImageLoader: BaseImageLoader{
			SupportedFormats: []FormatType{FormatTIFF},
		},
	}
}

// LoadImage loads a TIFF image, reading only the first page
func (l *TiffImageLoader) LoadImage(path string) (gocv.Mat, error) {
	logging.DebugLog("Loading TIFF image: %s", path)

	img := gocv.IMRead(path, gocv.IMReadColor)
	if !img.Empty() {
		return img, nil
	}
	img.Close()

	// OpenCV builds without libtiff still get the first page via x/image
	goImg, err := tryGoImagePackages(path)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("%v: %w", newImageLoadError("failed to load TIFF image", path), err)
	}
	return gocvMatFromGoImage(goImg)
}

// fileExists checks if a file exists and is accessible
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// newImageLoadError creates a standardized error for image loading failures
func newImageLoadError(message, path string) error {
	return fmt.Errorf("%s: %s", message, path)
}
