package processor

import (
	"fmt"
	"runtime/debug"

	"barcodescanner/decoder"
	"barcodescanner/imageprocessor"
	"barcodescanner/logging"
	"barcodescanner/types"

	"gocv.io/x/gocv"
)

// ImageDecoder is an adapter that loads still images through the
// imageprocessor registry and decodes their barcodes
type ImageDecoder struct {
	DebugMode bool
	registry  *imageprocessor.ImageLoaderRegistry
	decoder   *decoder.Decoder
}

// NewImageDecoder creates a new ImageDecoder with the default loaders and symbologies
func NewImageDecoder(debugMode bool) *ImageDecoder {
	return &ImageDecoder{
		DebugMode: debugMode,
		registry:  imageprocessor.NewImageLoaderRegistry(),
		decoder:   decoder.New(),
	}
}

// LoadImage loads an image with the matching loader
func (p *ImageDecoder) LoadImage(path string) (img gocv.Mat, err error) {
	// Use defer to recover from any panics during image loading
	defer func() {
		if r := recover(); r != nil {
			stackTrace := debug.Stack()
			err = fmt.Errorf("panic during image loading: %v", r)
			logging.LogError("Panic during image loading: %v, file: %s\nStack trace: %s", r, path, string(stackTrace))
			img = gocv.NewMat() // Return an empty Mat to prevent further issues
		}
	}()

	img, err = p.registry.LoadImage(path)
	if err != nil {
		return img, fmt.Errorf("failed to load image %s: %w", path, err)
	}

	// Skip empty images
	if img.Empty() {
		return img, fmt.Errorf("image is empty after loading: %s", path)
	}

	if p.DebugMode {
		logging.DebugLog("Loaded %s image %dx%d: %s", imageprocessor.GetFileFormat(path), img.Cols(), img.Rows(), path)
	}

	return img, nil
}

// DecodeFile returns every barcode found in the image at path
func (p *ImageDecoder) DecodeFile(path string) ([]types.Barcode, error) {
	img, err := p.LoadImage(path)
	defer img.Close()
	if err != nil {
		return nil, err
	}

	barcodes, err := p.decoder.Decode(img)
	if err != nil {
		return nil, fmt.Errorf("cannot decode %s: %w", path, err)
	}

	if p.DebugMode {
		logging.DebugLog("Decoded %d barcode(s) from %s", len(barcodes), path)
	}

	return barcodes, nil
}

// CanDecode reports whether a loader exists for the file
func (p *ImageDecoder) CanDecode(path string) bool {
	return p.registry.CanLoadFile(path)
}
