package imageprocessor

import (
	"image"
	"os"

	// Register decoders used by the Go fallback path
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"gocv.io/x/gocv"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Try to load an image using Go's standard image packages
func tryGoImagePackages(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	return img, err
}

// Convert a Go standard library image to a BGR OpenCV Mat
func gocvMatFromGoImage(img image.Image) (gocv.Mat, error) {
	return gocv.ImageToMatRGB(img)
}
