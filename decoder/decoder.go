// Package decoder finds and decodes barcodes in frames using gozxing.
package decoder

import (
	"fmt"
	"image"
	"math"
	"runtime/debug"
	"strings"

	"barcodescanner/imageprocessor"
	"barcodescanner/logging"
	"barcodescanner/types"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/datamatrix"
	"github.com/makiuchi-d/gozxing/multi"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
	"gocv.io/x/gocv"
)

// Decoder decodes every barcode it can find in a frame
type Decoder struct {
	reader *multi.GenericMultipleBarcodeReader
	hints  map[gozxing.DecodeHintType]interface{}
}

// New creates a decoder for QR, DataMatrix and the common 1D symbologies
func New() *Decoder {
	return NewWithReaders(
		qrcode.NewQRCodeReader(),
		datamatrix.NewDataMatrixReader(),
		oned.NewEAN13Reader(),
		oned.NewEAN8Reader(),
		oned.NewCode128Reader(),
		oned.NewCode39Reader(),
		oned.NewITFReader(),
	)
}

// NewWithReaders creates a decoder that tries the given readers in order
func NewWithReaders(readers ...gozxing.Reader) *Decoder {
	return &Decoder{
		reader: multi.NewGenericMultipleBarcodeReader(&compositeReader{readers: readers}),
		hints:  map[gozxing.DecodeHintType]interface{}{},
	}
}

// Decode returns the barcodes found in a BGR frame, in detection order
func (d *Decoder) Decode(frame gocv.Mat) ([]types.Barcode, error) {
	img, err := imageprocessor.ToImage(frame)
	if err != nil {
		return nil, err
	}
	return d.DecodeImage(img)
}

// DecodeImage returns the barcodes found in an image, in detection order.
// A frame without any barcode yields an empty result and no error.
func (d *Decoder) DecodeImage(img image.Image) (barcodes []types.Barcode, err error) {
	// gozxing panics on some degenerate bitmaps; a bad frame must not take
	// the scan loop down with it
	defer func() {
		if r := recover(); r != nil {
			logging.LogError("Panic during barcode decoding: %v\nStack trace: %s", r, string(debug.Stack()))
			barcodes = nil
			err = fmt.Errorf("panic during barcode decoding: %v", r)
		}
	}()

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return nil, fmt.Errorf("prepare bitmap: %w", err)
	}

	results, err := d.reader.DecodeMultiple(bmp, d.hints)
	if err != nil {
		// NotFound, checksum and format errors all mean nothing readable
		logging.DebugLog("No barcode decoded: %v", err)
		return nil, nil
	}

	barcodes = make([]types.Barcode, 0, len(results))
	for _, result := range results {
		barcodes = append(barcodes, toBarcode(result))
	}
	return barcodes, nil
}

// toBarcode converts a gozxing result into the scanner's barcode type
func toBarcode(result *gozxing.Result) types.Barcode {
	return types.Barcode{
		Payload:   SanitizePayload(result.GetText()),
		Symbology: SymbologyLabel(result.GetBarcodeFormat()),
		Bounds:    BoundsFromPoints(result.GetResultPoints()),
	}
}

// SymbologyLabel returns the display label for a barcode format,
// e.g. QR_CODE becomes QRCODE and EAN_13 becomes EAN13
func SymbologyLabel(format gozxing.BarcodeFormat) string {
	return strings.ReplaceAll(format.String(), "_", "")
}

// SanitizePayload replaces invalid UTF-8 sequences with U+FFFD
func SanitizePayload(text string) string {
	return strings.ToValidUTF8(text, "\uFFFD")
}

// BoundsFromPoints returns the smallest rectangle containing all points.
// 1D symbols report only a scan line, so they get a rectangle of zero height.
func BoundsFromPoints(points []gozxing.ResultPoint) types.Rect {
	if len(points) == 0 {
		return types.Rect{}
	}

	minX, minY := math.MaxFloat64, math.MaxFloat64
	maxX, maxY := -math.MaxFloat64, -math.MaxFloat64
	for _, p := range points {
		if p == nil {
			continue
		}
		minX = math.Min(minX, p.GetX())
		minY = math.Min(minY, p.GetY())
		maxX = math.Max(maxX, p.GetX())
		maxY = math.Max(maxY, p.GetY())
	}
	if minX > maxX {
		return types.Rect{}
	}

	return types.Rect{
		X: int(math.Round(minX)),
		Y: int(math.Round(minY)),
		W: int(math.Round(maxX - minX)),
		H: int(math.Round(maxY - minY)),
	}
}

// compositeReader tries each delegate in order and returns the first hit
type compositeReader struct {
	readers []gozxing.Reader
}

func (c *compositeReader) DecodeWithoutHints(bmp *gozxing.BinaryBitmap) (*gozxing.Result, error) {
	return c.Decode(bmp, nil)
}

func (c *compositeReader) Decode(bmp *gozxing.BinaryBitmap, hints map[gozxing.DecodeHintType]interface{}) (*gozxing.Result, error) {
	var lastErr error
	for _, r := range c.readers {
		result, err := r.Decode(bmp, hints)
		if err == nil {
			return result, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = gozxing.NewNotFoundException("no readers configured")
	}
	return nil, lastErr
}

func (c *compositeReader) Reset() {
	for _, r := range c.readers {
		r.Reset()
	}
}
