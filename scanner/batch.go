package scanner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"barcodescanner/imageprocessor"
	"barcodescanner/logging"
	"barcodescanner/scanner/processor"
	"barcodescanner/types"
)

// ErrNoImages is returned when the given paths contain no loadable image
var ErrNoImages = errors.New("no images found")

// BatchOptions defines the options for decoding still images
type BatchOptions struct {
	Paths      []string // files or folders; folders are walked recursively
	MaxWorkers int
	DebugMode  bool
}

// ImageResult holds the result of decoding one image
type ImageResult struct {
	Path     string
	Barcodes []types.Barcode
	Success  bool
	Error    error
}

// DecodeImages decodes every loadable image under options.Paths with a
// bounded worker pool and returns the results in path order
func DecodeImages(ctx context.Context, options BatchOptions) ([]ImageResult, error) {
	workers := options.MaxWorkers
	if workers < 1 {
		workers = 1
	}

	files, err := collectImageFiles(options)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w (supported: %s)", ErrNoImages, strings.Join(imageprocessor.GetSupportedExtensions(), " "))
	}

	// Initialize components for parallel processing
	var wg sync.WaitGroup
	results := make([]ImageResult, len(files))
	semaphore := make(chan struct{}, workers) // Limit concurrent goroutines

	for i, path := range files {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		// Acquire semaphore
		semaphore <- struct{}{}

		go func(i int, p string) {
			defer wg.Done()
			defer func() { <-semaphore }() // Release semaphore when done

			// gozxing readers keep per-decode state, one decoder per image
			result := ImageResult{Path: p}
			result.Barcodes, result.Error = processor.NewImageDecoder(options.DebugMode).DecodeFile(p)
			result.Success = result.Error == nil
			if result.Error != nil {
				logging.LogError("Decoding %s failed: %v", p, result.Error)
			}
			results[i] = result
		}(i, path)
	}

	// Wait for all processing to complete
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

// collectImageFiles expands folders into the loadable files they contain
func collectImageFiles(options BatchOptions) ([]string, error) {
	imageDecoder := processor.NewImageDecoder(options.DebugMode)
	var files []string

	for _, root := range options.Paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", root, err)
		}

		if !info.IsDir() {
			files = append(files, root)
			continue
		}

		err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil || info.IsDir() {
				if err != nil && options.DebugMode {
					logging.LogError("Error accessing path %s: %v", path, err)
				}
				return nil
			}

			// Check if we have a loader for this file
			if imageDecoder.CanDecode(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("cannot walk %s: %w", root, err)
		}
	}

	return files, nil
}
