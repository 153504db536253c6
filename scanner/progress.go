package scanner

import (
	"fmt"
	"io"
	"sync"
	"time"

	"barcodescanner/logging"
)

// TickSummary is the part of a tick result that is safe to hand to another goroutine
type TickSummary struct {
	ReadFailed bool
	Barcodes   int
	Accepted   int
}

// Summarize reduces a tick result to its counters
func Summarize(r TickResult) TickSummary {
	return TickSummary{
		ReadFailed: r.Err != nil,
		Barcodes:   len(r.Barcodes),
		Accepted:   len(r.Accepted),
	}
}

// ProgressStats holds the counters collected by a ProgressTracker
type ProgressStats struct {
	Frames     int
	ReadErrors int
	Detections int
	Accepted   int
}

// ProgressTracker tracks progress of a headless scan
type ProgressTracker struct {
	stats     ProgressStats
	out       io.Writer
	ticker    *time.Ticker
	done      chan struct{}
	processed chan struct{}
	mu        sync.Mutex
}

// NewProgressTracker initializes the progress tracker. The caller closes
// resultsChan before calling Stop.
func NewProgressTracker(out io.Writer, interval time.Duration, resultsChan <-chan TickSummary) *ProgressTracker {
	tracker := &ProgressTracker{
		out:       out,
		ticker:    time.NewTicker(interval),
		done:      make(chan struct{}),
		processed: make(chan struct{}),
	}

	// Start progress display goroutine
	go tracker.displayProgress()

	// Start result processor goroutine
	go tracker.processResults(resultsChan)

	return tracker
}

// displayProgress shows the progress periodically
func (p *ProgressTracker) displayProgress() {
	for {
		select {
		case <-p.done:
			return
		case <-p.ticker.C:
			stats := p.Snapshot()
			if stats.ReadErrors > 0 {
				fmt.Fprintf(p.out, "\rFrames: %d (Read errors: %d, Detections: %d, Accepted: %d)",
					stats.Frames, stats.ReadErrors, stats.Detections, stats.Accepted)
			} else {
				fmt.Fprintf(p.out, "\rFrames: %d (Detections: %d, Accepted: %d)",
					stats.Frames, stats.Detections, stats.Accepted)
			}
		}
	}
}

// processResults updates the tracker state based on tick summaries
func (p *ProgressTracker) processResults(resultsChan <-chan TickSummary) {
	defer close(p.processed)

	for result := range resultsChan {
		p.mu.Lock()
		p.stats.Frames++
		if result.ReadFailed {
			p.stats.ReadErrors++
		}
		p.stats.Detections += result.Barcodes
		p.stats.Accepted += result.Accepted
		p.mu.Unlock()
	}
}

// Snapshot returns the current counters
func (p *ProgressTracker) Snapshot() ProgressStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Stop ends the progress display once every queued result has been counted
func (p *ProgressTracker) Stop() ProgressStats {
	<-p.processed
	p.ticker.Stop()
	close(p.done)
	return p.Snapshot()
}

// PrintCompletionStats displays statistics after a headless scan ends
func PrintCompletionStats(out io.Writer, stats ProgressStats, elapsed time.Duration) {
	logging.DebugLog("Scan finished in %v. Frames: %d, Read errors: %d, Detections: %d, Accepted: %d",
		elapsed, stats.Frames, stats.ReadErrors, stats.Detections, stats.Accepted)

	fmt.Fprintln(out, "\nScanning complete.")
	fmt.Fprintf(out, "Read %d frames in %v.\n", stats.Frames, elapsed.Round(time.Second))
	fmt.Fprintf(out, "Accepted %d of %d detections.\n", stats.Accepted, stats.Detections)

	if stats.ReadErrors > 0 {
		fmt.Fprintf(out, "Encountered %d frame read errors.\n", stats.ReadErrors)
		fmt.Fprintln(out, "Check the log file for details.")
	}
}
