// Package notify delivers accepted scans to the clipboard, the speaker and
// the console.
package notify

import (
	"fmt"
	"io"
	"os"
	"sync"

	"barcodescanner/logging"
	"barcodescanner/types"

	"github.com/atotto/clipboard"
)

// Clipboard replaces the OS clipboard contents
type Clipboard interface {
	WriteAll(text string) error
}

// Beeper plays a short confirmation sound without blocking the caller
type Beeper interface {
	Beep()
}

// Sink receives every accepted scan
type Sink interface {
	Notify(record types.ScanRecord)
}

// SinkFunc adapts a plain function to the Sink interface
type SinkFunc func(record types.ScanRecord)

// Notify calls f(record)
func (f SinkFunc) Notify(record types.ScanRecord) {
	f(record)
}

// SystemClipboard writes to the OS clipboard through atotto/clipboard
type SystemClipboard struct{}

// WriteAll copies text to the clipboard
func (SystemClipboard) WriteAll(text string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("clipboard is not supported on this system")
	}
	return clipboard.WriteAll(text)
}

// CopyText writes text to the clipboard. Failures are logged and otherwise
// ignored; the clipboard is best-effort.
func CopyText(cb Clipboard, text string) {
	if cb == nil {
		return
	}
	if err := cb.WriteAll(text); err != nil {
		logging.LogWarning("Clipboard write failed: %v", err)
	}
}

// NoClipboard discards everything written to it
type NoClipboard struct{}

// WriteAll does nothing
func (NoClipboard) WriteAll(string) error { return nil }

// NoBeeper stays silent
type NoBeeper struct{}

// Beep does nothing
func (NoBeeper) Beep() {}

// SystemBeeper plays the platform alert sound on a detached goroutine.
// When no native sound is available the terminal bell is written to Bell.
type SystemBeeper struct {
	Bell io.Writer

	play func() error
	wg   sync.WaitGroup
}

// NewSystemBeeper creates a beeper for the current platform
func NewSystemBeeper() *SystemBeeper {
	return &SystemBeeper{
		Bell: os.Stderr,
		play: playNative,
	}
}

// Beep dispatches the sound and returns immediately
func (b *SystemBeeper) Beep() {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		if b.play != nil {
			err := b.play()
			if err == nil {
				return
			}
			logging.DebugLog("Native beep unavailable: %v", err)
		}
		if b.Bell != nil {
			b.Bell.Write([]byte("\a"))
		}
	}()
}

// Wait blocks until every dispatched beep has finished
func (b *SystemBeeper) Wait() {
	b.wg.Wait()
}

// TraceSink writes the one-line console trace of each accepted scan
type TraceSink struct {
	mu  sync.Mutex
	out io.Writer
}

// NewTraceSink creates a trace sink writing to out
func NewTraceSink(out io.Writer) *TraceSink {
	return &TraceSink{out: out}
}

// Notify writes "[YYYY-MM-DD HH:MM:SS] <symbology>: <payload>"
func (s *TraceSink) Notify(record types.ScanRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.out, record.TraceLine())
}

// Display shows the transient status and detected-type text. Last write wins.
type Display interface {
	SetStatus(text string)
	SetType(text string)
}

// NoTypeText is shown before anything has been scanned
const NoTypeText = "Type: --"

// TypeText returns the detected-type label for a symbology
func TypeText(symbology string) string {
	return "Type: " + symbology
}
