// Package history keeps the in-memory record of accepted scans.
package history

import (
	"errors"
	"fmt"

	"barcodescanner/types"
)

// ErrOutOfRange is returned when a position does not name an appended entry
var ErrOutOfRange = errors.New("history position out of range")

// Log is an append-only, insertion ordered list of scan records. It lives
// for the lifetime of the process and is never persisted or pruned.
//
// Log is not safe for concurrent use; it is owned by the UI event loop.
type Log struct {
	entries []types.ScanRecord
}

// New creates an empty history log
func New() *Log {
	return &Log{
		entries: make([]types.ScanRecord, 0, 64),
	}
}

// Append adds a record to the end of the log
func (l *Log) Append(record types.ScanRecord) {
	l.entries = append(l.entries, record)
}

// Get returns the record appended at the given position
func (l *Log) Get(position int) (types.ScanRecord, error) {
	if position < 0 || position >= len(l.entries) {
		return types.ScanRecord{}, fmt.Errorf("get entry %d of %d: %w", position, len(l.entries), ErrOutOfRange)
	}
	return l.entries[position], nil
}

// Len returns the number of records in the log
func (l *Log) Len() int {
	return len(l.entries)
}

// Last returns the most recently appended record
func (l *Log) Last() (types.ScanRecord, bool) {
	if len(l.entries) == 0 {
		return types.ScanRecord{}, false
	}
	return l.entries[len(l.entries)-1], true
}

// Entries returns a copy of all records in insertion order
func (l *Log) Entries() []types.ScanRecord {
	out := make([]types.ScanRecord, len(l.entries))
	copy(out, l.entries)
	return out
}
