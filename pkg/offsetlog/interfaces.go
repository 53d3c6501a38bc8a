package offsetlog

import (
	"errors"
	"io"
)

var (
	// ErrOffset is returned when an offset is not the start of a valid entry
	ErrOffset = errors.New("offset is not a valid entry boundary")
	// ErrFormat is returned when a file is not a valid offset log container
	ErrFormat = errors.New("invalid offset log format")
	// ErrReadOnly is returned when appending to a log opened read-only
	ErrReadOnly = errors.New("offset log is read-only")
	// ErrClosed is returned when operating on a closed log
	ErrClosed = errors.New("offset log is closed")
	// ErrLocked is returned when another writer already holds the log file
	ErrLocked = errors.New("offset log is locked by another writer")
)

// Log defines read access to an append-only offset log.
// Offsets are byte positions of entry frames and strictly increase in append order.
type Log interface {
	io.Closer

	// End returns the offset one past the last entry. Zero means the log is empty.
	End() uint64

	// Get returns the entry whose frame starts at offset.
	// It fails with ErrOffset if offset is not an entry boundary.
	Get(offset uint64) (Entry, error)

	// ReadForward returns the entry starting at offset and the offset of the entry after it.
	ReadForward(offset uint64) (Entry, uint64, error)

	// ReadBackward returns the entry whose frame ends exactly at offset.
	ReadBackward(offset uint64) (Entry, error)
}

// Writer is a Log that also accepts appends.
// Only one Writer may hold a given file at a time.
type Writer interface {
	Log

	// Append writes data as one new entry and returns the new End().
	// The entry's offset equals End() observed immediately before the call.
	// A failed append leaves End() unchanged.
	Append(data []byte) (uint64, error)

	// Sync flushes appended entries to stable storage.
	Sync() error
}
