package offsetlog

import (
	"bytes"
	"slices"
	"sync"

	"github.com/rmacdonaldsmith/feedlog/pkg/offsetlog"
)

// Memory implements offsetlog.Writer on an in-memory buffer laid out exactly
// like a log file, so Bytes can be written to disk and opened with OpenReadOnly.
// It is safe for concurrent use.
type Memory struct {
	mu     sync.RWMutex
	buf    []byte
	closed bool
}

// NewMemory creates an empty in-memory log.
func NewMemory() *Memory {
	return &Memory{}
}

// NewMemoryFrom creates an in-memory log holding one entry per payload.
func NewMemoryFrom(payloads ...[]byte) (*Memory, error) {
	m := NewMemory()
	for _, p := range payloads {
		if _, err := m.Append(p); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// End returns the offset one past the last entry.
func (m *Memory) End() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return uint64(len(m.buf))
}

// Get returns the entry at offset.
func (m *Memory) Get(offset uint64) (offsetlog.Entry, error) {
	entry, _, err := m.ReadForward(offset)
	return entry, err
}

// ReadForward returns the entry at offset and the offset that follows it.
func (m *Memory) ReadForward(offset uint64) (offsetlog.Entry, uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return offsetlog.Entry{}, 0, offsetlog.ErrClosed
	}
	return readFrame(bytes.NewReader(m.buf), uint64(len(m.buf)), offset)
}

// ReadBackward returns the entry that ends at offset.
func (m *Memory) ReadBackward(offset uint64) (offsetlog.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return offsetlog.Entry{}, offsetlog.ErrClosed
	}
	return readFrameBackward(bytes.NewReader(m.buf), uint64(len(m.buf)), offset)
}

// Append adds data as a single frame at the end of the log.
func (m *Memory) Append(data []byte) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	end := uint64(len(m.buf))
	if m.closed {
		return end, offsetlog.ErrClosed
	}

	frame, err := encodeFrame(end, data)
	if err != nil {
		return end, err
	}
	m.buf = append(m.buf, frame...)
	return uint64(len(m.buf)), nil
}

// Sync is a no-op.
func (m *Memory) Sync() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return offsetlog.ErrClosed
	}
	return nil
}

// Bytes returns a copy of the encoded log.
func (m *Memory) Bytes() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.buf)
}

// Close releases the buffer. Close is idempotent.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.buf = nil
	return nil
}

// Verify that Memory implements the offsetlog.Writer interface at compile time
var _ offsetlog.Writer = (*Memory)(nil)
