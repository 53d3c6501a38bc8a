package offsetlog

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/rmacdonaldsmith/feedlog/pkg/offsetlog"
)

// Frame format, compatible with flumedb offset logs using 32-bit offsets:
//
//	[4]byte: payload length (uint32, big endian)
//	[n]byte: payload
//	[4]byte: payload length again
//	[4]byte: offset of the next frame (uint32)
//
// The trailing length lets a reader step backwards from any frame boundary and
// the trailing offset doubles as an integrity check.
const (
	frameHeaderSize = 4
	frameFooterSize = 4 + 4
	frameOverhead   = frameHeaderSize + frameFooterSize
	maxLogSize      = math.MaxUint32
)

// ErrLogFull is returned when an append would push offsets past the 32-bit range.
var ErrLogFull = errors.New("offset log exceeds 32-bit offset range")

// encodeFrame builds the frame for data appended at offset.
func encodeFrame(offset uint64, data []byte) ([]byte, error) {
	next := offset + uint64(len(data)) + frameOverhead
	if next > maxLogSize {
		return nil, ErrLogFull
	}

	buf := make([]byte, len(data)+frameOverhead)
	binary.BigEndian.PutUint32(buf[0:], uint32(len(data)))
	copy(buf[frameHeaderSize:], data)
	binary.BigEndian.PutUint32(buf[frameHeaderSize+len(data):], uint32(len(data)))
	binary.BigEndian.PutUint32(buf[frameHeaderSize+len(data)+4:], uint32(next))

	return buf, nil
}

// readFrame reads the frame starting at offset from a log of length end.
func readFrame(r io.ReaderAt, end, offset uint64) (offsetlog.Entry, uint64, error) {
	if offset+frameOverhead > end {
		return offsetlog.Entry{}, 0, fmt.Errorf("%w: %d (end %d)", offsetlog.ErrOffset, offset, end)
	}

	var hdr [frameHeaderSize]byte
	if _, err := r.ReadAt(hdr[:], int64(offset)); err != nil {
		return offsetlog.Entry{}, 0, fmt.Errorf("read frame header at %d: %w", offset, err)
	}
	size := uint64(binary.BigEndian.Uint32(hdr[:]))
	next := offset + size + frameOverhead
	if next > end {
		return offsetlog.Entry{}, 0, fmt.Errorf("%w: %d (frame overruns end %d)", offsetlog.ErrOffset, offset, end)
	}

	buf := make([]byte, size+frameFooterSize)
	if _, err := r.ReadAt(buf, int64(offset+frameHeaderSize)); err != nil {
		return offsetlog.Entry{}, 0, fmt.Errorf("read frame at %d: %w", offset, err)
	}
	footerSize := uint64(binary.BigEndian.Uint32(buf[size:]))
	footerNext := uint64(binary.BigEndian.Uint32(buf[size+4:]))
	if footerSize != size || footerNext != next {
		return offsetlog.Entry{}, 0, fmt.Errorf("%w: %d (frame footer mismatch)", offsetlog.ErrOffset, offset)
	}

	return offsetlog.Entry{Offset: offset, Data: buf[:size:size]}, next, nil
}

// readFrameBackward reads the frame that ends at offset.
func readFrameBackward(r io.ReaderAt, end, offset uint64) (offsetlog.Entry, error) {
	if offset > end || offset < frameOverhead {
		return offsetlog.Entry{}, fmt.Errorf("%w: %d (end %d)", offsetlog.ErrOffset, offset, end)
	}

	var footer [frameFooterSize]byte
	if _, err := r.ReadAt(footer[:], int64(offset-frameFooterSize)); err != nil {
		return offsetlog.Entry{}, fmt.Errorf("read frame footer at %d: %w", offset, err)
	}
	size := uint64(binary.BigEndian.Uint32(footer[0:]))
	if uint64(binary.BigEndian.Uint32(footer[4:])) != offset || size+frameOverhead > offset {
		return offsetlog.Entry{}, fmt.Errorf("%w: %d (no frame ends here)", offsetlog.ErrOffset, offset)
	}

	entry, next, err := readFrame(r, end, offset-size-frameOverhead)
	if err != nil {
		return offsetlog.Entry{}, err
	}
	if next != offset {
		return offsetlog.Entry{}, fmt.Errorf("%w: %d (frame boundary mismatch)", offsetlog.ErrOffset, offset)
	}
	return entry, nil
}
