package offsetlog

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"sync"

	"golang.org/x/exp/mmap"
	"golang.org/x/sys/unix"

	"github.com/rmacdonaldsmith/feedlog/pkg/offsetlog"
)

// Options configures a writable log.
type Options struct {
	// SyncEveryAppend fsyncs the file after each append
	SyncEveryAppend bool
}

// File implements offsetlog.Writer on top of a single file.
// Read-only logs are memory-mapped; writable logs use positioned reads and
// writes on the file and hold an exclusive flock until Close.
// It is safe for concurrent readers.
type File struct {
	mu       sync.RWMutex
	path     string
	reader   io.ReaderAt
	mapping  *mmap.ReaderAt
	file     *os.File
	end      uint64
	readOnly bool
	opts     Options
	closed   bool
}

// OpenReadOnly opens an existing offset log for reading. It holds a shared
// lock until Close, so Create and OpenAppend cannot rewrite the file meanwhile.
func OpenReadOnly(path string) (*File, error) {
	f, err := openLocked(path, os.O_RDONLY, unix.LOCK_SH)
	if err != nil {
		return nil, err
	}

	m, err := mmap.Open(path)
	if err != nil {
		_ = unlockAndClose(f)
		return nil, fmt.Errorf("open offset log %s: %w", path, err)
	}

	end := uint64(m.Len())
	if err := checkTrailer(m, end); err != nil {
		_ = m.Close()
		_ = unlockAndClose(f)
		return nil, fmt.Errorf("open offset log %s: %w", path, err)
	}

	return &File{
		path:     path,
		reader:   m,
		mapping:  m,
		file:     f,
		end:      end,
		readOnly: true,
	}, nil
}

// Create creates a new, empty writable log at path, truncating any existing file.
func Create(path string, opts Options) (*File, error) {
	f, err := openLocked(path, os.O_RDWR|os.O_CREATE, unix.LOCK_EX)
	if err != nil {
		return nil, err
	}

	// Truncate only once the lock is held so a concurrent writer's file is never clobbered.
	if err := f.Truncate(0); err != nil {
		_ = unlockAndClose(f)
		return nil, fmt.Errorf("truncate offset log %s: %w", path, err)
	}

	return &File{path: path, reader: f, file: f, opts: opts}, nil
}

// OpenAppend opens an existing log for appending new entries.
func OpenAppend(path string, opts Options) (*File, error) {
	f, err := openLocked(path, os.O_RDWR, unix.LOCK_EX)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		_ = unlockAndClose(f)
		return nil, fmt.Errorf("stat offset log %s: %w", path, err)
	}

	end := uint64(info.Size())
	if err := checkTrailer(f, end); err != nil {
		_ = unlockAndClose(f)
		return nil, fmt.Errorf("open offset log %s: %w", path, err)
	}

	return &File{path: path, reader: f, file: f, end: end, opts: opts}, nil
}

// openLocked opens path and takes a non-blocking flock of the given kind.
func openLocked(path string, flag, how int) (*os.File, error) {
	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open offset log %s: %w", path, err)
	}

	if err := unix.Flock(int(f.Fd()), how|unix.LOCK_NB); err != nil {
		_ = f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%w: %s", offsetlog.ErrLocked, path)
		}
		return nil, fmt.Errorf("lock offset log %s: %w", path, err)
	}

	return f, nil
}

func unlockAndClose(f *os.File) error {
	var errs []error
	if err := unix.Flock(int(f.Fd()), unix.LOCK_UN); err != nil {
		errs = append(errs, fmt.Errorf("unlock offset log: %w", err))
	}
	if err := f.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close offset log: %w", err))
	}
	return errors.Join(errs...)
}

// checkTrailer verifies that the last frame ends exactly at end.
func checkTrailer(r io.ReaderAt, end uint64) error {
	if end == 0 {
		return nil
	}
	if end < frameOverhead || end > maxLogSize {
		return fmt.Errorf("%w: length %d", offsetlog.ErrFormat, end)
	}

	var tail [4]byte
	if _, err := r.ReadAt(tail[:], int64(end-4)); err != nil {
		return fmt.Errorf("read trailer: %w", err)
	}
	if got := uint64(binary.BigEndian.Uint32(tail[:])); got != end {
		return fmt.Errorf("%w: trailer points at %d, file length is %d", offsetlog.ErrFormat, got, end)
	}
	return nil
}

// Path returns the file path backing the log.
func (l *File) Path() string {
	return l.path
}

// End returns the offset one past the last entry.
func (l *File) End() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.end
}

// Get returns the entry at offset.
func (l *File) Get(offset uint64) (offsetlog.Entry, error) {
	entry, _, err := l.ReadForward(offset)
	return entry, err
}

// ReadForward returns the entry at offset and the offset that follows it.
func (l *File) ReadForward(offset uint64) (offsetlog.Entry, uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return offsetlog.Entry{}, 0, offsetlog.ErrClosed
	}

	var (
		entry offsetlog.Entry
		next  uint64
	)
	err := l.guardFault(offset, func() (err error) {
		entry, next, err = readFrame(l.reader, l.end, offset)
		return err
	})
	return entry, next, err
}

// ReadBackward returns the entry that ends at offset.
func (l *File) ReadBackward(offset uint64) (offsetlog.Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return offsetlog.Entry{}, offsetlog.ErrClosed
	}

	var entry offsetlog.Entry
	err := l.guardFault(offset, func() (err error) {
		entry, err = readFrameBackward(l.reader, l.end, offset)
		return err
	})
	return entry, err
}

// guardFault runs read, turning a memory fault on the mapping into ErrOffset.
// A mapped file that shrinks underneath the reader faults instead of
// returning a short read.
func (l *File) guardFault(offset uint64, read func() error) (err error) {
	if l.mapping == nil {
		return read()
	}

	defer debug.SetPanicOnFault(debug.SetPanicOnFault(true))
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if _, ok := r.(interface{ Addr() uintptr }); !ok {
			panic(r)
		}
		err = fmt.Errorf("%w: %d (mapped file changed: %v)", offsetlog.ErrOffset, offset, r)
	}()
	return read()
}

// Append writes data as a single frame at the end of the log.
func (l *File) Append(data []byte) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return l.end, offsetlog.ErrClosed
	}
	if l.readOnly {
		return l.end, offsetlog.ErrReadOnly
	}

	frame, err := encodeFrame(l.end, data)
	if err != nil {
		return l.end, err
	}

	n, err := l.file.WriteAt(frame, int64(l.end))
	if err == nil && n != len(frame) {
		err = io.ErrShortWrite
	}
	if err == nil && l.opts.SyncEveryAppend {
		err = l.file.Sync()
	}
	if err != nil {
		if terr := l.file.Truncate(int64(l.end)); terr != nil {
			err = errors.Join(err, fmt.Errorf("roll back partial append: %w", terr))
		}
		return l.end, fmt.Errorf("append entry at %d: %w", l.end, err)
	}

	l.end += uint64(len(frame))
	return l.end, nil
}

// Sync flushes the file to stable storage.
func (l *File) Sync() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return offsetlog.ErrClosed
	}
	if l.readOnly {
		return nil
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("sync offset log: %w", err)
	}
	return nil
}

// Close releases the mapping or the file and its lock. Close is idempotent.
func (l *File) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	var errs []error
	if l.mapping != nil {
		if err := l.mapping.Close(); err != nil {
			errs = append(errs, fmt.Errorf("unmap offset log: %w", err))
		}
	}
	if l.file != nil {
		if err := unlockAndClose(l.file); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Verify that File implements the offsetlog.Writer interface at compile time
var _ offsetlog.Writer = (*File)(nil)
