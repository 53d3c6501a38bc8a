package offsetlog

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmacdonaldsmith/feedlog/pkg/offsetlog"
)

// writeLog creates a log at path containing payloads and returns their offsets.
func writeLog(t *testing.T, path string, payloads ...[]byte) []uint64 {
	t.Helper()

	w, err := Create(path, Options{})
	require.NoError(t, err)
	defer w.Close()

	offsets := make([]uint64, 0, len(payloads))
	for _, p := range payloads {
		offsets = append(offsets, w.End())
		_, err := w.Append(p)
		require.NoError(t, err)
	}
	return offsets
}

func TestFile_AppendAssignsByteOffsets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.offset")

	w, err := Create(path, Options{SyncEveryAppend: true})
	require.NoError(t, err)
	defer w.Close()

	if w.End() != 0 {
		t.Fatalf("Expected empty log, got end %d", w.End())
	}

	end, err := w.Append([]byte("first"))
	require.NoError(t, err)
	assert.Equal(t, uint64(5+frameOverhead), end)

	end, err = w.Append([]byte("second!"))
	require.NoError(t, err)
	assert.Equal(t, uint64(5+7+2*frameOverhead), end)
	assert.Equal(t, end, w.End())

	first, err := w.Get(0)
	require.NoError(t, err)
	assert.Equal(t, "first", string(first.Data))

	second, err := w.Get(5 + frameOverhead)
	require.NoError(t, err)
	assert.Equal(t, "second!", string(second.Data))
	assert.Equal(t, uint64(5+frameOverhead), second.Offset)
}

func TestFile_OnDiskFraming(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.offset")
	writeLog(t, path, []byte("ab"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	want := []byte{
		0, 0, 0, 2, // length
		'a', 'b',
		0, 0, 0, 2, // length again
		0, 0, 0, 14, // next frame offset
	}
	if !bytes.Equal(raw, want) {
		t.Errorf("Expected frame %v, got %v", want, raw)
	}
}

func TestFile_ReadOnlyRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.offset")
	payloads := [][]byte{[]byte(`{"a":1}`), make([]byte, 16), []byte(`{"b":2}`)}
	offsets := writeLog(t, path, payloads...)

	log, err := OpenReadOnly(path)
	require.NoError(t, err)
	defer log.Close()

	for i, off := range offsets {
		entry, err := log.Get(off)
		require.NoError(t, err)
		assert.Equal(t, payloads[i], entry.Data)
		assert.Equal(t, off, entry.Offset)
	}

	last, err := log.ReadBackward(log.End())
	require.NoError(t, err)
	assert.Equal(t, offsets[2], last.Offset)

	middle, err := log.ReadBackward(offsets[2])
	require.NoError(t, err)
	assert.True(t, middle.IsPadding())

	_, err = log.Append([]byte("nope"))
	assert.ErrorIs(t, err, offsetlog.ErrReadOnly)
}

func TestFile_OpenEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.offset")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	log, err := OpenReadOnly(path)
	require.NoError(t, err)
	defer log.Close()

	assert.Equal(t, uint64(0), log.End())
	_, err = log.Get(0)
	assert.ErrorIs(t, err, offsetlog.ErrOffset)
}

func TestFile_OpenErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := OpenReadOnly(filepath.Join(dir, "missing"))
		assert.ErrorIs(t, err, fs.ErrNotExist)
	})

	t.Run("too short", func(t *testing.T) {
		path := filepath.Join(dir, "short")
		require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0o644))
		_, err := OpenReadOnly(path)
		assert.ErrorIs(t, err, offsetlog.ErrFormat)
	})

	t.Run("bad trailer", func(t *testing.T) {
		path := filepath.Join(dir, "trailer")
		require.NoError(t, os.WriteFile(path, []byte{0, 0, 0, 2, 'a', 'b', 0, 0, 0, 2, 0, 0, 0, 99}, 0o644))
		_, err := OpenReadOnly(path)
		assert.ErrorIs(t, err, offsetlog.ErrFormat)
	})
}

func TestFile_GetRejectsNonBoundaries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.offset")
	writeLog(t, path, []byte("hello"), []byte("world"))

	log, err := OpenReadOnly(path)
	require.NoError(t, err)
	defer log.Close()

	for _, off := range []uint64{1, 4, 16, log.End(), log.End() + 100} {
		_, err := log.Get(off)
		assert.ErrorIs(t, err, offsetlog.ErrOffset, "offset %d", off)
	}

	_, err = log.ReadBackward(3)
	assert.ErrorIs(t, err, offsetlog.ErrOffset)
}

func TestFile_SingleWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.offset")

	w, err := Create(path, Options{})
	require.NoError(t, err)

	_, err = Create(path, Options{})
	assert.ErrorIs(t, err, offsetlog.ErrLocked)

	require.NoError(t, w.Close())

	again, err := Create(path, Options{})
	require.NoError(t, err)
	require.NoError(t, again.Close())
}

func TestFile_OpenAppendContinuesOffsets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.offset")
	writeLog(t, path, []byte("one"))

	w, err := OpenAppend(path, Options{})
	require.NoError(t, err)

	before := w.End()
	_, err = w.Append([]byte("two"))
	require.NoError(t, err)
	require.NoError(t, w.Sync())
	require.NoError(t, w.Close())

	log, err := OpenReadOnly(path)
	require.NoError(t, err)
	defer log.Close()

	entry, err := log.Get(before)
	require.NoError(t, err)
	assert.Equal(t, "two", string(entry.Data))
}

func TestFile_Close(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.offset")
	writeLog(t, path, []byte("x"))

	log, err := OpenReadOnly(path)
	require.NoError(t, err)

	require.NoError(t, log.Close())
	require.NoError(t, log.Close(), "Close must be idempotent")

	_, err = log.Get(0)
	assert.ErrorIs(t, err, offsetlog.ErrClosed)
}

func TestFile_TruncatedWhileMapped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.offset")
	offsets := writeLog(t, path, []byte("one"), []byte("two"), []byte("three"))

	log, err := OpenReadOnly(path)
	require.NoError(t, err)
	defer log.Close()

	// Truncate ignores advisory locks, so the mapping goes stale
	require.NoError(t, os.Truncate(path, 0))

	_, err = log.Get(offsets[2])
	assert.ErrorIs(t, err, offsetlog.ErrOffset)

	_, err = log.ReadBackward(log.End())
	assert.ErrorIs(t, err, offsetlog.ErrOffset)
}

func TestFile_ReaderBlocksWriters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.offset")
	writeLog(t, path, []byte("one"))

	log, err := OpenReadOnly(path)
	require.NoError(t, err)

	_, err = Create(path, Options{})
	assert.ErrorIs(t, err, offsetlog.ErrLocked)
	_, err = OpenAppend(path, Options{})
	assert.ErrorIs(t, err, offsetlog.ErrLocked)

	other, err := OpenReadOnly(path)
	require.NoError(t, err, "readers share the lock")
	require.NoError(t, other.Close())

	entry, err := log.Get(0)
	require.NoError(t, err)
	assert.Equal(t, "one", string(entry.Data), "a refused Create must not truncate the file")
	require.NoError(t, log.Close())

	w, err := Create(path, Options{})
	require.NoError(t, err)
	require.NoError(t, w.Close())
}

func TestFile_FailedAppendLeavesEndUnchanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.offset")

	w, err := Create(path, Options{})
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Append([]byte("first"))
	require.NoError(t, err)
	end := w.End()

	// Writes through a read-only descriptor fail with EBADF
	ro, err := os.Open(path)
	require.NoError(t, err)
	rw := w.file
	w.file = ro

	_, err = w.Append([]byte("second"))
	w.file = rw
	require.NoError(t, ro.Close())

	require.Error(t, err)
	assert.Equal(t, end, w.End())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(end), info.Size())

	_, err = w.Append([]byte("third"))
	require.NoError(t, err)

	entry, err := w.Get(end)
	require.NoError(t, err)
	assert.Equal(t, "third", string(entry.Data))
}
