package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestExtract tests copying a single feed out of a mixed log
func TestExtract(t *testing.T) {
	f := newTwoFeeds()
	in := writeLog(t, f.all[0], f.all[1], padding, f.all[2], []byte("not json"), f.all[3], f.all[4])
	out := filepath.Join(t.TempDir(), "alice.log")

	res, err := newTestRunner().Extract(context.Background(), ExtractOptions{
		Source:      in,
		Destination: out,
		Author:      f.alice.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(7), res.Scanned)
	assert.Equal(t, int64(3), res.Copied)
	assert.Equal(t, raws(f.a...), readPayloads(t, out))

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Equal(t, uint64(info.Size()), res.Bytes)
	assert.Empty(t, tempFiles(t, filepath.Dir(out)))
}

// TestExtract_RoundTrip tests that extracting the same feed twice is idempotent
func TestExtract_RoundTrip(t *testing.T) {
	f := newTwoFeeds()
	in := writeLog(t, f.all...)
	dir := t.TempDir()
	first := filepath.Join(dir, "first.log")
	second := filepath.Join(dir, "second.log")

	r := newTestRunner()
	_, err := r.Extract(context.Background(), ExtractOptions{Source: in, Destination: first, Author: f.bob.ID})
	require.NoError(t, err)
	_, err = r.Extract(context.Background(), ExtractOptions{Source: first, Destination: second, Author: f.bob.ID})
	require.NoError(t, err)

	a, err := os.ReadFile(first)
	require.NoError(t, err)
	b, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(a, b), "second extraction must reproduce the first byte for byte")
}

// TestExtract_Invert tests that a feed and its inverse partition the log
func TestExtract_Invert(t *testing.T) {
	f := newTwoFeeds()
	in := writeLog(t, f.all[0], padding, f.all[1], f.all[2], f.all[3], padding, f.all[4])
	dir := t.TempDir()

	r := newTestRunner()
	match, err := r.Extract(context.Background(), ExtractOptions{
		Source: in, Destination: filepath.Join(dir, "match.log"), Author: f.alice.ID,
	})
	require.NoError(t, err)
	rest, err := r.Extract(context.Background(), ExtractOptions{
		Source: in, Destination: filepath.Join(dir, "rest.log"), Author: f.alice.ID, Invert: true,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(len(f.all)), match.Copied+rest.Copied)
	assert.Equal(t, raws(f.b...), readPayloads(t, filepath.Join(dir, "rest.log")))
}

// TestExtract_UndecodableNeverMatches tests that entries without an author are
// excluded whether or not the filter is inverted
func TestExtract_UndecodableNeverMatches(t *testing.T) {
	in := writeLog(t, []byte("garbage"), []byte(`{"value":{}}`), padding)
	dir := t.TempDir()

	for _, invert := range []bool{false, true} {
		out := filepath.Join(dir, "out.log")
		res, err := newTestRunner().Extract(context.Background(), ExtractOptions{
			Source: in, Destination: out, Author: "@x.ed25519", Invert: invert, Overwrite: true,
		})
		require.NoError(t, err)
		assert.Zero(t, res.Copied, "invert=%v", invert)
		assert.Empty(t, readPayloads(t, out))
	}
}

// TestExtract_Refusals tests the handled, non-error outcomes
func TestExtract_Refusals(t *testing.T) {
	f := newTwoFeeds()

	t.Run("destination exists", func(t *testing.T) {
		in := writeLog(t, f.all...)
		out := filepath.Join(t.TempDir(), "out.log")
		require.NoError(t, os.WriteFile(out, []byte("keep me"), 0o644))

		_, err := newTestRunner().Extract(context.Background(), ExtractOptions{Source: in, Destination: out, Author: f.alice.ID})
		assert.ErrorIs(t, err, ErrDestinationExists)
		assert.True(t, IsRefusal(err))

		data, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Equal(t, "keep me", string(data))
	})

	t.Run("overwrite replaces destination", func(t *testing.T) {
		in := writeLog(t, f.all...)
		out := filepath.Join(t.TempDir(), "out.log")
		require.NoError(t, os.WriteFile(out, []byte("replace me"), 0o644))

		_, err := newTestRunner().Extract(context.Background(), ExtractOptions{
			Source: in, Destination: out, Author: f.alice.ID, Overwrite: true,
		})
		require.NoError(t, err)
		assert.Equal(t, raws(f.a...), readPayloads(t, out))
	})

	t.Run("empty source", func(t *testing.T) {
		in := writeLog(t)
		out := filepath.Join(t.TempDir(), "out.log")

		_, err := newTestRunner().Extract(context.Background(), ExtractOptions{Source: in, Destination: out, Author: f.alice.ID})
		assert.ErrorIs(t, err, ErrEmptyLog)
		assert.True(t, IsRefusal(err))
		assert.False(t, fileExists(out), "no destination for an empty source")
		assert.Empty(t, tempFiles(t, filepath.Dir(out)))
	})

	t.Run("missing source is a failure", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "out.log")
		_, err := newTestRunner().Extract(context.Background(), ExtractOptions{
			Source: filepath.Join(t.TempDir(), "missing.log"), Destination: out, Author: f.alice.ID,
		})
		require.Error(t, err)
		assert.False(t, IsRefusal(err))
		assert.ErrorIs(t, err, os.ErrNotExist)
		assert.False(t, fileExists(out))
	})
}

// TestExtract_Canceled tests that a canceled run leaves no destination behind
func TestExtract_Canceled(t *testing.T) {
	f := newTwoFeeds()
	in := writeLog(t, f.all...)
	out := filepath.Join(t.TempDir(), "out.log")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestRunner().Extract(ctx, ExtractOptions{Source: in, Destination: out, Author: f.alice.ID})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, fileExists(out))
	assert.Empty(t, tempFiles(t, filepath.Dir(out)))
}

// TestExtract_Progress tests the streaming progress line
func TestExtract_Progress(t *testing.T) {
	f := newTwoFeeds()
	in := writeLog(t, f.all...)
	out := filepath.Join(t.TempDir(), "out.log")

	var progress bytes.Buffer
	_, err := newTestRunner().WithProgress(&progress).Extract(context.Background(), ExtractOptions{
		Source: in, Destination: out, Author: f.alice.ID,
	})
	require.NoError(t, err)

	text := progress.String()
	assert.Contains(t, text, "\rProgress: 0%\tCopied 1 messages (")
	assert.Contains(t, text, "Copied 3 messages (")
	assert.True(t, bytes.HasSuffix(progress.Bytes(), []byte("\n")))
}
