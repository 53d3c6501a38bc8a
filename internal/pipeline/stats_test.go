package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStats(t *testing.T) {
	f := newTwoFeeds()
	payloads := append([][]byte{padding, []byte("junk")}, f.all...)
	in := writeLog(t, payloads...)

	stats, err := newTestRunner().Stats(context.Background(), in)
	require.NoError(t, err)

	var total uint64
	for _, p := range payloads {
		total += uint64(len(p))
	}

	assert.Equal(t, int64(7), stats.TotalEntries)
	assert.Equal(t, int64(1), stats.PaddingEntries)
	assert.Equal(t, int64(1), stats.MalformedEntries)
	assert.Equal(t, total, stats.TotalBytes)
	assert.Equal(t, 2, stats.AuthorCount)
	assert.Equal(t, int64(3), stats.AuthorCounts[f.alice.ID])
	assert.Equal(t, int64(2), stats.AuthorCounts[f.bob.ID])
}

func TestStats_EmptyLog(t *testing.T) {
	_, err := newTestRunner().Stats(context.Background(), writeLog(t))
	assert.ErrorIs(t, err, ErrEmptyLog)
}
