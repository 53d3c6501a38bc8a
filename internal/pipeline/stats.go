package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rmacdonaldsmith/feedlog/internal/metrics"
	"github.com/rmacdonaldsmith/feedlog/internal/offsetlog"
	"github.com/rmacdonaldsmith/feedlog/internal/ssb"
	offsetlogpkg "github.com/rmacdonaldsmith/feedlog/pkg/offsetlog"
)

// Statistics summarises the content of a log.
type Statistics struct {
	TotalEntries     int64            // Number of frames in the log, padding included
	PaddingEntries   int64            // Entries whose payload is all zero bytes
	MalformedEntries int64            // Non-padding entries without a readable author
	TotalBytes       uint64           // Sum of payload sizes
	AuthorCounts     map[string]int64 // Number of messages per author
	AuthorCount      int              // Number of distinct authors
}

// Stats summarises the content of the log at path in one forward pass.
func (r *Runner) Stats(ctx context.Context, path string) (Statistics, error) {
	start := time.Now()
	defer metrics.ObserveDuration(opStats, start)

	src, err := r.openSource(path)
	if err != nil {
		return Statistics{}, err
	}
	defer src.Close()

	stats := Statistics{AuthorCounts: make(map[string]int64)}
	err = offsetlog.Scan(ctx, src, func(e offsetlogpkg.Entry) error {
		stats.TotalEntries++
		stats.TotalBytes += uint64(e.Size())

		if e.IsPadding() {
			stats.PaddingEntries++
			return nil
		}
		author, state := ssb.Author(e.Data)
		if state != ssb.FieldPresent {
			stats.MalformedEntries++
			return nil
		}
		stats.AuthorCounts[author]++
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("stats: %w", err)
	}
	stats.AuthorCount = len(stats.AuthorCounts)
	metrics.EntriesScanned.WithLabelValues(opStats).Add(float64(stats.TotalEntries))

	r.logger.Debug("stats finished", zap.String("op", opStats), zap.Int64("count", stats.TotalEntries))
	return stats, nil
}
