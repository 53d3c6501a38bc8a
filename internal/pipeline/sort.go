package pipeline

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/rmacdonaldsmith/feedlog/internal/metrics"
	"github.com/rmacdonaldsmith/feedlog/internal/offsetlog"
	"github.com/rmacdonaldsmith/feedlog/internal/ssb"
	offsetlogpkg "github.com/rmacdonaldsmith/feedlog/pkg/offsetlog"
)

// SortOptions names the logs of a Sort run.
type SortOptions struct {
	Source      string
	Destination string
	Overwrite   bool
}

// SortResult summarises a resequencing run.
type SortResult struct {
	Sorted  int64  // Entries written in timestamp order, padding included
	Padding int64  // Padding entries among them
	Bytes   uint64 // Size of the destination log
}

// sortKey is the only per-entry state kept between the two passes.
type sortKey struct {
	timestamp float64
	offset    uint64
}

func compareSortKeys(a, b sortKey) int {
	return cmp.Or(cmp.Compare(a.timestamp, b.timestamp), cmp.Compare(a.offset, b.offset))
}

// Sort rewrites the source ordered by value.timestamp. Entries without a
// numeric timestamp, padding included, sort as 0. Equal timestamps keep their
// log order.
//
// The first pass holds one key per entry in memory; payloads are re-read
// from the source in the second pass.
func (r *Runner) Sort(ctx context.Context, opts SortOptions) (SortResult, error) {
	start := time.Now()
	defer metrics.ObserveDuration(opSort, start)

	if err := checkDestination(opts.Destination, opts.Overwrite); err != nil {
		return SortResult{}, err
	}

	src, err := r.openSource(opts.Source)
	if err != nil {
		return SortResult{}, err
	}
	defer src.Close()

	var (
		res  SortResult
		keys []sortKey
	)
	err = offsetlog.Scan(ctx, src, func(e offsetlogpkg.Entry) error {
		if e.IsPadding() {
			res.Padding++
		}
		ts, _ := ssb.Timestamp(e.Data)
		keys = append(keys, sortKey{timestamp: ts, offset: e.Offset})
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("index source: %w", err)
	}
	metrics.EntriesScanned.WithLabelValues(opSort).Add(float64(len(keys)))

	slices.SortFunc(keys, compareSortKeys)

	r.logger.Info("sorted entries, writing out to new offset log",
		zap.String("op", opSort),
		zap.Int("count", len(keys)),
		zap.String("in", opts.Source),
		zap.String("out", opts.Destination))

	dst, err := createDestination(opts.Destination, r.writeOpts)
	if err != nil {
		return res, err
	}
	defer dst.abort()

	prog := newProgress(r.progress, uint64(len(keys)))
	for i, k := range keys {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		entry, err := src.Get(k.offset)
		if err != nil {
			return res, fmt.Errorf("%w: offset %d: %w", ErrInconsistentSource, k.offset, err)
		}
		end, err := dst.log.Append(entry.Data)
		if err != nil {
			return res, fmt.Errorf("append to destination: %w", err)
		}
		res.Sorted++
		res.Bytes = end
		prog.update(uint64(i+1), true, res.Sorted, res.Bytes)
	}
	prog.finish()

	if err := dst.commit(opts.Overwrite); err != nil {
		return res, err
	}

	metrics.EntriesWritten.WithLabelValues(opSort).Add(float64(res.Sorted))
	metrics.BytesWritten.WithLabelValues(opSort).Add(float64(res.Bytes))

	r.logger.Info("sort finished", zap.String("op", opSort), zap.Int64("count", res.Sorted), zap.Int64("padding", res.Padding))
	return res, nil
}
