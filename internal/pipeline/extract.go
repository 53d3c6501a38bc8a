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

// ExtractOptions selects the messages copied by Extract.
type ExtractOptions struct {
	Source      string
	Destination string
	Author      string // Feed id to match
	Invert      bool   // Copy every message NOT authored by Author
	Overwrite   bool
}

// ExtractResult summarises an extraction.
type ExtractResult struct {
	Scanned int64  // Source entries read
	Copied  int64  // Entries appended to the destination
	Bytes   uint64 // Size of the destination log
}

// Extract copies the raw bytes of matching messages into a new log.
// Entries without a readable author never match, whatever Invert says.
func (r *Runner) Extract(ctx context.Context, opts ExtractOptions) (ExtractResult, error) {
	start := time.Now()
	defer metrics.ObserveDuration(opExtract, start)

	if err := checkDestination(opts.Destination, opts.Overwrite); err != nil {
		return ExtractResult{}, err
	}

	src, err := r.openSource(opts.Source)
	if err != nil {
		return ExtractResult{}, err
	}
	defer src.Close()

	dst, err := createDestination(opts.Destination, r.writeOpts)
	if err != nil {
		return ExtractResult{}, err
	}
	defer dst.abort()

	r.logger.Info("copying feed",
		zap.String("op", opExtract),
		zap.String("feed", opts.Author),
		zap.Bool("invert", opts.Invert),
		zap.String("in", opts.Source),
		zap.String("out", opts.Destination))

	matches := func(e offsetlogpkg.Entry) bool {
		if e.IsPadding() {
			return false
		}
		author, state := ssb.Author(e.Data)
		if state != ssb.FieldPresent {
			return false
		}
		return (author == opts.Author) != opts.Invert
	}

	var res ExtractResult
	prog := newProgress(r.progress, src.End())
	cursor := offsetlog.Map(offsetlog.Iter(src), matches)
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		item, ok := cursor.Next()
		if !ok {
			break
		}
		res.Scanned++

		if item.Value {
			end, err := dst.log.Append(item.Entry.Data)
			if err != nil {
				return res, fmt.Errorf("append to destination: %w", err)
			}
			res.Copied++
			res.Bytes = end
		}
		prog.update(item.Entry.Offset, item.Value, res.Copied, res.Bytes)
	}
	prog.finish()

	if err := cursor.Err(); err != nil {
		return res, fmt.Errorf("read source: %w", err)
	}
	if err := dst.commit(opts.Overwrite); err != nil {
		return res, err
	}

	metrics.EntriesScanned.WithLabelValues(opExtract).Add(float64(res.Scanned))
	metrics.EntriesWritten.WithLabelValues(opExtract).Add(float64(res.Copied))
	metrics.BytesWritten.WithLabelValues(opExtract).Add(float64(res.Bytes))

	r.logger.Info("extract finished", zap.String("op", opExtract), zap.Int64("count", res.Copied), zap.Uint64("bytes", res.Bytes))
	return res, nil
}
