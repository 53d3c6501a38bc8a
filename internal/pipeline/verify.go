package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rmacdonaldsmith/feedlog/internal/config"
	"github.com/rmacdonaldsmith/feedlog/internal/metrics"
	"github.com/rmacdonaldsmith/feedlog/internal/offsetlog"
	"github.com/rmacdonaldsmith/feedlog/pkg/feed"
	offsetlogpkg "github.com/rmacdonaldsmith/feedlog/pkg/offsetlog"
)

// VerifyOptions configures a signature check.
type VerifyOptions struct {
	Source    string
	Parallel  bool // Verify in concurrent chunks instead of message by message
	ChunkSize int  // Messages per chunk; defaults to config.DefaultChunkSize
	Workers   int  // Chunks verified at once; defaults to 1
}

// VerifyReport is the outcome of a signature check.
type VerifyReport struct {
	Parallel     bool
	Checked      int64 // Messages submitted to the verifier
	Failed       int64 // Messages that failed (sequential mode)
	Chunks       int64 // Chunks submitted (parallel mode)
	FailedChunks int64 // Chunks with at least one failure (parallel mode)
}

// OK reports whether every message verified.
func (r VerifyReport) OK() bool {
	return r.Failed == 0 && r.FailedChunks == 0
}

// verifyStrategy checks every non-padding message of a log.
type verifyStrategy interface {
	run(ctx context.Context, log offsetlogpkg.Log) (VerifyReport, error)
}

// sequentialVerify checks each message on its own and never stops early.
type sequentialVerify struct {
	verifier feed.SignatureVerifier
}

func (s sequentialVerify) run(ctx context.Context, log offsetlogpkg.Log) (VerifyReport, error) {
	var report VerifyReport
	err := offsetlog.Scan(ctx, log, func(e offsetlogpkg.Entry) error {
		metrics.EntriesScanned.WithLabelValues(opVerify).Inc()
		if e.IsPadding() {
			return nil
		}
		report.Checked++
		if err := s.verifier.Verify(e.Data); err != nil {
			report.Failed++
			metrics.SignatureFailures.Inc()
		}
		return nil
	})
	return report, err
}

// chunkedVerify groups messages into fixed-size chunks in log order and checks
// up to workers chunks concurrently, one batch call per chunk.
type chunkedVerify struct {
	verifier  feed.SignatureVerifier
	chunkSize int
	workers   int
}

func (c chunkedVerify) run(ctx context.Context, log offsetlogpkg.Log) (VerifyReport, error) {
	report := VerifyReport{Parallel: true}
	var failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)

	submit := func(chunk [][]byte) {
		report.Chunks++
		g.Go(func() error {
			err := c.verifier.VerifyBatch(gctx, chunk)
			switch {
			case err == nil:
				return nil
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				return err
			default:
				failed.Add(1)
				metrics.SignatureFailures.Inc()
				return nil
			}
		})
	}

	chunk := make([][]byte, 0, c.chunkSize)
	scanErr := offsetlog.Scan(gctx, log, func(e offsetlogpkg.Entry) error {
		metrics.EntriesScanned.WithLabelValues(opVerify).Inc()
		if e.IsPadding() {
			return nil
		}
		report.Checked++
		chunk = append(chunk, e.Data)
		if len(chunk) == c.chunkSize {
			submit(chunk)
			chunk = make([][]byte, 0, c.chunkSize)
		}
		return nil
	})
	if scanErr == nil && len(chunk) > 0 {
		submit(chunk)
	}

	err := g.Wait()
	report.FailedChunks = failed.Load()
	if scanErr != nil {
		return report, scanErr
	}
	return report, err
}

// Verify checks the signature of every message in the source log.
// Signature failures are reported, not returned; the error is for I/O problems.
func (r *Runner) Verify(ctx context.Context, opts VerifyOptions) (VerifyReport, error) {
	start := time.Now()
	defer metrics.ObserveDuration(opVerify, start)

	src, err := r.openSource(opts.Source)
	if err != nil {
		return VerifyReport{}, err
	}
	defer src.Close()

	strategy := r.verifyStrategy(opts)
	r.logger.Info("verifying signatures",
		zap.String("op", opVerify),
		zap.String("in", opts.Source),
		zap.Bool("parallel", opts.Parallel))

	report, err := strategy.run(ctx, src)
	if err != nil {
		return report, fmt.Errorf("verify: %w", err)
	}

	r.logger.Info("verify finished",
		zap.String("op", opVerify),
		zap.Int64("count", report.Checked),
		zap.Bool("ok", report.OK()))
	return report, nil
}

func (r *Runner) verifyStrategy(opts VerifyOptions) verifyStrategy {
	if !opts.Parallel {
		return sequentialVerify{verifier: r.verifier}
	}

	chunkSize := opts.ChunkSize
	if chunkSize < 1 {
		chunkSize = config.DefaultChunkSize
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	return chunkedVerify{verifier: r.verifier, chunkSize: chunkSize, workers: workers}
}
