package pipeline

import (
	"context"
	"fmt"
	"hash/fnv"
	"maps"
	"slices"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rmacdonaldsmith/feedlog/internal/metrics"
	"github.com/rmacdonaldsmith/feedlog/internal/offsetlog"
	"github.com/rmacdonaldsmith/feedlog/internal/ssb"
	"github.com/rmacdonaldsmith/feedlog/pkg/feed"
	offsetlogpkg "github.com/rmacdonaldsmith/feedlog/pkg/offsetlog"
)

// shardQueueSize bounds the entries buffered per validation shard.
const shardQueueSize = 256

// ValidateOptions configures a hash-chain audit.
type ValidateOptions struct {
	Source string
	Shards int // Goroutines authors are spread across; values below 2 scan in one goroutine
}

// ValidateReport is the outcome of a hash-chain audit.
type ValidateReport struct {
	OK        int64              // Messages whose link validated
	Malformed int64              // Non-padding entries without a readable author
	Errors    map[string][]error // Failed links per author, in log order
}

// Valid reports whether every message passed.
func (r ValidateReport) Valid() bool {
	return len(r.Errors) == 0 && r.Malformed == 0
}

// ErrorCount returns the number of failed links across all authors.
func (r ValidateReport) ErrorCount() int {
	n := 0
	for _, errs := range r.Errors {
		n += len(errs)
	}
	return n
}

// Authors returns the authors with at least one failed link, sorted.
func (r ValidateReport) Authors() []string {
	return slices.Sorted(maps.Keys(r.Errors))
}

func (r *ValidateReport) merge(o ValidateReport) {
	r.OK += o.OK
	r.Malformed += o.Malformed
	for author, errs := range o.Errors {
		r.Errors[author] = append(r.Errors[author], errs...)
	}
}

// chainState is the scan-local audit state: the last raw message seen per
// author and the accumulated outcome. The previous message is replaced after
// every check, pass or fail, so one broken link reports one error.
type chainState struct {
	validator feed.ChainValidator
	previous  map[string][]byte
	report    ValidateReport
}

func newChainState(v feed.ChainValidator) *chainState {
	return &chainState{
		validator: v,
		previous:  make(map[string][]byte),
		report:    ValidateReport{Errors: make(map[string][]error)},
	}
}

func (s *chainState) check(author string, data []byte) {
	err := s.validator.ValidateLink(data, s.previous[author])
	s.previous[author] = data

	if err != nil {
		s.report.Errors[author] = append(s.report.Errors[author], err)
		metrics.ChainErrors.Inc()
		return
	}
	s.report.OK++
}

type authoredEntry struct {
	author string
	data   []byte
}

// Validate audits the hash chain of every feed in the source log.
// Chain failures are reported, not returned; the error is for I/O problems.
func (r *Runner) Validate(ctx context.Context, opts ValidateOptions) (ValidateReport, error) {
	start := time.Now()
	defer metrics.ObserveDuration(opValidate, start)

	src, err := r.openSource(opts.Source)
	if err != nil {
		return ValidateReport{}, err
	}
	defer src.Close()

	r.logger.Info("validating hash chains", zap.String("op", opValidate), zap.String("in", opts.Source), zap.Int("shards", opts.Shards))

	var report ValidateReport
	if opts.Shards < 2 {
		report, err = r.validateSequential(ctx, src)
	} else {
		report, err = r.validateSharded(ctx, src, opts.Shards)
	}
	if err != nil {
		return report, fmt.Errorf("validate: %w", err)
	}

	r.logger.Info("validate finished",
		zap.String("op", opValidate),
		zap.Int64("ok", report.OK),
		zap.Int("errors", report.ErrorCount()),
		zap.Int64("malformed", report.Malformed))
	return report, nil
}

// scanAuthored feeds every non-padding entry to fn along with its author.
// Entries without an author are counted and skipped.
func scanAuthored(ctx context.Context, log offsetlogpkg.Log, malformed *int64, fn func(authoredEntry) error) error {
	return offsetlog.Scan(ctx, log, func(e offsetlogpkg.Entry) error {
		metrics.EntriesScanned.WithLabelValues(opValidate).Inc()
		if e.IsPadding() {
			return nil
		}
		author, state := ssb.Author(e.Data)
		if state != ssb.FieldPresent {
			*malformed++
			return nil
		}
		return fn(authoredEntry{author: author, data: e.Data})
	})
}

func (r *Runner) validateSequential(ctx context.Context, log offsetlogpkg.Log) (ValidateReport, error) {
	state := newChainState(r.validator)
	err := scanAuthored(ctx, log, &state.report.Malformed, func(e authoredEntry) error {
		state.check(e.author, e.data)
		return nil
	})
	return state.report, err
}

// validateSharded spreads authors over shards goroutines by hash. Each author
// always lands on the same shard, so its messages are still checked in order.
func (r *Runner) validateSharded(ctx context.Context, log offsetlogpkg.Log, shards int) (ValidateReport, error) {
	g, gctx := errgroup.WithContext(ctx)

	queues := make([]chan authoredEntry, shards)
	states := make([]*chainState, shards)
	for i := range queues {
		queues[i] = make(chan authoredEntry, shardQueueSize)
		states[i] = newChainState(r.validator)

		queue, state := queues[i], states[i]
		g.Go(func() error {
			for e := range queue {
				state.check(e.author, e.data)
			}
			return nil
		})
	}

	var malformed int64
	g.Go(func() error {
		defer func() {
			for _, q := range queues {
				close(q)
			}
		}()
		return scanAuthored(gctx, log, &malformed, func(e authoredEntry) error {
			select {
			case queues[shardOf(e.author, shards)] <- e:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	})

	if err := g.Wait(); err != nil {
		return ValidateReport{}, err
	}

	report := ValidateReport{Malformed: malformed, Errors: make(map[string][]error)}
	for _, s := range states {
		report.merge(s.report)
	}
	return report, nil
}

func shardOf(author string, shards int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(author))
	return int(h.Sum32() % uint32(shards))
}
