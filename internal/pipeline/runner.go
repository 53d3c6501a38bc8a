package pipeline

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/rmacdonaldsmith/feedlog/internal/offsetlog"
	"github.com/rmacdonaldsmith/feedlog/internal/ssb"
	"github.com/rmacdonaldsmith/feedlog/pkg/feed"
	offsetlogpkg "github.com/rmacdonaldsmith/feedlog/pkg/offsetlog"
)

const (
	opExtract  = "extract"
	opSort     = "sort"
	opValidate = "validate"
	opVerify   = "verify"
	opStats    = "stats"
)

// Runner executes pipeline operations with a shared logger, progress sink and
// message collaborators.
type Runner struct {
	logger    *zap.Logger
	progress  io.Writer
	writeOpts offsetlog.Options
	validator feed.ChainValidator
	verifier  feed.SignatureVerifier

	// open opens source logs; replaced in tests
	open func(path string) (offsetlogpkg.Log, error)
}

// NewRunner creates a Runner using the legacy feed rules. A nil logger discards logs.
func NewRunner(logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		logger:    logger,
		validator: ssb.NewChainValidator(),
		verifier:  ssb.NewVerifier(),
		open:      openReadOnly,
	}
}

// WithProgress sets where progress lines are written. Nil disables them.
func (r *Runner) WithProgress(w io.Writer) *Runner {
	r.progress = w
	return r
}

// WithSyncWrites makes destination logs fsync after every append
func (r *Runner) WithSyncWrites(sync bool) *Runner {
	r.writeOpts.SyncEveryAppend = sync
	return r
}

// WithChainValidator replaces the hash-chain rules used by Validate
func (r *Runner) WithChainValidator(v feed.ChainValidator) *Runner {
	r.validator = v
	return r
}

// WithVerifier replaces the signature verifier used by Verify
func (r *Runner) WithVerifier(v feed.SignatureVerifier) *Runner {
	r.verifier = v
	return r
}

func openReadOnly(path string) (offsetlogpkg.Log, error) {
	return offsetlog.OpenReadOnly(path)
}

// openSource opens path read-only and refuses empty logs.
func (r *Runner) openSource(path string) (offsetlogpkg.Log, error) {
	src, err := r.open(path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	if src.End() == 0 {
		_ = src.Close()
		return nil, ErrEmptyLog
	}
	return src, nil
}
