package pipeline

import (
	"fmt"
	"io"

	"code.cloudfoundry.org/bytefmt"
)

// progress prints a single, rewritten status line. A line is emitted when an
// entry was written or when the integer percentage grew.
type progress struct {
	w       io.Writer
	end     uint64
	last    uint64
	printed bool
}

func newProgress(w io.Writer, end uint64) *progress {
	return &progress{w: w, end: end}
}

// update reports the scan position after one entry.
func (p *progress) update(position uint64, wrote bool, count int64, bytes uint64) {
	if p.w == nil || p.end == 0 {
		return
	}
	pct := position * 100 / p.end
	if !wrote && pct <= p.last {
		return
	}
	p.last = pct
	p.printed = true
	fmt.Fprintf(p.w, "\rProgress: %d%%\tCopied %d messages (%d bytes, %s)", pct, count, bytes, bytefmt.ByteSize(bytes))
}

// finish terminates the status line.
func (p *progress) finish() {
	if p.w != nil && p.printed {
		fmt.Fprintln(p.w)
	}
}
