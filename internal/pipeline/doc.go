// Package pipeline implements the log transformation and audit operations.
//
// Every operation opens its source log read-only and scans it in offset order,
// checking the context between entries. Operations that produce a new log
// write it to a temporary sibling file and move it into place only when the
// whole copy succeeded, so a failed run never leaves a partial destination.
//
// Operations:
//   - Extract: copy the messages of one feed (or of every other feed)
//   - Sort: rewrite a log ordered by the timestamp authors asserted
//   - Validate: audit every feed's hash chain, optionally sharded by author
//   - Verify: check signatures, one by one or in concurrent chunks
//   - Stats: count entries, padding and messages per author
//
// ErrEmptyLog and ErrDestinationExists are refusals rather than failures:
// callers report them and carry on.
package pipeline
