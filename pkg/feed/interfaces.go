// Package feed defines the collaborators that judge individual feed messages.
//
// Both collaborators work on raw message bytes exactly as stored in the log,
// never on a decoded form, because hashes and signatures are computed over an
// encoding the decoder does not preserve.
package feed

import "context"

// ChainValidator decides whether a message correctly extends its author's hash chain.
type ChainValidator interface {
	// ValidateLink checks current against the author's immediately preceding
	// message. A nil previous means current must be a valid chain root.
	ValidateLink(current, previous []byte) error
}

// SignatureVerifier decides whether messages carry a valid author signature.
type SignatureVerifier interface {
	// Verify checks a single message.
	Verify(msg []byte) error

	// VerifyBatch checks a group of independent messages. It fails if any
	// member fails and does not report which one. An empty batch verifies.
	VerifyBatch(ctx context.Context, msgs [][]byte) error
}
