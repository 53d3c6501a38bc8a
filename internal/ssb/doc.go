// Package ssb implements the message rules of legacy signed feeds.
//
// Messages are stored as JSON envelopes {"key", "value", "timestamp"}. The
// value is signed and hashed over its JSON.stringify(value, null, 2) form,
// which this package reproduces from the raw bytes without decoding into Go
// maps, so key order and number formatting survive.
//
// The package provides:
//   - Author / Timestamp: cheap field extraction with a typed outcome
//   - ChainValidator: per-link hash-chain checks (feed.ChainValidator)
//   - Verifier: ed25519 signature checks, single and batched (feed.SignatureVerifier)
package ssb
