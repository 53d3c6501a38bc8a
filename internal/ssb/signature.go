package ssb

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/buger/jsonparser"

	"github.com/rmacdonaldsmith/feedlog/pkg/feed"
)

const (
	feedSuffix      = ".ed25519"
	signatureSuffix = ".sig.ed25519"
)

// PublicKey decodes an "@<base64>.ed25519" feed id.
func PublicKey(author string) (ed25519.PublicKey, error) {
	if !strings.HasPrefix(author, "@") || !strings.HasSuffix(author, feedSuffix) {
		return nil, fmt.Errorf("%w: %q", ErrAuthorFormat, author)
	}
	key, err := base64.StdEncoding.DecodeString(author[1 : len(author)-len(feedSuffix)])
	if err != nil || len(key) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: %q", ErrAuthorFormat, author)
	}
	return ed25519.PublicKey(key), nil
}

// FeedID returns the feed id for an ed25519 public key.
func FeedID(pub ed25519.PublicKey) string {
	return "@" + base64.StdEncoding.EncodeToString(pub) + feedSuffix
}

// EncodeSignature renders a raw signature as "<base64>.sig.ed25519".
func EncodeSignature(sig []byte) string {
	return base64.StdEncoding.EncodeToString(sig) + signatureSuffix
}

func decodeSignature(s string) ([]byte, error) {
	if !strings.HasSuffix(s, signatureSuffix) {
		return nil, fmt.Errorf("%w: missing %s suffix", ErrSignatureFormat, signatureSuffix)
	}
	sig, err := base64.StdEncoding.DecodeString(strings.TrimSuffix(s, signatureSuffix))
	if err != nil || len(sig) != ed25519.SignatureSize {
		return nil, fmt.Errorf("%w: bad base64 payload", ErrSignatureFormat)
	}
	return sig, nil
}

// SigningText returns the bytes a value's signature covers: the canonical
// encoding of the value without its signature field.
func SigningText(value []byte) ([]byte, error) {
	return canonical(value, "signature")
}

// Verifier checks ed25519 signatures of legacy feed messages.
// It holds no state and is safe for concurrent use.
type Verifier struct{}

// NewVerifier creates a signature verifier.
func NewVerifier() *Verifier {
	return &Verifier{}
}

// Verify checks the signature of a single message.
func (v *Verifier) Verify(msg []byte) error {
	value, err := Value(msg)
	if err != nil {
		return err
	}

	author, err := jsonparser.GetString(value, "author")
	if err != nil {
		return fmt.Errorf("%w: author: %v", ErrMalformed, err)
	}
	pub, err := PublicKey(author)
	if err != nil {
		return err
	}

	sigText, err := jsonparser.GetString(value, "signature")
	if err != nil {
		return fmt.Errorf("%w: signature: %v", ErrMalformed, err)
	}
	sig, err := decodeSignature(sigText)
	if err != nil {
		return err
	}

	signed, err := SigningText(value)
	if err != nil {
		return err
	}
	if !ed25519.Verify(pub, signed, sig) {
		return ErrSignatureMismatch
	}
	return nil
}

// VerifyBatch checks every message of the batch.
// The first failure aborts the batch with ErrBatchFailed.
func (v *Verifier) VerifyBatch(ctx context.Context, msgs [][]byte) error {
	for _, msg := range msgs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := v.Verify(msg); err != nil {
			return ErrBatchFailed
		}
	}
	return nil
}

// Verify that Verifier implements the feed.SignatureVerifier interface at compile time
var _ feed.SignatureVerifier = (*Verifier)(nil)
