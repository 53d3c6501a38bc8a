package ssb

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/rmacdonaldsmith/feedlog/pkg/feed"
)

// MaxValueLength is the largest canonical value, in UTF-16 code units, a feed may publish.
const MaxValueLength = 8192

// MessageID returns the legacy id of a message value:
// "%" + base64(sha256(latin1(canonical(value)))) + ".sha256".
func MessageID(value []byte) (string, error) {
	enc, err := Canonical(value)
	if err != nil {
		return "", err
	}
	return idOf(enc), nil
}

func idOf(canonicalValue []byte) string {
	sum := sha256.Sum256(latin1(canonicalValue))
	return "%" + base64.StdEncoding.EncodeToString(sum[:]) + ".sha256"
}

// ChainValidator checks legacy feed hash-chain rules.
type ChainValidator struct {
	// CheckKeys also requires a stored envelope key to equal the value hash
	CheckKeys bool
}

// NewChainValidator creates a validator that also checks stored keys.
func NewChainValidator() *ChainValidator {
	return &ChainValidator{CheckKeys: true}
}

// ValidateLink checks that current correctly follows previous.
// A nil previous means current must be the first message of its feed.
func (v *ChainValidator) ValidateLink(current, previous []byte) error {
	msg, err := parseMessage(current)
	if err != nil {
		return chainErr(ErrMalformed, err.Error())
	}

	if !strings.HasPrefix(msg.author, "@") || !strings.HasSuffix(msg.author, ".ed25519") {
		return chainErr(ErrAuthorFormat, msg.author)
	}
	if msg.hashType != "sha256" {
		return chainErr(ErrHashType, fmt.Sprintf("%q", msg.hashType))
	}
	if !msg.hasContent {
		return chainErr(ErrMalformed, "missing content")
	}

	enc, err := Canonical(msg.value)
	if err != nil {
		return chainErr(ErrMalformed, err.Error())
	}
	if n := utf16Len(enc); n > MaxValueLength {
		return chainErr(ErrTooLarge, fmt.Sprintf("%d > %d", n, MaxValueLength))
	}
	if v.CheckKeys && msg.hasKey {
		if id := idOf(enc); id != msg.key {
			return chainErr(ErrKeyMismatch, fmt.Sprintf("key %s, value hashes to %s", msg.key, id))
		}
	}

	if previous == nil {
		if msg.sequence != 1 {
			return chainErr(ErrFirstSequence, fmt.Sprintf("got %d", msg.sequence))
		}
		if !msg.isRoot {
			return chainErr(ErrFirstPrevious, fmt.Sprintf("got %s", msg.previous))
		}
		return nil
	}

	prev, err := parseMessage(previous)
	if err != nil {
		return chainErr(ErrMalformed, "previous message: "+err.Error())
	}
	if prev.author != msg.author {
		return chainErr(ErrAuthorMismatch, fmt.Sprintf("%s follows %s", msg.author, prev.author))
	}
	if msg.sequence != prev.sequence+1 {
		return chainErr(ErrSequenceMismatch, fmt.Sprintf("got %d after %d", msg.sequence, prev.sequence))
	}

	prevID, err := MessageID(prev.value)
	if err != nil {
		return chainErr(ErrMalformed, "previous message: "+err.Error())
	}
	if msg.isRoot || msg.previous != prevID {
		return chainErr(ErrPreviousMismatch, fmt.Sprintf("got %s, want %s", msg.previous, prevID))
	}

	return nil
}

// IsChainError reports whether err is a validation outcome rather than an infrastructure failure.
func IsChainError(err error) bool {
	var ce *ChainError
	return errors.As(err, &ce)
}

// Verify that ChainValidator implements the feed.ChainValidator interface at compile time
var _ feed.ChainValidator = (*ChainValidator)(nil)
