package ssb

import "errors"

var (
	// ErrMalformed is returned when a message cannot be decoded far enough to be checked
	ErrMalformed = errors.New("malformed message")
	// ErrFirstSequence is returned when a chain root does not have sequence 1
	ErrFirstSequence = errors.New("first message must have sequence 1")
	// ErrFirstPrevious is returned when a chain root references a previous message
	ErrFirstPrevious = errors.New("first message must have a null previous")
	// ErrAuthorMismatch is returned when a message and its predecessor have different authors
	ErrAuthorMismatch = errors.New("author does not match previous message")
	// ErrSequenceMismatch is returned when the sequence does not follow the previous message
	ErrSequenceMismatch = errors.New("sequence does not follow previous message")
	// ErrPreviousMismatch is returned when previous is not the id of the preceding message
	ErrPreviousMismatch = errors.New("previous does not match preceding message id")
	// ErrKeyMismatch is returned when a stored key is not the hash of its value
	ErrKeyMismatch = errors.New("message key does not match value hash")
	// ErrHashType is returned for values that do not declare the sha256 hash
	ErrHashType = errors.New("unsupported hash type")
	// ErrTooLarge is returned when a value exceeds the maximum message size
	ErrTooLarge = errors.New("message value too large")

	// ErrAuthorFormat is returned when the author is not an ed25519 feed id
	ErrAuthorFormat = errors.New("invalid author id")
	// ErrSignatureFormat is returned when the signature field cannot be decoded
	ErrSignatureFormat = errors.New("invalid signature encoding")
	// ErrSignatureMismatch is returned when the signature does not verify
	ErrSignatureMismatch = errors.New("signature does not verify")
	// ErrBatchFailed is returned when at least one message of a batch fails verification
	ErrBatchFailed = errors.New("batch contains an invalid signature")
)

// ChainError describes why a message failed hash-chain validation.
type ChainError struct {
	Kind   error  // One of the sentinel errors above
	Detail string // Human readable context
}

func (e *ChainError) Error() string {
	if e.Detail == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Detail
}

// Unwrap returns the sentinel kind so callers can use errors.Is.
func (e *ChainError) Unwrap() error {
	return e.Kind
}

func chainErr(kind error, detail string) error {
	return &ChainError{Kind: kind, Detail: detail}
}
