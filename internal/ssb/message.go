package ssb

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/buger/jsonparser"
)

// FieldState describes the outcome of extracting a field from an untrusted payload.
type FieldState int

const (
	// FieldPresent means the field was found with the expected type.
	FieldPresent FieldState = iota
	// FieldAbsent means the payload decoded but the field is missing.
	FieldAbsent
	// FieldMalformed means the payload or the field could not be decoded.
	FieldMalformed
)

// String returns the string representation of the field state.
func (s FieldState) String() string {
	switch s {
	case FieldPresent:
		return "present"
	case FieldAbsent:
		return "absent"
	case FieldMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Author extracts value.author from a stored message envelope.
func Author(data []byte) (string, FieldState) {
	raw, state := lookup(data, jsonparser.String, "value", "author")
	if state != FieldPresent {
		return "", state
	}
	author, err := jsonparser.ParseString(raw)
	if err != nil {
		return "", FieldMalformed
	}
	return author, FieldPresent
}

// Timestamp extracts value.timestamp, the author-asserted creation time.
func Timestamp(data []byte) (float64, FieldState) {
	raw, state := lookup(data, jsonparser.Number, "value", "timestamp")
	if state != FieldPresent {
		return 0, state
	}
	ts, err := jsonparser.ParseFloat(raw)
	if err != nil {
		return 0, FieldMalformed
	}
	return ts, FieldPresent
}

func lookup(data []byte, want jsonparser.ValueType, keys ...string) ([]byte, FieldState) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, FieldMalformed
	}

	raw, typ, _, err := jsonparser.Get(trimmed, keys...)
	switch {
	case errors.Is(err, jsonparser.KeyPathNotFoundError):
		return nil, FieldAbsent
	case err != nil:
		return nil, FieldMalformed
	case typ == jsonparser.Null:
		return nil, FieldAbsent
	case typ != want:
		return nil, FieldMalformed
	}
	return raw, FieldPresent
}

// Value returns the raw message value object. data may be a stored envelope
// ({"key", "value", "timestamp"}) or a bare value.
func Value(data []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: payload is not a JSON object", ErrMalformed)
	}

	raw, typ, _, err := jsonparser.Get(trimmed, "value")
	if err == nil && typ == jsonparser.Object {
		return raw, nil
	}
	if err != nil && !errors.Is(err, jsonparser.KeyPathNotFoundError) {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return trimmed, nil
}

// Key returns the message id stored in an envelope, if any.
func Key(data []byte) (string, bool) {
	key, err := jsonparser.GetString(data, "key")
	if err != nil {
		return "", false
	}
	return key, true
}

// message holds the fields of a value that the chain rules look at.
type message struct {
	value      []byte
	key        string
	hasKey     bool
	author     string
	sequence   int64
	previous   string
	isRoot     bool // previous is null
	hashType   string
	hasContent bool
}

func parseMessage(data []byte) (*message, error) {
	value, err := Value(data)
	if err != nil {
		return nil, err
	}

	m := &message{value: value}
	m.key, m.hasKey = Key(data)

	if m.author, err = jsonparser.GetString(value, "author"); err != nil {
		return nil, fmt.Errorf("%w: author: %v", ErrMalformed, err)
	}
	if m.sequence, err = jsonparser.GetInt(value, "sequence"); err != nil {
		return nil, fmt.Errorf("%w: sequence: %v", ErrMalformed, err)
	}

	prev, typ, _, err := jsonparser.Get(value, "previous")
	switch {
	case err != nil:
		return nil, fmt.Errorf("%w: previous: %v", ErrMalformed, err)
	case typ == jsonparser.Null:
		m.isRoot = true
	case typ == jsonparser.String:
		if m.previous, err = jsonparser.ParseString(prev); err != nil {
			return nil, fmt.Errorf("%w: previous: %v", ErrMalformed, err)
		}
	default:
		return nil, fmt.Errorf("%w: previous has type %s", ErrMalformed, typ)
	}

	m.hashType, _ = jsonparser.GetString(value, "hash")

	_, typ, _, err = jsonparser.Get(value, "content")
	m.hasContent = err == nil && typ != jsonparser.Null

	return m, nil
}
