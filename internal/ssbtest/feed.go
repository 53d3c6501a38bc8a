// Package ssbtest builds signed, hash-chained feed messages for tests.
package ssbtest

import (
	"bytes"
	"crypto/ed25519"
	"fmt"
	"strconv"

	"github.com/rmacdonaldsmith/feedlog/internal/ssb"
)

// Message is a published message in its stored envelope form.
type Message struct {
	Key   string // Message id
	Value []byte // Signed value, canonical form
	Raw   []byte // Stored envelope {"key","value","timestamp"}
}

// Feed publishes messages for a single deterministic identity.
type Feed struct {
	ID   string
	priv ed25519.PrivateKey

	seq    int64
	prevID string
}

// NewFeed creates a feed whose key pair is derived from seed.
func NewFeed(seed byte) *Feed {
	s := bytes.Repeat([]byte{seed}, ed25519.SeedSize)
	priv := ed25519.NewKeyFromSeed(s)
	return &Feed{
		ID:   ssb.FeedID(priv.Public().(ed25519.PublicKey)),
		priv: priv,
	}
}

// Options overrides fields of the next message. Zero values mean "derive normally".
type Options struct {
	Content   string  // Raw JSON content; defaults to a post
	Timestamp float64 // Asserted timestamp; defaults to the sequence number
	Previous  *string // Overrides the previous id; a pointer to "" writes null
	Sequence  int64   // Overrides the sequence number
}

// Publish appends a post with the given text and asserted timestamp.
func (f *Feed) Publish(text string, timestamp float64) Message {
	return f.PublishWith(Options{
		Content:   fmt.Sprintf(`{"type":"post","text":%s}`, strconv.Quote(text)),
		Timestamp: timestamp,
	})
}

// PublishWith appends a message, applying overrides. The feed state always
// advances to the published message, even when the overrides break the chain.
func (f *Feed) PublishWith(opts Options) Message {
	seq := f.seq + 1
	if opts.Sequence != 0 {
		seq = opts.Sequence
	}
	content := opts.Content
	if content == "" {
		content = `{"type":"post","text":"hello"}`
	}
	timestamp := opts.Timestamp
	if timestamp == 0 {
		timestamp = float64(seq)
	}

	previous := "null"
	switch {
	case opts.Previous != nil && *opts.Previous != "":
		previous = strconv.Quote(*opts.Previous)
	case opts.Previous == nil && f.prevID != "":
		previous = strconv.Quote(f.prevID)
	}

	unsigned := fmt.Sprintf(`{"previous":%s,"author":%q,"sequence":%d,"timestamp":%s,"hash":"sha256","content":%s}`,
		previous, f.ID, seq, strconv.FormatFloat(timestamp, 'f', -1, 64), content)

	text, err := ssb.Canonical([]byte(unsigned))
	if err != nil {
		panic(fmt.Sprintf("ssbtest: encode value: %v", err))
	}
	sig := ed25519.Sign(f.priv, text)

	var value bytes.Buffer
	value.Write(text[:len(text)-2]) // drop the closing "\n}"
	fmt.Fprintf(&value, ",\n  \"signature\": %q\n}", ssb.EncodeSignature(sig))

	key, err := ssb.MessageID(value.Bytes())
	if err != nil {
		panic(fmt.Sprintf("ssbtest: hash value: %v", err))
	}

	f.seq = seq
	f.prevID = key

	raw := fmt.Appendf(nil, `{"key":%q,"value":%s,"timestamp":%s}`,
		key, value.Bytes(), strconv.FormatFloat(timestamp+0.5, 'f', -1, 64))

	return Message{Key: key, Value: value.Bytes(), Raw: raw}
}

// Tamper returns a copy of raw with the first occurrence of old replaced by replacement.
// Use it to invalidate a signature without touching the framing.
func Tamper(raw []byte, old, replacement string) []byte {
	out := bytes.Replace(raw, []byte(old), []byte(replacement), 1)
	if bytes.Equal(out, raw) {
		panic(fmt.Sprintf("ssbtest: %q not found in message", old))
	}
	return out
}
