package offsetlog

import (
	"context"

	"github.com/rmacdonaldsmith/feedlog/pkg/offsetlog"
)

// Cursor walks a log in either direction.
//
// The cursor points at the entry it returned last. Next moves to the entry
// after it and Prev to the entry before it. At either boundary the call
// returns false and the position does not change, so repeated calls stay
// false. An I/O or format failure also returns false; check Err.
type Cursor struct {
	log  offsetlog.Log
	cur  uint64 // offset of the current entry
	next uint64 // offset of the entry after the current one
	has  bool
	err  error
}

// Iter returns a cursor positioned before the first entry of log.
func Iter(log offsetlog.Log) *Cursor {
	return &Cursor{log: log}
}

// Next advances to the following entry.
func (c *Cursor) Next() (offsetlog.Entry, bool) {
	if c.err != nil {
		return offsetlog.Entry{}, false
	}

	start := uint64(0)
	if c.has {
		start = c.next
	}
	if start >= c.log.End() {
		return offsetlog.Entry{}, false
	}

	entry, next, err := c.log.ReadForward(start)
	if err != nil {
		c.err = err
		return offsetlog.Entry{}, false
	}

	c.cur, c.next, c.has = entry.Offset, next, true
	return entry, true
}

// Prev steps back to the preceding entry.
func (c *Cursor) Prev() (offsetlog.Entry, bool) {
	if c.err != nil || !c.has || c.cur == 0 {
		return offsetlog.Entry{}, false
	}

	entry, err := c.log.ReadBackward(c.cur)
	if err != nil {
		c.err = err
		return offsetlog.Entry{}, false
	}

	c.next, c.cur = c.cur, entry.Offset
	return entry, true
}

// Position returns the offset of the current entry, if any.
func (c *Cursor) Position() (uint64, bool) {
	return c.cur, c.has
}

// Err returns the first read error encountered by the cursor.
func (c *Cursor) Err() error {
	return c.err
}

// Item pairs an entry with a value derived from it.
type Item[T any] struct {
	Entry offsetlog.Entry
	Value T
}

// Mapped is a Cursor that applies a transform to every entry it yields.
// The transform must depend on the entry alone so both directions agree.
type Mapped[T any] struct {
	cursor *Cursor
	fn     func(offsetlog.Entry) T
}

// Map wraps c so that each step also yields fn(entry).
func Map[T any](c *Cursor, fn func(offsetlog.Entry) T) *Mapped[T] {
	return &Mapped[T]{cursor: c, fn: fn}
}

// Next advances and returns the transformed entry.
func (m *Mapped[T]) Next() (Item[T], bool) {
	entry, ok := m.cursor.Next()
	if !ok {
		return Item[T]{}, false
	}
	return Item[T]{Entry: entry, Value: m.fn(entry)}, true
}

// Prev steps back and returns the transformed entry.
func (m *Mapped[T]) Prev() (Item[T], bool) {
	entry, ok := m.cursor.Prev()
	if !ok {
		return Item[T]{}, false
	}
	return Item[T]{Entry: entry, Value: m.fn(entry)}, true
}

// Err returns the underlying cursor error.
func (m *Mapped[T]) Err() error {
	return m.cursor.Err()
}

// Scan calls fn for every entry of log in offset order.
// The context is checked between entries; a non-nil error from fn stops the scan.
func Scan(ctx context.Context, log offsetlog.Log, fn func(offsetlog.Entry) error) error {
	c := Iter(log)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		entry, ok := c.Next()
		if !ok {
			return c.Err()
		}
		if err := fn(entry); err != nil {
			return err
		}
	}
}
