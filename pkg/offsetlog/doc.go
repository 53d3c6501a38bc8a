// Package offsetlog provides interfaces for append-only, offset-addressed logs.
//
// This package defines the core abstractions for the feedlog storage component:
//   - Entry: a single stored payload together with the byte offset of its frame
//   - Log: read access by offset, in both directions
//   - Writer: a Log that also supports atomic append
//
// The interfaces use Go idioms:
//   - io.Closer for resource cleanup
//   - Explicit error returns with sentinel errors that work with errors.Is
//   - Offsets are plain uint64 byte positions; an offset is never reused
//
// Example usage:
//
//	// Append a payload; its offset is the End() value before the call
//	end, err := w.Append(data)
//	if err != nil {
//		return err
//	}
//
//	// Random access by offset
//	entry, err := log.Get(0)
//	if err != nil {
//		return err
//	}
//
//	// Walk forward
//	for off := uint64(0); off < log.End(); {
//		entry, next, err := log.ReadForward(off)
//		if err != nil {
//			return err
//		}
//		process(entry)
//		off = next
//	}
//
// Entries whose payload is entirely zero bytes are padding left behind by
// deletions. They keep their offset but carry no message, so every consumer
// that looks at message content must skip them (see Entry.IsPadding).
package offsetlog
