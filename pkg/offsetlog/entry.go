package offsetlog

// Entry represents a single payload stored in an offset log.
type Entry struct {
	// Offset is the byte position of the entry's frame in the log
	Offset uint64

	// Data is the raw payload exactly as it was appended
	Data []byte
}

// IsPadding reports whether the entry is a padding record.
// A payload made only of zero bytes (including an empty one) is padding.
func (e Entry) IsPadding() bool {
	for _, b := range e.Data {
		if b != 0 {
			return false
		}
	}
	return true
}

// Copy returns a deep copy of the Entry.
func (e Entry) Copy() Entry {
	dataCopy := make([]byte, len(e.Data))
	copy(dataCopy, e.Data)

	return Entry{
		Offset: e.Offset,
		Data:   dataCopy,
	}
}

// Size returns the payload size in bytes.
func (e Entry) Size() int {
	return len(e.Data)
}
