package pipeline

import "errors"

var (
	// ErrEmptyLog is returned when the source log holds no entries
	ErrEmptyLog = errors.New("input offset log file is empty")
	// ErrDestinationExists is returned when the destination exists and overwrite was not requested
	ErrDestinationExists = errors.New("output path exists")
	// ErrInconsistentSource is returned when an offset seen in an earlier pass can no longer be read
	ErrInconsistentSource = errors.New("source log changed between passes")
)

// IsRefusal reports whether err is a handled refusal rather than a failure.
func IsRefusal(err error) bool {
	return errors.Is(err, ErrEmptyLog) || errors.Is(err, ErrDestinationExists)
}
