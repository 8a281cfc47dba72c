package release

import "errors"

var (
	// ErrDuplicate is returned by Insert when the checksum is already indexed.
	// The detector treats it as a suppression, never as a failure.
	ErrDuplicate = errors.New("release: duplicate checksum")

	// ErrInvalidRecord is returned by Insert for records it cannot index.
	ErrInvalidRecord = errors.New("release: invalid record")
)
