package snapshot

import "errors"

var (
	// ErrStorage is returned when a snapshot cannot be read, encoded or written.
	ErrStorage = errors.New("snapshot: storage failure")

	// ErrNotFound is returned when a live or backup snapshot is absent or empty.
	ErrNotFound = errors.New("snapshot: not found")

	// ErrInvalidKey is returned for empty, absolute or escaping keys.
	ErrInvalidKey = errors.New("snapshot: invalid key")
)
