package gitsync

import "errors"

var (
	// ErrCommitFailed is returned when staging or committing fails.
	ErrCommitFailed = errors.New("gitsync: commit failed")

	// ErrPushFailed is returned when the push to the remote fails.
	ErrPushFailed = errors.New("gitsync: push failed")

	// ErrOutsideRepo is returned when a path lies outside the repository.
	ErrOutsideRepo = errors.New("gitsync: path outside repository")
)
