package domain

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// ErrInvalidConfig marks configuration that cannot be defaulted (e.g. a non-positive count).
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUpstream wraps failures talking to the review source; fatal for a run.
	ErrUpstream = errors.New("review source unavailable")
)
