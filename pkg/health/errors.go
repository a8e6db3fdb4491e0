package health

import "errors"

var (
	// ErrCheckFailed wraps the error of a failed check.
	ErrCheckFailed = errors.New("health: check failed")

	// ErrCheckTimeout is reported for checks that exceed the timeout.
	ErrCheckTimeout = errors.New("health: check timeout")
)
