package cache

import "errors"

var (
	// ErrNotFound means the key is missing or expired. Loader treats it as a miss.
	ErrNotFound = errors.New("cache: entry not found")
	ErrClosed   = errors.New("cache: closed")

	ErrMarshal   = errors.New("cache: encode value")
	ErrUnmarshal = errors.New("cache: decode value")
)
