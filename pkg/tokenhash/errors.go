package tokenhash

import "errors"

var (
	ErrUnknownAlgorithm = errors.New("tokenhash: unknown algorithm")
	ErrInvalidParams    = errors.New("tokenhash: invalid cost parameters")
	ErrEmptyIdentity    = errors.New("tokenhash: empty identity id")
)
