package pgstore

import "errors"

var (
	ErrNotFound = errors.New("pgstore: identity not found")
	ErrExists   = errors.New("pgstore: identity already exists")
	ErrEmptyID  = errors.New("pgstore: empty identity id")
)
