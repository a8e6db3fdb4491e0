package signature

import "errors"

var (
	ErrNoSecret         = errors.New("signature: identity has no signing secret")
	ErrMissingSignature = errors.New("signature: missing signature")
	ErrMissingTimestamp = errors.New("signature: missing or invalid timestamp")
	ErrTimestampSkew    = errors.New("signature: timestamp outside allowed window")
	ErrBadSignature     = errors.New("signature: signature mismatch")
	ErrReplayed         = errors.New("signature: signature already used")
)
