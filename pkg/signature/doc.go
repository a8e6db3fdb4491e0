// Package signature validates HMAC-SHA256 signed requests.
//
// A client signs
//
//	METHOD \n REQUEST-URI \n TIMESTAMP \n hex(sha256(body))
//
// with its identity's secret and sends the hex digest in X-Signature and
// the Unix timestamp in X-Timestamp. The Validator recomputes the digest,
// rejects timestamps outside the allowed skew and, with a replay cache,
// signatures it has already accepted:
//
//	v := signature.New(secrets,
//	    signature.WithMaxSkew(2*time.Minute),
//	    signature.WithReplayCache(cache.NewRedis[bool](rdb, "sig:", 0)),
//	)
//	app, err := apigate.New(apigate.WithMessageValidator(v), ...)
//
// Sign produces the headers on the client side.
package signature
