// Package tokenhash issues API tokens and derives the hashes stored for them.
//
// A token has the form "<identityID>:<secret>". Only a salted hash of the
// secret is stored, together with the algorithm that produced it, so the
// default can change without invalidating existing tokens:
//
//	h, err := tokenhash.New()
//	issued, err := h.Issue("42")
//	// show issued.Token once; store issued.Hash, issued.Salt, issued.Algorithm
//
// Hasher plugs into the gateway with apigate.WithHasher.
package tokenhash
