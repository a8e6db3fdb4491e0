// Package securitytoken issues session-bound anti-forgery ids.
//
// The id is an HMAC-SHA256 of the session id under a server secret. The
// gateway reads it from the request var returned by Name and compares it
// with Check:
//
//	tokens, err := securitytoken.New([]byte(os.Getenv("SECURITY_SECRET")))
//	value := tokens.Value(sess.ID) // hand to the client
//	ok := tokens.Check(sess.ID, r.FormValue(tokens.Name()))
package securitytoken
