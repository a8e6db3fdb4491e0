package main

import (
	"time"

	"github.com/dmitrymomot/apigate"
	"github.com/dmitrymomot/apigate/pkg/securitytoken"
)

// sessionHandler trades a token for a session cookie, for browser clients
// that should not keep the token around.
type sessionHandler struct {
	sessions *apigate.SessionManager
	tokens   *apigate.TokenAuthenticator
	issuer   *securitytoken.Issuer
}

func (h *sessionHandler) Routes(r apigate.Router) {
	r.POST("/session", h.create)
	r.DELETE("/session", h.destroy)
}

// create authenticates the token header and opens a session. The response
// carries the security id the client must send with session calls.
func (h *sessionHandler) create(c apigate.Context) error {
	identity, err := h.tokens.AuthenticateRequest(c.Context(), c.Request())
	if err != nil {
		return err
	}
	if identity == nil {
		return apigate.ErrForbidden("Invalid token")
	}

	sess, err := h.sessions.CreateSession(c.Context(), identity)
	if err != nil {
		return err
	}
	h.sessions.SaveSession(c.Response(), sess)

	c.LogInfo("session created", "identity_id", identity.IdentityID())
	return apigate.WriteSuccess(c.Response(), map[string]string{
		"identity":      identity.IdentityID(),
		"expires_at":    sess.ExpiresAt.UTC().Format(time.RFC3339),
		h.issuer.Name(): h.issuer.Value(sess.ID),
	})
}

func (h *sessionHandler) destroy(c apigate.Context) error {
	_, sess, err := h.sessions.Identify(c.Context(), c.Request())
	if err != nil {
		return err
	}
	if err := h.sessions.DeleteSession(c.Context(), c.Response(), sess); err != nil {
		return err
	}
	return apigate.WriteSuccess(c.Response(), nil)
}
