package internal

import (
	"context"
	"net/http"
)

const (
	// TokenParam is the request var that may carry an auth token.
	TokenParam = "token"
	// DefaultSecurityIDParam is the security id var used when no source is configured.
	DefaultSecurityIDParam = "SecurityID"
)

// SecurityTokenSource issues and checks session-bound security ids.
type SecurityTokenSource interface {
	// Name is the request var carrying the security id.
	Name() string
	// Check reports whether value is the id issued for the session.
	Check(sessionID, value string) bool
}

// MessageValidator verifies a signed request on behalf of an identity.
type MessageValidator interface {
	ValidateMessage(ctx context.Context, r *http.Request, body []byte, identityID string) error
}

// WebserviceAuthenticator is the coarse gate in front of the access policy.
type WebserviceAuthenticator struct {
	tokens            *TokenAuthenticator
	securityTokens    SecurityTokenSource
	validator         MessageValidator
	tokenExtractor    Extractor
	allowPublicAccess bool
	allowSecurityID   bool
}

// WebserviceAuthOption configures a WebserviceAuthenticator.
type WebserviceAuthOption func(*WebserviceAuthenticator)

// WithPublicAccessAllowed lets anonymous callers through the gate.
// Per-method public flags still apply.
func WithPublicAccessAllowed(allow bool) WebserviceAuthOption {
	return func(a *WebserviceAuthenticator) {
		a.allowPublicAccess = allow
	}
}

// WithSecurityIDCheck toggles the security id check for session callers.
func WithSecurityIDCheck(enabled bool) WebserviceAuthOption {
	return func(a *WebserviceAuthenticator) {
		a.allowSecurityID = enabled
	}
}

// WithSecurityTokenSource sets the security id source.
func WithSecurityTokenSource(src SecurityTokenSource) WebserviceAuthOption {
	return func(a *WebserviceAuthenticator) {
		a.securityTokens = src
	}
}

// WithMessageValidatorCheck sets the validator applied to identified callers.
func WithMessageValidatorCheck(v MessageValidator) WebserviceAuthOption {
	return func(a *WebserviceAuthenticator) {
		a.validator = v
	}
}

// NewWebserviceAuthenticator creates the gate. tokens may be nil, in which
// case every supplied token is rejected.
func NewWebserviceAuthenticator(tokens *TokenAuthenticator, opts ...WebserviceAuthOption) *WebserviceAuthenticator {
	header := DefaultTokenHeader
	if tokens != nil {
		header = tokens.Header()
	}
	a := &WebserviceAuthenticator{
		tokens:          tokens,
		allowSecurityID: true,
		tokenExtractor:  NewExtractor(FromVar(TokenParam), FromHeader(header), FromBearerToken()),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Authenticate admits or rejects the request. A successful token login
// installs the identity into the request scope of ctx.
func (a *WebserviceAuthenticator) Authenticate(ctx context.Context, rc *RequestContext) error {
	identity := CurrentIdentity(ctx)
	token, hasToken := a.tokenExtractor.Extract(rc)

	switch {
	case (identity == nil && !a.allowPublicAccess) || hasToken:
		if !hasToken {
			return ErrAuthenticationRequired("Missing token parameter")
		}
		if a.tokens == nil {
			return ErrInvalidCredential("Invalid user token")
		}
		resolved, err := a.tokens.AuthenticateToken(ctx, token)
		if err != nil {
			return err
		}
		if resolved == nil {
			return ErrInvalidCredential("Invalid user token")
		}
		LogIn(ctx, resolved)
		identity = resolved

	case identity != nil && a.allowSecurityID:
		if !a.checkSecurityID(ctx, rc) {
			return ErrForbidden("Invalid security ID")
		}
	}

	if identity == nil && !a.allowPublicAccess {
		return ErrAuthenticationRequired("Invalid request")
	}

	if identity != nil && a.validator != nil {
		if err := a.validator.ValidateMessage(ctx, rc.Request(), rc.Body, identity.IdentityID()); err != nil {
			return ErrInvalidCredential("Invalid message", WithCause(err))
		}
	}

	return nil
}

// checkSecurityID rejects a supplied security id that does not match the
// one issued for the current session. An absent id passes.
func (a *WebserviceAuthenticator) checkSecurityID(ctx context.Context, rc *RequestContext) bool {
	name := DefaultSecurityIDParam
	if a.securityTokens != nil {
		name = a.securityTokens.Name()
	}
	value, ok := NewExtractor(FromVar(name)).Extract(rc)
	if !ok {
		return true
	}
	if a.securityTokens == nil {
		return false
	}
	return a.securityTokens.Check(SessionIDFromContext(ctx), value)
}
