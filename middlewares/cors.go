package middlewares

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrymomot/apigate/internal"
)

// DefaultCORSMaxAge is how long browsers may cache a preflight answer.
const DefaultCORSMaxAge = 12 * time.Hour

// DefaultCORSHeaders are the request headers a gateway client may send.
var DefaultCORSHeaders = []string{
	"Origin", "Content-Type", "Accept", "Authorization",
	internal.DefaultTokenHeader, "X-Signature", "X-Timestamp", "X-Request-ID",
}

// Gateway methods are only ever called with GET or POST.
const corsMethods = "GET, POST, OPTIONS"

type corsPolicy struct {
	origins     []string
	headers     []string
	credentials bool
	maxAge      time.Duration
}

// CORSOption configures the CORS middleware.
type CORSOption func(*corsPolicy)

// WithAllowOrigins limits CORS to the listed origins. "*" allows any.
func WithAllowOrigins(origins ...string) CORSOption {
	return func(p *corsPolicy) {
		p.origins = origins
	}
}

// WithAllowHeaders replaces DefaultCORSHeaders.
func WithAllowHeaders(headers ...string) CORSOption {
	return func(p *corsPolicy) {
		p.headers = headers
	}
}

// WithAllowCredentials lets browsers send the session cookie. The request
// origin is echoed back instead of "*".
func WithAllowCredentials() CORSOption {
	return func(p *corsPolicy) {
		p.credentials = true
	}
}

// WithMaxAge sets the preflight cache duration. Zero omits the header.
func WithMaxAge(d time.Duration) CORSOption {
	return func(p *corsPolicy) {
		p.maxAge = d
	}
}

// CORS answers preflight requests and adds CORS headers to gateway
// responses. Requests from origins that are not allowed pass through
// without headers, so the browser blocks them.
func CORS(opts ...CORSOption) internal.Middleware {
	p := &corsPolicy{
		origins: []string{"*"},
		headers: DefaultCORSHeaders,
		maxAge:  DefaultCORSMaxAge,
	}
	for _, opt := range opts {
		opt(p)
	}

	anyOrigin := slices.Contains(p.origins, "*")
	allowHeaders := strings.Join(p.headers, ", ")
	maxAge := strconv.Itoa(int(p.maxAge.Seconds()))

	return func(next internal.HandlerFunc) internal.HandlerFunc {
		return func(c internal.Context) error {
			origin := c.Header("Origin")
			if origin == "" || (!anyOrigin && !slices.Contains(p.origins, origin)) {
				return next(c)
			}

			h := c.Response().Header()
			h.Add("Vary", "Origin")
			if anyOrigin && !p.credentials {
				h.Set("Access-Control-Allow-Origin", "*")
			} else {
				h.Set("Access-Control-Allow-Origin", origin)
			}
			if p.credentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			h.Set("Access-Control-Expose-Headers", "X-Request-ID")

			if c.Request().Method != http.MethodOptions {
				return next(c)
			}

			h.Add("Vary", "Access-Control-Request-Method")
			h.Add("Vary", "Access-Control-Request-Headers")
			h.Set("Access-Control-Allow-Methods", corsMethods)
			h.Set("Access-Control-Allow-Headers", allowHeaders)
			if p.maxAge > 0 {
				h.Set("Access-Control-Max-Age", maxAge)
			}
			c.Response().WriteHeader(http.StatusNoContent)
			return nil
		}
	}
}
