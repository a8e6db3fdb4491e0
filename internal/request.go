package internal

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
)

// DefaultMaxBodySize is the request body limit used when none is configured.
const DefaultMaxBodySize int64 = 10 << 20

// RequestContext is an immutable view of a gateway request.
type RequestContext struct {
	req *http.Request

	Query  url.Values
	Form   url.Values
	Header http.Header

	// Verb is the actual HTTP method.
	Verb string
	// EffectiveVerb is POST when the body is non-empty, else Verb.
	EffectiveVerb string
	Service       string
	Method        string
	// Remaining is the escaped path after the method segment, without
	// leading or trailing slashes.
	Remaining   string
	ContentType string
	Body        []byte
}

// NewRequestContext reads r once and builds a RequestContext.
// tail is the escaped path below the gateway prefix, e.g. "pages/update/id/5".
// The body is limited to maxBody bytes; zero or less means DefaultMaxBodySize.
func NewRequestContext(w http.ResponseWriter, r *http.Request, tail string, maxBody int64) (*RequestContext, error) {
	if maxBody <= 0 {
		maxBody = DefaultMaxBodySize
	}

	rc := &RequestContext{
		req:         r,
		Verb:        r.Method,
		Query:       r.URL.Query(),
		Form:        url.Values{},
		Header:      r.Header,
		ContentType: r.Header.Get("Content-Type"),
	}

	segments := strings.SplitN(strings.Trim(tail, "/"), "/", 3)
	if len(segments) > 0 {
		rc.Service = unescapeSegment(segments[0])
	}
	if len(segments) > 1 {
		rc.Method = unescapeSegment(segments[1])
	}
	if len(segments) > 2 {
		rc.Remaining = strings.Trim(segments[2], "/")
	}

	if r.Body != nil && r.Body != http.NoBody {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				return nil, ErrBadRequest("Request body too large", WithCause(err))
			}
			return nil, ErrBadRequest("Invalid request body", WithCause(err))
		}
		rc.Body = body
		r.Body = io.NopCloser(bytes.NewReader(body))
	}

	rc.EffectiveVerb = rc.Verb
	if len(rc.Body) > 0 {
		rc.EffectiveVerb = http.MethodPost
	}

	if err := rc.parseForm(maxBody); err != nil {
		return nil, err
	}

	return rc, nil
}

func (rc *RequestContext) parseForm(maxBody int64) error {
	if len(rc.Body) == 0 {
		return nil
	}

	mediaType, _, _ := mime.ParseMediaType(rc.ContentType)
	switch mediaType {
	case "application/x-www-form-urlencoded":
		form, err := url.ParseQuery(string(rc.Body))
		if err != nil {
			return ErrBadRequest("Invalid form body", WithCause(err))
		}
		rc.Form = form
	case "multipart/form-data":
		if err := rc.req.ParseMultipartForm(maxBody); err != nil {
			return ErrBadRequest("Invalid form body", WithCause(err))
		}
		if rc.req.MultipartForm != nil {
			rc.Form = url.Values(rc.req.MultipartForm.Value)
		}
		rc.req.Body = io.NopCloser(bytes.NewReader(rc.Body))
	}
	return nil
}

// Request returns the underlying *http.Request.
func (rc *RequestContext) Request() *http.Request {
	return rc.req
}

// Context returns the request's context.Context.
func (rc *RequestContext) Context() context.Context {
	return rc.req.Context()
}

// Vars returns the request vars for the effective verb:
// query vars for GET, form vars for POST.
func (rc *RequestContext) Vars() url.Values {
	if rc.EffectiveVerb == http.MethodPost {
		return rc.Form
	}
	return rc.Query
}

// IsJSON reports whether the request declares a JSON body.
func (rc *RequestContext) IsJSON() bool {
	return strings.Contains(strings.ToLower(rc.ContentType), "application/json")
}

func unescapeSegment(s string) string {
	if u, err := url.PathUnescape(s); err == nil {
		return u
	}
	return s
}
