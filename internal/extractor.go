package internal

import "strings"

// ExtractorSource extracts a value from the request.
// Returns the value and true if found, or ("", false) if not present.
type ExtractorSource = func(*RequestContext) (string, bool)

// Extractor tries multiple sources in order and returns the first match.
type Extractor struct {
	sources []ExtractorSource
}

// NewExtractor creates an Extractor that tries the given sources in order.
func NewExtractor(sources ...ExtractorSource) Extractor {
	return Extractor{sources: sources}
}

// Extract iterates sources in order and returns the first non-empty value.
// Returns ("", false) if all sources miss.
func (e Extractor) Extract(rc *RequestContext) (string, bool) {
	for _, src := range e.sources {
		if v, ok := src(rc); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// FromHeader returns a source that reads from a request header.
func FromHeader(name string) ExtractorSource {
	return func(rc *RequestContext) (string, bool) {
		v := rc.Header.Get(name)
		if v == "" {
			return "", false
		}
		return v, true
	}
}

// FromQuery returns a source that reads from a query parameter.
func FromQuery(name string) ExtractorSource {
	return func(rc *RequestContext) (string, bool) {
		v := rc.Query.Get(name)
		if v == "" {
			return "", false
		}
		return v, true
	}
}

// FromForm returns a source that reads from a form field.
func FromForm(name string) ExtractorSource {
	return func(rc *RequestContext) (string, bool) {
		v := rc.Form.Get(name)
		if v == "" {
			return "", false
		}
		return v, true
	}
}

// FromBearerToken returns a source that reads a Bearer token from the Authorization header.
// Uses case-insensitive comparison on the "Bearer " prefix.
func FromBearerToken() ExtractorSource {
	return func(rc *RequestContext) (string, bool) {
		auth := rc.Header.Get("Authorization")
		if len(auth) < 7 || !strings.EqualFold(auth[:7], "bearer ") {
			return "", false
		}
		token := auth[7:]
		if token == "" {
			return "", false
		}
		return token, true
	}
}

// FromVar returns a source that reads a request var: query first, then form.
func FromVar(name string) ExtractorSource {
	q, f := FromQuery(name), FromForm(name)
	return func(rc *RequestContext) (string, bool) {
		if v, ok := q(rc); ok {
			return v, true
		}
		return f(rc)
	}
}
