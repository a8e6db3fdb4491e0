package internal

import (
	"net/http"
	"slices"
	"strings"
)

// DefaultEndpointsPath is the listing path below the gateway prefix.
const DefaultEndpointsPath = "_endpoints"

// Endpoint describes one whitelisted method.
type Endpoint struct {
	Service    string `json:"service"`
	Method     string `json:"method"`
	Verb       string `json:"verb"`
	Permission string `json:"permission,omitempty"`
	Match      string `json:"match,omitempty"`
	Public     bool   `json:"public"`
	Raw        bool   `json:"raw,omitempty"`
}

// Endpoints lists the whitelisted methods of every registered service,
// sorted by service and method.
func Endpoints(r *Registry) []Endpoint {
	var out []Endpoint
	for _, svc := range r.Services() {
		for name, rule := range svc.Rules {
			out = append(out, Endpoint{
				Service:    svc.Name,
				Method:     name,
				Verb:       rule.EffectiveVerb(),
				Permission: rule.Permission,
				Match:      rule.Match,
				Public:     rule.Public,
				Raw:        rule.Raw,
			})
		}
	}
	slices.SortFunc(out, func(a, b Endpoint) int {
		if c := strings.Compare(a.Service, b.Service); c != 0 {
			return c
		}
		return strings.Compare(a.Method, b.Method)
	})
	return out
}

// EndpointsHandler serves the endpoint listing as an envelope.
func EndpointsHandler(r *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		items := Endpoints(r)
		if items == nil {
			items = []Endpoint{}
		}
		_ = WriteSuccess(w, map[string]any{"items": items})
	}
}
