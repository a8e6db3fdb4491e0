package internal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"slices"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

// Registry errors.
var (
	ErrServiceNameRequired = errors.New("registry: service name is required")
	ErrServiceHandlerNil   = errors.New("registry: service handler is nil")
	ErrServiceExists       = errors.New("registry: service already registered")
	ErrMethodNotFound      = errors.New("registry: method not found")
	ErrInvalidSignature    = errors.New("registry: unsupported method signature")
	ErrInvalidRule         = errors.New("registry: invalid access rule")
)

var (
	contextType = reflect.TypeFor[context.Context]()
	errorType   = reflect.TypeFor[error]()
)

// MethodAccessRule controls how an exposed method may be called.
type MethodAccessRule struct {
	// Verb is GET or POST. Empty means GET.
	Verb string `yaml:"type" json:"type"`
	// Permission is an optional permission code the caller must hold.
	Permission string `yaml:"perm" json:"perm,omitempty"`
	// Call is the internal method name when it differs from the exposed one.
	Call string `yaml:"call" json:"call,omitempty"`
	// Match is a regular expression applied to the path after the method name.
	// Named groups become arguments.
	Match string `yaml:"match" json:"match,omitempty"`
	// Public allows anonymous callers.
	Public bool `yaml:"public" json:"public"`
	// Raw writes the method result verbatim instead of an envelope.
	Raw bool `yaml:"raw" json:"raw,omitempty"`
}

// EffectiveVerb returns the normalized verb of the rule.
func (r MethodAccessRule) EffectiveVerb() string {
	if v := strings.ToUpper(strings.TrimSpace(r.Verb)); v != "" {
		return v
	}
	return http.MethodGet
}

// Param declares a method parameter. Go keeps no parameter names at runtime,
// so every exposed method lists its parameters in positional order.
// A leading context.Context argument is injected and never declared.
type Param struct {
	Default  any
	Name     string
	Optional bool
}

// Required declares a required parameter.
func Required(name string) Param {
	return Param{Name: name}
}

// Optional declares an optional parameter with a default value.
func Optional(name string, def any) Param {
	return Param{Name: name, Optional: true, Default: def}
}

// Service describes a backend object whose methods are exposed over HTTP.
//
// Example:
//
//	apigate.Service{
//	    Name:    "pages",
//	    Handler: pagesSvc,
//	    Rules: map[string]apigate.MethodAccessRule{
//	        "list":   {Verb: "GET", Public: true},
//	        "update": {Verb: "POST", Permission: "pages.write"},
//	    },
//	    Params: map[string][]apigate.Param{
//	        "update": {apigate.Required("page"), apigate.Optional("title", "")},
//	    },
//	}
type Service struct {
	Handler any
	// Rules is the method whitelist keyed by exposed name.
	Rules map[string]MethodAccessRule
	// Params declares parameters keyed by internal method name.
	Params map[string][]Param
	Name   string
}

// method is a callable, validated service method.
type method struct {
	fn           reflect.Value
	argTypes     []reflect.Type
	params       []Param
	name         string
	takesContext bool
	returnsValue bool
	returnsError bool
}

// registeredService is a validated Service with its callable method table.
type registeredService struct {
	Service
	methods  map[string]*method
	matchers map[string]*regexp.Regexp
}

// method looks up a callable method by its internal (wire) name.
func (s *registeredService) method(call string) (*method, bool) {
	m, ok := s.methods[goMethodName(call)]
	return m, ok
}

// hasWhitelist reports whether the service restricts its invocable methods.
func (s *registeredService) hasWhitelist() bool {
	return len(s.Rules) > 0
}

// Registry maps stable service keys to registered services.
// It is safe for concurrent use.
type Registry struct {
	services map[string]*registeredService
	mu       sync.RWMutex
}

// NewRegistry creates an empty service registry.
func NewRegistry() *Registry {
	return &Registry{services: make(map[string]*registeredService)}
}

// Register validates svc and adds it to the registry.
// Every rule must point at an existing method whose declared parameters
// match the method's arity.
func (r *Registry) Register(svc Service) error {
	if strings.TrimSpace(svc.Name) == "" {
		return ErrServiceNameRequired
	}
	if svc.Handler == nil {
		return fmt.Errorf("%w: %s", ErrServiceHandlerNil, svc.Name)
	}

	rs, err := buildService(svc)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.services[svc.Name]; exists {
		return fmt.Errorf("%w: %s", ErrServiceExists, svc.Name)
	}
	r.services[svc.Name] = rs
	return nil
}

// MustRegister registers services and panics on the first error.
func (r *Registry) MustRegister(svcs ...Service) {
	for _, svc := range svcs {
		if err := r.Register(svc); err != nil {
			panic(err)
		}
	}
}

func (r *Registry) lookup(name string) (*registeredService, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.services[name]
	return s, ok
}

// Lookup returns the registered service with the given name.
func (r *Registry) Lookup(name string) (Service, bool) {
	s, ok := r.lookup(name)
	if !ok {
		return Service{}, false
	}
	return s.Service, true
}

// Services returns all registered services sorted by name.
func (r *Registry) Services() []Service {
	r.mu.RLock()
	out := make([]Service, 0, len(r.services))
	for _, s := range r.services {
		out = append(out, s.Service)
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b Service) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

func buildService(svc Service) (*registeredService, error) {
	rs := &registeredService{
		Service:  svc,
		methods:  make(map[string]*method),
		matchers: make(map[string]*regexp.Regexp),
	}

	declared := make(map[string][]Param, len(svc.Params))
	for name, params := range svc.Params {
		declared[goMethodName(name)] = params
	}

	hv := reflect.ValueOf(svc.Handler)
	ht := hv.Type()
	for i := range ht.NumMethod() {
		m := ht.Method(i)
		params, hasParams := declared[m.Name]
		built, err := buildMethod(m.Name, hv.Method(i), params)
		if err != nil {
			// Undeclared helper methods are simply not callable; declared
			// ones must be valid.
			if hasParams {
				return nil, fmt.Errorf("%s.%s: %w", svc.Name, m.Name, err)
			}
			continue
		}
		rs.methods[m.Name] = built
	}

	for exposed, rule := range svc.Rules {
		call := exposed
		if rule.Call != "" {
			call = rule.Call
		}
		if _, ok := rs.method(call); !ok {
			return nil, fmt.Errorf("%w: %s.%s (exposed as %q)", ErrMethodNotFound, svc.Name, call, exposed)
		}
		switch rule.EffectiveVerb() {
		case http.MethodGet, http.MethodPost:
		default:
			return nil, fmt.Errorf("%w: %s.%s: verb %q", ErrInvalidRule, svc.Name, exposed, rule.Verb)
		}
		if rule.Match != "" {
			re, err := regexp.Compile("^(?:" + rule.Match + ")$")
			if err != nil {
				return nil, fmt.Errorf("%w: %s.%s: match: %w", ErrInvalidRule, svc.Name, exposed, err)
			}
			rs.matchers[exposed] = re
		}
	}

	return rs, nil
}

func buildMethod(name string, fn reflect.Value, params []Param) (*method, error) {
	ft := fn.Type()
	m := &method{fn: fn, name: name, params: params}

	start := 0
	if ft.NumIn() > 0 && ft.In(0) == contextType {
		m.takesContext = true
		start = 1
	}
	if ft.IsVariadic() {
		return nil, fmt.Errorf("%w: variadic methods are not supported", ErrInvalidSignature)
	}
	for i := start; i < ft.NumIn(); i++ {
		m.argTypes = append(m.argTypes, ft.In(i))
	}
	if len(m.argTypes) != len(params) {
		return nil, fmt.Errorf("%w: %d parameters declared, method takes %d", ErrInvalidSignature, len(params), len(m.argTypes))
	}
	for i, p := range params {
		if p.Name == "" {
			return nil, fmt.Errorf("%w: parameter %d has no name", ErrInvalidSignature, i)
		}
		if p.Optional && p.Default != nil {
			if _, err := convertArg(p.Default, m.argTypes[i]); err != nil {
				return nil, fmt.Errorf("%w: default of %s: %w", ErrInvalidSignature, p.Name, err)
			}
		}
	}

	switch ft.NumOut() {
	case 0:
	case 1:
		if ft.Out(0) == errorType {
			m.returnsError = true
		} else {
			m.returnsValue = true
		}
	case 2:
		if ft.Out(1) != errorType {
			return nil, fmt.Errorf("%w: second result must be error", ErrInvalidSignature)
		}
		m.returnsValue = true
		m.returnsError = true
	default:
		return nil, fmt.Errorf("%w: too many results", ErrInvalidSignature)
	}

	return m, nil
}

// goMethodName maps a wire method name to the exported Go method name by
// upper-casing its first rune.
func goMethodName(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return name
	}
	return string(unicode.ToUpper(r)) + name[size:]
}
