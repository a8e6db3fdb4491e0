package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

var (
	bytesType  = reflect.TypeFor[[]byte]()
	readerType = reflect.TypeFor[*bytes.Reader]()
)

// fileParam is bound to the raw request body on POST.
const fileParam = "file"

// Binder turns request data into method arguments.
type Binder struct {
	entities *EntityRegistry
}

// NewBinder creates a Binder that resolves entity references through entities.
// A nil registry binds every entity parameter to nil.
func NewBinder(entities *EntityRegistry) *Binder {
	return &Binder{entities: entities}
}

// Args builds the named argument set of a request.
//
// Vars of the effective verb come first (query for GET, form for POST),
// replaced by the JSON body when there are none. Then either the match
// pattern's named groups or the remaining path pairs are added.
func (b *Binder) Args(rc *RequestContext, match *regexp.Regexp, pattern string) (map[string]any, error) {
	args := make(map[string]any)
	for key, values := range rc.Vars() {
		if key == "url" || len(values) == 0 {
			continue
		}
		if name, ok := strings.CutSuffix(key, "[]"); ok {
			args[name] = append([]string(nil), values...)
			continue
		}
		if len(values) == 1 {
			args[key] = values[0]
		} else {
			args[key] = append([]string(nil), values...)
		}
	}

	if rc.IsJSON() && len(args) == 0 && len(rc.Body) > 0 {
		decoded, err := decodeJSONArgs(rc.Body)
		if err != nil {
			return nil, err
		}
		args = decoded
	}

	if match != nil {
		remaining := unescapeSegment(rc.Remaining)
		groups := match.FindStringSubmatch(remaining)
		if groups == nil {
			return nil, ErrBadRequest("Invalid URL structure to meet " + pattern)
		}
		for i, name := range match.SubexpNames() {
			if name != "" {
				args[name] = groups[i]
			}
		}
		return args, nil
	}

	if rc.Remaining != "" {
		segments := strings.Split(rc.Remaining, "/")
		for i := 0; i+1 < len(segments); i += 2 {
			key, val := unescapeSegment(segments[i]), unescapeSegment(segments[i+1])
			if key == "" || val == "" {
				continue
			}
			if _, exists := args[key]; !exists {
				args[key] = val
			}
		}
	}

	return args, nil
}

func decodeJSONArgs(body []byte) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, ErrBadRequest("Invalid JSON body", WithCause(err))
	}
	if params, ok := obj["params"].(map[string]any); ok {
		return params, nil
	}
	if obj == nil {
		obj = make(map[string]any)
	}
	return obj, nil
}

// Bind resolves every declared parameter of m from args, in order.
func (b *Binder) Bind(ctx context.Context, rc *RequestContext, service string, m *method, args map[string]any) ([]reflect.Value, error) {
	values := make([]reflect.Value, len(m.params))
	for i, p := range m.params {
		t := m.argTypes[i]

		if isEntityType(t) {
			v, err := b.bindEntity(ctx, p.Name, t, args)
			if err != nil {
				return nil, err
			}
			values[i] = v
			continue
		}

		if raw, ok := args[p.Name]; ok {
			v, err := convertArg(raw, t)
			if err != nil {
				return nil, ErrBadRequest("Invalid value for parameter "+p.Name, WithCause(err))
			}
			values[i] = v
			continue
		}

		if p.Name == fileParam && rc.EffectiveVerb == http.MethodPost {
			v, err := bindBody(rc.Body, t)
			if err != nil {
				return nil, ErrBadRequest("Invalid value for parameter "+p.Name, WithCause(err))
			}
			values[i] = v
			continue
		}

		if p.Optional {
			v, err := convertArg(p.Default, t)
			if err != nil {
				return nil, ErrInternal("Invalid default for parameter "+p.Name, WithCause(err))
			}
			values[i] = v
			continue
		}

		return nil, ErrMissingParameter(fmt.Sprintf("Service method %s.%s expects parameter %s", service, m.name, p.Name))
	}
	return values, nil
}

// bindEntity resolves an entity reference from <name>ID and <name>Class.
// Anything short of a loaded, viewable entity of the right type binds nil.
func (b *Binder) bindEntity(ctx context.Context, name string, t reflect.Type, args map[string]any) (reflect.Value, error) {
	nilValue := reflect.Zero(t)

	class := argString(args[name+"Class"])
	if class == "" {
		return reflect.Value{}, ErrMissingArgument("Missing argument " + name)
	}

	id := argString(args[name+"ID"])
	if id == "" {
		return nilValue, nil
	}

	resolver, ok := b.entities.Resolver(class)
	if !ok {
		return nilValue, nil
	}

	entity, err := resolver.LoadByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrEntityNotFound) {
			return nilValue, nil
		}
		return reflect.Value{}, err
	}
	if entity == nil || !resolver.CanView(ctx, CurrentIdentity(ctx), entity) {
		return nilValue, nil
	}

	rv := reflect.ValueOf(entity)
	if !rv.Type().AssignableTo(t) {
		return nilValue, nil
	}
	out := reflect.New(t).Elem()
	out.Set(rv)
	return out, nil
}

// bindBody binds the raw request body to a file parameter.
func bindBody(body []byte, t reflect.Type) (reflect.Value, error) {
	switch {
	case t == bytesType:
		return reflect.ValueOf(body), nil
	case t.Kind() == reflect.Interface && readerType.Implements(t):
		out := reflect.New(t).Elem()
		out.Set(reflect.ValueOf(bytes.NewReader(body)))
		return out, nil
	default:
		return convertArg(string(body), t)
	}
}

func argString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []string:
		if len(s) == 0 {
			return ""
		}
		return s[len(s)-1]
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprint(s)
	}
}
