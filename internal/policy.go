package internal

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
)

// Permission represents a named permission code.
type Permission string

// RolePermissions maps role names to their granted permissions.
type RolePermissions = map[string][]Permission

// RoleExtractorFunc extracts the role of an identity.
type RoleExtractorFunc = func(ctx context.Context, identity Identity) string

// PermissionChecker decides whether an identity holds a permission code.
// identity is nil for anonymous callers.
type PermissionChecker interface {
	HasPermission(ctx context.Context, identity Identity, code string) bool
}

// PermissionFunc adapts a function to PermissionChecker.
type PermissionFunc func(ctx context.Context, identity Identity, code string) bool

// HasPermission implements PermissionChecker.
func (f PermissionFunc) HasPermission(ctx context.Context, identity Identity, code string) bool {
	return f(ctx, identity, code)
}

// RoleIdentity is implemented by identities that know their role.
type RoleIdentity interface {
	Identity
	Role() string
}

// RoleChecker grants permissions by role.
type RoleChecker struct {
	permissions RolePermissions
	extractor   RoleExtractorFunc
}

// NewRoleChecker creates a role based PermissionChecker.
// A nil extractor reads the role from identities implementing RoleIdentity.
func NewRoleChecker(permissions RolePermissions, extractor RoleExtractorFunc) *RoleChecker {
	if extractor == nil {
		extractor = identityRole
	}
	return &RoleChecker{permissions: permissions, extractor: extractor}
}

// HasPermission implements PermissionChecker.
func (r *RoleChecker) HasPermission(ctx context.Context, identity Identity, code string) bool {
	if identity == nil {
		return false
	}
	for _, p := range r.permissions[r.extractor(ctx, identity)] {
		if string(p) == code {
			return true
		}
	}
	return false
}

func identityRole(_ context.Context, identity Identity) string {
	if r, ok := identity.(RoleIdentity); ok {
		return r.Role()
	}
	return ""
}

// Resolution is the outcome of a successful policy evaluation.
type Resolution struct {
	Match *regexp.Regexp
	Rule  MethodAccessRule
	// Call is the internal method name.
	Call string
	Raw  bool
}

// Policy authorizes method calls against service whitelists.
type Policy struct {
	checker       PermissionChecker
	allowUnlisted bool
}

// NewPolicy creates a Policy. Rules carrying a permission code are denied
// when checker is nil.
func NewPolicy(checker PermissionChecker, allowUnlisted bool) *Policy {
	return &Policy{checker: checker, allowUnlisted: allowUnlisted}
}

// Evaluate authorizes a call of the exposed method with the effective verb.
// Checks run in order: whitelist, permission, public access, verb.
func (p *Policy) Evaluate(ctx context.Context, svc *registeredService, method, verb string) (Resolution, error) {
	if !svc.hasWhitelist() {
		if !p.allowUnlisted {
			return Resolution{}, ErrForbidden("You do not have permission to " + method)
		}
		if verb != http.MethodGet && verb != http.MethodPost {
			return Resolution{}, ErrMethodNotAllowed(fmt.Sprintf("%s does not support %s", method, verb))
		}
		return Resolution{Call: method, Rule: MethodAccessRule{Verb: verb}}, nil
	}

	rule, ok := svc.Rules[method]
	if !ok {
		return Resolution{}, ErrForbidden("You do not have permission to " + method)
	}

	identity := CurrentIdentity(ctx)

	if rule.Permission != "" {
		if p.checker == nil || !p.checker.HasPermission(ctx, identity, rule.Permission) {
			return Resolution{}, ErrForbidden("You do not have permission to " + method)
		}
	}

	if !rule.Public && identity == nil {
		return Resolution{}, ErrForbidden(fmt.Sprintf("Method %s not allowed; no public methods defined", method))
	}

	if rule.EffectiveVerb() != verb {
		return Resolution{}, ErrMethodNotAllowed(fmt.Sprintf("%s does not support %s", method, verb))
	}

	call := method
	if rule.Call != "" {
		call = rule.Call
	}
	return Resolution{
		Rule:  rule,
		Call:  call,
		Raw:   rule.Raw,
		Match: svc.matchers[method],
	}, nil
}
