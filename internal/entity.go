package internal

import (
	"context"
	"errors"
	"reflect"
	"sync"
)

// ErrEntityNotFound is returned by resolvers when no entity has the given id.
var ErrEntityNotFound = errors.New("entity not found")

var entityType = reflect.TypeFor[Entity]()

// Entity is a persisted domain object that can be referenced by id.
type Entity interface {
	EntityID() string
}

// EntityResolver loads entities of one concrete type.
type EntityResolver interface {
	// LoadByID returns the entity or ErrEntityNotFound.
	LoadByID(ctx context.Context, id string) (Entity, error)
	// CanView reports whether the identity (nil for anonymous) may see the entity.
	CanView(ctx context.Context, identity Identity, entity Entity) bool
}

// EntityFunc builds an EntityResolver from two functions.
// A nil canView allows everyone.
func EntityFunc(
	load func(ctx context.Context, id string) (Entity, error),
	canView func(ctx context.Context, identity Identity, entity Entity) bool,
) EntityResolver {
	return entityFunc{load: load, canView: canView}
}

type entityFunc struct {
	load    func(context.Context, string) (Entity, error)
	canView func(context.Context, Identity, Entity) bool
}

func (f entityFunc) LoadByID(ctx context.Context, id string) (Entity, error) {
	return f.load(ctx, id)
}

func (f entityFunc) CanView(ctx context.Context, identity Identity, entity Entity) bool {
	if f.canView == nil {
		return true
	}
	return f.canView(ctx, identity, entity)
}

// EntityRegistry maps wire discriminators to resolvers.
type EntityRegistry struct {
	resolvers map[string]EntityResolver
	mu        sync.RWMutex
}

// NewEntityRegistry creates an empty entity registry.
func NewEntityRegistry() *EntityRegistry {
	return &EntityRegistry{resolvers: make(map[string]EntityResolver)}
}

// Register binds a discriminator (e.g. "Page") to a resolver.
// A later registration replaces an earlier one.
func (r *EntityRegistry) Register(discriminator string, resolver EntityResolver) {
	r.mu.Lock()
	r.resolvers[discriminator] = resolver
	r.mu.Unlock()
}

// Resolver returns the resolver for discriminator.
func (r *EntityRegistry) Resolver(discriminator string) (EntityResolver, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.resolvers[discriminator]
	return res, ok
}

// isEntityType reports whether a parameter of type t is bound by entity reference.
func isEntityType(t reflect.Type) bool {
	return t.Implements(entityType)
}
