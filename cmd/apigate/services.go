package main

import (
	"context"
	"errors"

	"github.com/dmitrymomot/apigate"
	"github.com/dmitrymomot/apigate/pkg/pgstore"
	"github.com/dmitrymomot/apigate/pkg/tokenhash"
)

// Permission codes referenced from rules.yaml.
const (
	permAccountsRead   apigate.Permission = "accounts.read"
	permAccountsManage apigate.Permission = "accounts.manage"
)

var roles = apigate.NewRoleChecker(apigate.RolePermissions{
	"admin":   {permAccountsRead, permAccountsManage},
	"auditor": {permAccountsRead},
}, nil)

// account is the "Account" entity: an identity addressed through the binder
// as accountID=<id>&accountClass=Account.
type account struct {
	pgstore.Identity
}

func (a *account) EntityID() string { return a.ID }

func accountResolver(store *pgstore.Store) apigate.EntityResolver {
	load := func(ctx context.Context, id string) (apigate.Entity, error) {
		identity, err := store.LoadIdentity(ctx, id)
		if err != nil {
			return nil, err
		}
		stored, ok := identity.(pgstore.Identity)
		if !ok {
			return nil, apigate.ErrEntityNotFound
		}
		return &account{Identity: stored}, nil
	}

	// Callers see their own account; everything else needs accounts.read.
	canView := func(ctx context.Context, identity apigate.Identity, e apigate.Entity) bool {
		if identity == nil {
			return false
		}
		if identity.IdentityID() == e.EntityID() {
			return true
		}
		return roles.HasPermission(ctx, identity, string(permAccountsRead))
	}

	return apigate.EntityFunc(load, canView)
}

// accounts administers the identities table over the gateway.
type accounts struct {
	store  *pgstore.Store
	hasher *tokenhash.Hasher
}

func newAccountService(store *pgstore.Store, hasher *tokenhash.Hasher) apigate.Service {
	return apigate.Service{
		Name:    "accounts",
		Handler: &accounts{store: store, hasher: hasher},
		Params: map[string][]apigate.Param{
			"show":          {apigate.Required("account")},
			"create":        {apigate.Required("id"), apigate.Optional("role", "")},
			"setRole":       {apigate.Required("account"), apigate.Required("role")},
			"rotateToken":   {apigate.Required("account")},
			"revokeToken":   {apigate.Required("account")},
			"signingSecret": {apigate.Required("account")},
		},
	}
}

// Whoami returns the calling identity.
func (s *accounts) Whoami(ctx context.Context) (apigate.Identity, error) {
	identity := apigate.CurrentIdentity(ctx)
	if identity == nil {
		return nil, apigate.ErrForbidden("Not logged in")
	}
	return identity, nil
}

func (s *accounts) Show(a *account) (*account, error) {
	if a == nil {
		return nil, apigate.ErrNotFound("Account not found")
	}
	return a, nil
}

// Create adds an identity and returns its first token.
func (s *accounts) Create(ctx context.Context, id, role string) (map[string]string, error) {
	if err := s.store.Create(ctx, id, role); err != nil {
		return nil, storeError(err)
	}
	token, err := s.store.RegenerateToken(ctx, id, s.hasher)
	if err != nil {
		return nil, storeError(err)
	}
	return map[string]string{"id": id, "token": token}, nil
}

func (s *accounts) SetRole(ctx context.Context, a *account, role string) error {
	if a == nil {
		return apigate.ErrNotFound("Account not found")
	}
	return storeError(s.store.SetRole(ctx, a.ID, role))
}

// RotateToken replaces the account token. The old token stops working at once.
func (s *accounts) RotateToken(ctx context.Context, a *account) (string, error) {
	if a == nil {
		return "", apigate.ErrNotFound("Account not found")
	}
	token, err := s.store.RegenerateToken(ctx, a.ID, s.hasher)
	return token, storeError(err)
}

func (s *accounts) RevokeToken(ctx context.Context, a *account) error {
	if a == nil {
		return apigate.ErrNotFound("Account not found")
	}
	return storeError(s.store.RevokeToken(ctx, a.ID))
}

// SigningSecret sets a fresh request-signing secret and returns it.
func (s *accounts) SigningSecret(ctx context.Context, a *account) (string, error) {
	if a == nil {
		return "", apigate.ErrNotFound("Account not found")
	}
	secret, err := tokenhash.NewSecret()
	if err != nil {
		return "", err
	}
	if err := s.store.SetSigningSecret(ctx, a.ID, secret); err != nil {
		return "", storeError(err)
	}
	return secret, nil
}

func storeError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgstore.ErrNotFound):
		return apigate.ErrNotFound("Account not found", apigate.WithCause(err))
	case errors.Is(err, pgstore.ErrExists):
		return apigate.ErrBadRequest("Account already exists", apigate.WithCause(err))
	case errors.Is(err, pgstore.ErrEmptyID):
		return apigate.ErrBadRequest("Account id is required", apigate.WithCause(err))
	}
	return err
}
