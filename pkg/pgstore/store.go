package pgstore

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/apigate"
	"github.com/dmitrymomot/apigate/pkg/cache"
	"github.com/dmitrymomot/apigate/pkg/db"
	"github.com/dmitrymomot/apigate/pkg/signature"
	"github.com/dmitrymomot/apigate/pkg/tokenhash"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrations returns the schema migrations, rooted at the SQL files.
func Migrations() fs.FS {
	sub, _ := fs.Sub(migrations, "migrations")
	return sub
}

// Identity is a caller stored in the identities table.
type Identity struct {
	ID       string `json:"id"`
	RoleName string `json:"role"`
}

// IdentityID implements apigate.Identity.
func (i Identity) IdentityID() string { return i.ID }

// Role implements apigate.RoleIdentity.
func (i Identity) Role() string { return i.RoleName }

// Store keeps identities and their token credentials in Postgres.
// It implements apigate.CredentialStore, apigate.IdentityLoader and
// signature.SecretSource.
type Store struct {
	pool     *pgxpool.Pool
	loader   *cache.Loader[Identity]
	cacheTTL time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithIdentityCache caches LoadIdentity results for ttl.
// Writes through the Store invalidate the cached entry.
func WithIdentityCache(c cache.Cache[Identity], ttl time.Duration) Option {
	return func(s *Store) {
		s.loader = cache.NewLoader(c)
		s.cacheTTL = ttl
	}
}

// New creates a Store over pool.
func New(pool *pgxpool.Pool, opts ...Option) *Store {
	s := &Store{pool: pool}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate applies the schema migrations.
func (s *Store) Migrate(ctx context.Context, table string, log *slog.Logger) error {
	return db.Migrate(ctx, s.pool, Migrations(), table, log)
}

// CredentialByID implements apigate.CredentialStore. Identities whose token
// was revoked are returned without a hash, so no token matches them.
func (s *Store) CredentialByID(ctx context.Context, id string) (apigate.Credential, error) {
	var (
		ident      Identity
		cred       apigate.Credential
		regenerate bool
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, role, token_hash, token_salt, token_algorithm, regenerate_token
		FROM identities WHERE id = $1`, id,
	).Scan(&ident.ID, &ident.RoleName, &cred.Hash, &cred.Salt, &cred.Algorithm, &regenerate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apigate.Credential{}, apigate.ErrCredentialNotFound
		}
		return apigate.Credential{}, fmt.Errorf("pgstore: load credential: %w", err)
	}

	cred.Identity = ident
	if regenerate {
		cred.Hash = ""
	}
	return cred, nil
}

// LoadIdentity implements apigate.IdentityLoader. An unknown id yields (nil, nil).
func (s *Store) LoadIdentity(ctx context.Context, id string) (apigate.Identity, error) {
	var (
		ident Identity
		err   error
	)
	if s.loader == nil {
		ident, err = s.identity(ctx, id)
	} else {
		ident, err = s.loader.GetOrSet(ctx, id, func(ctx context.Context) (Identity, time.Duration, error) {
			ident, err := s.identity(ctx, id)
			return ident, s.cacheTTL, err
		})
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return nil, nil
	case err != nil:
		return nil, err
	}
	return ident, nil
}

func (s *Store) identity(ctx context.Context, id string) (Identity, error) {
	var ident Identity
	err := s.pool.QueryRow(ctx, `SELECT id, role FROM identities WHERE id = $1`, id).
		Scan(&ident.ID, &ident.RoleName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Identity{}, ErrNotFound
		}
		return Identity{}, fmt.Errorf("pgstore: load identity: %w", err)
	}
	return ident, nil
}

// SigningSecret implements signature.SecretSource.
func (s *Store) SigningSecret(ctx context.Context, id string) (string, error) {
	var secret *string
	err := s.pool.QueryRow(ctx, `SELECT signing_secret FROM identities WHERE id = $1`, id).Scan(&secret)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return "", signature.ErrNoSecret
	case err != nil:
		return "", fmt.Errorf("pgstore: load signing secret: %w", err)
	case secret == nil || *secret == "":
		return "", signature.ErrNoSecret
	}
	return *secret, nil
}

// Create inserts an identity without a token.
func (s *Store) Create(ctx context.Context, id, role string) error {
	if id == "" {
		return ErrEmptyID
	}
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO identities (id, role) VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING`, id, role)
	if err != nil {
		return fmt.Errorf("pgstore: create identity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrExists
	}
	return nil
}

// SetRole changes the role of an identity.
func (s *Store) SetRole(ctx context.Context, id, role string) error {
	return s.update(ctx, id, `UPDATE identities SET role = $2, updated_at = now() WHERE id = $1`, role)
}

// SetSigningSecret stores the HMAC secret used for signed requests.
// An empty secret disables signing for the identity.
func (s *Store) SetSigningSecret(ctx context.Context, id, secret string) error {
	return s.update(ctx, id,
		`UPDATE identities SET signing_secret = NULLIF($2, ''), updated_at = now() WHERE id = $1`, secret)
}

// RevokeToken invalidates the current token until RegenerateToken runs.
func (s *Store) RevokeToken(ctx context.Context, id string) error {
	return s.update(ctx, id,
		`UPDATE identities SET regenerate_token = TRUE, updated_at = now() WHERE id = $1`)
}

// RegenerateToken issues a new token for id, replacing the stored hash.
// The returned token is the only copy of the secret.
func (s *Store) RegenerateToken(ctx context.Context, id string, hasher *tokenhash.Hasher) (string, error) {
	issued, err := hasher.Issue(id)
	if err != nil {
		return "", err
	}

	err = db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		var locked string
		err := tx.QueryRow(ctx, `SELECT id FROM identities WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE identities
			SET token_hash = $2, token_salt = $3, token_algorithm = $4,
			    regenerate_token = FALSE, updated_at = now()
			WHERE id = $1`,
			id, issued.Hash, issued.Salt, issued.Algorithm)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", err
		}
		return "", fmt.Errorf("pgstore: regenerate token: %w", err)
	}

	s.forget(ctx, id)
	return issued.Token, nil
}

func (s *Store) update(ctx context.Context, id, query string, args ...any) error {
	tag, err := s.pool.Exec(ctx, query, append([]any{id}, args...)...)
	if err != nil {
		return fmt.Errorf("pgstore: update identity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	s.forget(ctx, id)
	return nil
}

func (s *Store) forget(ctx context.Context, id string) {
	if s.loader != nil {
		_ = s.loader.Forget(ctx, id)
	}
}
