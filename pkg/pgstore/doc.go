// Package pgstore stores gateway identities and their token credentials in
// PostgreSQL.
//
// The identities table keeps, per identity, its role, the salted token hash
// with the algorithm that produced it, a regenerate flag set by RevokeToken,
// and an optional request signing secret. The schema ships as embedded goose
// migrations:
//
//	store := pgstore.New(pool, pgstore.WithIdentityCache(cache.NewRedis[pgstore.Identity](rdb, "ident:", 0), time.Minute))
//	if err := store.Migrate(ctx, "apigate_migrations", log); err != nil {
//	    return err
//	}
//
//	app, err := apigate.New(
//	    apigate.WithCredentialStore(store),
//	    apigate.WithSession(sessions, store),
//	    apigate.WithMessageValidator(signature.New(store, signature.WithOptionalSignature())),
//	)
//
// Identity implements apigate.RoleIdentity, so WithPermissions grants codes
// by the stored role.
package pgstore
