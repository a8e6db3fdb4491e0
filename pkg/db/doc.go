// Package db provides PostgreSQL pool, migration and transaction helpers
// built on [github.com/jackc/pgx/v5/pgxpool] and [github.com/pressly/goose/v3].
//
// Settings come from the environment (see [Config]):
//
//	DATABASE_URL                - PostgreSQL connection URL (required)
//	DATABASE_MAX_CONNS          - Maximum open connections (default: 10)
//	DATABASE_MIN_CONNS          - Minimum idle connections (default: 2)
//	DATABASE_MIGRATIONS_TABLE   - Migration version table (default: apigate_migrations)
//	DATABASE_RETRY_ATTEMPTS     - Connection retry attempts (default: 3)
//	DATABASE_RETRY_INTERVAL     - Base retry interval (default: 5s)
//
// Usage:
//
//	var cfg db.Config
//	if err := env.Parse(&cfg); err != nil { ... }
//	pool, err := db.Connect(ctx, cfg)
//	if err != nil { ... }
//	if err := db.Migrate(ctx, pool, pgstore.Migrations(), cfg.MigrationsTable, log); err != nil { ... }
//
// Register [Healthcheck] with the readiness endpoint and [Shutdown] as a
// shutdown hook.
package db
