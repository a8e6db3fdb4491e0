// Command apigate serves identity administration over the apigate gateway.
//
// Usage:
//
//	apigate                       serve the gateway
//	apigate token <id> [role]     create the identity if needed and print a fresh token
package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/apigate"
	"github.com/dmitrymomot/apigate/middlewares"
	"github.com/dmitrymomot/apigate/pkg/cache"
	"github.com/dmitrymomot/apigate/pkg/db"
	"github.com/dmitrymomot/apigate/pkg/logger"
	"github.com/dmitrymomot/apigate/pkg/pgstore"
	"github.com/dmitrymomot/apigate/pkg/redis"
	"github.com/dmitrymomot/apigate/pkg/securitytoken"
	"github.com/dmitrymomot/apigate/pkg/session"
	"github.com/dmitrymomot/apigate/pkg/signature"
	"github.com/dmitrymomot/apigate/pkg/tokenhash"
)

//go:embed rules.yaml
var defaultRules embed.FS

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log, flush, err := logger.Setup(cfg.Log, os.Stdout,
		middlewares.RequestIDExtractor(),
		apigate.IdentityExtractor(),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	args := os.Args[1:]
	if len(args) > 0 && args[0] == "token" {
		err = issueToken(context.Background(), cfg, log, args[1:])
	} else {
		err = serve(cfg, log, flush)
	}
	if err != nil {
		log.Error("application error", slog.String("error", err.Error()))
		_ = flush(context.Background())
		os.Exit(1)
	}
}

func serve(cfg Config, log *slog.Logger, flush func(context.Context) error) error {
	ctx := context.Background()

	hasher, err := tokenhash.New(tokenhash.WithAlgorithm(cfg.TokenAlgorithm))
	if err != nil {
		return err
	}

	rules, err := loadRules(cfg.RulesFile)
	if err != nil {
		return err
	}

	issuer, err := securityTokens(cfg.SecurityKey)
	if err != nil {
		return err
	}

	pool, err := db.Connect(ctx, cfg.DB)
	if err != nil {
		return err
	}

	identities, sessions, replays, rdb, err := caches(ctx, cfg)
	if err != nil {
		pool.Close()
		return err
	}

	store := pgstore.New(pool, pgstore.WithIdentityCache(identities, cfg.IdentityTTL))

	sm := apigate.NewSessionManager(session.NewCacheStore(sessions), store,
		apigate.WithSessionMaxAge(cfg.SessionMaxAge),
		apigate.WithSessionSecure(cfg.SessionSecure),
	)

	validator := signature.New(store,
		signature.WithOptionalSignature(),
		signature.WithMaxSkew(cfg.SignatureSkew),
		signature.WithReplayCache(replays),
	)

	opts := []apigate.Option{
		apigate.WithCustomLogger(log.With(slog.String("component", "apigate"))),
		apigate.WithPrefix(cfg.Prefix),
		apigate.WithMaxBodySize(cfg.MaxBodySize),
		apigate.WithServices(newAccountService(store, hasher)),
		apigate.WithRules(rules),
		apigate.WithEntity("Account", accountResolver(store)),
		apigate.WithCredentialStore(store),
		apigate.WithHasher(hasher),
		apigate.WithTokenHeader(cfg.TokenHeader),
		apigate.WithPermissionChecker(roles),
		apigate.WithSessionManager(sm),
		apigate.WithSecurityTokens(issuer),
		apigate.WithMessageValidator(validator),
		apigate.WithHandlers(&sessionHandler{
			sessions: sm,
			tokens:   apigate.NewTokenAuthenticator(store, hasher, cfg.TokenHeader),
			issuer:   issuer,
		}),
		apigate.WithMiddleware(
			middlewares.CORS(corsOptions(cfg)...),
			middlewares.RequestID(),
			middlewares.Recover(),
		),
		apigate.WithShutdownHook(db.Shutdown(pool)),
	}
	checks := []apigate.HealthOption{
		apigate.WithReadinessCheck("postgres", db.Healthcheck(pool)),
	}
	if cfg.PublicAccess {
		opts = append(opts, apigate.WithPublicAccess())
	}
	if cfg.Metrics {
		opts = append(opts, apigate.WithMetrics(""))
	}
	if rdb != nil {
		checks = append(checks, apigate.WithReadinessCheck("redis", redis.Healthcheck(rdb)))
		opts = append(opts, apigate.WithShutdownHook(redis.Shutdown(rdb)))
	}
	opts = append(opts, apigate.WithHealthChecks(checks...))

	app, err := apigate.New(opts...)
	if err != nil {
		pool.Close()
		return err
	}

	return app.Run(cfg.Addr,
		apigate.Logger(log),
		apigate.ShutdownTimeout(cfg.ShutdownTimeout),
		apigate.StartupHook(func(ctx context.Context) error {
			return store.Migrate(ctx, cfg.DB.MigrationsTable, log)
		}),
		apigate.ShutdownHook(flush),
	)
}

// caches picks Redis-backed caches when REDIS_URL is set and in-process
// ones otherwise. The returned client is nil in the latter case.
func caches(ctx context.Context, cfg Config) (
	cache.Cache[pgstore.Identity],
	cache.Cache[session.Session],
	cache.Cache[bool],
	goredis.UniversalClient,
	error,
) {
	if cfg.Redis.URL == "" {
		return cache.NewMemory[pgstore.Identity](cache.WithDefaultTTL(cfg.IdentityTTL)),
			cache.NewMemory[session.Session](),
			cache.NewMemory[bool](cache.WithCleanupInterval(time.Minute)),
			nil, nil
	}

	rdb, err := redis.Open(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return cache.NewRedis[pgstore.Identity](rdb, "apigate:identity:", cfg.IdentityTTL),
		cache.NewRedis[session.Session](rdb, "apigate:session:", 0),
		cache.NewRedis[bool](rdb, "apigate:sig:", cfg.SignatureSkew*2),
		rdb, nil
}

func loadRules(file string) (apigate.RuleSet, error) {
	if file == "" {
		return apigate.LoadRules(defaultRules, "rules.yaml")
	}
	return apigate.LoadRules(os.DirFS("."), file)
}

// securityTokens returns a stable issuer when a key is configured, so
// security ids survive restarts and work across replicas.
func securityTokens(key string) (*securitytoken.Issuer, error) {
	if key == "" {
		return securitytoken.NewRandom()
	}
	return securitytoken.New([]byte(key))
}

func corsOptions(cfg Config) []middlewares.CORSOption {
	opts := []middlewares.CORSOption{
		middlewares.WithAllowCredentials(),
		middlewares.WithMaxAge(cfg.CORSMaxAge),
	}
	if len(cfg.CORSOrigins) > 0 {
		opts = append(opts, middlewares.WithAllowOrigins(cfg.CORSOrigins...))
	}
	if cfg.TokenHeader != apigate.DefaultTokenHeader {
		opts = append(opts, middlewares.WithAllowHeaders(
			"Origin", "Content-Type", "Accept", "Authorization", cfg.TokenHeader,
			"X-Signature", "X-Timestamp", "X-Request-ID",
		))
	}
	return opts
}

func issueToken(ctx context.Context, cfg Config, log *slog.Logger, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: apigate token <id> [role]")
	}
	id, role := args[0], ""
	if len(args) > 1 {
		role = args[1]
	}

	pool, err := db.Connect(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer pool.Close()

	store := pgstore.New(pool)
	if err := store.Migrate(ctx, cfg.DB.MigrationsTable, log); err != nil {
		return err
	}

	hasher, err := tokenhash.New(tokenhash.WithAlgorithm(cfg.TokenAlgorithm))
	if err != nil {
		return err
	}

	switch err := store.Create(ctx, id, role); {
	case errors.Is(err, pgstore.ErrExists):
		if role != "" {
			if err := store.SetRole(ctx, id, role); err != nil {
				return err
			}
		}
	case err != nil:
		return err
	}

	token, err := store.RegenerateToken(ctx, id, hasher)
	if err != nil {
		return err
	}
	log.Info("token issued", slog.String("identity_id", id), slog.String("algorithm", hasher.Algorithm()))
	_, err = fmt.Fprintln(os.Stdout, token)
	return err
}
