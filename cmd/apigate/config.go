package main

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/dmitrymomot/apigate/pkg/db"
	"github.com/dmitrymomot/apigate/pkg/logger"
	"github.com/dmitrymomot/apigate/pkg/redis"
)

// Config is the process configuration, read from the environment.
type Config struct {
	Addr            string        `env:"ADDRESS" envDefault:":8080"`
	Prefix          string        `env:"GATEWAY_PREFIX" envDefault:"/api"`
	RulesFile       string        `env:"RULES_FILE"`
	TokenHeader     string        `env:"TOKEN_HEADER" envDefault:"X-Auth-Token"`
	TokenAlgorithm  string        `env:"TOKEN_ALGORITHM" envDefault:"argon2id"`
	CORSOrigins     []string      `env:"CORS_ORIGINS" envSeparator:","`
	CORSMaxAge      time.Duration `env:"CORS_MAX_AGE" envDefault:"12h"`
	SecurityKey     string        `env:"SECURITY_ID_KEY"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
	IdentityTTL     time.Duration `env:"IDENTITY_CACHE_TTL" envDefault:"1m"`
	SignatureSkew   time.Duration `env:"SIGNATURE_MAX_SKEW" envDefault:"5m"`
	MaxBodySize     int64         `env:"MAX_BODY_SIZE" envDefault:"4194304"`
	SessionMaxAge   int           `env:"SESSION_MAX_AGE" envDefault:"2592000"`
	SessionSecure   bool          `env:"SESSION_SECURE" envDefault:"true"`
	PublicAccess    bool          `env:"PUBLIC_ACCESS" envDefault:"true"`
	Metrics         bool          `env:"METRICS_ENABLED" envDefault:"true"`

	Log   logger.Config
	DB    db.Config
	Redis redis.Config
}

func loadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
