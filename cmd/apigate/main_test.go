package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/apigate"
	"github.com/dmitrymomot/apigate/pkg/pgstore"
)

func TestDefaultRules(t *testing.T) {
	t.Parallel()

	rules, err := loadRules("")
	require.NoError(t, err)
	require.Equal(t, "accounts.manage", rules["accounts"]["rotateToken"].Permission)
	require.Equal(t, "whoami", rules["accounts"]["me"].Call)

	app, err := apigate.New(
		apigate.WithServices(newAccountService(nil, nil)),
		apigate.WithRules(rules),
		apigate.WithPermissionChecker(roles),
	)
	require.NoError(t, err)

	var names []string
	for _, e := range apigate.Endpoints(app) {
		names = append(names, e.Method)
	}
	require.ElementsMatch(t, []string{
		"whoami", "me", "show", "create", "setRole", "rotateToken", "revokeToken", "signingSecret",
	}, names)

	w := httptest.NewRecorder()
	app.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/accounts/show/accountID/1/accountClass/Account", nil))
	require.Equal(t, http.StatusForbidden, w.Code)

	var env struct {
		Status int `json:"status"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.Equal(t, http.StatusForbidden, env.Status)
}

func TestRoles(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	admin := pgstore.Identity{ID: "1", RoleName: "admin"}
	auditor := pgstore.Identity{ID: "2", RoleName: "auditor"}

	require.True(t, roles.HasPermission(ctx, admin, string(permAccountsManage)))
	require.True(t, roles.HasPermission(ctx, auditor, string(permAccountsRead)))
	require.False(t, roles.HasPermission(ctx, auditor, string(permAccountsManage)))
	require.False(t, roles.HasPermission(ctx, nil, string(permAccountsRead)))
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/db")
	t.Setenv("GATEWAY_PREFIX", "/rpc")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("IDENTITY_CACHE_TTL", "30s")

	cfg, err := loadConfig()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.Addr)
	require.Equal(t, "/rpc", cfg.Prefix)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	require.Equal(t, 30*time.Second, cfg.IdentityTTL)
	require.Equal(t, 12*time.Hour, cfg.CORSMaxAge)
	require.Equal(t, "apigate_migrations", cfg.DB.MigrationsTable)
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, apigate.DefaultTokenHeader, cfg.TokenHeader)
}

func TestLoadConfig_MissingDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := loadConfig()
	require.Error(t, err)
}
