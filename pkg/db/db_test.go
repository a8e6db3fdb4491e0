package db_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/apigate/pkg/db"
)

func TestConnect_BadConfig(t *testing.T) {
	t.Parallel()

	_, err := db.Connect(context.Background(), db.Config{ConnectionString: "://nope"})
	require.ErrorIs(t, err, db.ErrFailedToParseDBConfig)
}

func TestConnect_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := db.Connect(ctx, db.Config{
		ConnectionString: "postgres://u:p@127.0.0.1:1/db?connect_timeout=1",
		RetryAttempts:    3,
	})
	require.ErrorIs(t, err, db.ErrFailedToOpenDBConnection)
}

func TestHealthcheck_NilPool(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, db.Healthcheck(nil)(context.Background()), db.ErrHealthcheckFailed)
}
