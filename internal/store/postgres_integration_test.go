//go:build postgres_integration

package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPostgresContract(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}
	ctx := context.Background()
	p, err := NewPostgres(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	require.NoError(t, p.Migrate(ctx))
	_, err = p.db.ExecContext(ctx, `TRUNCATE readings, optimizer_config`)
	require.NoError(t, err)

	runStoreContract(t, p)
}
