// Package dbtest opens throwaway Postgres schemas for adapter tests.
package dbtest

import (
	"context"
	"courier-dispatch-service/internal/platform/db"
	"database/sql"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// EnvURL names the variable holding the test database URL.
const EnvURL = "TEST_DATABASE_URL"

// Open connects to the database named by TEST_DATABASE_URL inside a fresh
// schema that is dropped when the test ends. The test is skipped when the
// variable is unset.
func Open(t testing.TB) *sql.DB {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv(EnvURL))
	if dsn == "" {
		t.Skipf("%s not set", EnvURL)
	}
	ctx := context.Background()

	admin, err := db.Open(ctx, dsn)
	require.NoError(t, err)

	schema := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	_, err = admin.ExecContext(ctx, "CREATE SCHEMA "+schema)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = admin.ExecContext(context.Background(), "DROP SCHEMA IF EXISTS "+schema+" CASCADE")
		_ = admin.Close()
	})

	scoped, err := db.Open(ctx, withSearchPath(dsn, schema))
	require.NoError(t, err)
	t.Cleanup(func() { _ = scoped.Close() })

	return scoped
}

// withSearchPath pins every pooled connection to schema. Both URL and
// keyword/value DSNs are accepted.
func withSearchPath(dsn, schema string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err == nil {
			q := u.Query()
			q.Set("search_path", schema)
			u.RawQuery = q.Encode()
			return u.String()
		}
	}
	return dsn + " search_path=" + schema
}
