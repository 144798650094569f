package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tumioparbe/web/internal/storage"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}

	b, err := Open(context.Background(), databaseURL)
	require.NoError(t, err, "database open must succeed; check DATABASE_URL and that test DB exists")
	t.Cleanup(func() { _ = b.Close() })

	_, err = b.db.Exec("TRUNCATE TABLE client_storage")
	require.NoError(t, err, "truncate client_storage")
	return b
}

func TestRedactDSN(t *testing.T) {
	got := redactDSN("postgres://web:s3cret@db:5432/web?sslmode=disable")
	assert.NotContains(t, got, "s3cret")
	assert.Contains(t, got, "@db:5432/web")
	assert.Equal(t, "(invalid DATABASE_URL)", redactDSN("://bad"))
}

func TestOpenDB_EmptyURL(t *testing.T) {
	_, err := OpenDB(context.Background(), "  ")
	require.Error(t, err)
}

func TestBackendIntegration(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	t.Run("A_MissingKey", func(t *testing.T) {
		_, err := b.Get(ctx, "sid-1", "tokens")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("B_Upsert", func(t *testing.T) {
		require.NoError(t, b.Set(ctx, "sid-1", "tokens", []byte("v1")))
		require.NoError(t, b.Set(ctx, "sid-1", "tokens", []byte("v2")))
		got, err := b.Get(ctx, "sid-1", "tokens")
		require.NoError(t, err)
		assert.Equal(t, "v2", string(got))
	})

	t.Run("C_DeleteIdempotent", func(t *testing.T) {
		require.NoError(t, b.Delete(ctx, "sid-1", "tokens"))
		require.NoError(t, b.Delete(ctx, "sid-1", "tokens"))
		_, err := b.Get(ctx, "sid-1", "tokens")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("D_Prune", func(t *testing.T) {
		require.NoError(t, b.Set(ctx, "sid-2", "user", []byte("u")))
		n, err := b.Prune(ctx, time.Now().Add(time.Hour))
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)
	})
}
