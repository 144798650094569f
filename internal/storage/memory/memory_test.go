package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tumioparbe/web/internal/storage"
)

func TestBackend_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	b := New()

	_, err := b.Get(ctx, "ns", "k")
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, b.Set(ctx, "ns", "k", []byte("v1")))
	got, err := b.Get(ctx, "ns", "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	_, err = b.Get(ctx, "other", "k")
	assert.ErrorIs(t, err, storage.ErrNotFound, "namespaces must be isolated")

	require.NoError(t, b.Delete(ctx, "ns", "k"))
	require.NoError(t, b.Delete(ctx, "ns", "k"), "delete must be idempotent")
	_, err = b.Get(ctx, "ns", "k")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestBackend_ValuesAreCopied(t *testing.T) {
	ctx := context.Background()
	b := New()

	v := []byte("abc")
	require.NoError(t, b.Set(ctx, "ns", "k", v))
	v[0] = 'x'

	got, err := b.Get(ctx, "ns", "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestScopeJSON(t *testing.T) {
	ctx := context.Background()
	s := storage.Scope(New(), "browser-1")

	type payload struct{ N int }
	require.NoError(t, storage.SetJSON(ctx, s, "p", payload{N: 7}))

	var out payload
	require.NoError(t, storage.GetJSON(ctx, s, "p", &out))
	assert.Equal(t, 7, out.N)

	require.NoError(t, s.Set(ctx, "bad", []byte("{")))
	err := storage.GetJSON(ctx, s, "bad", &out)
	require.Error(t, err)
	assert.NotErrorIs(t, err, storage.ErrNotFound)
}
