//go:build integration

package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wrkledger/pkg/domain"
	"wrkledger/pkg/platform/sentinel"
	"wrkledger/pkg/testutil/containers"
)

func TestPostgresAuthzStore(t *testing.T) {
	ctx := context.Background()
	pg := containers.NewPostgresContainer(t)
	require.NoError(t, pg.Apply(ctx, Schema))

	store := New(pg.DB)
	admin, err := domain.ParseAddress("0x1a5b8a59c528458a640d7018c1e806dfb96cbada")
	require.NoError(t, err)
	delegate, err := domain.ParseAddress("0x14723a09acff6d2a60dcdf7aa4aff308fddc160c")
	require.NoError(t, err)

	_, err = store.Admin(ctx)
	require.ErrorIs(t, err, sentinel.ErrNotFound)

	require.NoError(t, store.SetAdmin(ctx, admin))
	got, err := store.Admin(ctx)
	require.NoError(t, err)
	assert.Equal(t, admin, got)

	ok, err := store.Contains(ctx, delegate)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Add(ctx, delegate))
	require.NoError(t, store.Add(ctx, delegate), "re-adding is idempotent")

	ok, err = store.Contains(ctx, delegate)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.Remove(ctx, delegate))
	ok, err = store.Contains(ctx, delegate)
	require.NoError(t, err)
	assert.False(t, ok)
}
