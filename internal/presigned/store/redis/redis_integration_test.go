//go:build integration

package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wrkledger/pkg/platform/sentinel"
	"wrkledger/pkg/testutil/containers"
)

func TestRedisConsumedStore(t *testing.T) {
	ctx := context.Background()
	rc := containers.NewRedisContainer(t)
	require.NoError(t, rc.FlushAll(ctx))

	store := New(rc.Client)
	key := "f7c3bc1d808e04732adf679965ccc34ca7ae3441"

	consumed, err := store.IsConsumed(ctx, key)
	require.NoError(t, err)
	assert.False(t, consumed)

	require.NoError(t, store.MarkConsumed(ctx, key))

	consumed, err = store.IsConsumed(ctx, key)
	require.NoError(t, err)
	assert.True(t, consumed)

	err = store.MarkConsumed(ctx, key)
	require.ErrorIs(t, err, sentinel.ErrAlreadyUsed)

	require.NoError(t, store.Unmark(ctx, key))

	consumed, err = store.IsConsumed(ctx, key)
	require.NoError(t, err)
	assert.False(t, consumed)

	// After release the key can be consumed again.
	require.NoError(t, store.MarkConsumed(ctx, key))
}
