package bans

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	store, err := Open(filepath.Join(t.TempDir(), "bans.db"))
	require.NoError(t, err)
	return store
}

func TestCheck(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	_, banned, err := store.Check(ctx, "abc", "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, banned)

	_, err = store.Add(ctx, "abc", "", "spamming", "mod", 0)
	require.NoError(t, err)

	reason, banned, err := store.Check(ctx, "abc", "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, banned)
	assert.Equal(t, "spamming", reason)

	// A host ban applies to any hardware id.
	_, err = store.Add(ctx, "", "10.0.0.9", "evasion", "mod", 0)
	require.NoError(t, err)
	reason, banned, err = store.Check(ctx, "other", "10.0.0.9")
	require.NoError(t, err)
	assert.True(t, banned)
	assert.Equal(t, "evasion", reason)

	_, banned, err = store.Check(ctx, "other", "10.0.0.10")
	require.NoError(t, err)
	assert.False(t, banned)
}

func TestExpiry(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	_, err := store.Add(ctx, "abc", "", "cooldown", "mod", time.Hour)
	require.NoError(t, err)

	_, banned, err := store.Check(ctx, "abc", "")
	require.NoError(t, err)
	assert.True(t, banned)

	now = now.Add(2 * time.Hour)
	_, banned, err = store.Check(ctx, "abc", "")
	require.NoError(t, err)
	assert.False(t, banned)
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	ban, err := store.Add(ctx, "abc", "", "oops", "mod", 0)
	require.NoError(t, err)
	require.NoError(t, store.Remove(ctx, ban.ID))

	_, banned, err := store.Check(ctx, "abc", "")
	require.NoError(t, err)
	assert.False(t, banned)

	assert.Error(t, store.Remove(ctx, ban.ID))
	_, err = store.Add(ctx, "", "", "nobody", "mod", 0)
	assert.Error(t, err)
}
