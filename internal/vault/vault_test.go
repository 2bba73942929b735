package vault

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestVault(t *testing.T) *Vault {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vault.db")
	v, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = v.Close() })
	return v
}

func TestStoreThenRetrieve(t *testing.T) {
	v := openTestVault(t)
	ctx := context.Background()

	require.NoError(t, v.Store(ctx, "pssh-1", "kid1:key1", "wv"))

	key, ok, err := v.Retrieve(ctx, "pssh-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "kid1:key1", key)
}

func TestStoreReplacesOnSecondWrite(t *testing.T) {
	v := openTestVault(t)
	ctx := context.Background()

	require.NoError(t, v.Store(ctx, "pssh-1", "kid1:key1", "wv"))
	require.NoError(t, v.Store(ctx, "pssh-1", "kid1:key2", "cdrm_wv"))

	key, drmType, ok, err := v.RetrieveWithDrm(ctx, "pssh-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "kid1:key2", key)
	require.Equal(t, "cdrm_wv", drmType)
}

func TestRetrieveMissingIsAbsent(t *testing.T) {
	v := openTestVault(t)
	_, ok, err := v.Retrieve(context.Background(), "nope")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestContains(t *testing.T) {
	v := openTestVault(t)
	ctx := context.Background()
	ok, err := v.Contains(ctx, "pssh-x")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, v.Store(ctx, "pssh-x", "k", "mspr"))
	ok, err = v.Contains(ctx, "pssh-x")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestListByDrm(t *testing.T) {
	v := openTestVault(t)
	ctx := context.Background()
	require.NoError(t, v.Store(ctx, "a", "ka", "wv"))
	require.NoError(t, v.Store(ctx, "b", "kb", "wv"))
	require.NoError(t, v.Store(ctx, "c", "kc", "mspr"))

	entries, err := v.ListByDrm(ctx, "wv")
	require.NoError(t, err)
	require.Len(t, entries, 2)
}
