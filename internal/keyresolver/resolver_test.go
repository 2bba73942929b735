package keyresolver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/berrizdl/core/internal/domain"
	"github.com/berrizdl/core/internal/drm"
	"github.com/berrizdl/core/internal/vault"
)

func newTestVault(t *testing.T) *vault.Vault {
	t.Helper()
	v, err := vault.Open(filepath.Join(t.TempDir(), "vault.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = v.Close() })
	return v
}

func TestGetKeysReturnsVaultHitWithoutCallingDRM(t *testing.T) {
	v := newTestVault(t)
	require.NoError(t, v.Store(context.Background(), "pssh-a", "kid1:key1", "wv"))

	d := drm.New(drm.Config{Backend: domain.BackendWidevineLocal}, http.DefaultClient, nil, nil)
	r := New(v, d)

	set := domain.PsshSet{Widevine: []string{"pssh-a"}}
	pctx := domain.PlaybackContext{IsDRM: true, Assertion: "tok", LicenseURLs: domain.LicenseURLs{Widevine: "https://lic"}}

	keys, err := r.GetKeys(context.Background(), pctx, set, nil, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"kid1:key1"}, keys)
}

func TestGetKeysDispatchesToDRMOnMissAndPersists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"message":"kid2:key2"}`)
	}))
	defer srv.Close()

	v := newTestVault(t)
	d := drm.New(drm.Config{Backend: domain.BackendCDRMWidevine, CdrmEndpoint: srv.URL}, http.DefaultClient, nil, nil)
	r := New(v, d)

	set := domain.PsshSet{Widevine: []string{"pssh-b"}}
	pctx := domain.PlaybackContext{IsDRM: true, Assertion: "tok", LicenseURLs: domain.LicenseURLs{Widevine: "https://lic"}}

	keys, err := r.GetKeys(context.Background(), pctx, set, nil, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"kid2:key2"}, keys)

	stored, ok, err := v.Retrieve(context.Background(), "pssh-b")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "kid2:key2", stored)
}

func TestGetKeysNoLicenseURLErrors(t *testing.T) {
	v := newTestVault(t)
	d := drm.New(drm.Config{Backend: domain.BackendWidevineLocal}, http.DefaultClient, nil, nil)
	r := New(v, d)

	set := domain.PsshSet{Widevine: []string{"pssh-c"}}
	pctx := domain.PlaybackContext{IsDRM: true, Assertion: "tok"}

	_, err := r.GetKeys(context.Background(), pctx, set, nil, nil)
	require.ErrorIs(t, err, domain.ErrNoLicenseURL)
}
