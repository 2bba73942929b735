package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/berrizdl/core/internal/cookies"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *cookies.Store {
	t.Helper()
	dir := t.TempDir()
	return cookies.New(filepath.Join(dir, "cookies.txt"), filepath.Join(dir, "cache.json"))
}

func TestEnsureSessionSkipsRefreshWhenFresh(t *testing.T) {
	store := newTestStore(t)
	var tc cookies.TokenCache
	tc.CacheCookie.BzA = "still-fresh"
	tc.CacheCookie.RefreshTime = time.Now().Add(45 * time.Minute)
	require.NoError(t, store.SaveTokenCache(tc))

	refreshCalled := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refreshCalled = true
		_ = json.NewEncoder(w).Encode(map[string]any{"code": "0000"})
	}))
	defer srv.Close()

	c, err := New(store, Endpoints{RefreshURL: srv.URL}, Credentials{}, "client-id", nil)
	require.NoError(t, err)

	require.NoError(t, c.EnsureSession(context.Background()))
	require.False(t, refreshCalled)
}

func TestEnsureSessionRefreshesWhenStale(t *testing.T) {
	store := newTestStore(t)
	var tc0 cookies.TokenCache
	tc0.CacheCookie.BzA = "stale"
	tc0.CacheCookie.RefreshTime = time.Now().Add(-time.Minute)
	require.NoError(t, store.SaveTokenCache(tc0))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"code": "0000",
			"data": map[string]string{"accessToken": "new-access", "refreshToken": "new-refresh"},
		})
	}))
	defer srv.Close()

	c, err := New(store, Endpoints{RefreshURL: srv.URL}, Credentials{}, "client-id", nil)
	require.NoError(t, err)

	require.NoError(t, c.EnsureSession(context.Background()))
	require.Equal(t, StateAuthed, c.State())

	tc, err := store.LoadTokenCache()
	require.NoError(t, err)
	require.Equal(t, "new-access", tc.CacheCookie.BzA)
	require.Equal(t, "new-refresh", tc.CacheCookie.BzR)
}

func TestRefreshFallsBackToLoginOnInvalidToken(t *testing.T) {
	store := newTestStore(t)

	var mux http.ServeMux
	mux.HandleFunc("/refresh", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"code": "FS_AU4021"})
	})
	mux.HandleFunc("/authorize-init", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{"authorizeKey": "ak"}})
	})
	mux.HandleFunc("/authenticate", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"code": "0000", "data": map[string]string{"authenticateKey": "auk"}})
	})
	mux.HandleFunc("/authorize", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "https://berriz.example/auth/token?code=abc123")
		w.WriteHeader(http.StatusFound)
	})
	mux.HandleFunc("/token-issue", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"code": "0000",
			"data": map[string]string{"accessToken": "logged-in-access", "refreshToken": "logged-in-refresh"},
		})
	})
	srv := httptest.NewServer(&mux)
	defer srv.Close()

	c, err := New(store, Endpoints{
		RefreshURL:       srv.URL + "/refresh",
		AuthorizeInitURL: srv.URL + "/authorize-init",
		AuthenticateURL:  srv.URL + "/authenticate",
		AuthorizeURL:     srv.URL + "/authorize",
		TokenIssueURL:    srv.URL + "/token-issue",
	}, Credentials{Email: "fan@example.com", Password: "hunter2"}, "client-id", nil)
	require.NoError(t, err)

	require.NoError(t, c.Refresh(context.Background()))
	require.Equal(t, StateAuthed, c.State())

	tc, err := store.LoadTokenCache()
	require.NoError(t, err)
	require.Equal(t, "logged-in-access", tc.CacheCookie.BzA)
}

func TestAccountSuspendedInvokesUnbanFlow(t *testing.T) {
	store := newTestStore(t)

	var mux http.ServeMux
	mux.HandleFunc("/refresh", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"code": "FS_AU4021"})
	})
	mux.HandleFunc("/account-exists", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"code": "FS_AU4030"})
	})
	srv := httptest.NewServer(&mux)
	defer srv.Close()

	unbanCalled := false
	unban := func(ctx context.Context, email string) error {
		unbanCalled = true
		return os.ErrClosed
	}

	c, err := New(store, Endpoints{
		RefreshURL:       srv.URL + "/refresh",
		AccountExistsURL: srv.URL + "/account-exists",
	}, Credentials{Email: "banned@example.com"}, "client-id", unban)
	require.NoError(t, err)

	err = c.Refresh(context.Background())
	require.Error(t, err)
	require.True(t, unbanCalled)
	require.Equal(t, StateTerminal, c.State())
}
