package community

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/berrizdl/core/internal/httpclient"
)

type stubSession struct{}

func (stubSession) Cookies(ctx context.Context) ([]*http.Cookie, error) { return nil, nil }
func (stubSession) Refresh(ctx context.Context) error                   { return nil }

func TestResolveFromCacheFile(t *testing.T) {
	dir := t.TempDir()
	cachePath := filepath.Join(dir, "community_keys.json")
	require.NoError(t, os.WriteFile(cachePath, []byte(`[{"communityKey":"ive","communityId":101,"name":"IVE"}]`), 0o644))

	r := New(httpclient.New(stubSession{}, 0), cachePath)

	byKey, err := r.Resolve(context.Background(), "IVE")
	require.NoError(t, err)
	require.Equal(t, int64(101), byKey.ID)

	byID, err := r.Resolve(context.Background(), "101")
	require.NoError(t, err)
	require.Equal(t, "ive", byID.Key)
}

func TestResolveFallsBackToHomeEndpointOnMiss(t *testing.T) {
	dir := t.TempDir()
	cachePath := filepath.Join(dir, "community_keys.json")

	var calls int
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, req *http.Request) {
		calls++
		fmt.Fprint(w, `{"code":"0000","data":{"active":[{"communityId":202,"communityKey":"tempest","title":"Tempest"}]}}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	r := New(httpclient.New(stubSession{}, 0), cachePath)
	r.overrideHomeEndpoint(srv.URL)

	res, err := r.Resolve(context.Background(), "tempest")
	require.NoError(t, err)
	require.Equal(t, int64(202), res.ID)
	require.Equal(t, 1, calls)

	raw, err := os.ReadFile(cachePath)
	require.NoError(t, err)
	require.Contains(t, string(raw), "tempest")
}

func TestResolveUnknownErrors(t *testing.T) {
	dir := t.TempDir()
	cachePath := filepath.Join(dir, "community_keys.json")
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, req *http.Request) {
		fmt.Fprint(w, `{"code":"0000","data":{"active":[]}}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	r := New(httpclient.New(stubSession{}, 0), cachePath)
	r.overrideHomeEndpoint(srv.URL)

	_, err := r.Resolve(context.Background(), "nonexistent")
	require.Error(t, err)
}
