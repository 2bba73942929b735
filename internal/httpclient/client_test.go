package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	cookies       []*http.Cookie
	refreshCalls  int
	refreshErr    error
}

func (f *fakeSession) Cookies(ctx context.Context) ([]*http.Cookie, error) {
	return f.cookies, nil
}

func (f *fakeSession) Refresh(ctx context.Context) error {
	f.refreshCalls++
	return f.refreshErr
}

func TestGetDecodesJSONSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"code": "0000", "data": "hello"})
	}))
	defer srv.Close()

	c := New(&fakeSession{}, time.Second)
	resp, err := c.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	require.True(t, resp.IsDomainSuccess())
	require.Equal(t, "hello", resp.JSON["data"])
}

func TestGetReturnsTextForNonJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("plain text body"))
	}))
	defer srv.Close()

	c := New(&fakeSession{}, time.Second)
	resp, err := c.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, "plain text body", resp.Text)
}

func Test401TriggersRefreshThenSucceeds(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"code": "0000"})
	}))
	defer srv.Close()

	session := &fakeSession{}
	c := New(session, time.Second)
	resp, err := c.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	require.True(t, resp.IsDomainSuccess())
	require.Equal(t, 1, session.refreshCalls)
	require.Equal(t, 2, calls)
}

func TestExtractHTTPStatusMatchesBothRetrySentinelShapes(t *testing.T) {
	require.Equal(t, 500, extractHTTPStatus(fmt.Errorf("http: retryable status %d", 500)))
	require.Equal(t, 403, extractHTTPStatus(fmt.Errorf("http: status %d, retrying after refresh", 403)))
	require.Equal(t, 0, extractHTTPStatus(nil))
	require.Equal(t, 0, extractHTTPStatus(fmt.Errorf("some other error")))
}

// TestConcurrentRequestsWithProxyRotationDontRace exercises rotateProxy
// alongside concurrent in-flight requests on the same Client; meant to be
// run with -race (rotatingTransport clones the base transport per
// RoundTrip instead of mutating a shared Proxy field).
func TestConcurrentRequestsWithProxyRotationDontRace(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"code": "0000"})
	}))
	defer srv.Close()

	selector := NewProxySelectorFromList([]string{"http://127.0.0.1:1"})
	c := New(&fakeSession{}, time.Second, WithProxySelector(selector))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Get(context.Background(), srv.URL)
			c.rotateProxy(&http.Request{URL: &url.URL{Scheme: "http"}})
		}()
	}
	wg.Wait()
}

func TestDomainErrorCodeIsSurfacedNotRaised(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"code": "FS_MD9000"})
	}))
	defer srv.Close()

	c := New(&fakeSession{}, time.Second)
	resp, err := c.Get(context.Background(), srv.URL)
	require.NoError(t, err) // domain errors are data, never raised (spec.md §7)
	require.False(t, resp.IsDomainSuccess())
	require.Equal(t, "FS_MD9000", resp.Code)
}
