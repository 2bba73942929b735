package imagefetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFetchImageWritesFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("jpeg-bytes"))
	}))
	defer srv.Close()

	f := New(srv.Client())
	dest := filepath.Join(t.TempDir(), "photo.jpg")

	err := f.FetchImage(context.Background(), srv.URL+"/a.jpg", dest)
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, "jpeg-bytes", string(data))
}

func TestFetchImageReturnsErrorOnNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := New(srv.Client())
	dest := filepath.Join(t.TempDir(), "photo.jpg")

	err := f.FetchImage(context.Background(), srv.URL+"/missing.jpg", dest)
	require.Error(t, err)
}
