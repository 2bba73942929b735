package downloader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDownloadWritesInitAndSegments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("chunk-data"))
	}))
	defer srv.Close()

	d := New(srv.Client(), 4, nil)
	base := t.TempDir()

	res, err := d.Download(context.Background(), base, Track{
		Kind:        "video",
		InitURL:     srv.URL + "/init.mp4",
		SegmentURLs: []string{srv.URL + "/seg0", srv.URL + "/seg1", srv.URL + "/seg2"},
		Ext:         ".m4s",
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.InitPath)
	require.Len(t, res.SegPaths, 3)
	for _, p := range res.SegPaths {
		data, err := os.ReadFile(p)
		require.NoError(t, err)
		require.Equal(t, "chunk-data", string(data))
	}
}

func TestDownloadSkipsInitWhenURLTooShort(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	d := New(srv.Client(), 4, nil)
	base := t.TempDir()

	res, err := d.Download(context.Background(), base, Track{
		Kind:        "audio",
		InitURL:     "n/a", // len <= 4
		SegmentURLs: []string{srv.URL + "/a"},
		Ext:         ".ts",
	})
	require.NoError(t, err)
	require.Empty(t, res.InitPath)
	require.Equal(t, filepath.Join(base, "audio"), res.Dir)
}

func TestDownloadRemovesBaseDirOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := New(srv.Client(), 4, nil)
	base := t.TempDir()

	_, err := d.Download(context.Background(), base, Track{
		Kind:        "video",
		SegmentURLs: []string{srv.URL + "/seg0"},
		Ext:         ".m4s",
	})
	require.Error(t, err)
	_, statErr := os.Stat(base)
	require.True(t, os.IsNotExist(statErr))
}
