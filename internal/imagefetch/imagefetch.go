// Package imagefetch implements Pipeline's ImageFetcher collaborator: a
// plain, cookie-less GET used for photo/post/notice images, which carry
// no DRM and need none of HttpClient's session/proxy machinery.
package imagefetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/berrizdl/core/internal/retry"
)

// Fetcher downloads a single image URL to a local path, with the same
// per-request retry policy SegmentDownloader uses for stream segments.
type Fetcher struct {
	http *http.Client
}

// New builds a Fetcher. A nil client falls back to http.DefaultClient.
func New(httpClient *http.Client) *Fetcher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Fetcher{http: httpClient}
}

// FetchImage satisfies pipeline.ImageFetcher.
func (f *Fetcher) FetchImage(ctx context.Context, url, path string) error {
	policy := retry.SegmentPolicy(func(error) bool { return true })
	return retry.Do(ctx, policy, func(ctx context.Context, attempt int) error {
		return f.fetchOnce(ctx, url, path)
	})
}

func (f *Fetcher) fetchOnce(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("imagefetch: %s returned status %d", url, resp.StatusCode)
	}

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, resp.Body)
	return err
}
