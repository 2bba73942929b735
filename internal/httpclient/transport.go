// Package httpclient implements the HttpClient (spec.md §4.3): an
// HTTP/2-capable, cookie-aware client with retry, proxy rotation and
// 401-triggered token refresh. The base *http.Client construction is
// grounded on the teacher's internal/platform/httpx.NewClient hardened
// transport.
package httpclient

import (
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/net/http2"
)

// newTransport builds a hardened *http.Transport with explicit dial,
// TLS-handshake, response-header and idle-connection timeouts, and
// attempts HTTP/2 upgrade (spec.md §4.3).
func newTransport(connectTimeout time.Duration) *http.Transport {
	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}
	t := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: connectTimeout, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   connectTimeout,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	// Best-effort HTTP/2 configuration; failures here just mean the
	// transport falls back to HTTP/1.1 via ForceAttemptHTTP2's negotiation.
	_ = http2.ConfigureTransport(t)
	return t
}

// rotatingTransport wraps a base *http.Transport and lets the current proxy
// selector be swapped between requests without mutating the base
// transport's Proxy field while another goroutine's RoundTrip is reading
// it. Each RoundTrip clones the base transport under lock before use, so
// concurrent segment requests never race on a shared Proxy field.
type rotatingTransport struct {
	mu    sync.Mutex
	base  *http.Transport
	proxy func(*http.Request) (*url.URL, error)
}

func newRotatingTransport(connectTimeout time.Duration) *rotatingTransport {
	return &rotatingTransport{base: newTransport(connectTimeout)}
}

func (t *rotatingTransport) setProxy(fn func(*http.Request) (*url.URL, error)) {
	t.mu.Lock()
	t.proxy = fn
	t.mu.Unlock()
}

func (t *rotatingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.mu.Lock()
	proxyFn := t.proxy
	t.mu.Unlock()

	if proxyFn == nil {
		return t.base.RoundTrip(req)
	}
	rt := t.base.Clone()
	rt.Proxy = proxyFn
	return rt.RoundTrip(req)
}
