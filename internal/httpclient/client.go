package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/berrizdl/core/internal/apierr"
	"github.com/berrizdl/core/internal/log"
	"github.com/berrizdl/core/internal/retry"
)

// SessionProvider is the subset of AuthClient that HttpClient depends on,
// kept as an interface here to avoid an import cycle between the auth and
// httpclient packages (both described by spec.md §4.2/§4.3).
type SessionProvider interface {
	Cookies(ctx context.Context) ([]*http.Cookie, error)
	Refresh(ctx context.Context) error
}

// retryableStatuses is the spec.md §4.3 retry set.
var retryableStatuses = map[int]bool{
	400: true, 401: true, 403: true, 500: true, 502: true, 503: true, 504: true,
}

// Response is the decoded result of one HttpClient call. Exactly one of
// JSON or Text is populated, per spec.md §4.3's "successful response
// returns decoded JSON; on non-JSON text bodies the raw string is
// returned".
type Response struct {
	StatusCode int
	JSON       map[string]any
	Text       string
	Code       string // the domain "code" field, if JSON decoded and present
}

// IsDomainSuccess reports whether the response's domain code means success.
func (r Response) IsDomainSuccess() bool {
	return apierr.IsSuccess(r.Code)
}

// Client is the HttpClient (spec.md §4.3).
type Client struct {
	http    *http.Client
	session SessionProvider
	proxy   *ProxySelector

	userAgent string
}

// Option configures a Client.
type Option func(*Client)

// WithProxySelector attaches a proxy rotation strategy.
func WithProxySelector(p *ProxySelector) Option {
	return func(c *Client) { c.proxy = p }
}

// WithUserAgent sets the outbound User-Agent header (spec.md §6 headers.User-Agent).
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// New builds an HttpClient bound to a SessionProvider for cookie
// attachment and 401/403-triggered refresh.
func New(session SessionProvider, connectTimeout time.Duration, opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{Transport: newRotatingTransport(connectTimeout)},
		session: session,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// rotateProxy picks the next proxy and installs it on the rotating
// transport. The transport itself clones before each RoundTrip, so this
// only ever races with other calls to setProxy, which is mutex-guarded.
func (c *Client) rotateProxy(req *http.Request) {
	if c.proxy == nil {
		return
	}
	rt, ok := c.http.Transport.(*rotatingTransport)
	if !ok {
		return
	}
	if u, err := c.proxy.Next(req.URL.Scheme); err == nil && u != nil {
		rt.setProxy(http.ProxyURL(u))
	}
}

// do executes one request with cookie attachment (unless attachCookies is
// false, for manifest fetches per spec.md §4.3), retrying per the HTTP
// retry policy and triggering a session refresh + proxy rotation on
// 401/403.
func (c *Client) do(ctx context.Context, method, url string, body []byte, attachCookies bool) (*http.Response, error) {
	policy := retry.HTTPPolicy(func(err error) bool { return true })

	var resp *http.Response
	err := retry.Do(ctx, policy, func(ctx context.Context, attempt int) error {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return err
		}
		if c.userAgent != "" {
			req.Header.Set("User-Agent", c.userAgent)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		if attachCookies && c.session != nil {
			cookies, err := c.session.Cookies(ctx)
			if err == nil {
				for _, ck := range cookies {
					req.AddCookie(ck)
				}
			}
		}

		if attempt > 0 {
			c.rotateProxy(req)
		}

		r, err := c.http.Do(req)
		if err != nil {
			log.FromContext(ctx).Warn().Err(err).Int("attempt", attempt).Msg("http transport error")
			return err
		}

		if retryableStatuses[r.StatusCode] {
			if r.StatusCode == http.StatusForbidden && isTranslationEndpoint(url) {
				_ = r.Body.Close()
				return nil
			}
			if (r.StatusCode == http.StatusUnauthorized || r.StatusCode == http.StatusForbidden) && c.session != nil {
				_ = r.Body.Close()
				if refreshErr := c.session.Refresh(ctx); refreshErr != nil {
					return fmt.Errorf("http: session refresh after %d: %w", r.StatusCode, refreshErr)
				}
				return fmt.Errorf("http: status %d, retrying after refresh", r.StatusCode)
			}
			_ = r.Body.Close()
			return fmt.Errorf("http: retryable status %d", r.StatusCode)
		}

		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Get issues a GET request, cookie-attached, JSON/text decoded (spec.md §4.3).
func (c *Client) Get(ctx context.Context, url string) (Response, error) {
	return c.request(ctx, http.MethodGet, url, nil, true)
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, url string, body any) (Response, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return Response{}, fmt.Errorf("http: marshal body: %w", err)
	}
	return c.request(ctx, http.MethodPost, url, raw, true)
}

// Patch issues a PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, url string, body any) (Response, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return Response{}, fmt.Errorf("http: marshal body: %w", err)
	}
	return c.request(ctx, http.MethodPatch, url, raw, true)
}

// Options issues an OPTIONS request.
func (c *Client) Options(ctx context.Context, url string) (Response, error) {
	return c.request(ctx, http.MethodOptions, url, nil, true)
}

// FetchManifest fetches a raw manifest body without attaching cookies,
// returning the bytes unparsed (spec.md §4.3: "a manifest-fetch variant
// that does not attach cookies and returns the raw response body").
func (c *Client) FetchManifest(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, url, nil, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// isTranslationEndpoint special-cases the translation endpoint per
// spec.md §4.3: a 403 there short-circuits with an empty result rather
// than retrying with a new token.
func isTranslationEndpoint(url string) bool {
	return strings.Contains(url, "/translate")
}

func (c *Client) request(ctx context.Context, method, url string, body []byte, attachCookies bool) (Response, error) {
	resp, err := c.doWithTranslationShortCircuit(ctx, method, url, body, attachCookies)
	if err != nil {
		return Response{}, err
	}
	if resp == nil {
		return Response{StatusCode: http.StatusForbidden, JSON: map[string]any{}}, nil
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("http: read body: %w", err)
	}

	out := Response{StatusCode: resp.StatusCode}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err == nil {
		out.JSON = decoded
		if code, ok := decoded["code"].(string); ok {
			out.Code = code
			if !apierr.IsSuccess(code) {
				log.FromContext(ctx).Warn().Str("code", code).Msg("domain error code")
			}
		}
	} else {
		out.Text = string(raw)
	}
	return out, nil
}

func (c *Client) doWithTranslationShortCircuit(ctx context.Context, method, url string, body []byte, attachCookies bool) (*http.Response, error) {
	if isTranslationEndpoint(url) {
		resp, err := c.do(ctx, method, url, body, attachCookies)
		if err != nil {
			if resp := extractHTTPStatus(err); resp == http.StatusForbidden {
				return nil, nil
			}
			return nil, err
		}
		return resp, nil
	}
	return c.do(ctx, method, url, body, attachCookies)
}

// extractHTTPStatusFormats are the two sentinel shapes do's retry loop can
// produce for a retryable status: the plain retry path, and the
// refresh-then-retry path taken when a session is attached and the status
// is 401/403.
var extractHTTPStatusFormats = []string{
	"http: retryable status %d",
	"http: status %d, retrying after refresh",
}

// extractHTTPStatus is a best-effort unwrap of do's retry-loop sentinel
// errors, used only by the translation-endpoint short-circuit.
func extractHTTPStatus(err error) int {
	if err == nil {
		return 0
	}
	for _, format := range extractHTTPStatusFormats {
		var status int
		if _, scanErr := fmt.Sscanf(err.Error(), format, &status); scanErr == nil {
			return status
		}
	}
	return 0
}
