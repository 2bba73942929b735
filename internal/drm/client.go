package drm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/berrizdl/core/internal/domain"
	"github.com/berrizdl/core/internal/log"
	"github.com/berrizdl/core/internal/retry"
)

// Config configures one DrmClient instance (spec.md §6 key_service).
type Config struct {
	Backend             domain.DRMBackend
	WidevineDeviceBlob  string
	PlayReadyDeviceBlob string
	CdrmEndpoint        string // cdrm_wv / cdrm_mspr proxy
	WatoraEndpoint      string
	WatoraBearerToken   string
}

// Client is the DrmClient (spec.md §4.5).
type Client struct {
	cfg          Config
	http         *http.Client
	widevineCDM  CdmFactory
	playreadyCDM CdmFactory

	// proxyBreaker shields the remote-proxy backends (cdrm_wv, cdrm_mspr,
	// watora_wv) from repeated failures: a flaky third-party key service
	// should not be retried into the ground on every single PSSH in a set.
	proxyBreaker *retry.CircuitBreaker
}

// New builds a DrmClient. widevineCDM/playreadyCDM may be nil if the
// configured backend never needs a local CDM (e.g. a remote-proxy-only
// deployment).
func New(cfg Config, httpClient *http.Client, widevineCDM, playreadyCDM CdmFactory) *Client {
	if cfg.Backend == "" {
		cfg.Backend = domain.BackendWidevineLocal // unrecognized/unset falls back to wv (spec.md §4.5)
	}
	return &Client{
		cfg:          cfg,
		http:         httpClient,
		widevineCDM:  widevineCDM,
		playreadyCDM: playreadyCDM,
		proxyBreaker: retry.NewCircuitBreaker(string(cfg.Backend), 5, 3, time.Minute, 30*time.Second),
	}
}

// Backend reports the configured backend label, for key vault labeling.
func (c *Client) Backend() domain.DRMBackend { return c.cfg.Backend }

// GetKeys dispatches a license challenge for every PSSH in set through the
// configured backend and returns the union of "kid:key" strings (spec.md
// §4.5).
func (c *Client) GetKeys(ctx context.Context, set domain.PsshSet, licenseURL, assertion string, headers map[string]string, cookies []*http.Cookie) ([]string, error) {
	logger := log.FromContext(ctx)
	var keys []string

	switch c.cfg.Backend {
	case domain.BackendWidevineLocal:
		for _, pssh := range set.Widevine {
			ks, err := c.localWidevine(ctx, pssh, licenseURL, assertion, headers)
			if err != nil {
				return nil, err
			}
			keys = append(keys, ks...)
		}
	case domain.BackendPlayReadyLocal:
		for _, pro := range set.PlayReady {
			ks, err := c.localPlayReady(ctx, pro, licenseURL, assertion, headers)
			if err != nil {
				return nil, err
			}
			keys = append(keys, ks...)
		}
	case domain.BackendCDRMWidevine:
		for _, pssh := range set.Widevine {
			ks, err := c.cdrmProxy(ctx, pssh, licenseURL, headers)
			if err != nil {
				return nil, err
			}
			keys = append(keys, ks...)
		}
	case domain.BackendCDRMPlayReady:
		for _, pro := range set.PlayReady {
			ks, err := c.cdrmProxy(ctx, pro, licenseURL, headers)
			if err != nil {
				return nil, err
			}
			keys = append(keys, ks...)
		}
	case domain.BackendWatoraWidevine:
		for _, pssh := range set.Widevine {
			ks, err := c.watoraProxy(ctx, pssh, licenseURL, headers, cookies)
			if err != nil {
				return nil, err
			}
			keys = append(keys, ks...)
		}
	default:
		logger.Warn().Str("backend", string(c.cfg.Backend)).Msg("unrecognized drm backend, falling back to wv")
		for _, pssh := range set.Widevine {
			ks, err := c.localWidevine(ctx, pssh, licenseURL, assertion, headers)
			if err != nil {
				return nil, err
			}
			keys = append(keys, ks...)
		}
	}

	if len(keys) == 0 {
		return nil, domain.ErrDRMUnavailable
	}
	return keys, nil
}

// localWidevine implements spec.md §4.5's wv path: open CDM session from
// device blob, build challenge, POST with acquirelicenseassertion, parse
// response, close session.
func (c *Client) localWidevine(ctx context.Context, pssh, licenseURL, assertion string, headers map[string]string) ([]string, error) {
	if c.widevineCDM == nil {
		return nil, fmt.Errorf("drm: wv backend configured but no local CDM factory provided")
	}
	session, err := c.widevineCDM(ctx, c.cfg.WidevineDeviceBlob)
	if err != nil {
		return nil, fmt.Errorf("drm: open widevine cdm session: %w", err)
	}
	defer session.Close()

	challenge, err := session.Challenge(ctx, pssh)
	if err != nil {
		return nil, fmt.Errorf("drm: build widevine challenge: %w", err)
	}

	resp, err := c.postChallenge(ctx, licenseURL, challenge, assertion, headers)
	if err != nil {
		return nil, err
	}
	return session.ParseLicense(ctx, resp)
}

// localPlayReady implements spec.md §4.5's mspr path: same shape as
// localWidevine, one challenge per WRM header, text response.
func (c *Client) localPlayReady(ctx context.Context, wrmHeader, licenseURL, assertion string, headers map[string]string) ([]string, error) {
	if c.playreadyCDM == nil {
		return nil, fmt.Errorf("drm: mspr backend configured but no local CDM factory provided")
	}
	session, err := c.playreadyCDM(ctx, c.cfg.PlayReadyDeviceBlob)
	if err != nil {
		return nil, fmt.Errorf("drm: open playready cdm session: %w", err)
	}
	defer session.Close()

	challenge, err := session.Challenge(ctx, wrmHeader)
	if err != nil {
		return nil, fmt.Errorf("drm: build playready challenge: %w", err)
	}

	resp, err := c.postChallenge(ctx, licenseURL, challenge, assertion, headers)
	if err != nil {
		return nil, err
	}
	return session.ParseLicense(ctx, resp)
}

func (c *Client) postChallenge(ctx context.Context, licenseURL string, challenge []byte, assertion string, headers map[string]string) ([]byte, error) {
	if assertion == "" {
		return nil, domain.ErrMissingAssertion
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, licenseURL, bytes.NewReader(challenge))
	if err != nil {
		return nil, err
	}
	req.Header.Set("acquirelicenseassertion", assertion)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("drm: license request: %w", err)
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// cdrmProxy implements spec.md §4.5's cdrm_wv/cdrm_mspr path: POST
// {pssh, licurl, headers} to the remote decrypt endpoint, receive a
// single "message" string containing the key.
func (c *Client) cdrmProxy(ctx context.Context, pssh, licenseURL string, headers map[string]string) ([]string, error) {
	if c.cfg.CdrmEndpoint == "" {
		return nil, fmt.Errorf("drm: cdrm backend configured but no endpoint set")
	}
	var keys []string
	err := c.proxyBreaker.Execute(func() error {
		var err error
		keys, err = c.doCdrmProxy(ctx, pssh, licenseURL, headers)
		return err
	})
	return keys, err
}

func (c *Client) doCdrmProxy(ctx context.Context, pssh, licenseURL string, headers map[string]string) ([]string, error) {
	payload, _ := json.Marshal(map[string]any{
		"pssh":    pssh,
		"licurl":  licenseURL,
		"headers": headers,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.CdrmEndpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("drm: cdrm proxy request: %w", err)
	}
	defer resp.Body.Close()

	var decoded struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("drm: decode cdrm response: %w", err)
	}
	if decoded.Message == "" {
		return nil, domain.ErrDRMUnavailable
	}
	return []string{decoded.Message}, nil
}

// watoraProxy implements spec.md §4.5's watora_wv path: POST
// {PSSH, License URL, Headers, Cookies, Data, Proxy, JSON} with bearer
// auth, extract the key from Message.
func (c *Client) watoraProxy(ctx context.Context, pssh, licenseURL string, headers map[string]string, cookies []*http.Cookie) ([]string, error) {
	if c.cfg.WatoraEndpoint == "" {
		return nil, fmt.Errorf("drm: watora backend configured but no endpoint set")
	}
	var keys []string
	err := c.proxyBreaker.Execute(func() error {
		var err error
		keys, err = c.doWatoraProxy(ctx, pssh, licenseURL, headers, cookies)
		return err
	})
	return keys, err
}

func (c *Client) doWatoraProxy(ctx context.Context, pssh, licenseURL string, headers map[string]string, cookies []*http.Cookie) ([]string, error) {
	cookieStrs := make([]string, 0, len(cookies))
	for _, ck := range cookies {
		cookieStrs = append(cookieStrs, ck.Name+"="+ck.Value)
	}
	payload, _ := json.Marshal(map[string]any{
		"PSSH":        pssh,
		"License URL": licenseURL,
		"Headers":     headers,
		"Cookies":     cookieStrs,
		"Data":        "",
		"Proxy":       "",
		"JSON":        true,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.WatoraEndpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.WatoraBearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.WatoraBearerToken)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("drm: watora proxy request: %w", err)
	}
	defer resp.Body.Close()

	var decoded struct {
		Message string `json:"Message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("drm: decode watora response: %w", err)
	}
	if decoded.Message == "" {
		return nil, domain.ErrDRMUnavailable
	}
	return []string{decoded.Message}, nil
}
