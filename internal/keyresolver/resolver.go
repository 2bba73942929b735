// Package keyresolver implements KeyResolver (spec.md §4.5): vault lookup
// first, DRM backend dispatch on miss, then persistence of every returned
// key under every PSSH it was derived from.
package keyresolver

import (
	"context"
	"net/http"
	"strings"

	"github.com/berrizdl/core/internal/domain"
	"github.com/berrizdl/core/internal/drm"
	"github.com/berrizdl/core/internal/log"
	"github.com/berrizdl/core/internal/metrics"
	"github.com/berrizdl/core/internal/vault"
)

// Resolver is the KeyResolver.
type Resolver struct {
	vault *vault.Vault
	drm   *drm.Client
}

// New builds a Resolver bound to a KeyVault and DrmClient.
func New(v *vault.Vault, d *drm.Client) *Resolver {
	return &Resolver{vault: v, drm: d}
}

// GetKeys implements spec.md §4.5's getKeys(playbackContext, mpd) call:
// query the vault for any known PSSH, and on a full miss dispatch a
// license challenge through the configured DRM backend, persisting every
// resulting key under every PSSH it was derived from.
func (r *Resolver) GetKeys(ctx context.Context, pctx domain.PlaybackContext, set domain.PsshSet, headers map[string]string, cookies []*http.Cookie) ([]string, error) {
	logger := log.FromContext(ctx)

	for _, pssh := range set.All() {
		if key, ok, err := r.vault.Retrieve(ctx, pssh); err != nil {
			return nil, err
		} else if ok {
			logger.Debug().Str("pssh", pssh).Msg("key vault hit")
			metrics.RecordKeyVaultLookup("hit")
			return splitKeys(key), nil
		}
	}
	metrics.RecordKeyVaultLookup("miss")

	licenseURL := pctx.LicenseURLs.Widevine
	if licenseURL == "" {
		licenseURL = pctx.LicenseURLs.PlayReady
	}
	if licenseURL == "" {
		return nil, domain.ErrNoLicenseURL
	}

	drmType := string(backendOf(r.drm))
	keys, err := r.drm.GetKeys(ctx, set, licenseURL, pctx.Assertion, headers, cookies)
	if err != nil {
		metrics.RecordDRMRequest(drmType, "failed")
		return nil, err
	}
	metrics.RecordDRMRequest(drmType, "ok")
	joined := strings.Join(keys, " ")
	for _, pssh := range set.All() {
		if err := r.vault.Store(ctx, pssh, joined, drmType); err != nil {
			logger.Warn().Err(err).Str("pssh", pssh).Msg("failed to persist key")
		}
	}
	return keys, nil
}

func splitKeys(stored string) []string {
	fields := strings.Fields(stored)
	if len(fields) == 0 {
		return []string{stored}
	}
	return fields
}

// backendOf reads back the backend label the DrmClient was configured
// with, for key vault labeling (spec.md §4.1, §4.5).
func backendOf(c *drm.Client) domain.DRMBackend {
	return c.Backend()
}
