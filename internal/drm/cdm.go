// Package drm implements the DrmClient (spec.md §4.5): dispatches a
// license challenge through one of five backends and returns the
// resulting content keys as "kid:key" strings.
package drm

import (
	"context"
)

// CdmSession is a single license-exchange session against a local CDM
// (Widevine or PlayReady). No pure-Go Widevine/PlayReady client-side
// crypto implementation exists anywhere in the example pack (DESIGN.md),
// so the session is abstracted behind this interface; a concrete
// implementation is expected to wrap a vendored CDM library or subprocess.
type CdmSession interface {
	// Challenge builds a license challenge for pssh.
	Challenge(ctx context.Context, pssh string) ([]byte, error)
	// ParseLicense extracts "kid:key" strings from the license server's
	// raw response.
	ParseLicense(ctx context.Context, response []byte) ([]string, error)
	// Close releases any resources the session holds (device binding,
	// temp files).
	Close() error
}

// CdmFactory opens a new CdmSession from a device blob path, one per
// PSSH challenge (spec.md §4.5 "open CDM session from device blob").
type CdmFactory func(ctx context.Context, deviceBlobPath string) (CdmSession, error)
