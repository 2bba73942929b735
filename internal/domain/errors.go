package domain

import "errors"

// Sentinel errors for the invariants documented in spec.md §3 and §7.
// Error kinds are modeled as values, never panics (spec.md §9).
var (
	ErrNoPlaybackURL    = errors.New("domain: playback context has neither mpd nor hls url")
	ErrMissingAssertion = errors.New("domain: drm playback context missing acquirelicenseassertion")
	ErrNoLicenseURL     = errors.New("domain: drm playback context has no license url")

	// ErrAuthFatal: refresh failed or login failed — terminates the run (spec.md §7).
	ErrAuthFatal = errors.New("auth: fatal, re-login required and failed")
	// ErrAuthExpired marks a 401/403 observed on an authenticated endpoint.
	ErrAuthExpired = errors.New("auth: session expired")
	// ErrAccountSuspended corresponds to FS_AU4030.
	ErrAccountSuspended = errors.New("auth: account suspended")
	// ErrRefreshTokenInvalid corresponds to FS_AU4021.
	ErrRefreshTokenInvalid = errors.New("auth: refresh token invalid")

	// ErrDRMUnavailable: no key could be obtained for a PSSH.
	ErrDRMUnavailable = errors.New("drm: no key could be obtained")
	// ErrToolMissing: mp4decrypt / packager / mkvmerge / ffmpeg not found.
	ErrToolMissing = errors.New("tool: required external binary not found")
	// ErrUserCancelled: Ctrl-C, surfaces as exit code 130.
	ErrUserCancelled = errors.New("pipeline: cancelled by user")

	// ErrDomain wraps a non-"0000" server response code (spec.md §7).
	ErrDomain = errors.New("domain: server returned non-success code")
)

// DomainError carries a server error code and its mapped human message.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	if e.Message != "" {
		return e.Code + ": " + e.Message
	}
	return e.Code
}

func (e *DomainError) Unwrap() error { return ErrDomain }
