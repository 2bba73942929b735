package cookies

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/renameio/v2"
)

// TokenCache is the JSON side-car `{cache_cookie: {bz_a, bz_r, pcid, refresh_time}}`
// (spec.md §3, §4.2). It is authoritative for tokens during a run; the
// Netscape file is authoritative across runs.
type TokenCache struct {
	CacheCookie struct {
		BzA         string    `json:"bz_a"`
		BzR         string    `json:"bz_r"`
		Pcid        string    `json:"pcid"`
		RefreshTime time.Time `json:"refresh_time"`
	} `json:"cache_cookie"`
}

// Store owns one Netscape cookie file and its JSON side-car. A process-wide
// mutex serializes writers to either file (spec.md §4.2, §5).
type Store struct {
	mu sync.Mutex

	netscapePath string
	sidecarPath  string
}

// New builds a Store rooted at the given paths, e.g.
// cookies/Berriz/default.txt and cookies/cookie_temp.json (spec.md §6).
func New(netscapePath, sidecarPath string) *Store {
	return &Store{netscapePath: netscapePath, sidecarPath: sidecarPath}
}

// LoadCookies reads the Netscape file under the store's lock.
func (s *Store) LoadCookies() ([]Cookie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ParseNetscapeFile(s.netscapePath)
}

// LoadTokenCache reads the JSON side-car, returning a zero-value cache if
// the file does not yet exist.
func (s *Store) LoadTokenCache() (TokenCache, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadTokenCacheLocked()
}

func (s *Store) loadTokenCacheLocked() (TokenCache, error) {
	var tc TokenCache
	raw, err := os.ReadFile(s.sidecarPath)
	if err != nil {
		if os.IsNotExist(err) {
			return tc, nil
		}
		return tc, fmt.Errorf("cookies: read sidecar: %w", err)
	}
	if err := json.Unmarshal(raw, &tc); err != nil {
		return tc, fmt.Errorf("cookies: parse sidecar: %w", err)
	}
	return tc, nil
}

// SaveCookies atomically rewrites the Netscape file (write-to-temp-then-rename).
func (s *Store) SaveCookies(cookies []Cookie) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.atomicWrite(s.netscapePath, FormatNetscapeFile(cookies))
}

// UpsertCookie loads, updates, and atomically rewrites the Netscape file in
// one locked operation, matching spec.md §4.2's "in-place line rewrite
// preserving other entries".
func (s *Store) UpsertCookie(updated Cookie) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cookies, err := ParseNetscapeFile(s.netscapePath)
	if err != nil {
		return err
	}
	cookies = Upsert(cookies, updated)
	return s.atomicWrite(s.netscapePath, FormatNetscapeFile(cookies))
}

// SaveTokenCache atomically rewrites the JSON side-car.
func (s *Store) SaveTokenCache(tc TokenCache) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := json.MarshalIndent(tc, "", "  ")
	if err != nil {
		return fmt.Errorf("cookies: marshal sidecar: %w", err)
	}
	return s.atomicWrite(s.sidecarPath, raw)
}

// UpdateTokenCache loads, mutates via fn, and atomically saves the side-car
// in one locked operation.
func (s *Store) UpdateTokenCache(fn func(*TokenCache)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tc, err := s.loadTokenCacheLocked()
	if err != nil {
		return err
	}
	fn(&tc)
	raw, err := json.MarshalIndent(tc, "", "  ")
	if err != nil {
		return fmt.Errorf("cookies: marshal sidecar: %w", err)
	}
	return s.atomicWrite(s.sidecarPath, raw)
}

func (s *Store) atomicWrite(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cookies: mkdir %s: %w", filepath.Dir(path), err)
	}
	if err := renameio.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("cookies: atomic write %s: %w", path, err)
	}
	return nil
}
