// Package community implements the name<->id lookup step of Pipeline
// (spec.md §4.12 step 2): a locally cached mapping of communityKey to
// communityId, refreshed from the account "home" endpoint on a miss.
package community

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/google/renameio/v2"

	"github.com/berrizdl/core/internal/httpclient"
)

// homeEndpoint is recovered from original_source/unit/http/request_berriz_api.py's
// fetch_home(): it returns every community the account participates in.
const homeEndpoint = "https://svc-api.berriz.in/service/v1/home"

// entry is one cached community, key and id bound together.
type entry struct {
	Key  string `json:"communityKey"`
	ID   int64  `json:"communityId"`
	Name string `json:"name"`
}

// Resolver resolves a communityKey or communityId string to both forms,
// backed by an on-disk JSON cache (spec.md §4.12 step 2: "locally cached
// mapping, falling back to the community-list endpoint").
type Resolver struct {
	http      *httpclient.Client
	cachePath string
	homeURL   string

	mu      sync.Mutex
	entries []entry
	loaded  bool
}

// New builds a Resolver persisting its cache at cachePath, e.g.
// static/community_keys.json (spec.md §6).
func New(httpClient *httpclient.Client, cachePath string) *Resolver {
	return &Resolver{http: httpClient, cachePath: cachePath, homeURL: homeEndpoint}
}

// overrideHomeEndpoint points the refresh call at a different URL, for tests.
func (r *Resolver) overrideHomeEndpoint(url string) {
	r.homeURL = url
}

// Resolved is the pair a successful lookup produces.
type Resolved struct {
	ID   int64
	Key  string
	Name string
}

// Resolve accepts either a communityKey (e.g. "ive") or a communityId
// (e.g. "123") and returns both forms. On a cache miss it refreshes from
// the home endpoint once before giving up.
func (r *Resolver) Resolve(ctx context.Context, query string) (Resolved, error) {
	if err := r.ensureLoaded(); err != nil {
		return Resolved{}, err
	}

	if res, ok := r.lookup(query); ok {
		return res, nil
	}

	if err := r.refresh(ctx); err != nil {
		return Resolved{}, fmt.Errorf("community: refresh: %w", err)
	}
	if res, ok := r.lookup(query); ok {
		return res, nil
	}
	return Resolved{}, fmt.Errorf("community: %q not found", query)
}

func (r *Resolver) lookup(query string) (Resolved, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	normalized := strings.ToLower(strings.TrimSpace(query))
	if id, err := strconv.ParseInt(normalized, 10, 64); err == nil {
		for _, e := range r.entries {
			if e.ID == id {
				return Resolved{ID: e.ID, Key: e.Key, Name: e.Name}, true
			}
		}
		return Resolved{}, false
	}
	for _, e := range r.entries {
		if strings.ToLower(e.Key) == normalized {
			return Resolved{ID: e.ID, Key: e.Key, Name: e.Name}, true
		}
	}
	return Resolved{}, false
}

func (r *Resolver) ensureLoaded() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loaded {
		return nil
	}
	r.loaded = true

	raw, err := os.ReadFile(r.cachePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var entries []entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return fmt.Errorf("community: decode cache: %w", err)
	}
	r.entries = entries
	return nil
}

// homeResponse is the subset of /service/v1/home's payload this resolver
// needs, per request_berriz_api.py's fetch_home().
type homeResponse struct {
	Code string `json:"code"`
	Data struct {
		Active []struct {
			CommunityID  int64  `json:"communityId"`
			CommunityKey string `json:"communityKey"`
			Title        string `json:"title"`
		} `json:"active"`
	} `json:"data"`
}

func (r *Resolver) refresh(ctx context.Context) error {
	resp, err := r.http.Get(ctx, r.homeURL)
	if err != nil {
		return err
	}
	if !resp.IsDomainSuccess() {
		return fmt.Errorf("community: home endpoint returned code %q", resp.Code)
	}

	raw, err := json.Marshal(resp.JSON)
	if err != nil {
		return err
	}
	var home homeResponse
	if err := json.Unmarshal(raw, &home); err != nil {
		return fmt.Errorf("community: decode home response: %w", err)
	}

	entries := make([]entry, 0, len(home.Data.Active))
	for _, a := range home.Data.Active {
		entries = append(entries, entry{Key: a.CommunityKey, ID: a.CommunityID, Name: a.Title})
	}

	r.mu.Lock()
	r.entries = entries
	r.mu.Unlock()

	return r.persist(entries)
}

func (r *Resolver) persist(entries []entry) error {
	if r.cachePath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(r.cachePath), 0o755); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return renameio.WriteFile(r.cachePath, raw, 0o644)
}
