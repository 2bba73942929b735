package httpclient

import (
	"math/rand"
	"net/url"
	"sync"
)

// ProxyPair is a fixed {http, https} proxy pair (spec.md §4.3, §6).
type ProxyPair struct {
	HTTP  string
	HTTPS string
}

// ProxySelector chooses a proxy per request: either a fixed list (randomly
// picked) or a single {http,https} pair, with a small bounded LRU cache of
// already-parsed proxy lines so repeated rotation doesn't re-parse the same
// URL string. No LRU library ships in the example pack (DESIGN.md), so this
// is a minimal hand-rolled bounded map guarded by a mutex.
type ProxySelector struct {
	mu       sync.Mutex
	list     []string
	pair     *ProxyPair
	cache    map[string]*url.URL
	cap      int
	order    []string
}

// NewProxySelectorFromList builds a selector that randomly picks one proxy
// URL string per request from list.
func NewProxySelectorFromList(list []string) *ProxySelector {
	return &ProxySelector{list: list, cache: make(map[string]*url.URL), cap: 32}
}

// NewProxySelectorFromPair builds a selector that always returns the same
// {http,https} pair.
func NewProxySelectorFromPair(pair ProxyPair) *ProxySelector {
	return &ProxySelector{pair: &pair, cache: make(map[string]*url.URL), cap: 32}
}

// Next returns the proxy URL to use for the next request, for the given
// scheme ("http" or "https"). Returns nil if no proxy is configured.
func (s *ProxySelector) Next(scheme string) (*url.URL, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var raw string
	switch {
	case s.pair != nil:
		if scheme == "https" {
			raw = s.pair.HTTPS
		} else {
			raw = s.pair.HTTP
		}
	case len(s.list) > 0:
		raw = s.list[rand.Intn(len(s.list))]
	default:
		return nil, nil
	}
	if raw == "" {
		return nil, nil
	}
	return s.parseCached(raw)
}

func (s *ProxySelector) parseCached(raw string) (*url.URL, error) {
	if u, ok := s.cache[raw]; ok {
		s.touch(raw)
		return u, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	s.cache[raw] = u
	s.order = append(s.order, raw)
	if len(s.order) > s.cap {
		evict := s.order[0]
		s.order = s.order[1:]
		delete(s.cache, evict)
	}
	return u, nil
}

func (s *ProxySelector) touch(raw string) {
	for i, v := range s.order {
		if v == raw {
			s.order = append(s.order[:i], s.order[i+1:]...)
			s.order = append(s.order, raw)
			return
		}
	}
}
