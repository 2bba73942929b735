// Package hls parses HLS master and media playlists (spec.md §4.4). No
// library in the example pack ships an HLS parser (DESIGN.md), so this is a
// dependency-free line scanner in the same plain-text-protocol style the
// teacher uses for its own m3u package.
package hls

import (
	"bufio"
	"bytes"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/berrizdl/core/internal/domain"
)

var segmentSuffixes = []string{".ts", ".aac", ".mp4", ".m4a", ".m4v"}

// ParseMaster extracts variants and audio groups from a master playlist
// (spec.md §4.4).
func ParseMaster(raw []byte, playlistURL string) ([]domain.HLSVariant, []domain.HLSAudioTrack, error) {
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var variants []domain.HLSVariant
	var audio []domain.HLSAudioTrack
	var pendingVariant *domain.HLSVariant

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "#EXT-X-STREAM-INF:"):
			v := parseStreamInf(line)
			pendingVariant = &v
		case strings.HasPrefix(line, "#EXT-X-MEDIA:"):
			if t, ok := parseMediaAudio(line); ok {
				if t.URI != "" {
					t.URI = resolveURL(playlistURL, t.URI)
				}
				audio = append(audio, t)
			}
		case line == "" || strings.HasPrefix(line, "#"):
			// ignore other tags and blank lines
		default:
			if pendingVariant != nil {
				pendingVariant.PlaylistURL = resolveURL(playlistURL, line)
				variants = append(variants, *pendingVariant)
				pendingVariant = nil
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("hls: scan master playlist: %w", err)
	}
	return variants, audio, nil
}

func parseStreamInf(line string) domain.HLSVariant {
	attrs := parseAttributeList(strings.TrimPrefix(line, "#EXT-X-STREAM-INF:"))
	v := domain.HLSVariant{AudioGroup: unquote(attrs["AUDIO"])}
	if bw, err := strconv.Atoi(attrs["BANDWIDTH"]); err == nil {
		v.Bandwidth = bw
	}
	if res, ok := attrs["RESOLUTION"]; ok {
		if w, h, ok := splitResolution(res); ok {
			v.Width, v.Height = w, h
		}
	}
	v.Codecs = unquote(attrs["CODECS"])
	return v
}

func parseMediaAudio(line string) (domain.HLSAudioTrack, bool) {
	attrs := parseAttributeList(strings.TrimPrefix(line, "#EXT-X-MEDIA:"))
	if unquote(attrs["TYPE"]) != "AUDIO" {
		return domain.HLSAudioTrack{}, false
	}
	t := domain.HLSAudioTrack{
		GroupID: unquote(attrs["GROUP-ID"]),
		Name:    unquote(attrs["NAME"]),
		URI:     unquote(attrs["URI"]),
	}
	if bw, err := strconv.Atoi(attrs["BANDWIDTH"]); err == nil {
		t.BandwidthKb = bw / 1000
	}
	return t, true
}

// ParseMedia collects every segment URI (suffix-filtered) from a media
// playlist, resolving relative URIs against playlistURL, and records any
// #EXT-X-KEY directive (spec.md §4.4).
func ParseMedia(raw []byte, playlistURL string) (segments []string, key *domain.HLSKey, warnings []string, err error) {
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "#EXT-X-KEY:"):
			k, warn := parseKey(line)
			key = k
			if warn != "" {
				warnings = append(warnings, warn)
			}
		case line == "" || strings.HasPrefix(line, "#"):
			// ignore other tags
		default:
			if hasSegmentSuffix(line) {
				segments = append(segments, resolveURL(playlistURL, line))
			}
		}
	}
	if scanErr := scanner.Err(); scanErr != nil {
		return nil, nil, nil, fmt.Errorf("hls: scan media playlist: %w", scanErr)
	}
	return segments, key, warnings, nil
}

func parseKey(line string) (*domain.HLSKey, string) {
	attrs := parseAttributeList(strings.TrimPrefix(line, "#EXT-X-KEY:"))
	method := unquote(attrs["METHOD"])
	k := &domain.HLSKey{
		Method:    method,
		URI:       unquote(attrs["URI"]),
		KeyFormat: unquote(attrs["KEYFORMAT"]),
	}
	if method == "SAMPLE-AES" && k.KeyFormat != "com.apple.streamingkeydelivery" {
		return k, fmt.Sprintf("hls: unsupported SAMPLE-AES keyformat %q", k.KeyFormat)
	}
	if method == "SAMPLE-AES" {
		return k, "hls: FairPlay SAMPLE-AES reported but not supported for decryption"
	}
	return k, ""
}

func hasSegmentSuffix(uri string) bool {
	clean := uri
	if idx := strings.IndexAny(clean, "?#"); idx >= 0 {
		clean = clean[:idx]
	}
	for _, suf := range segmentSuffixes {
		if strings.HasSuffix(clean, suf) {
			return true
		}
	}
	return false
}

func resolveURL(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

func splitResolution(res string) (w, h int, ok bool) {
	parts := strings.SplitN(res, "x", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	w, err1 := strconv.Atoi(parts[0])
	h, err2 := strconv.Atoi(parts[1])
	return w, h, err1 == nil && err2 == nil
}

// parseAttributeList parses a comma-separated KEY=VALUE attribute list,
// respecting double-quoted values that may themselves contain commas.
func parseAttributeList(s string) map[string]string {
	out := make(map[string]string)
	var key strings.Builder
	var val strings.Builder
	inQuotes := false
	readingKey := true

	flush := func() {
		k := strings.TrimSpace(key.String())
		if k != "" {
			out[k] = val.String()
		}
		key.Reset()
		val.Reset()
		readingKey = true
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			inQuotes = !inQuotes
			val.WriteByte(c)
		case c == '=' && readingKey && !inQuotes:
			readingKey = false
		case c == ',' && !inQuotes:
			flush()
		default:
			if readingKey {
				key.WriteByte(c)
			} else {
				val.WriteByte(c)
			}
		}
	}
	flush()
	return out
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
