// Package manifestparser implements ManifestParser (spec.md §4.4): parses
// an MPD or HLS master playlist into a domain.Manifest, applying the
// "none|ask|numeric" track selection protocol and, for MPD, extracting the
// PSSH boxes a DRM-protected stream carries.
package manifestparser

import (
	"context"
	"fmt"

	"github.com/berrizdl/core/internal/domain"
	"github.com/berrizdl/core/internal/hls"
	"github.com/berrizdl/core/internal/mpd"
	"github.com/berrizdl/core/internal/trackselect"
)

// FetchFunc retrieves a manifest or media playlist body without cookie
// attachment, mirroring httpclient.Client.FetchManifest.
type FetchFunc func(ctx context.Context, url string) ([]byte, error)

// Selection carries the configured track choices and optional interactive
// prompter (spec.md §4.4).
type Selection struct {
	Video  trackselect.Choice
	Audio  trackselect.Choice
	Prompt trackselect.Prompter
}

// Parser is the ManifestParser.
type Parser struct {
	fetch FetchFunc
}

// New builds a Parser. fetch is used to retrieve HLS media playlists
// referenced from a master playlist; it is not needed for MPD parsing
// since SegmentTemplate expansion requires no further requests.
func New(fetch FetchFunc) *Parser {
	return &Parser{fetch: fetch}
}

// ParseMPD parses raw MPD XML into a Manifest with VideoTrack/AudioTrack
// selected per sel, and extracts the stream's PSSH set.
func (p *Parser) ParseMPD(raw []byte, baseURL string, sel Selection) (domain.Manifest, domain.PsshSet, error) {
	sets, err := mpd.Parse(raw, baseURL)
	if err != nil {
		return domain.Manifest{}, domain.PsshSet{}, fmt.Errorf("manifestparser: parse mpd: %w", err)
	}

	m := domain.Manifest{AdaptationSets: sets, BaseURL: baseURL}

	var videoReps, audioReps []domain.Representation
	for _, set := range sets {
		switch set.ContentType {
		case "video":
			videoReps = append(videoReps, set.Representations...)
		case "audio":
			audioReps = append(audioReps, set.Representations...)
		}
	}

	if rep, err := trackselect.Resolve(sel.Video, videoReps, repHeightKey, repLabels, sel.Prompt, false); err != nil {
		return domain.Manifest{}, domain.PsshSet{}, err
	} else if rep != nil {
		m.VideoTrack = repToTrack(*rep)
	}

	if rep, err := trackselect.Resolve(sel.Audio, audioReps, repBandwidthKbpsKey, repLabels, sel.Prompt, true); err != nil {
		return domain.Manifest{}, domain.PsshSet{}, err
	} else if rep != nil {
		m.AudioTrack = repToTrack(*rep)
	}

	return m, mpd.ExtractPssh(sets), nil
}

// ParseHLS parses a raw HLS master playlist, selects a variant and audio
// track per sel, then fetches and parses each chosen media playlist.
func (p *Parser) ParseHLS(ctx context.Context, masterRaw []byte, masterURL string, sel Selection) (domain.Manifest, error) {
	variants, audioTracks, err := hls.ParseMaster(masterRaw, masterURL)
	if err != nil {
		return domain.Manifest{}, fmt.Errorf("manifestparser: parse hls master: %w", err)
	}

	m := domain.Manifest{IsHLS: true, Variants: variants, AudioTracks: audioTracks, BaseURL: masterURL}

	variant, err := trackselect.Resolve(sel.Video, variants, variantHeightKey, variantLabels, sel.Prompt, false)
	if err != nil {
		return domain.Manifest{}, err
	}
	if variant != nil {
		track, err := p.fetchMediaTrack(ctx, variant.PlaylistURL)
		if err != nil {
			return domain.Manifest{}, fmt.Errorf("manifestparser: video media playlist: %w", err)
		}
		track.Bandwidth = variant.Bandwidth
		track.Height = variant.Height
		m.VideoTrack = &track
	}

	audio, err := trackselect.Resolve(sel.Audio, audioTracks, audioBandwidthKey, audioLabels, sel.Prompt, true)
	if err != nil {
		return domain.Manifest{}, err
	}
	if audio != nil && audio.URI != "" {
		track, err := p.fetchMediaTrack(ctx, audio.URI)
		if err != nil {
			return domain.Manifest{}, fmt.Errorf("manifestparser: audio media playlist: %w", err)
		}
		track.Bandwidth = audio.BandwidthKb
		m.AudioTrack = &track
	}

	return m, nil
}

func (p *Parser) fetchMediaTrack(ctx context.Context, playlistURL string) (domain.Track, error) {
	raw, err := p.fetch(ctx, playlistURL)
	if err != nil {
		return domain.Track{}, err
	}
	segments, key, _, err := hls.ParseMedia(raw, playlistURL)
	if err != nil {
		return domain.Track{}, err
	}
	return domain.Track{SegmentURLs: segments, Key: key}, nil
}

func repToTrack(rep domain.Representation) *domain.Track {
	return &domain.Track{
		InitURL:     rep.InitURL,
		SegmentURLs: rep.SegmentURLs,
		Bandwidth:   rep.Bandwidth,
		Height:      rep.Height,
	}
}

func repHeightKey(r domain.Representation) int          { return r.Height }
func repBandwidthKbpsKey(r domain.Representation) int    { return r.Bandwidth / 1000 }
func repLabels(reps []domain.Representation) []string {
	labels := make([]string, len(reps))
	for i, r := range reps {
		labels[i] = fmt.Sprintf("%s (%dx%d, %d kbps)", r.ID, r.Width, r.Height, r.Bandwidth/1000)
	}
	return labels
}

func variantHeightKey(v domain.HLSVariant) int { return v.Height }
func variantLabels(vs []domain.HLSVariant) []string {
	labels := make([]string, len(vs))
	for i, v := range vs {
		labels[i] = fmt.Sprintf("%dx%d, %d kbps", v.Width, v.Height, v.Bandwidth/1000)
	}
	return labels
}

func audioBandwidthKey(a domain.HLSAudioTrack) int { return a.BandwidthKb }
func audioLabels(as []domain.HLSAudioTrack) []string {
	labels := make([]string, len(as))
	for i, a := range as {
		labels[i] = fmt.Sprintf("%s (%d kbps)", a.Name, a.BandwidthKb)
	}
	return labels
}
