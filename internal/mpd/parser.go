// Package mpd parses MPEG-DASH manifests (spec.md §4.4) on top of
// github.com/Eyevinn/dash-mpd's XML binding, which gives us the element
// tree; segment-template expansion and DRM extraction are ours, the same
// way dashfetcher and livesim2 build their own walkers over that tree.
package mpd

import (
	"fmt"
	"strconv"
	"strings"

	m "github.com/Eyevinn/dash-mpd/mpd"

	"github.com/berrizdl/core/internal/domain"
)

const (
	schemeMP4Protection = "urn:mpeg:dash:mp4protection:2011"
	schemePlayReady     = "urn:uuid:9a04f079-9840-4286-ab92-e65be0885f95"
	schemeWidevine      = "urn:uuid:edef8ba9-79d6-4ace-a3c8-27dcd51d21ed"
)

// Parse reads raw MPD XML and returns one domain.AdaptationSet per
// AdaptationSet element, with segment URLs already expanded and DRM
// descriptors extracted (spec.md §4.4).
func Parse(raw []byte, baseURL string) ([]domain.AdaptationSet, error) {
	doc, err := m.ReadFromString(string(raw))
	if err != nil {
		return nil, fmt.Errorf("mpd: parse: %w", err)
	}
	if doc.Type != nil && *doc.Type == "dynamic" {
		return nil, fmt.Errorf("mpd: dynamic manifests are not supported")
	}

	var out []domain.AdaptationSet
	for _, period := range doc.Periods {
		for _, as := range period.AdaptationSets {
			set := domain.AdaptationSet{ContentType: string(as.ContentType)}
			extractContentProtection(as.ContentProtections, &set)

			for _, rep := range as.Representations {
				segTmpl := as.SegmentTemplate
				if rep.SegmentTemplate != nil {
					segTmpl = rep.SegmentTemplate
				}
				if segTmpl == nil {
					return nil, fmt.Errorf("mpd: representation %s has no SegmentTemplate", rep.Id)
				}

				initURL, mediaURLs, err := expandSegmentTemplate(rep, segTmpl, baseURL)
				if err != nil {
					return nil, fmt.Errorf("mpd: representation %s: %w", rep.Id, err)
				}

				set.Representations = append(set.Representations, domain.Representation{
					ID:          rep.Id,
					Bandwidth:   int(rep.Bandwidth),
					Codecs:      firstNonEmpty(rep.Codecs, as.Codecs),
					Width:       int(rep.Width),
					Height:      int(rep.Height),
					MimeType:    firstNonEmpty(rep.MimeType, as.MimeType),
					InitURL:     initURL,
					SegmentURLs: mediaURLs,
					Timescale:   int(timescaleOf(segTmpl)),
				})
			}
			out = append(out, set)
		}
	}
	return out, nil
}

// extractContentProtection fills in set.DefaultKID/PlayReadyPRO/WidevinePSSH
// from the AdaptationSet's ContentProtection descriptors (spec.md §4.4).
func extractContentProtection(cps []*m.ContentProtection, set *domain.AdaptationSet) {
	for _, cp := range cps {
		scheme := string(cp.SchemeIdUri)
		switch {
		case scheme == schemeMP4Protection && cp.DefaultKID != "":
			set.DefaultKID = strings.ReplaceAll(cp.DefaultKID, "-", "")
		case scheme == schemePlayReady && cp.MSPro != nil:
			set.PlayReadyPRO = cp.MSPro.Value
		case scheme == schemeWidevine && cp.Pssh != nil:
			pssh := cp.Pssh.Value
			if len(pssh) == 76 && strings.HasSuffix(pssh, "=") {
				set.WidevinePSSH = pssh
			}
		}
	}
}

// expandSegmentTemplate expands a SegmentTemplate + SegmentTimeline's S
// elements ({t,d,r}) into absolute init/media URLs, substituting
// $RepresentationID$ and $Time$ (spec.md §4.4).
func expandSegmentTemplate(rep *m.RepresentationType, segTmpl *m.SegmentTemplateType, baseURL string) (initURL string, mediaURLs []string, err error) {
	initPattern, _ := rep.GetInit()
	if initPattern != "" {
		initURL = baseURL + substituteRepresentationID(initPattern, rep.Id)
	}

	mediaPattern, _ := rep.GetMedia()
	if mediaPattern == "" {
		return initURL, nil, fmt.Errorf("no media pattern")
	}
	mediaPattern = substituteRepresentationID(mediaPattern, rep.Id)

	if segTmpl.SegmentTimeline == nil {
		return initURL, nil, fmt.Errorf("segment template has no SegmentTimeline")
	}
	if !strings.Contains(mediaPattern, "$Time$") {
		return initURL, nil, fmt.Errorf("unsupported media pattern (no $Time$): %s", mediaPattern)
	}

	var startTime uint64
	for _, s := range segTmpl.SegmentTimeline.S {
		if s.T != nil {
			startTime = *s.T
		}
		mediaURLs = append(mediaURLs, baseURL+substituteTime(mediaPattern, startTime))
		startTime += s.D
		for i := 0; i < s.R; i++ {
			mediaURLs = append(mediaURLs, baseURL+substituteTime(mediaPattern, startTime))
			startTime += s.D
		}
	}
	return initURL, mediaURLs, nil
}

func substituteRepresentationID(pattern, id string) string {
	return strings.ReplaceAll(pattern, "$RepresentationID$", id)
}

func substituteTime(pattern string, t uint64) string {
	return strings.ReplaceAll(pattern, "$Time$", strconv.FormatUint(t, 10))
}

func timescaleOf(segTmpl *m.SegmentTemplateType) uint32 {
	if segTmpl.Timescale != nil {
		return *segTmpl.Timescale
	}
	return 1
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
