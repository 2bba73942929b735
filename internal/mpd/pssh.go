package mpd

import "github.com/berrizdl/core/internal/domain"

// ExtractPssh collects every PSSH across all AdaptationSets into one
// domain.PsshSet, partitioned by DRM kind (spec.md §4.4, PsshExtractor).
func ExtractPssh(sets []domain.AdaptationSet) domain.PsshSet {
	var out domain.PsshSet
	for _, set := range sets {
		out.Add(set.WidevinePSSH)
		out.Add(set.PlayReadyPRO)
	}
	return out
}
