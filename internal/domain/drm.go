package domain

import "time"

// DRMKind distinguishes the two content-protection systems extracted from
// an MPD's ContentProtection descriptors (spec.md §4.4).
type DRMKind string

const (
	DRMWidevine  DRMKind = "widevine"
	DRMPlayReady DRMKind = "playready"
)

// DRMBackend is the configured key-acquisition backend (spec.md §4.5).
type DRMBackend string

const (
	BackendWidevineLocal  DRMBackend = "wv"
	BackendPlayReadyLocal DRMBackend = "mspr"
	BackendCDRMWidevine   DRMBackend = "cdrm_wv"
	BackendCDRMPlayReady  DRMBackend = "cdrm_mspr"
	BackendWatoraWidevine DRMBackend = "watora_wv"
)

// widevinePsshLen is the canonical byte length of a Widevine PSSH box
// (spec.md §3, §4.4, §8).
const widevinePsshLen = 76

// PsshSet is the set of distinct PSSH strings found in a manifest,
// partitioned by DRM kind. Duplicates are collapsed.
type PsshSet struct {
	Widevine  []string
	PlayReady []string
}

// Add inserts pssh into the correct bucket by inspecting its shape, per
// spec.md §3: Widevine PSSH has length exactly 76; PlayReady is longer and
// carries a WRM header. Duplicates within a bucket are collapsed.
func (s *PsshSet) Add(pssh string) {
	if pssh == "" {
		return
	}
	if len(pssh) == widevinePsshLen {
		if !contains(s.Widevine, pssh) {
			s.Widevine = append(s.Widevine, pssh)
		}
		return
	}
	if !contains(s.PlayReady, pssh) {
		s.PlayReady = append(s.PlayReady, pssh)
	}
}

// Empty reports whether no PSSH of either kind was collected.
func (s PsshSet) Empty() bool {
	return len(s.Widevine) == 0 && len(s.PlayReady) == 0
}

// All returns every PSSH in the set, Widevine first.
func (s PsshSet) All() []string {
	out := make([]string, 0, len(s.Widevine)+len(s.PlayReady))
	out = append(out, s.Widevine...)
	out = append(out, s.PlayReady...)
	return out
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// KeyEntry is one persisted row of the KeyVault (spec.md §3, §4.1).
type KeyEntry struct {
	Pssh      string
	Key       string // "KID:hexkey" or space-separated list thereof
	DrmType   string // wv, mspr, watora_wv, cdrm_wv, cdrm_mspr
	CreatedAt time.Time
	UpdatedAt time.Time
}
