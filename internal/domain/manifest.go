package domain

// Representation is one MPD Representation within an AdaptationSet
// (spec.md §3, §4.4).
type Representation struct {
	ID            string
	Bandwidth     int
	Codecs        string
	Width, Height int
	SamplingRate  int
	MimeType      string
	InitURL       string
	SegmentURLs   []string
	Timescale     int
}

// IsVideo reports whether this representation carries a video track.
func (r Representation) IsVideo() bool { return r.Height > 0 || r.Width > 0 }

// AdaptationSet groups Representations sharing a content type.
type AdaptationSet struct {
	ContentType      string // "video" or "audio"
	Representations  []Representation
	DefaultKID       string // hex, no dashes, from mp4protection:2011
	PlayReadyPRO     string // base64 <mspr:pro> content
	WidevinePSSH     string // base64 cenc:pssh content
}

// HLSVariant is one #EXT-X-STREAM-INF entry of an HLS master playlist.
type HLSVariant struct {
	Bandwidth   int
	Width       int
	Height      int
	Codecs      string
	PlaylistURL string
	AudioGroup  string
}

// HLSAudioTrack is one #EXT-X-MEDIA:TYPE=AUDIO entry.
type HLSAudioTrack struct {
	GroupID     string
	Name        string
	BandwidthKb int
	URI         string
}

// HLSKey records a per-track #EXT-X-KEY directive.
type HLSKey struct {
	Method string // "AES-128" or "SAMPLE-AES"
	URI    string
	KeyFormat string // e.g. com.apple.streamingkeydelivery for FairPlay
}

// Track is the manifest's post-selection video or audio stream.
type Track struct {
	InitURL     string
	SegmentURLs []string
	Bandwidth   int
	Height      int
	Key         *HLSKey
}

// Manifest is the parsed representation of either an MPD or an HLS
// playlist set, after track selection (spec.md §3, §4.4).
type Manifest struct {
	IsHLS         bool
	AdaptationSets []AdaptationSet // MPD only
	Variants      []HLSVariant    // HLS only
	AudioTracks   []HLSAudioTrack // HLS only

	VideoTrack *Track
	AudioTrack *Track

	BaseURL string
}
