// Package config defines the typed YAML configuration surface consumed by
// the acquisition core (spec.md §6). Loading the file from disk, merging
// env overrides and CLI flags into it is owned by the external CLI
// collaborator (spec.md §1); this package only defines the types and the
// defaults-then-file merge the core needs to run standalone in tests.
package config

import "time"

// DuplicateConfig controls per-content-type dedup behavior (spec.md §6,
// §4.12 step 5).
type DuplicateConfig struct {
	Default   bool `yaml:"default"`
	Overrides struct {
		Image  *bool `yaml:"image,omitempty"`
		Video  *bool `yaml:"video,omitempty"`
		Post   *bool `yaml:"post,omitempty"`
		Notice *bool `yaml:"notice,omitempty"`
	} `yaml:"overrides"`
}

// Enabled resolves the effective dedup toggle for one content type.
func (d DuplicateConfig) Enabled(override *bool) bool {
	if override != nil {
		return *override
	}
	return d.Default
}

// HeadersConfig carries the outbound User-Agent (spec.md §6).
type HeadersConfig struct {
	UserAgent string `yaml:"User-Agent"`
}

// OutputTemplateConfig controls filename template expansion (spec.md §4.10, §6).
type OutputTemplateConfig struct {
	Video      string `yaml:"video"`
	Tag        string `yaml:"tag"`
	DateFormat string `yaml:"date_formact"` // name kept verbatim per spec.md §6
}

// DownloadDirNameConfig controls folder template expansion (spec.md §6).
type DownloadDirNameConfig struct {
	DownloadDir string `yaml:"download_dir"`
	DirName     string `yaml:"dir_name"`
	DateFormat  string `yaml:"date_formact"`
}

// MuxEngine selects the Muxer backend (spec.md §4.9).
type MuxEngine string

const (
	MuxFFmpeg    MuxEngine = "ffmpeg"
	MuxMkvToolNix MuxEngine = "mkvtoolnix"
)

// DecryptionEngine selects the Decryptor backend (spec.md §4.8).
type DecryptionEngine string

const (
	EngineMP4Decrypt    DecryptionEngine = "MP4DECRYPT"
	EngineShakaPackager DecryptionEngine = "SHAKA_PACKAGER"
)

// ContainerConfig controls mux/decrypt tool selection and output container
// (spec.md §4.8, §4.9, §6).
type ContainerConfig struct {
	Mux              MuxEngine        `yaml:"mux"`
	Video            string           `yaml:"video"` // ts|mp4|mov|m4v|mkv|avi
	DecryptionEngine DecryptionEngine `yaml:"decryption-engine"`
}

// ResolvedContainer returns the effective container extension, forcing
// "mkv" when mkvmerge is selected (spec.md §4.9).
func (c ContainerConfig) ResolvedContainer() string {
	if c.Mux == MuxMkvToolNix {
		return "mkv"
	}
	if c.Video == "" {
		return "mp4"
	}
	return c.Video
}

// StreamSourceConfig selects HLS vs MPEG-DASH and track resolution choice
// (spec.md §4.4, §6).
type StreamSourceConfig struct {
	HLS                    bool   `yaml:"HLS"`
	VideoResolutionChoice  string `yaml:"Video_Resolution_Choice"` // "none"|"ask"|numeric string
	AudioResolutionChoice  string `yaml:"Audio_Resolution_Choice"`
}

// TimeZoneConfig carries the configured hour offset, which wins over the
// bare KST constant the original source also contains (spec.md §9).
type TimeZoneConfig struct {
	Hours int `yaml:"time"` // -12..+14
}

// DefaultKSTOffset is the fallback used only when TimeZoneConfig is unset,
// per the Design Note §9 resolution of that Open Question.
const DefaultKSTOffset = 9

// OffsetSeconds returns the effective *time.Location-equivalent fixed offset in
// seconds east of UTC.
func (t TimeZoneConfig) OffsetSeconds() int {
	if t.Hours == 0 {
		return DefaultKSTOffset * 3600
	}
	return t.Hours * 3600
}

// KeyServiceConfig selects the DRM backend (spec.md §4.5, §6). Any
// unrecognized value falls back to "wv".
type KeyServiceConfig struct {
	Source string `yaml:"source"`
}

// CDMConfig carries device-blob paths for local CDM sessions (spec.md §6).
type CDMConfig struct {
	Widevine  string `yaml:"widevine"`  // *.wvd
	PlayReady string `yaml:"playready"` // *.prd
}

// BerrizAccountConfig carries login credentials (spec.md §6).
type BerrizAccountConfig struct {
	Account  string `yaml:"account"`
	Password string `yaml:"password"`
}

// LoggingConfig mirrors spec.md §6 logging.{level,format}.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ProxyConfig controls HttpClient proxy rotation (spec.md §4.3, §6).
type ProxyConfig struct {
	Enable      bool     `yaml:"Proxy_Enable"`
	UseProxyList bool    `yaml:"use_proxy_list"`
	UseProxy    string   `yaml:"use_proxy"`
	HTTP        string   `yaml:"http"`
	HTTPS       string   `yaml:"https"`
}

// Config is the fully typed configuration the core components consume.
type Config struct {
	Duplicate        DuplicateConfig       `yaml:"duplicate"`
	Headers          HeadersConfig         `yaml:"headers"`
	OutputTemplate   OutputTemplateConfig  `yaml:"output_template"`
	DownloadDirName  DownloadDirNameConfig `yaml:"Donwload_Dir_Name"` // name kept verbatim per spec.md §6
	Container        ContainerConfig       `yaml:"Container"`
	StreamSource     StreamSourceConfig    `yaml:"HLS or MPEG-DASH"`
	TimeZone         TimeZoneConfig        `yaml:"TimeZone"`
	KeyService       KeyServiceConfig      `yaml:"KeyService"`
	CDM              CDMConfig             `yaml:"CDM"`
	Berriz           BerrizAccountConfig   `yaml:"berriz"`
	Logging          LoggingConfig         `yaml:"logging"`
	Proxy            ProxyConfig           `yaml:"Proxy"`

	// CleanDownloads mirrors the CLI's clean_dl flag default (spec.md §6);
	// the core honours it when the CLI does not override it explicitly.
	CleanDownloads bool `yaml:"-"`

	// Timeouts are not user-facing YAML but are grounded defaults used
	// throughout HttpClient/SegmentDownloader (spec.md §5).
	ConnectTimeout       time.Duration `yaml:"-"`
	SegmentReadTimeout   time.Duration `yaml:"-"`
	SegmentRequestTimeout time.Duration `yaml:"-"`
}

// Defaults returns a Config populated with the literal defaults spec.md
// documents throughout (timeouts in §5, clean_dl in §6).
func Defaults() Config {
	return Config{
		CleanDownloads:        true,
		ConnectTimeout:        10 * time.Second,
		SegmentReadTimeout:    20 * time.Second,
		SegmentRequestTimeout: 600 * time.Second,
		Container: ContainerConfig{
			Mux:              MuxFFmpeg,
			Video:            "mp4",
			DecryptionEngine: EngineMP4Decrypt,
		},
		KeyService: KeyServiceConfig{Source: "wv"},
	}
}

// ResolvedDRMBackend returns the configured backend, falling back to "wv"
// for any unrecognized value (spec.md §4.5).
func (c Config) ResolvedDRMBackend() string {
	switch c.KeyService.Source {
	case "wv", "mspr", "watora_wv", "cdrm_wv", "cdrm_mspr":
		return c.KeyService.Source
	default:
		return "wv"
	}
}
