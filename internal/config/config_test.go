package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
duplicate:
  default: false
KeyService:
  source: cdrm_wv
Container:
  mux: mkvtoolnix
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.False(t, cfg.Duplicate.Default)
	require.Equal(t, "cdrm_wv", cfg.ResolvedDRMBackend())
	require.Equal(t, "mkv", cfg.Container.ResolvedContainer())
	require.True(t, cfg.CleanDownloads) // untouched default survives the merge
}

func TestResolvedDRMBackendFallsBackToWV(t *testing.T) {
	cfg := Defaults()
	cfg.KeyService.Source = "not-a-real-backend"
	require.Equal(t, "wv", cfg.ResolvedDRMBackend())
}

func TestDuplicateConfigOverride(t *testing.T) {
	d := DuplicateConfig{Default: true}
	require.True(t, d.Enabled(nil))
	no := false
	require.False(t, d.Enabled(&no))
}

func TestTimeZoneConfigFallsBackToKST(t *testing.T) {
	tz := TimeZoneConfig{}
	require.Equal(t, DefaultKSTOffset*3600, tz.OffsetSeconds())
	tz.Hours = -5
	require.Equal(t, -5*3600, tz.OffsetSeconds())
}
