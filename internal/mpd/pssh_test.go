package mpd

import (
	"testing"

	"github.com/berrizdl/core/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestExtractPsshPartitionsByKind(t *testing.T) {
	widevine := make([]byte, 74)
	for i := range widevine {
		widevine[i] = 'a'
	}
	wvPssh := string(widevine) + "=="

	sets := []domain.AdaptationSet{
		{ContentType: "video", WidevinePSSH: wvPssh},
		{ContentType: "audio", PlayReadyPRO: "base64-wrm-header-data"},
	}

	out := ExtractPssh(sets)
	require.Len(t, out.Widevine, 1)
	require.Len(t, out.PlayReady, 1)
}

func TestSubstituteTimeAndRepresentationID(t *testing.T) {
	got := substituteRepresentationID("chunk-$RepresentationID$-$Time$.m4s", "video-1")
	got = substituteTime(got, 12345)
	require.Equal(t, "chunk-video-1-12345.m4s", got)
}
