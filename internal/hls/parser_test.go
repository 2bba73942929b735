package hls

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const masterPlaylist = `#EXTM3U
#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID="aud1",NAME="main",URI="audio/index.m3u8"
#EXT-X-STREAM-INF:BANDWIDTH=2000000,RESOLUTION=1280x720,CODECS="avc1.4d401f",AUDIO="aud1"
video/720.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=800000,RESOLUTION=640x360
video/360.m3u8
`

func TestParseMaster(t *testing.T) {
	variants, audio, err := ParseMaster([]byte(masterPlaylist), "https://cdn.example.com/master.m3u8")
	require.NoError(t, err)
	require.Len(t, variants, 2)
	require.Equal(t, 2000000, variants[0].Bandwidth)
	require.Equal(t, 1280, variants[0].Width)
	require.Equal(t, 720, variants[0].Height)
	require.Equal(t, "aud1", variants[0].AudioGroup)
	require.Equal(t, "https://cdn.example.com/video/720.m3u8", variants[0].PlaylistURL)

	require.Len(t, audio, 1)
	require.Equal(t, "https://cdn.example.com/audio/index.m3u8", audio[0].URI)
}

const mediaPlaylist = `#EXTM3U
#EXT-X-KEY:METHOD=AES-128,URI="https://cdn.example.com/key"
#EXTINF:4.0,
seg0.ts
#EXTINF:4.0,
seg1.ts
`

func TestParseMedia(t *testing.T) {
	segs, key, warnings, err := ParseMedia([]byte(mediaPlaylist), "https://cdn.example.com/video/720.m3u8")
	require.NoError(t, err)
	require.Len(t, segs, 2)
	require.Equal(t, "https://cdn.example.com/video/seg0.ts", segs[0])
	require.NotNil(t, key)
	require.Equal(t, "AES-128", key.Method)
	require.Empty(t, warnings)
}

func TestParseMediaWarnsOnUnsupportedSampleAES(t *testing.T) {
	const pl = `#EXTM3U
#EXT-X-KEY:METHOD=SAMPLE-AES,URI="skd://key",KEYFORMAT="com.widevine.alpha"
seg0.ts
`
	_, key, warnings, err := ParseMedia([]byte(pl), "https://cdn.example.com/video/720.m3u8")
	require.NoError(t, err)
	require.Equal(t, "SAMPLE-AES", key.Method)
	require.NotEmpty(t, warnings)
}

func TestHasSegmentSuffix(t *testing.T) {
	require.True(t, hasSegmentSuffix("seg1.ts?token=abc"))
	require.True(t, hasSegmentSuffix("audio.m4a"))
	require.False(t, hasSegmentSuffix("playlist.m3u8"))
}
