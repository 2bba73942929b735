package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPsshSetPartitionsByLength(t *testing.T) {
	wv := strings.Repeat("A", 76)
	pr := strings.Repeat("B", 120)

	var set PsshSet
	set.Add(wv)
	set.Add(pr)
	set.Add(wv) // duplicate, must collapse

	require.Len(t, set.Widevine, 1)
	require.Len(t, set.PlayReady, 1)
	require.Equal(t, wv, set.Widevine[0])
	require.Equal(t, pr, set.PlayReady[0])
	require.False(t, set.Empty())
}

func TestPsshSetEmpty(t *testing.T) {
	var set PsshSet
	require.True(t, set.Empty())
	require.Empty(t, set.All())
}

func TestPlaybackContextValidate(t *testing.T) {
	cases := []struct {
		name    string
		ctx     PlaybackContext
		wantErr error
	}{
		{
			name:    "no urls at all",
			ctx:     PlaybackContext{},
			wantErr: ErrNoPlaybackURL,
		},
		{
			name:    "non-drm with hls url",
			ctx:     PlaybackContext{HLSUrl: "https://x/master.m3u8"},
			wantErr: nil,
		},
		{
			name:    "drm without assertion",
			ctx:     PlaybackContext{MPDUrl: "https://x/m.mpd", IsDRM: true, LicenseURLs: LicenseURLs{Widevine: "https://lic"}},
			wantErr: ErrMissingAssertion,
		},
		{
			name:    "drm without license url",
			ctx:     PlaybackContext{MPDUrl: "https://x/m.mpd", IsDRM: true, Assertion: "tok"},
			wantErr: ErrNoLicenseURL,
		},
		{
			name: "drm happy path",
			ctx: PlaybackContext{
				MPDUrl:      "https://x/m.mpd",
				IsDRM:       true,
				Assertion:   "tok",
				LicenseURLs: LicenseURLs{Widevine: "https://lic"},
			},
			wantErr: nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.ctx.Validate()
			if tc.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}
