package muxer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/berrizdl/core/internal/config"
	"github.com/berrizdl/core/internal/domain"
)

func TestUnknownEngine(t *testing.T) {
	err := Mux(context.Background(), "v.mp4", "a.mp4", "out.mp4", "bogus")
	require.Error(t, err)
}

func TestRunWrapsToolMissing(t *testing.T) {
	err := run(context.Background(), "definitely-not-a-real-binary-xyz")
	require.Error(t, err)
	require.True(t, errors.Is(err, domain.ErrToolMissing))
}

// TestFfmpegMuxInvokesStub exercises the argument construction via a stub
// binary first on PATH, since the real ffmpeg is unavailable here.
func TestFfmpegMuxInvokesStub(t *testing.T) {
	dir := t.TempDir()
	stub := filepath.Join(dir, "ffmpeg")
	script := "#!/bin/sh\nfor last; do :; done\ntouch \"$last\"\nexit 0\n"
	require.NoError(t, os.WriteFile(stub, []byte(script), 0o755))
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))

	out := filepath.Join(t.TempDir(), "out.mp4")
	err := ffmpegMux(context.Background(), "v.mp4", "a.mp4", out)
	require.NoError(t, err)
	_, statErr := os.Stat(out)
	require.NoError(t, statErr)
}

func TestMkvmergeOmitsAudioWhenEmpty(t *testing.T) {
	dir := t.TempDir()
	stub := filepath.Join(dir, "mkvmerge")
	script := "#!/bin/sh\n" +
		"if [ \"$#\" -ne 9 ]; then echo \"unexpected arg count: $#\" >&2; exit 1; fi\n" +
		"out=\"$2\"\ntouch \"$out\"\nexit 0\n"
	require.NoError(t, os.WriteFile(stub, []byte(script), 0o755))
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))

	out := filepath.Join(t.TempDir(), "out.mkv")
	err := mkvmerge(context.Background(), "v.mp4", "", out)
	require.NoError(t, err)
	_, statErr := os.Stat(out)
	require.NoError(t, statErr)
}
