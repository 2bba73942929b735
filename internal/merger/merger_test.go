package merger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestMergeMPDAppendsInitThenSegments(t *testing.T) {
	dir := t.TempDir()
	initPath := writeTempFile(t, dir, "init.m4s", "INIT")
	seg0 := writeTempFile(t, dir, "seg0.m4s", "ONE")
	seg1 := writeTempFile(t, dir, "seg1.m4s", "TWO")

	out := filepath.Join(dir, "out.mp4")
	tmp := filepath.Join(dir, "chunks")

	var lastProgress int64
	err := Merge(context.Background(), tmp, out, initPath, []string{seg0, seg1}, false, func(n int64) { lastProgress = n })
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, "INITONETWO", string(data))
	require.EqualValues(t, 6, lastProgress) // "ONE"+"TWO" = 6 bytes

	_, statErr := os.Stat(tmp)
	require.True(t, os.IsNotExist(statErr))
}

func TestMergeHLSHasNoInit(t *testing.T) {
	dir := t.TempDir()
	seg0 := writeTempFile(t, dir, "seg0.ts", "AAA")
	seg1 := writeTempFile(t, dir, "seg1.ts", "BBB")

	out := filepath.Join(dir, "out.ts")
	tmp := filepath.Join(dir, "chunks")

	err := Merge(context.Background(), tmp, out, "", []string{seg0, seg1}, true, nil)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, "AAABBB", string(data))
}
