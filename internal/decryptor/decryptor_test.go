package decryptor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/berrizdl/core/internal/domain"
)

func TestMp4decryptNoKeys(t *testing.T) {
	err := mp4decrypt(context.Background(), "in", "out", "   ")
	require.Error(t, err)
}

func TestShakaPackagerMalformedKeyLine(t *testing.T) {
	err := shakaPackager(context.Background(), "in", "out", "not-a-kid-key-pair")
	require.Error(t, err)
}

func TestShakaPackagerNoKeys(t *testing.T) {
	err := shakaPackager(context.Background(), "in", "out", "\n\n  \n")
	require.Error(t, err)
}

func TestRunWrapsToolMissing(t *testing.T) {
	err := run(context.Background(), "definitely-not-a-real-binary-xyz")
	require.Error(t, err)
	require.True(t, errors.Is(err, domain.ErrToolMissing))
}

// TestShakaPackagerRenamesOutput exercises the rename step using a real
// "packager" stand-in placed first on PATH, since the actual binary is
// unavailable in this environment.
func TestShakaPackagerRenamesOutput(t *testing.T) {
	dir := t.TempDir()
	stub := filepath.Join(dir, "packager")
	script := "#!/bin/sh\n" +
		"spec=\"$1\"\n" +
		"rest=\"${spec#*output=}\"\n" +
		"out=\"${rest%%,*}\"\n" +
		"touch \"$out\"\n" +
		"exit 0\n"
	require.NoError(t, os.WriteFile(stub, []byte(script), 0o755))

	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))

	outputPath := filepath.Join(t.TempDir(), "out.mp4")
	err := shakaPackager(context.Background(), "input.mp4", outputPath, "ABCD1234:EF567890")
	require.NoError(t, err)
	_, statErr := os.Stat(outputPath)
	require.NoError(t, statErr)
}
