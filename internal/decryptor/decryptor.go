// Package decryptor implements Decryptor (spec.md §4.8): invokes an
// external decryption tool as a subprocess, the same way the pack's own
// DRM packaging code shells out to ffmpeg/shaka packager.
package decryptor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/berrizdl/core/internal/config"
	"github.com/berrizdl/core/internal/domain"
)

// Decrypt runs the configured engine against (inputPath, outputPath) using
// the content keys encoded in keyString (spec.md §4.8).
func Decrypt(ctx context.Context, inputPath, outputPath, keyString string, engine config.DecryptionEngine) error {
	switch engine {
	case config.EngineMP4Decrypt:
		return mp4decrypt(ctx, inputPath, outputPath, keyString)
	case config.EngineShakaPackager:
		return shakaPackager(ctx, inputPath, outputPath, keyString)
	default:
		return fmt.Errorf("decryptor: unknown engine %q", engine)
	}
}

// mp4decrypt implements spec.md §4.8's mp4decrypt path: split keyString on
// whitespace, one --key flag per token.
func mp4decrypt(ctx context.Context, inputPath, outputPath, keyString string) error {
	keys := strings.Fields(keyString)
	if len(keys) == 0 {
		return fmt.Errorf("decryptor: no keys supplied")
	}
	args := make([]string, 0, len(keys)*2+2)
	for _, k := range keys {
		args = append(args, "--key", k)
	}
	args = append(args, inputPath, outputPath)

	return run(ctx, "mp4decrypt", args...)
}

// shakaPackager implements spec.md §4.8's shaka_packager path: split
// keyString on newlines, building a key_id=KID:key=value argument per
// line, then invoke packager with raw-key decryption enabled.
func shakaPackager(ctx context.Context, inputPath, outputPath, keyString string) error {
	lines := strings.Split(strings.TrimSpace(keyString), "\n")
	var keyArgs []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		kid, key, ok := strings.Cut(line, ":")
		if !ok {
			return fmt.Errorf("decryptor: malformed key line %q", line)
		}
		keyArgs = append(keyArgs, "--keys", fmt.Sprintf("key_id=%s:key=%s", kid, key))
	}
	if len(keyArgs) == 0 {
		return fmt.Errorf("decryptor: no keys supplied")
	}

	tmpOut := outputPath + ".m4v"
	args := append([]string{
		fmt.Sprintf("input=%s,stream_selector=0,output=%s", inputPath, tmpOut),
		"--enable_raw_key_decryption",
	}, keyArgs...)

	if err := run(ctx, "packager", args...); err != nil {
		return err
	}
	return os.Rename(tmpOut, outputPath)
}

func run(ctx context.Context, bin string, args ...string) error {
	cmd := exec.CommandContext(ctx, bin, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) && errors.Is(execErr.Err, exec.ErrNotFound) {
			return fmt.Errorf("%w: %s", domain.ErrToolMissing, bin)
		}
		return fmt.Errorf("decryptor: %s failed: %w\n%s", bin, err, string(out))
	}
	return nil
}
