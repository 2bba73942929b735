// Package muxer implements Muxer (spec.md §4.9): combines a decrypted
// video track with an optional audio track into one output container,
// shelling out to ffmpeg or mkvmerge the same way decryptor shells out to
// mp4decrypt/packager.
package muxer

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/berrizdl/core/internal/config"
	"github.com/berrizdl/core/internal/domain"
)

// Mux combines videoPath (and audioPath, when non-empty) into outputPath
// using the configured engine (spec.md §4.9).
func Mux(ctx context.Context, videoPath, audioPath, outputPath string, engine config.MuxEngine) error {
	switch engine {
	case config.MuxFFmpeg:
		return ffmpegMux(ctx, videoPath, audioPath, outputPath)
	case config.MuxMkvToolNix:
		return mkvmerge(ctx, videoPath, audioPath, outputPath)
	default:
		return fmt.Errorf("muxer: unknown engine %q", engine)
	}
}

// ffmpegMux implements spec.md §4.9's ffmpeg path: stream-copy both
// tracks, fix up the AAC bitstream for fragmented MP4, strip source
// metadata, and write a faststart-friendly fragmented moov.
func ffmpegMux(ctx context.Context, videoPath, audioPath, outputPath string) error {
	args := []string{"-i", videoPath}
	if audioPath != "" {
		args = append(args, "-i", audioPath)
	}
	args = append(args,
		"-c", "copy",
		"-bsf:a", "aac_adtstoasc",
		"-movflags", "+faststart+frag_keyframe+empty_moov+default_base_moof",
		"-fflags", "+genpts",
		"-map_metadata", "-1",
		"-map_chapters", "-1",
		"-metadata", "title=",
		"-metadata", "comment=",
		"-y", outputPath,
	)
	return run(ctx, "ffmpeg", args...)
}

// mkvmerge implements spec.md §4.9's mkvtoolnix path: strip chapters,
// global and track tags, blank the title, and disable IETF language tags
// so the original uploader-supplied language codes pass through unchanged.
func mkvmerge(ctx context.Context, videoPath, audioPath, outputPath string) error {
	args := []string{
		"-o", outputPath,
		"--no-chapters",
		"--no-global-tags",
		"--no-track-tags",
		"--title", "",
		"--disable-language-ietf",
		videoPath,
	}
	if audioPath != "" {
		args = append(args, audioPath)
	}
	return run(ctx, "mkvmerge", args...)
}

func run(ctx context.Context, bin string, args ...string) error {
	cmd := exec.CommandContext(ctx, bin, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) && errors.Is(execErr.Err, exec.ErrNotFound) {
			return fmt.Errorf("%w: %s", domain.ErrToolMissing, bin)
		}
		return fmt.Errorf("muxer: %s failed: %w\n%s", bin, err, string(out))
	}
	return nil
}
