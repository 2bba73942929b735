// Package merger implements Merger (spec.md §4.7): concatenates an
// ordered list of segment files (plus an optional init file) into one
// output file, chunked and parallelized.
package merger

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
)

// chunkGroupSize is spec.md §4.7's "partition segments into chunks of 30".
const chunkGroupSize = 30

// readBlockSize is spec.md §4.7's "reading in 2 MiB blocks".
const readBlockSize = 2 * 1024 * 1024

// ProgressFunc reports cumulative bytes written.
type ProgressFunc func(bytesWritten int64)

// Merge concatenates segPaths (in order) into outputPath, writing initPath
// first when non-empty. isHLS controls append-vs-write-mode semantics
// (spec.md §4.7: MPD opens the output in append mode after the init
// bytes; HLS opens in write mode with no init).
func Merge(ctx context.Context, tempDir, outputPath, initPath string, segPaths []string, isHLS bool, progress ProgressFunc) error {
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return fmt.Errorf("merger: mkdir temp dir: %w", err)
	}

	chunks := chunkize(segPaths, chunkGroupSize)
	chunkFiles := make([]string, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		chunkPath := filepath.Join(tempDir, fmt.Sprintf("chunk_%04d", i))
		chunkFiles[i] = chunkPath
		g.Go(func() error {
			return concatFiles(gctx, chunkPath, chunk)
		})
	}
	if err := g.Wait(); err != nil {
		_ = os.RemoveAll(tempDir)
		return fmt.Errorf("merger: chunk concat failed: %w", err)
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if !isHLS {
		if initPath != "" {
			if err := writeInit(outputPath, initPath); err != nil {
				_ = os.RemoveAll(tempDir)
				return fmt.Errorf("merger: write init: %w", err)
			}
		}
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}

	out, err := os.OpenFile(outputPath, flags, 0o644)
	if err != nil {
		_ = os.RemoveAll(tempDir)
		return fmt.Errorf("merger: open output: %w", err)
	}
	defer out.Close()

	var total int64
	buf := make([]byte, readBlockSize)
	for _, cf := range chunkFiles {
		n, err := appendFile(ctx, out, cf, buf)
		if err != nil {
			_ = os.RemoveAll(tempDir)
			return fmt.Errorf("merger: append chunk %s: %w", cf, err)
		}
		total += n
		if progress != nil {
			progress(total)
		}
	}

	return os.RemoveAll(tempDir)
}

func writeInit(outputPath, initPath string) error {
	data, err := os.ReadFile(initPath)
	if err != nil {
		return err
	}
	return os.WriteFile(outputPath, data, 0o644)
}

func chunkize(paths []string, size int) [][]string {
	var out [][]string
	for i := 0; i < len(paths); i += size {
		end := i + size
		if end > len(paths) {
			end = len(paths)
		}
		out = append(out, paths[i:end])
	}
	return out
}

func concatFiles(ctx context.Context, dest string, srcs []string) error {
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	buf := make([]byte, readBlockSize)
	for _, src := range srcs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := appendFile(ctx, out, src, buf); err != nil {
			return err
		}
	}
	return nil
}

func appendFile(ctx context.Context, dst *os.File, src string, buf []byte) (int64, error) {
	f, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return io.CopyBuffer(dst, f, buf)
}
