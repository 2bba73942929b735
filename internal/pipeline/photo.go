package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/berrizdl/core/internal/community"
	"github.com/berrizdl/core/internal/domain"
	"github.com/berrizdl/core/internal/pathbuilder"
)

// processPhoto implements spec.md §4.12 step 4's PHOTO processor:
// public-context then playback-info for the image URL list, downloaded
// into a per-media folder under the photo semaphore the caller already
// acquired.
func (p *Pipeline) processPhoto(ctx context.Context, item domain.MediaDescriptor, cr community.Resolved) error {
	public, err := p.deps.Metadata.PublicContext(ctx, item.ID)
	if err != nil {
		return fmt.Errorf("pipeline: photo public context: %w", err)
	}

	urls, err := p.deps.Metadata.PhotoImages(ctx, item.ID)
	if err != nil {
		return fmt.Errorf("pipeline: photo images: %w", err)
	}
	if len(urls) == 0 {
		return nil
	}

	communityName := public.CommunityName
	if communityName == "" {
		communityName = cr.Name
	}
	title := public.Title
	if title == "" {
		title = item.Title
	}

	dirName := pathbuilder.Expand(p.cfg.DownloadDirName.DirName, map[string]string{
		"title": pathbuilder.Sanitize(title),
		"date":  item.PublishedAt.Format("060102"),
		"id":    item.ID,
	})
	folder := filepath.Join(p.outRoot, pathbuilder.Sanitize(communityName), "Images", pathbuilder.Sanitize(dirName))
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return fmt.Errorf("pipeline: photo folder: %w", err)
	}

	for i, url := range urls {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		name := fmt.Sprintf("%s_%s.jpg", pathbuilder.Sanitize(title), strconv.Itoa(i+1))
		dest := filepath.Join(folder, name)
		if err := p.deps.Images.FetchImage(ctx, url, dest); err != nil {
			return fmt.Errorf("pipeline: fetch image %d: %w", i, err)
		}
	}
	return nil
}
