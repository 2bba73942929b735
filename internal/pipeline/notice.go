package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/berrizdl/core/internal/community"
	"github.com/berrizdl/core/internal/domain"
	"github.com/berrizdl/core/internal/pathbuilder"
)

type noticeRenderData struct {
	Title string
	Time  string
	Body  string
}

// processNotice implements spec.md §4.12 step 4's NOTICE processor: fetch
// the notice detail, download its inline images, render the HTML body,
// then persist both alongside a flattened JSON sidecar. Grounded on
// original_source/unit/notice/get_body_images.py and the post processor's
// shared save_html.py template flow.
func (p *Pipeline) processNotice(ctx context.Context, item domain.MediaDescriptor, cr community.Resolved) error {
	notice, err := p.deps.Metadata.NoticeItemDetail(ctx, item.CommunityID, item.ID)
	if err != nil {
		return fmt.Errorf("pipeline: notice detail: %w", err)
	}

	communityName := cr.Name
	folder := filepath.Join(p.outRoot, pathbuilder.Sanitize(communityName), "Notices", pathbuilder.Sanitize(notice.NoticeID))
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return fmt.Errorf("pipeline: notice folder: %w", err)
	}

	for i, url := range notice.ImageURLs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		dest := filepath.Join(folder, fmt.Sprintf("image_%d.jpg", i+1))
		if err := p.deps.Images.FetchImage(ctx, url, dest); err != nil {
			return fmt.Errorf("pipeline: notice image %d: %w", i, err)
		}
	}

	if p.deps.Renderer != nil {
		html, err := p.deps.Renderer.Render("notice", noticeRenderData{
			Title: notice.Title,
			Time:  item.PublishedAt.Format("2006-01-02T15:04:05"),
			Body:  notice.Body,
		})
		if err != nil {
			return fmt.Errorf("pipeline: render notice html: %w", err)
		}
		htmlPath := filepath.Join(folder, pathbuilder.Sanitize(notice.Title)+".html")
		if err := os.WriteFile(htmlPath, []byte(html), 0o644); err != nil {
			return fmt.Errorf("pipeline: write notice html: %w", err)
		}
	}

	raw, err := json.MarshalIndent(notice, "", "  ")
	if err != nil {
		return fmt.Errorf("pipeline: marshal notice json: %w", err)
	}
	jsonPath := filepath.Join(folder, pathbuilder.Sanitize(notice.Title)+".json")
	return os.WriteFile(jsonPath, raw, 0o644)
}
