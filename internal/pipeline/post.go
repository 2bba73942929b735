package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/berrizdl/core/internal/berrizapi"
	"github.com/berrizdl/core/internal/community"
	"github.com/berrizdl/core/internal/domain"
	"github.com/berrizdl/core/internal/pathbuilder"
)

// postRenderData is handed to HTMLRenderer.Render for the post template,
// grounded on original_source/unit/post/save_html.py's SaveHTML fields.
type postRenderData struct {
	Title string
	Time  string
	Body  string
}

// processPost implements spec.md §4.12 step 4's POST processor: fetch the
// board item, download its inline images, render the HTML body, then
// persist both alongside a flattened JSON sidecar.
func (p *Pipeline) processPost(ctx context.Context, item domain.MediaDescriptor, cr community.Resolved) error {
	post, err := p.deps.Metadata.BoardItemDetail(ctx, item.CommunityID, item.ID)
	if err != nil {
		return fmt.Errorf("pipeline: post detail: %w", err)
	}

	communityName := cr.Name
	folder := filepath.Join(p.outRoot, pathbuilder.Sanitize(communityName), "Posts", pathbuilder.Sanitize(post.PostID))
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return fmt.Errorf("pipeline: post folder: %w", err)
	}

	for i, url := range post.ImageURLs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		dest := filepath.Join(folder, fmt.Sprintf("image_%d.jpg", i+1))
		if err := p.deps.Images.FetchImage(ctx, url, dest); err != nil {
			return fmt.Errorf("pipeline: post image %d: %w", i, err)
		}
	}

	if p.deps.Renderer != nil {
		html, err := p.deps.Renderer.Render("post", postRenderData{
			Title: post.Title,
			Time:  item.PublishedAt.Format("2006-01-02T15:04:05"),
			Body:  post.Body,
		})
		if err != nil {
			return fmt.Errorf("pipeline: render post html: %w", err)
		}
		htmlPath := filepath.Join(folder, pathbuilder.Sanitize(post.Title)+".html")
		if err := os.WriteFile(htmlPath, []byte(html), 0o644); err != nil {
			return fmt.Errorf("pipeline: write post html: %w", err)
		}
	}

	translations, err := p.fetchPostTranslations(ctx, post.PostID)
	if err != nil {
		return fmt.Errorf("pipeline: fetch post translations: %w", err)
	}

	payload := translatedPostJSON{Index: post, Translations: translations}
	raw, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("pipeline: marshal post json: %w", err)
	}
	jsonPath := filepath.Join(folder, pathbuilder.Sanitize(post.Title)+".json")
	return os.WriteFile(jsonPath, raw, 0o644)
}

// translatedPostJSON is the POST sidecar shape mandated by spec.md:230
// ("persist translated JSON (4 language variants)"), recovered from
// original_source/unit/handle/handle_board_from.py's JsonBuilder.get_json_formact.
type translatedPostJSON struct {
	Index        berrizapi.BoardItem `json:"index"`
	Translations postTranslationSet  `json:"translations"`
}

// postTranslationSet mirrors JsonBuilder.fetch_translations's four
// concurrent translate_post calls. The "ja" target language code maps to
// the "jp" JSON key; that asymmetry comes straight from the original and
// is preserved here rather than "fixed".
type postTranslationSet struct {
	En     string `json:"en"`
	Jp     string `json:"jp"`
	ZhHant string `json:"zh-Hant"`
	ZhHans string `json:"zh-Hans"`
}

// fetchPostTranslations implements JsonBuilder.fetch_translations: four
// concurrent Translate.translate_post calls, one per target language.
func (p *Pipeline) fetchPostTranslations(ctx context.Context, postID string) (postTranslationSet, error) {
	var set postTranslationSet
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		v, err := p.deps.Metadata.TranslatePost(gctx, postID, "en")
		set.En = v
		return err
	})
	g.Go(func() error {
		v, err := p.deps.Metadata.TranslatePost(gctx, postID, "ja")
		set.Jp = v
		return err
	})
	g.Go(func() error {
		v, err := p.deps.Metadata.TranslatePost(gctx, postID, "zh-Hant")
		set.ZhHant = v
		return err
	})
	g.Go(func() error {
		v, err := p.deps.Metadata.TranslatePost(gctx, postID, "zh-Hans")
		set.ZhHans = v
		return err
	})

	if err := g.Wait(); err != nil {
		return postTranslationSet{}, err
	}
	return set, nil
}
