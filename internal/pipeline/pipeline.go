// Package pipeline implements Pipeline (spec.md §4.12): queue + dispatcher
// coordinating every other component end to end, from a resolved
// SelectedMedia down to muxed files on disk.
package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/berrizdl/core/internal/berrizapi"
	"github.com/berrizdl/core/internal/community"
	"github.com/berrizdl/core/internal/config"
	"github.com/berrizdl/core/internal/dedup"
	"github.com/berrizdl/core/internal/domain"
	"github.com/berrizdl/core/internal/downloader"
	"github.com/berrizdl/core/internal/log"
	"github.com/berrizdl/core/internal/manifestparser"
	"github.com/berrizdl/core/internal/metrics"
)

// photoConcurrency and postNoticeConcurrency are spec.md §5's per-category
// semaphores ("Photo jobs have their own semaphore (7). Post/notice jobs
// have a job-level semaphore (≈40)"). Video/live concurrency lives inside
// the shared *downloader.Downloader instead (spec.md §5's global 50).
const (
	photoConcurrency     = 7
	postNoticeConcurrency = 40
)

// SessionEnsurer is the subset of AuthClient Pipeline depends on.
type SessionEnsurer interface {
	EnsureSession(ctx context.Context) error
}

// CommunityResolver is the subset of internal/community.Resolver Pipeline
// depends on.
type CommunityResolver interface {
	Resolve(ctx context.Context, query string) (community.Resolved, error)
}

// Selector is the external collaborator producing one run's content
// selection (spec.md §4.12 step 3; spec.md §1 lists the interactive
// selection UI as out of scope for this core).
type Selector interface {
	Select(ctx context.Context) (domain.SelectedMedia, error)
}

// HTMLRenderer is the external templating collaborator for post/notice
// bodies (spec.md §1: "the HTML templating for notices/posts" is out of
// scope for this core).
type HTMLRenderer interface {
	Render(templateName string, data any) (string, error)
}

// MetadataSource is the subset of berrizapi.Client Pipeline depends on.
type MetadataSource interface {
	PlaybackInfo(ctx context.Context, mediaID string) (domain.PlaybackContext, error)
	LivePlaybackInfo(ctx context.Context, mediaID string) (domain.PlaybackContext, error)
	PublicContext(ctx context.Context, mediaID string) (domain.PublicInfo, error)
	PhotoImages(ctx context.Context, mediaID string) ([]string, error)
	BoardItemDetail(ctx context.Context, communityID int64, postUUID string) (berrizapi.BoardItem, error)
	NoticeItemDetail(ctx context.Context, communityID int64, noticeID string) (berrizapi.NoticeDetail, error)
	TranslatePost(ctx context.Context, postID, targetLang string) (string, error)
}

// ManifestFetcher retrieves a raw manifest/media-playlist body without
// cookie attachment (httpclient.Client.FetchManifest satisfies this).
type ManifestFetcher interface {
	FetchManifest(ctx context.Context, url string) ([]byte, error)
}

// ManifestParser is the subset of manifestparser.Parser Pipeline depends on.
type ManifestParser interface {
	ParseMPD(raw []byte, baseURL string, sel manifestparser.Selection) (domain.Manifest, domain.PsshSet, error)
	ParseHLS(ctx context.Context, masterRaw []byte, masterURL string, sel manifestparser.Selection) (domain.Manifest, error)
}

// KeyGetter is the subset of keyresolver.Resolver Pipeline depends on.
type KeyGetter interface {
	GetKeys(ctx context.Context, pctx domain.PlaybackContext, set domain.PsshSet, headers map[string]string, cookies []*http.Cookie) ([]string, error)
}

// SegmentFetcher is the subset of downloader.Downloader Pipeline depends on.
type SegmentFetcher interface {
	Download(ctx context.Context, baseDir string, track downloader.Track) (downloader.Result, error)
}

// ImageFetcher downloads one arbitrary URL to path, used for photo/post/
// notice images which carry no DRM.
type ImageFetcher interface {
	FetchImage(ctx context.Context, url, path string) error
}

// Dependencies bundles every collaborator a Pipeline run needs.
type Dependencies struct {
	Session      SessionEnsurer
	Community    CommunityResolver
	Selector     Selector
	Metadata     MetadataSource
	ManifestGet  ManifestFetcher
	Manifest     ManifestParser
	Keys         KeyGetter
	Segments     SegmentFetcher
	Images       ImageFetcher
	Ledger       *dedup.Ledger
	Renderer     HTMLRenderer
}

// Pipeline is the Pipeline component.
type Pipeline struct {
	deps   Dependencies
	cfg    config.Config
	outRoot string

	photoSem      *semaphore.Weighted
	postNoticeSem *semaphore.Weighted
}

// New builds a Pipeline rooted at outputRoot.
func New(deps Dependencies, cfg config.Config, outputRoot string) *Pipeline {
	return &Pipeline{
		deps:          deps,
		cfg:           cfg,
		outRoot:       outputRoot,
		photoSem:      semaphore.NewWeighted(photoConcurrency),
		postNoticeSem: semaphore.NewWeighted(postNoticeConcurrency),
	}
}

// Run executes one full orchestration cycle (spec.md §4.12): ensure
// session, resolve the community, pull a selection, dispatch every
// non-empty category, then flush the dedup ledger.
func (p *Pipeline) Run(ctx context.Context, communityQuery string) error {
	if p.deps.Session != nil {
		if err := p.deps.Session.EnsureSession(ctx); err != nil {
			return fmt.Errorf("pipeline: ensure session: %w", err)
		}
	}

	var resolved community.Resolved
	if p.deps.Community != nil {
		r, err := p.deps.Community.Resolve(ctx, communityQuery)
		if err != nil {
			return fmt.Errorf("pipeline: resolve community: %w", err)
		}
		resolved = r
	}

	selection, err := p.deps.Selector.Select(ctx)
	if err != nil {
		return fmt.Errorf("pipeline: select: %w", err)
	}
	if selection.IsEmpty() {
		return nil
	}

	defer func() {
		if p.deps.Ledger != nil {
			_ = p.deps.Ledger.Close()
		}
	}()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return p.dispatchVideo(gctx, selection.VODs, resolved, false) })
	g.Go(func() error { return p.dispatchVideo(gctx, selection.Lives, resolved, true) })
	g.Go(func() error { return p.dispatchPhotos(gctx, selection.Photos, resolved) })
	g.Go(func() error { return p.dispatchPosts(gctx, selection.Post, resolved) })
	g.Go(func() error { return p.dispatchNotices(gctx, selection.Notice, resolved) })

	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return p.cleanupOnCancel()
		}
		return err
	}
	return nil
}

// cleanupOnCancel implements spec.md §4.12 step 6: remove per-job temp
// dirs, flush the dedup ledger, surface ErrUserCancelled.
func (p *Pipeline) cleanupOnCancel() error {
	_ = os.RemoveAll(filepath.Join(p.outRoot, ".tmp"))
	if p.deps.Ledger != nil {
		_ = p.deps.Ledger.Close()
	}
	return domain.ErrUserCancelled
}

func (p *Pipeline) dispatchVideo(ctx context.Context, items []domain.MediaDescriptor, cr community.Resolved, isLive bool) error {
	for _, item := range items {
		if p.skip(item, dedup.CategoryVideo) {
			continue
		}
		mediaType := string(item.Type)
		metrics.RecordJobStarted(mediaType)
		err := p.processVideo(ctx, item, cr, isLive)
		outcome := "done"
		if err != nil {
			outcome = "failed"
			log.FromContext(ctx).Error().Err(err).Str("media_id", item.ID).Msg("video job failed")
		} else {
			p.markDone(item, dedup.CategoryVideo)
		}
		metrics.RecordJobCompleted(mediaType, outcome)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}

func (p *Pipeline) dispatchPhotos(ctx context.Context, items []domain.MediaDescriptor, cr community.Resolved) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, item := range items {
		item := item
		if p.skip(item, dedup.CategoryImage) {
			continue
		}
		if err := p.photoSem.Acquire(gctx, 1); err != nil {
			return err
		}
		g.Go(func() error {
			defer p.photoSem.Release(1)
			metrics.RecordJobStarted(string(item.Type))
			err := p.processPhoto(gctx, item, cr)
			outcome := "done"
			if err != nil {
				outcome = "failed"
			} else {
				p.markDone(item, dedup.CategoryImage)
			}
			metrics.RecordJobCompleted(string(item.Type), outcome)
			return nil // a single photo failure does not abort the batch
		})
	}
	return g.Wait()
}

func (p *Pipeline) dispatchPosts(ctx context.Context, items []domain.MediaDescriptor, cr community.Resolved) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, item := range items {
		item := item
		if p.skip(item, dedup.CategoryPost) {
			continue
		}
		if err := p.postNoticeSem.Acquire(gctx, 1); err != nil {
			return err
		}
		g.Go(func() error {
			defer p.postNoticeSem.Release(1)
			metrics.RecordJobStarted(string(item.Type))
			err := p.processPost(gctx, item, cr)
			outcome := "done"
			if err != nil {
				outcome = "failed"
			} else {
				p.markDone(item, dedup.CategoryPost)
			}
			metrics.RecordJobCompleted(string(item.Type), outcome)
			return nil
		})
	}
	return g.Wait()
}

func (p *Pipeline) dispatchNotices(ctx context.Context, items []domain.MediaDescriptor, cr community.Resolved) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, item := range items {
		item := item
		if p.skip(item, dedup.CategoryNotice) {
			continue
		}
		if err := p.postNoticeSem.Acquire(gctx, 1); err != nil {
			return err
		}
		g.Go(func() error {
			defer p.postNoticeSem.Release(1)
			metrics.RecordJobStarted(string(item.Type))
			err := p.processNotice(gctx, item, cr)
			outcome := "done"
			if err != nil {
				outcome = "failed"
			} else {
				p.markDone(item, dedup.CategoryNotice)
			}
			metrics.RecordJobCompleted(string(item.Type), outcome)
			return nil
		})
	}
	return g.Wait()
}

func (p *Pipeline) skip(item domain.MediaDescriptor, cat dedup.Category) bool {
	if p.deps.Ledger == nil {
		return false
	}
	return p.deps.Ledger.Seen(cat, item.ID)
}

func (p *Pipeline) markDone(item domain.MediaDescriptor, cat dedup.Category) {
	if p.deps.Ledger != nil {
		p.deps.Ledger.MarkDone(cat, item.ID)
	}
}
