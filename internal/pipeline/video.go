package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/berrizdl/core/internal/community"
	"github.com/berrizdl/core/internal/decryptor"
	"github.com/berrizdl/core/internal/domain"
	"github.com/berrizdl/core/internal/downloader"
	"github.com/berrizdl/core/internal/manifestparser"
	"github.com/berrizdl/core/internal/merger"
	"github.com/berrizdl/core/internal/muxer"
	"github.com/berrizdl/core/internal/pathbuilder"
	"github.com/berrizdl/core/internal/trackselect"
)

// processVideo implements spec.md §4.12 step 4's VOD/LIVE processor:
// playback-info → public-context → merge into PublicInfo → DRM + download
// + decrypt + mux.
func (p *Pipeline) processVideo(ctx context.Context, item domain.MediaDescriptor, cr community.Resolved, isLive bool) error {
	job := domain.NewJob(item, cr.Name, nil, p.outRoot)

	if _, err := job.Fire(ctx, domain.EvFetch); err != nil {
		return err
	}

	pctx, err := p.fetchPlaybackInfo(ctx, item.ID, isLive)
	if err != nil {
		_, _ = job.Fire(ctx, domain.EvFail)
		return fmt.Errorf("pipeline: playback info: %w", err)
	}
	if err := pctx.Validate(); err != nil {
		_, _ = job.Fire(ctx, domain.EvFail)
		return fmt.Errorf("pipeline: invalid playback context: %w", err)
	}

	public, err := p.deps.Metadata.PublicContext(ctx, item.ID)
	if err != nil {
		_, _ = job.Fire(ctx, domain.EvFail)
		return fmt.Errorf("pipeline: public context: %w", err)
	}
	job.ArtistList = public.ArtistList

	manifest, psshSet, err := p.fetchManifest(ctx, pctx)
	if err != nil {
		_, _ = job.Fire(ctx, domain.EvFail)
		return fmt.Errorf("pipeline: manifest: %w", err)
	}

	tmpDir := filepath.Join(p.outRoot, ".tmp", string(item.Type), item.ID)
	defer func() {
		if p.cfg.CleanDownloads {
			_ = os.RemoveAll(tmpDir)
		}
	}()

	var keyString string
	if pctx.IsDRM && !psshSet.Empty() {
		keys, err := p.deps.Keys.GetKeys(ctx, pctx, psshSet, nil, nil)
		if err != nil {
			_, _ = job.Fire(ctx, domain.EvFail)
			return fmt.Errorf("pipeline: drm keys: %w", err)
		}
		keyString = joinKeys(keys)
	}

	if _, err := job.Fire(ctx, domain.EvDownload); err != nil {
		return err
	}
	videoMerged, audioMerged, err := p.downloadAndMerge(ctx, tmpDir, manifest)
	if err != nil {
		_, _ = job.Fire(ctx, domain.EvFail)
		return fmt.Errorf("pipeline: download/merge: %w", err)
	}

	if _, err := job.Fire(ctx, domain.EvMerge); err != nil {
		return err
	}

	if _, err := job.Fire(ctx, domain.EvDecrypt); err != nil {
		return err
	}
	if pctx.IsDRM && keyString != "" {
		videoMerged, audioMerged, err = p.decryptTracks(ctx, tmpDir, videoMerged, audioMerged, keyString)
		if err != nil {
			_, _ = job.Fire(ctx, domain.EvFail)
			return fmt.Errorf("pipeline: decrypt: %w", err)
		}
	}

	if _, err := job.Fire(ctx, domain.EvMux); err != nil {
		return err
	}
	muxedPath := filepath.Join(tmpDir, "muxed."+p.cfg.Container.ResolvedContainer())
	if err := muxer.Mux(ctx, videoMerged, audioMerged, muxedPath, p.cfg.Container.Mux); err != nil {
		_, _ = job.Fire(ctx, domain.EvFail)
		return fmt.Errorf("pipeline: mux: %w", err)
	}

	if _, err := job.Fire(ctx, domain.EvRename); err != nil {
		return err
	}
	communityName := public.CommunityName
	if communityName == "" {
		communityName = cr.Name
	}
	finalDir := filepath.Join(p.outRoot, pathbuilder.Sanitize(communityName))
	if err := os.MkdirAll(finalDir, 0o755); err != nil {
		_, _ = job.Fire(ctx, domain.EvFail)
		return err
	}
	meta := videoFilenameMeta(item, public, cr)
	finalName := pathbuilder.BuildFilename(finalDir, p.cfg.OutputTemplate.Video, meta) + "." + p.cfg.Container.ResolvedContainer()
	if err := os.Rename(muxedPath, filepath.Join(finalDir, finalName)); err != nil {
		_, _ = job.Fire(ctx, domain.EvFail)
		return fmt.Errorf("pipeline: rename: %w", err)
	}

	_, err = job.Fire(ctx, domain.EvComplete)
	return err
}

func (p *Pipeline) fetchPlaybackInfo(ctx context.Context, mediaID string, isLive bool) (domain.PlaybackContext, error) {
	if isLive {
		return p.deps.Metadata.LivePlaybackInfo(ctx, mediaID)
	}
	return p.deps.Metadata.PlaybackInfo(ctx, mediaID)
}

// fetchManifest fetches and parses the manifest, preferring MPD unless the
// config forces HLS or no MPD URL was returned (spec.md §6 HLS_only_dl).
func (p *Pipeline) fetchManifest(ctx context.Context, pctx domain.PlaybackContext) (domain.Manifest, domain.PsshSet, error) {
	sel := manifestparser.Selection{
		Video: trackselect.Choice(p.cfg.StreamSource.VideoResolutionChoice),
		Audio: trackselect.Choice(p.cfg.StreamSource.AudioResolutionChoice),
	}

	useHLS := p.cfg.StreamSource.HLS || pctx.MPDUrl == ""
	if useHLS && pctx.HLSUrl != "" {
		raw, err := p.deps.ManifestGet.FetchManifest(ctx, pctx.HLSUrl)
		if err != nil {
			return domain.Manifest{}, domain.PsshSet{}, err
		}
		m, err := p.deps.Manifest.ParseHLS(ctx, raw, pctx.HLSUrl, sel)
		return m, domain.PsshSet{}, err
	}

	raw, err := p.deps.ManifestGet.FetchManifest(ctx, pctx.MPDUrl)
	if err != nil {
		return domain.Manifest{}, domain.PsshSet{}, err
	}
	baseURL := pctx.MPDUrl[:lastSlash(pctx.MPDUrl)+1]
	return p.deps.Manifest.ParseMPD(raw, baseURL, sel)
}

func lastSlash(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return i
		}
	}
	return len(s) - 1
}

// downloadAndMerge fetches and concatenates the selected video/audio
// tracks, returning the merged file paths (audio path empty if no audio
// track was selected).
func (p *Pipeline) downloadAndMerge(ctx context.Context, tmpDir string, m domain.Manifest) (videoPath, audioPath string, err error) {
	if m.VideoTrack != nil {
		videoPath, err = p.downloadOneTrack(ctx, tmpDir, "video", *m.VideoTrack, m.IsHLS)
		if err != nil {
			return "", "", err
		}
	}
	if m.AudioTrack != nil {
		audioPath, err = p.downloadOneTrack(ctx, tmpDir, "audio", *m.AudioTrack, m.IsHLS)
		if err != nil {
			return "", "", err
		}
	}
	return videoPath, audioPath, nil
}

func (p *Pipeline) downloadOneTrack(ctx context.Context, tmpDir, kind string, track domain.Track, isHLS bool) (string, error) {
	ext := "m4s"
	if isHLS {
		ext = "ts"
	}
	res, err := p.deps.Segments.Download(ctx, tmpDir, downloader.Track{
		Kind:        kind,
		InitURL:     track.InitURL,
		SegmentURLs: track.SegmentURLs,
		Ext:         "." + ext,
	})
	if err != nil {
		return "", err
	}

	mergedPath := filepath.Join(tmpDir, kind+"_merged."+ext)
	if err := merger.Merge(ctx, filepath.Join(tmpDir, kind+"_chunks"), mergedPath, res.InitPath, res.SegPaths, isHLS, nil); err != nil {
		return "", err
	}
	return mergedPath, nil
}

func (p *Pipeline) decryptTracks(ctx context.Context, tmpDir, videoPath, audioPath, keyString string) (string, string, error) {
	decVideo := videoPath
	if videoPath != "" {
		decVideo = filepath.Join(tmpDir, "video_decrypted.mp4")
		if err := decryptor.Decrypt(ctx, videoPath, decVideo, keyString, p.cfg.Container.DecryptionEngine); err != nil {
			return "", "", err
		}
	}
	decAudio := audioPath
	if audioPath != "" {
		decAudio = filepath.Join(tmpDir, "audio_decrypted.mp4")
		if err := decryptor.Decrypt(ctx, audioPath, decAudio, keyString, p.cfg.Container.DecryptionEngine); err != nil {
			return "", "", err
		}
	}
	return decVideo, decAudio, nil
}

func joinKeys(keys []string) string {
	out := ""
	for i, k := range keys {
		if i > 0 {
			out += "\n"
		}
		out += k
	}
	return out
}

func videoFilenameMeta(item domain.MediaDescriptor, public domain.PublicInfo, cr community.Resolved) map[string]string {
	title := public.Title
	if title == "" {
		title = item.Title
	}
	communityName := public.CommunityName
	if communityName == "" {
		communityName = cr.Name
	}
	return map[string]string{
		"title":          title,
		"community_name": communityName,
		"date":           item.PublishedAt.Format("060102"),
		"id":             item.ID,
		"orientation":    string(public.Orientation),
	}
}
