// Command berrizdl wires every acquisition component into one runnable
// CLI: load config, authenticate, resolve the target community, enumerate
// its non-interactive default selection (everything published in the last
// 24 hours), and hand it to Pipeline.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/berrizdl/core/internal/auth"
	"github.com/berrizdl/core/internal/berrizapi"
	"github.com/berrizdl/core/internal/community"
	"github.com/berrizdl/core/internal/config"
	"github.com/berrizdl/core/internal/cookies"
	"github.com/berrizdl/core/internal/dedup"
	"github.com/berrizdl/core/internal/domain"
	"github.com/berrizdl/core/internal/downloader"
	"github.com/berrizdl/core/internal/drm"
	"github.com/berrizdl/core/internal/enumerator"
	"github.com/berrizdl/core/internal/imagefetch"
	"github.com/berrizdl/core/internal/keyresolver"
	xlog "github.com/berrizdl/core/internal/log"
	"github.com/berrizdl/core/internal/manifestparser"
	"github.com/berrizdl/core/internal/pipeline"
	"github.com/berrizdl/core/internal/vault"
	"github.com/berrizdl/core/internal/httpclient"
)

var (
	version = "0.1.0"
	commit  = "none"
)

const apiBaseURL = "https://svc-api.berriz.in"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file (YAML)")
	outputDir := flag.String("out", "downloads", "output directory")
	communityQuery := flag.String("community", "", "community key or id to download from")
	dataDir := flag.String("data", ".berrizdl", "directory for cookies, vault, and ledger state")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("berrizdl %s (commit %s)\n", version, commit)
		os.Exit(0)
	}

	cfg := loadConfig(*configPath)

	xlog.Configure(xlog.Config{Level: cfg.Logging.Level, Service: "berrizdl", Version: version})
	logger := xlog.WithComponent("main")

	if *communityQuery == "" {
		logger.Fatal().Msg("--community is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		logger.Fatal().Err(err).Msg("failed to create data directory")
	}

	authClient, err := buildAuthClient(cfg, *dataDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build auth client")
	}

	httpClient := httpclient.New(authClient, cfg.ConnectTimeout, httpclient.WithUserAgent(cfg.Headers.UserAgent))

	apiClient := berrizapi.New(httpClient, apiBaseURL)
	communityResolver := community.New(httpClient, filepath.Join(*dataDir, "community_keys.json"))
	enum := enumerator.New(httpClient, apiBaseURL, noSubscriptionCheck{})

	v, err := vault.Open(filepath.Join(*dataDir, "keys.db"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open key vault")
	}
	defer v.Close()

	drmClient := drm.New(drm.Config{
		Backend:            domain.DRMBackend(cfg.ResolvedDRMBackend()),
		WidevineDeviceBlob: cfg.CDM.Widevine,
		PlayReadyDeviceBlob: cfg.CDM.PlayReady,
	}, &http.Client{Timeout: cfg.ConnectTimeout}, drm.NewExecCdmFactory("wvd-cdm"), drm.NewExecCdmFactory("prd-cdm"))
	keyResolver := keyresolver.New(v, drmClient)

	segmentHTTP := &http.Client{Timeout: cfg.SegmentRequestTimeout}
	segDownloader := downloader.New(segmentHTTP, 50, nil)

	manifestParser := manifestparser.New(httpClient.FetchManifest)

	ledger, err := dedup.Load(filepath.Join(*dataDir, "ledger.gob"), dedupToggles(cfg))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load dedup ledger")
	}

	images := imagefetch.New(segmentHTTP)

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		logger.Fatal().Err(err).Msg("failed to create output directory")
	}

	deps := pipeline.Dependencies{
		Session:     authClient,
		Community:   communityResolver,
		Selector:    defaultSelector{enum: enum, query: *communityQuery, communityResolver: communityResolver},
		Metadata:    apiClient,
		ManifestGet: httpClient,
		Manifest:    manifestParser,
		Keys:        keyResolver,
		Segments:    segDownloader,
		Images:      images,
		Ledger:      ledger,
	}

	p := pipeline.New(deps, cfg, *outputDir)

	logger.Info().Str("community", *communityQuery).Msg("starting acquisition run")
	if err := p.Run(ctx, *communityQuery); err != nil {
		if err == domain.ErrUserCancelled {
			logger.Warn().Msg("run cancelled")
			os.Exit(130)
		}
		logger.Fatal().Err(err).Msg("acquisition run failed")
	}
	logger.Info().Msg("acquisition run complete")
}

func loadConfig(path string) config.Config {
	cfg := config.Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "berrizdl: invalid config at %s: %v\n", path, err)
		os.Exit(1)
	}
	return cfg
}

func buildAuthClient(cfg config.Config, dataDir string) (*auth.Client, error) {
	store := cookies.New(filepath.Join(dataDir, "cookies.txt"), filepath.Join(dataDir, "tokens.json"))
	endpoints := auth.Endpoints{
		RefreshURL:       apiBaseURL + "/auth/v1/refresh",
		AuthorizeInitURL: apiBaseURL + "/auth/v1/authorize/init",
		AuthenticateURL:  apiBaseURL + "/auth/v1/authenticate",
		AuthorizeURL:     apiBaseURL + "/auth/v1/authorize",
		TokenIssueURL:    apiBaseURL + "/auth/v1/token",
		AccountExistsURL: apiBaseURL + "/auth/v1/account/exists",
	}
	creds := auth.Credentials{Email: cfg.Berriz.Account, Password: cfg.Berriz.Password}
	return auth.New(store, endpoints, creds, "berrizdl-cli", nil)
}

func dedupToggles(cfg config.Config) dedup.Toggles {
	return dedup.Toggles{
		dedup.CategoryVideo:  cfg.Duplicate.Enabled(cfg.Duplicate.Overrides.Video),
		dedup.CategoryImage:  cfg.Duplicate.Enabled(cfg.Duplicate.Overrides.Image),
		dedup.CategoryPost:   cfg.Duplicate.Enabled(cfg.Duplicate.Overrides.Post),
		dedup.CategoryNotice: cfg.Duplicate.Enabled(cfg.Duplicate.Overrides.Notice),
	}
}

// noSubscriptionCheck assumes no fanclub subscription; a CLI wanting
// fanclub-gated content needs a real account/fanclub lookup, out of scope
// for this core (spec.md §1).
type noSubscriptionCheck struct{}

func (noSubscriptionCheck) IsSubscribed(ctx context.Context, communityID int64) (bool, error) {
	return false, nil
}

// defaultSelector implements a non-interactive Selector (spec.md §4.12
// step 3 names the interactive picker as an external collaborator; this
// is the batch-mode stand-in): everything published in the last 24 hours
// across VOD/LIVE/PHOTO/NOTICE. POST items need an external board crawl
// this core does not perform, so Post stays empty here.
type defaultSelector struct {
	enum              *enumerator.Enumerator
	communityResolver *community.Resolver
	query             string
}

func (s defaultSelector) Select(ctx context.Context) (domain.SelectedMedia, error) {
	resolved, err := s.communityResolver.Resolve(ctx, s.query)
	if err != nil {
		return domain.SelectedMedia{}, fmt.Errorf("berrizdl: resolve community: %w", err)
	}

	window := enumerator.TimeWindow{From: time.Now().Add(-24 * time.Hour), To: time.Now()}
	vods, photos, lives, err := s.enum.ListMedia(ctx, resolved.ID, window, domain.FanclubUnset)
	if err != nil {
		return domain.SelectedMedia{}, fmt.Errorf("berrizdl: list media: %w", err)
	}
	notices, err := s.enum.ListNotices(ctx, resolved.ID)
	if err != nil {
		return domain.SelectedMedia{}, fmt.Errorf("berrizdl: list notices: %w", err)
	}

	// The notification feed surfaces some lives (NCA005/NCA011) before
	// they show up in the live-replay list; merge them in, deduped by id.
	notifyLives, err := s.enum.ListNotifyLives(ctx, resolved.ID, window)
	if err != nil {
		return domain.SelectedMedia{}, fmt.Errorf("berrizdl: list notify lives: %w", err)
	}
	seen := make(map[string]bool, len(lives))
	for _, l := range lives {
		seen[l.ID] = true
	}
	for _, l := range notifyLives {
		if l.ID == "" || seen[l.ID] {
			continue
		}
		seen[l.ID] = true
		lives = append(lives, l)
	}

	return domain.SelectedMedia{VODs: vods, Photos: photos, Lives: lives, Notice: notices}, nil
}
