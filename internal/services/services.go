package services

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"spotify2mp3/internal/api/musicbrainz"
	"spotify2mp3/internal/api/navidrome"
	"spotify2mp3/internal/api/spotify"
	"spotify2mp3/internal/api/youtube"
	"spotify2mp3/internal/catalog"
	"spotify2mp3/internal/config"
	"spotify2mp3/internal/core/batch"
	"spotify2mp3/internal/core/downloader"
	"spotify2mp3/internal/core/fetcher"
	"spotify2mp3/internal/core/pipeline"
	"spotify2mp3/internal/core/scratch"
	"spotify2mp3/internal/core/search"
	"spotify2mp3/internal/core/updater"
	"spotify2mp3/internal/interfaces"
	"spotify2mp3/internal/shared"
)

// ServiceContainer holds all application services
type ServiceContainer struct {
	Config           interfaces.ConfigService
	Logger           interfaces.LoggerService
	WarningCollector interfaces.WarningCollectorService
	Progress         *ConsoleProgress

	Scratch  *scratch.Area
	Selector *search.Selector
	Fetcher  *fetcher.Fetcher
	Embedder *downloader.Embedder
	Pipeline *pipeline.Pipeline
	Driver   *batch.Driver

	NavidromeService interfaces.NavidromeService
	UpdaterService   interfaces.UpdaterService

	cfg   *config.Config
	debug bool

	catalogOnce sync.Once
	catalog     catalog.Service
	catalogErr  error
}

// NewServiceContainer wires every service from cfg. The catalog client is created on first use.
func NewServiceContainer(cfg *config.Config, httpClient *http.Client, debug bool) (*ServiceContainer, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.RequestTimeout}
	}
	targetBitrate, err := config.ParseQuality(cfg.Quality)
	if err != nil {
		return nil, err
	}

	// Create logger first as other services may need it
	logger := NewConsoleLogger()
	logger.SetDebugMode(debug)

	warningCollector := shared.NewWarningCollector(true)
	progress := NewConsoleProgress(logger)

	area := scratch.New(cfg.ScratchLocation)

	searchClient := youtube.NewSearchClient(youtube.DefaultSearchEndpoint, httpClient, debug)
	selector := search.NewSelector(searchClient)

	streamClient := youtube.NewStreamClient(config.RequestTimeout, cfg.ProgressBarsEnabled(), debug)
	fetch := fetcher.NewFetcher(streamClient, area, fetcher.Options{
		Strategies: fetcher.Strategies(cfg.MaxRetryAttempts),
		RetryDelay: cfg.RetryDelay(),
	}, logger, warningCollector)

	var enricher interfaces.MetadataEnricher
	if cfg.MusicBrainzEnrichment {
		enricher = musicbrainz.NewClient(debug)
	}
	embedder := downloader.NewEmbedder(area, httpClient, enricher, logger, warningCollector)

	pl := pipeline.New(selector, fetch, embedder, area, pipeline.Options{
		Constraints: search.Constraints{
			MaxLengthSeconds: cfg.MaxLengthSeconds,
			MinViewCount:     cfg.MinViews,
			ResultCount:      cfg.SearchResultCount,
		},
		TargetBitrate: targetBitrate,
	}, progress)

	var navidromeService interfaces.NavidromeService
	if cfg.NavidromeURL != "" {
		navidromeService = navidrome.NewClient(cfg.NavidromeURL, cfg.NavidromeUsername, cfg.NavidromePassword, httpClient, debug)
	}

	return &ServiceContainer{
		Config:           NewConfigService(),
		Logger:           logger,
		WarningCollector: warningCollector,
		Progress:         progress,
		Scratch:          area,
		Selector:         selector,
		Fetcher:          fetch,
		Embedder:         embedder,
		Pipeline:         pl,
		Driver:           batch.NewDriver(pl, cfg.DownloadLocation, cfg.Parallelism, progress),
		NavidromeService: navidromeService,
		UpdaterService:   updater.NewUpdater("", httpClient, debug),
		cfg:              cfg,
		debug:            debug,
	}, nil
}

// Catalog returns the Spotify client, authenticating on the first call
func (sc *ServiceContainer) Catalog(ctx context.Context) (catalog.Service, error) {
	sc.catalogOnce.Do(func() {
		if sc.catalog != nil {
			return
		}
		sc.catalog, sc.catalogErr = spotify.NewClient(ctx, spotify.Credentials{
			ClientID:     sc.cfg.SpotifyClientID,
			ClientSecret: sc.cfg.SpotifyClientSecret,
			TokenFile:    sc.cfg.SpotifyTokenFile,
		}, sc.debug)
	})
	return sc.catalog, sc.catalogErr
}

// SetCatalog replaces the catalog service
func (sc *ServiceContainer) SetCatalog(svc catalog.Service) {
	sc.catalogOnce.Do(func() {})
	sc.catalog, sc.catalogErr = svc, nil
}

// DownloadService returns a download service bound to the catalog
func (sc *ServiceContainer) DownloadService(ctx context.Context) (*DownloadService, error) {
	svc, err := sc.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	return NewDownloadService(svc, sc.Pipeline, sc.Driver, sc.NavidromeService, sc.cfg, sc.Logger, sc.WarningCollector), nil
}

// ConfigService implementation
type ConfigService struct{}

func NewConfigService() *ConfigService {
	return &ConfigService{}
}

// LoadConfig reads the file and fills defaults for missing fields
func (cs *ConfigService) LoadConfig(configFile string) (*config.Config, error) {
	cfg := &config.Config{}
	if err := config.LoadConfig(configFile, cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

func (cs *ConfigService) SaveConfig(configFile string, cfg *config.Config) error {
	return config.SaveConfig(configFile, cfg)
}

func (cs *ConfigService) ValidateConfig(cfg *config.Config) error {
	if cfg.DownloadLocation == "" {
		return fmt.Errorf("download location is required")
	}
	return cfg.Validate()
}

func (cs *ConfigService) GetDefaultConfig() *config.Config {
	return config.DefaultConfig()
}
