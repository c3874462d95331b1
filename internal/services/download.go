package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"spotify2mp3/internal/catalog"
	"spotify2mp3/internal/config"
	"spotify2mp3/internal/core/batch"
	"spotify2mp3/internal/core/pipeline"
	"spotify2mp3/internal/interfaces"
	"spotify2mp3/internal/shared"
)

// DownloadService runs single-track and collection downloads
type DownloadService struct {
	catalog          catalog.Service
	pipeline         *pipeline.Pipeline
	driver           *batch.Driver
	navidrome        interfaces.NavidromeService
	cfg              *config.Config
	logger           interfaces.LoggerService
	warningCollector interfaces.WarningCollectorService
}

func NewDownloadService(svc catalog.Service, pl *pipeline.Pipeline, driver *batch.Driver, navidrome interfaces.NavidromeService, cfg *config.Config, logger interfaces.LoggerService, warningCollector interfaces.WarningCollectorService) *DownloadService {
	return &DownloadService{
		catalog:          svc,
		pipeline:         pl,
		driver:           driver,
		navidrome:        navidrome,
		cfg:              cfg,
		logger:           logger,
		warningCollector: warningCollector,
	}
}

// DownloadTrack downloads one song into <download root>/tracks.
// A song missing from the catalog is counted as skipped, not returned as an error.
func (ds *DownloadService) DownloadTrack(ctx context.Context, trackID string) (*shared.DownloadStats, error) {
	stats := &shared.DownloadStats{}
	dir := filepath.Join(ds.cfg.DownloadLocation, catalog.KindTrack.Dir())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return stats, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	track := catalog.NewTrack(ds.catalog, trackID)
	ok, result, err := ds.pipeline.DownloadTrack(ctx, track, dir)
	if err != nil {
		stats.SkippedCount++
		stats.SkippedItems = append(stats.SkippedItems, fmt.Sprintf("%s: %s", track.Label(), batch.Classify(err)))
		return stats, err
	}
	if !ok {
		stats.SkippedCount++
		stats.SkippedItems = append(stats.SkippedItems, fmt.Sprintf("%s: %s", trackID, batch.ReasonNotFound))
		return stats, nil
	}
	if result.Outcome == pipeline.AlreadyExists {
		stats.ExistingCount++
	} else {
		stats.DownloadedCount++
	}
	return stats, nil
}

// DownloadAlbum downloads every track of an album
func (ds *DownloadService) DownloadAlbum(ctx context.Context, albumID string) (*shared.DownloadStats, error) {
	return ds.downloadCollection(ctx, catalog.NewAlbum(ds.catalog, albumID))
}

// DownloadPlaylist downloads every track of a playlist
func (ds *DownloadService) DownloadPlaylist(ctx context.Context, playlistID string) (*shared.DownloadStats, error) {
	return ds.downloadCollection(ctx, catalog.NewPlaylist(ds.catalog, playlistID))
}

// userSession is implemented by catalog clients that know whether they act for a user
type userSession interface {
	UserAuthenticated() bool
}

// DownloadLiked downloads the current user's saved tracks
func (ds *DownloadService) DownloadLiked(ctx context.Context) (*shared.DownloadStats, error) {
	if s, ok := ds.catalog.(userSession); ok && !s.UserAuthenticated() {
		return &shared.DownloadStats{}, fmt.Errorf("liked songs need a user token, none found at %s", ds.cfg.SpotifyTokenFile)
	}
	return ds.downloadCollection(ctx, catalog.NewLikedSongs(ds.catalog))
}

func (ds *DownloadService) downloadCollection(ctx context.Context, c *catalog.Collection) (*shared.DownloadStats, error) {
	report, err := ds.driver.DownloadCollection(ctx, c)
	if report == nil {
		return &shared.DownloadStats{}, err
	}
	stats := StatsFromReport(report)
	if err != nil {
		return stats, err
	}

	if c.Kind() != catalog.KindAlbum {
		ds.syncNavidrome(ctx, report)
	}
	return stats, nil
}

// syncNavidrome mirrors the found tracks into a server playlist. Problems become warnings.
func (ds *DownloadService) syncNavidrome(ctx context.Context, report *batch.Report) {
	if !ds.cfg.NavidromeSync || ds.navidrome == nil {
		return
	}
	found := report.FoundTracks()
	if len(found) == 0 {
		return
	}

	songs := make([]shared.SongRef, 0, len(found))
	for _, track := range found {
		meta, err := track.Metadata(ctx)
		if err != nil {
			continue
		}
		songs = append(songs, shared.SongRef{Title: meta.Title, Artist: meta.ArtistString(), Album: meta.Album})
	}

	ds.logger.Info("🔄 Syncing %d tracks to Navidrome playlist %q", len(songs), report.Title)
	matched, err := ds.navidrome.SyncPlaylist(ctx, report.Title, songs)
	if err != nil {
		ds.warningCollector.AddNavidromeWarning(report.Title, err.Error())
		return
	}
	if missing := len(songs) - matched; missing > 0 {
		ds.warningCollector.AddNavidromeWarning(report.Title, fmt.Sprintf("%d of %d songs were not found in the library", missing, len(songs)))
	}
	ds.logger.Success("Navidrome playlist %q updated with %d songs", report.Title, matched)
}

// StatsFromReport converts a batch report into command stats. Skipped items keep track order.
func StatsFromReport(report *batch.Report) *shared.DownloadStats {
	stats := &shared.DownloadStats{
		DownloadedCount: report.Downloaded(),
		ExistingCount:   report.Existing(),
		SkippedCount:    len(report.Skipped),
	}
	for _, rec := range report.Skipped {
		stats.SkippedItems = append(stats.SkippedItems, fmt.Sprintf("%s: %s", rec.Title, rec.Reason))
	}
	return stats
}
