package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"spotify2mp3/internal/api/spotify"
	"spotify2mp3/internal/config"
	"spotify2mp3/internal/core/downloader"
	"spotify2mp3/internal/services"
	"spotify2mp3/internal/shared"
)

const updateCheckTimeout = 5 * time.Second

var errDownloadFailed = errors.New("download failed")

func newTrackCommand(opts *options, version string) *cobra.Command {
	return newLinkCommand(opts, version, "track [url]", "Download a single track.", spotify.KindSong)
}

func newAlbumCommand(opts *options, version string) *cobra.Command {
	return newLinkCommand(opts, version, "album [url]", "Download every track of an album.", spotify.KindAlbum)
}

func newPlaylistCommand(opts *options, version string) *cobra.Command {
	return newLinkCommand(opts, version, "playlist [url]", "Download every track of a playlist.", spotify.KindPlaylist, spotify.KindPrivatePlaylist)
}

func newLinkCommand(opts *options, version, use, short string, kinds ...spotify.URLKind) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := parseTarget(args[0], kinds...)
			if err != nil {
				return err
			}
			return runDownload(commandContext(cmd), cmd, opts, version, t)
		},
	}
}

func newLikedCommand(opts *options, version string) *cobra.Command {
	return &cobra.Command{
		Use:   "liked",
		Short: "Download your liked songs (needs a saved Spotify user token).",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownload(commandContext(cmd), cmd, opts, version, target{kind: spotify.KindLiked})
		},
	}
}

func runDownload(ctx context.Context, cmd *cobra.Command, opts *options, version string, t target) error {
	cfg, container, err := initConfigAndServices(cmd, opts)
	if err != nil {
		return err
	}
	logger := container.Logger

	if err := downloader.CheckFFmpeg(); err != nil {
		logger.Error("ffmpeg is required to write mp3 files")
		shared.ColorInfo.Println(downloader.FFmpegInstallHint)
		return err
	}

	printSettings(cfg, t)
	checkForUpdates(ctx, cfg, container, version)

	if err := container.Scratch.Prepare(); err != nil {
		return fmt.Errorf("failed to prepare scratch directory: %w", err)
	}

	logger.Info("🎵 Starting download for %s", t)
	stats, runErr := download(ctx, container, t)

	if err := container.Scratch.Sweep(); err != nil {
		container.WarningCollector.AddWarning(shared.ScratchCleanupWarning, cfg.ScratchLocation, "failed to clean scratch directory", err.Error())
	}

	// Warnings first, then the summary
	container.WarningCollector.PrintSummary()
	printSummary(stats, cfg)

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			logger.Warning("Download interrupted.")
		} else {
			logger.Error("%v", runErr)
		}
		printFailure()
		return runErr
	}
	if t.kind == spotify.KindSong && stats.FoundCount() == 0 {
		printFailure()
		return errDownloadFailed
	}
	shared.ColorSuccess.Println("Download complete! (check downloads folder)")
	return nil
}

func download(ctx context.Context, container *services.ServiceContainer, t target) (*shared.DownloadStats, error) {
	ds, err := container.DownloadService(ctx)
	if err != nil {
		return nil, err
	}
	switch t.kind {
	case spotify.KindSong:
		return ds.DownloadTrack(ctx, t.id)
	case spotify.KindAlbum:
		return ds.DownloadAlbum(ctx, t.id)
	case spotify.KindPlaylist, spotify.KindPrivatePlaylist:
		return ds.DownloadPlaylist(ctx, t.id)
	case spotify.KindLiked:
		return ds.DownloadLiked(ctx)
	}
	return nil, fmt.Errorf("%w: %s", spotify.ErrInvalidURL, t.kind)
}

// checkForUpdates never blocks the run for long; failures end up in the warning summary
func checkForUpdates(ctx context.Context, cfg *config.Config, container *services.ServiceContainer, version string) {
	if cfg.DisableUpdateCheck {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, updateCheckTimeout)
	defer cancel()

	info, err := container.UpdaterService.CheckForUpdates(ctx, version, cfg.UpdateRepo)
	if err != nil {
		container.WarningCollector.AddWarning(shared.UpdateCheckWarning, cfg.UpdateRepo, "update check failed", err.Error())
		return
	}
	if info.UpdateAvailable {
		container.Logger.Warning("A new version (%s) is available, you are running %s: %s", info.LatestVersion, info.CurrentVersion, info.ReleaseURL)
	}
}

func printFailure() {
	shared.ColorError.Println("Download failed!")
	shared.ColorInfo.Printf("Troubleshooting: %s\n", config.HelpURL)
}

func printSettings(cfg *config.Config, t target) {
	shared.ColorHeader.Println("⚙️  Settings")
	fmt.Printf("  Target:        %s\n", t)
	fmt.Printf("  Quality:       %s\n", cfg.Quality)
	fmt.Printf("  Min views:     %d\n", cfg.MinViews)
	fmt.Printf("  Max length:    %d min\n", cfg.MaxLengthSeconds/60)
	fmt.Printf("  Parallelism:   %d\n", cfg.Parallelism)
	fmt.Printf("  Output:        %s\n", cfg.DownloadLocation)
}

func printSummary(stats *shared.DownloadStats, cfg *config.Config) {
	if stats == nil || (stats.FoundCount() == 0 && stats.SkippedCount == 0) {
		return
	}

	fmt.Printf("\n")
	shared.ColorInfo.Println("📊 Download Summary:")
	if stats.DownloadedCount > 0 {
		shared.ColorSuccess.Printf("✅ Successfully downloaded: %d tracks\n", stats.DownloadedCount)
	}
	if stats.ExistingCount > 0 {
		shared.ColorInfo.Printf("⭐ Already downloaded: %d tracks\n", stats.ExistingCount)
	}
	if stats.SkippedCount > 0 {
		shared.ColorWarning.Printf("⏭️  Skipped: %d tracks\n", stats.SkippedCount)
		for _, item := range stats.SkippedItems {
			shared.ColorWarning.Printf("   • %s\n", item)
		}
	}
	shared.ColorSuccess.Printf("📁 Files saved to: %s\n", cfg.DownloadLocation)
}
