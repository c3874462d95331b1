package commands

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"spotify2mp3/internal/config"
	"spotify2mp3/internal/interfaces"
	"spotify2mp3/internal/services"
	"spotify2mp3/internal/shared"
)

// initConfigAndServices loads the config (running first-time setup when the file is missing),
// applies .env and flag overrides and wires the services
func initConfigAndServices(cmd *cobra.Command, opts *options) (*config.Config, *services.ServiceContainer, error) {
	shared.InitializeColors()
	debug := opts.debug || shared.IsDebugMode()

	configService := services.NewConfigService()
	cfg, err := loadOrCreateConfig(configService, opts.configFile, shared.GetUserInput)
	if err != nil {
		return nil, nil, err
	}

	config.LoadEnv(cfg)
	applyOverrides(cfg, opts, cmd.Flags().Changed)

	if err := configService.ValidateConfig(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	container, err := services.NewServiceContainer(cfg, &http.Client{Timeout: config.RequestTimeout}, debug)
	if err != nil {
		return nil, nil, err
	}
	return cfg, container, nil
}

func loadOrCreateConfig(cs interfaces.ConfigService, configFile string, prompt func(prompt, defaultValue string) string) (*config.Config, error) {
	if shared.FileExists(configFile) {
		cfg, err := cs.LoadConfig(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configFile, err)
		}
		return cfg, nil
	}

	cfg := cs.GetDefaultConfig()
	shared.ColorInfo.Println("✨ Welcome to spotify2mp3! Let's set up your configuration.")
	shared.ColorInfo.Println("Create an app at https://developer.spotify.com/dashboard to get a client id and secret.")

	cfg.SpotifyClientID = prompt("Enter Spotify client ID", cfg.SpotifyClientID)
	cfg.SpotifyClientSecret = prompt("Enter Spotify client secret", cfg.SpotifyClientSecret)
	cfg.DownloadLocation = prompt("Enter download location", cfg.DownloadLocation)

	if err := cs.SaveConfig(configFile, cfg); err != nil {
		shared.ColorError.Printf("❌ Failed to save initial config: %v\n", err)
	} else {
		shared.ColorSuccess.Println("✅ Configuration saved to", configFile)
	}
	return cfg, nil
}

// applyOverrides copies explicitly set flags over the config values
func applyOverrides(cfg *config.Config, opts *options, changed func(name string) bool) {
	if changed("quality") || opts.forceQuality {
		cfg.Quality = opts.quality
	}
	if changed("min-views") {
		cfg.MinViews = opts.minViews
	}
	if changed("max-length") {
		cfg.MaxLengthSeconds = opts.maxLengthMinutes * 60
	}
	if changed("parallelism") {
		cfg.Parallelism = opts.parallelism
	}
	if opts.disableThreading {
		cfg.Parallelism = 1
	}
	if opts.output != "" {
		cfg.DownloadLocation = opts.output
	}
	if opts.noProgress {
		show := false
		cfg.ShowProgressBars = &show
	}
}
