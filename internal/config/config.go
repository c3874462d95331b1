package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	RequestTimeout    = 2 * time.Minute
	DefaultMaxRetries = 3
	HelpURL           = "https://github.com/spotify2mp3/spotify2mp3#troubleshooting"
)

// Defaults applied to zero-valued fields
const (
	DefaultDownloadLocation  = "downloads"
	DefaultScratchLocation   = "temp"
	DefaultQuality           = "high"
	DefaultMinViews          = 10000
	DefaultMaxLengthSeconds  = 60 * 30
	DefaultSearchResultCount = 5
	DefaultRetryDelaySeconds = 2
	DefaultTokenFile         = "spotify_token.json"
	DefaultUpdateRepo        = "spotify2mp3/spotify2mp3"
)

// Configuration structure
type Config struct {
	SpotifyClientID     string `json:"SpotifyClientID" yaml:"spotify_client_id"`
	SpotifyClientSecret string `json:"SpotifyClientSecret" yaml:"spotify_client_secret"`
	SpotifyTokenFile    string `json:"SpotifyTokenFile" yaml:"spotify_token_file"`

	DownloadLocation string `json:"DownloadLocation" yaml:"download_location"`
	ScratchLocation  string `json:"ScratchLocation" yaml:"scratch_location"`

	Quality           string `json:"Quality" yaml:"quality"`
	MinViews          int64  `json:"MinViews" yaml:"min_views"`
	MaxLengthSeconds  int    `json:"MaxLengthSeconds" yaml:"max_length_seconds"`
	SearchResultCount int    `json:"SearchResultCount" yaml:"search_result_count"`
	MaxRetryAttempts  int    `json:"MaxRetryAttempts" yaml:"max_retry_attempts"`
	RetryDelaySeconds int    `json:"RetryDelaySeconds" yaml:"retry_delay_seconds"`
	Parallelism       int    `json:"Parallelism" yaml:"parallelism"`
	ShowProgressBars  *bool  `json:"ShowProgressBars,omitempty" yaml:"show_progress_bars,omitempty"`

	MusicBrainzEnrichment bool `json:"MusicBrainzEnrichment" yaml:"musicbrainz_enrichment"`

	NavidromeURL      string `json:"NavidromeURL" yaml:"navidrome_url"`
	NavidromeUsername string `json:"NavidromeUsername" yaml:"navidrome_username"`
	NavidromePassword string `json:"NavidromePassword" yaml:"navidrome_password"`
	NavidromeSync     bool   `json:"NavidromeSync" yaml:"navidrome_sync"`

	DisableUpdateCheck bool   `json:"DisableUpdateCheck" yaml:"disable_update_check"`
	UpdateRepo         string `json:"UpdateRepo" yaml:"update_repo"`
}

// DefaultConfig returns a configuration with every default filled in
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero-valued fields
func (cfg *Config) ApplyDefaults() {
	if cfg.SpotifyTokenFile == "" {
		cfg.SpotifyTokenFile = DefaultTokenFile
	}
	if cfg.DownloadLocation == "" {
		cfg.DownloadLocation = DefaultDownloadLocation
	}
	if cfg.ScratchLocation == "" {
		cfg.ScratchLocation = DefaultScratchLocation
	}
	if cfg.Quality == "" {
		cfg.Quality = DefaultQuality
	}
	if cfg.MinViews == 0 {
		cfg.MinViews = DefaultMinViews
	}
	if cfg.MaxLengthSeconds == 0 {
		cfg.MaxLengthSeconds = DefaultMaxLengthSeconds
	}
	if cfg.SearchResultCount == 0 {
		cfg.SearchResultCount = DefaultSearchResultCount
	}
	if cfg.MaxRetryAttempts == 0 {
		cfg.MaxRetryAttempts = DefaultMaxRetries
	}
	if cfg.RetryDelaySeconds == 0 {
		cfg.RetryDelaySeconds = DefaultRetryDelaySeconds
	}
	if cfg.Parallelism == 0 {
		cfg.Parallelism = 1
	}
	if cfg.ShowProgressBars == nil {
		show := true
		cfg.ShowProgressBars = &show
	}
	if cfg.UpdateRepo == "" {
		cfg.UpdateRepo = DefaultUpdateRepo
	}
}

// ProgressBarsEnabled reports the effective progress bar setting
func (cfg *Config) ProgressBarsEnabled() bool {
	return cfg.ShowProgressBars == nil || *cfg.ShowProgressBars
}

// Validate checks value ranges. Call after ApplyDefaults.
func (cfg *Config) Validate() error {
	if _, err := ParseQuality(cfg.Quality); err != nil {
		return err
	}
	if cfg.MinViews < 0 {
		return fmt.Errorf("MinViews must not be negative, got %d", cfg.MinViews)
	}
	if cfg.MaxLengthSeconds <= 0 {
		return fmt.Errorf("MaxLengthSeconds must be positive, got %d", cfg.MaxLengthSeconds)
	}
	if cfg.SearchResultCount < 1 {
		return fmt.Errorf("SearchResultCount must be at least 1, got %d", cfg.SearchResultCount)
	}
	if cfg.MaxRetryAttempts < 1 {
		return fmt.Errorf("MaxRetryAttempts must be at least 1, got %d", cfg.MaxRetryAttempts)
	}
	if cfg.Parallelism < 1 {
		return fmt.Errorf("Parallelism must be at least 1, got %d", cfg.Parallelism)
	}
	if cfg.NavidromeSync && cfg.NavidromeURL == "" {
		return fmt.Errorf("NavidromeSync is enabled but NavidromeURL is empty")
	}
	return nil
}

// RetryDelay is RetryDelaySeconds as a duration
func (cfg *Config) RetryDelay() time.Duration {
	return time.Duration(cfg.RetryDelaySeconds) * time.Second
}

// CreateDirIfNotExists creates a directory if it does not exist
func CreateDirIfNotExists(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

func isYAML(filePath string) bool {
	ext := strings.ToLower(filepath.Ext(filePath))
	return ext == ".yaml" || ext == ".yml"
}

// LoadConfig loads configuration from a JSON or YAML file, picked by extension
func LoadConfig(filePath string, config *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if isYAML(filePath) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return nil
}

// SaveConfig saves configuration to a JSON or YAML file, picked by extension
func SaveConfig(filePath string, config *Config) error {
	var (
		data []byte
		err  error
	)
	if isYAML(filePath) {
		data, err = yaml.Marshal(config)
	} else {
		data, err = json.MarshalIndent(config, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	dir := filepath.Dir(filePath)
	if err := CreateDirIfNotExists(dir); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// LoadEnv reads .env (if present) and applies credential overrides from the environment
func LoadEnv(cfg *Config, envFiles ...string) {
	_ = godotenv.Load(envFiles...)

	overrides := map[string]*string{
		"SPOTIFY_CLIENT_ID":     &cfg.SpotifyClientID,
		"SPOTIFY_CLIENT_SECRET": &cfg.SpotifyClientSecret,
		"SPOTIFY_TOKEN_FILE":    &cfg.SpotifyTokenFile,
		"NAVIDROME_URL":         &cfg.NavidromeURL,
		"NAVIDROME_USERNAME":    &cfg.NavidromeUsername,
		"NAVIDROME_PASSWORD":    &cfg.NavidromePassword,
	}
	for key, field := range overrides {
		if v := os.Getenv(key); v != "" {
			*field = v
		}
	}
}
