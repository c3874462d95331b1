package interfaces

import (
	"context"

	"spotify2mp3/internal/config"
	"spotify2mp3/internal/shared"
)

// ConfigService defines the interface for configuration management
type ConfigService interface {
	// LoadConfig loads configuration from file
	LoadConfig(configFile string) (*config.Config, error)

	// SaveConfig saves configuration to file
	SaveConfig(configFile string, config *config.Config) error

	// ValidateConfig validates configuration settings
	ValidateConfig(config *config.Config) error

	// GetDefaultConfig returns a default configuration
	GetDefaultConfig() *config.Config
}

// NavidromeService mirrors downloaded collections into a Navidrome library
type NavidromeService interface {
	// Authenticate authenticates with the Navidrome server
	Authenticate(ctx context.Context) error

	// SyncPlaylist creates or extends a playlist with the songs that can be found in the library.
	// It returns how many songs were matched.
	SyncPlaylist(ctx context.Context, name string, songs []shared.SongRef) (int, error)
}

// UpdaterService defines the interface for application update checks
type UpdaterService interface {
	// CheckForUpdates compares the running version with the latest published one
	CheckForUpdates(ctx context.Context, currentVersion string, updateRepo string) (*shared.UpdateInfo, error)
}

// MetadataEnricher resolves extra identifiers for a recording
type MetadataEnricher interface {
	// LookupISRC returns the MusicBrainz identifiers of the recording with the given ISRC
	LookupISRC(ctx context.Context, isrc string) (*shared.RecordingIDs, error)
}

// LoggerService defines the interface for logging operations
type LoggerService interface {
	// Info logs an informational message
	Info(message string, args ...interface{})

	// Warning logs a warning message
	Warning(message string, args ...interface{})

	// Error logs an error message
	Error(message string, args ...interface{})

	// Debug logs a debug message
	Debug(message string, args ...interface{})

	// Success logs a success message
	Success(message string, args ...interface{})

	// SetDebugMode enables or disables debug logging
	SetDebugMode(enabled bool)
}

// WarningCollectorService defines the interface for warning collection
type WarningCollectorService interface {
	// AddWarning adds a warning to the collection
	AddWarning(warningType shared.WarningType, context, message, details string)

	// AddAgeGateWarning records a failed age-gate bypass
	AddAgeGateWarning(videoURL, details string)

	// AddCoverArtWarning records a cover art failure
	AddCoverArtWarning(track, details string)

	// AddMusicBrainzWarning records a failed MusicBrainz lookup
	AddMusicBrainzWarning(artist, title, details string)

	// AddNavidromeWarning records a Navidrome sync problem
	AddNavidromeWarning(context, details string)

	// HasWarnings returns true if there are any warnings
	HasWarnings() bool

	// GetWarningCount returns the total number of warnings
	GetWarningCount() int

	// PrintSummary prints a formatted summary of all warnings
	PrintSummary()
}
