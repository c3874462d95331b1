package shared

import "errors"

// VersionInfo is the layout of version/version.json in the update repository
type VersionInfo struct {
	Version string `json:"version"`
}

// DownloadStats aggregates the outcome of one command run
type DownloadStats struct {
	DownloadedCount int
	ExistingCount   int
	SkippedCount    int
	SkippedItems    []string
}

// FoundCount is the number of tracks that now exist at their destination
func (s *DownloadStats) FoundCount() int {
	return s.DownloadedCount + s.ExistingCount
}

// Custom error types
var (
	ErrInvalidQuality  = errors.New("invalid quality")
	ErrFFmpegMissing   = errors.New("ffmpeg not found in PATH")
	ErrWizardCancelled = errors.New("wizard cancelled")
)

// UpdateInfo is the result of an update check
type UpdateInfo struct {
	CurrentVersion  string
	LatestVersion   string
	UpdateAvailable bool
	ReleaseURL      string
}

// SongRef identifies a downloaded song for library lookups
type SongRef struct {
	Title  string
	Artist string
	Album  string
}

// RecordingIDs are the MusicBrainz identifiers resolved for one recording
type RecordingIDs struct {
	TrackID  string
	AlbumID  string
	ArtistID string
}

// Empty reports whether no identifier was resolved
func (r *RecordingIDs) Empty() bool {
	return r == nil || (r.TrackID == "" && r.AlbumID == "" && r.ArtistID == "")
}
