package catalog

import "context"

// Service is the catalog backend consumed by the entities
type Service interface {
	GetTrack(ctx context.Context, id string) (*TrackRecord, error)
	GetAlbum(ctx context.Context, id string) (*CollectionRecord, error)
	GetPlaylist(ctx context.Context, id string) (*CollectionRecord, error)
	GetSavedTracks(ctx context.Context, pageSize int) (*TrackPage, error)
	GetCurrentUserProfile(ctx context.Context) (*UserProfile, error)
}

// ArtistRecord is an artist credit on a track
type ArtistRecord struct {
	Name string
	URL  string
}

// AlbumRecord is the album a track belongs to
type AlbumRecord struct {
	Name        string
	URL         string
	ReleaseDate string
	Type        string
	CoverArtURL string
}

// TrackRecord is a fully populated track object as returned by the service
type TrackRecord struct {
	ID          string
	Name        string
	URL         string
	Artists     []ArtistRecord
	Album       AlbumRecord
	TrackNumber int
	DiscNumber  int
	DurationMs  int
	ISRC        string
}

// TrackPage is one page of tracks. Next is nil on the last page.
type TrackPage struct {
	Tracks []TrackRecord
	Next   func(ctx context.Context) (*TrackPage, error)
}

// CollectionRecord is an album or playlist header plus its first page of tracks
type CollectionRecord struct {
	Name        string
	CoverArtURL string
	Tracks      *TrackPage
}

// UserProfile is the subset of the current user's profile used for liked songs
type UserProfile struct {
	DisplayName string
	ImageURL    string
}

// maxPages guards against a backend that never reports the last page
const maxPages = 10000

// collectPages walks every page starting at first
func collectPages(ctx context.Context, first *TrackPage) ([]TrackRecord, error) {
	var records []TrackRecord
	page := first
	for i := 0; page != nil && i < maxPages; i++ {
		records = append(records, page.Tracks...)
		if page.Next == nil {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next, err := page.Next(ctx)
		if err != nil {
			return nil, err
		}
		page = next
	}
	return records, nil
}
