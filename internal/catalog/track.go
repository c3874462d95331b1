package catalog

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
)

// Comment is a labelled free-form comment tag
type Comment struct {
	Label string
	Value string
}

// Metadata is the tag set of a loaded track
type Metadata struct {
	Title       string
	Artists     []string
	Album       string
	ReleaseDate string
	TrackNumber int
	DiscNumber  int
	ISRC        string
	CoverArtURL string
	Comments    []Comment
}

// ArtistString joins the artists the way tag readers expect
func (m Metadata) ArtistString() string {
	return strings.Join(m.Artists, ", ")
}

// Track is a single catalog track.
//
// A standalone track (NewTrack) fetches itself by id on first access. A collection member
// (NewMemberTrack) loads from the record the collection already fetched, without a network call.
// Either way the metadata is loaded exactly once unless Reload is called.
type Track struct {
	mu         sync.Mutex
	id         string
	svc        Service
	prefetched *TrackRecord
	state      State
	meta       Metadata
}

// NewTrack creates an unloaded standalone track
func NewTrack(svc Service, id string) *Track {
	return &Track{id: id, svc: svc}
}

// NewMemberTrack creates an unloaded track backed by a pre-fetched record
func NewMemberTrack(svc Service, rec TrackRecord) *Track {
	r := rec
	return &Track{id: rec.ID, svc: svc, prefetched: &r}
}

// ID returns the catalog id
func (t *Track) ID() string {
	return t.id
}

// State returns the current load state
func (t *Track) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// EnsureLoaded loads the metadata if it is not loaded yet
func (t *Track) EnsureLoaded(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == Loaded {
		return nil
	}
	return t.load(ctx, t.prefetched)
}

// Reload forces a fresh fetch from the service
func (t *Track) Reload(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = Unloaded
	t.meta = Metadata{}
	return t.load(ctx, nil)
}

func (t *Track) load(ctx context.Context, rec *TrackRecord) error {
	if rec == nil {
		if t.svc == nil {
			return &RetrievalError{Kind: KindTrack, ID: t.id, Err: errors.New("no catalog service")}
		}
		fetched, err := t.svc.GetTrack(ctx, t.id)
		if err != nil {
			return classifyLoadError(KindTrack, t.id, err)
		}
		if fetched == nil {
			return notFound(KindTrack, t.id)
		}
		rec = fetched
	}
	t.meta = metadataFromRecord(*rec)
	t.state = Loaded
	return nil
}

func metadataFromRecord(rec TrackRecord) Metadata {
	artists := make([]string, 0, len(rec.Artists))
	artistURL := ""
	for i, a := range rec.Artists {
		if i == 0 {
			artistURL = a.URL
		}
		artists = append(artists, a.Name)
	}

	return Metadata{
		Title:       orDefault(rec.Name, UnknownTitle),
		Artists:     artists,
		Album:       orDefault(rec.Album.Name, UnknownAlbumName),
		ReleaseDate: rec.Album.ReleaseDate,
		TrackNumber: rec.TrackNumber,
		DiscNumber:  rec.DiscNumber,
		ISRC:        rec.ISRC,
		CoverArtURL: orDefault(rec.Album.CoverArtURL, UnknownCoverArtURL),
		Comments: []Comment{
			{Label: "Spotify Track URL", Value: rec.URL},
			{Label: "Spotify Album URL", Value: rec.Album.URL},
			{Label: "Spotify Artist URL", Value: artistURL},
			{Label: "Duration (ms)", Value: strconv.Itoa(rec.DurationMs)},
			{Label: "Album Type", Value: rec.Album.Type},
		},
	}
}

// Metadata returns a copy of the loaded metadata
func (t *Track) Metadata(ctx context.Context) (Metadata, error) {
	if err := t.EnsureLoaded(ctx); err != nil {
		return Metadata{}, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	m := t.meta
	m.Artists = append([]string(nil), t.meta.Artists...)
	m.Comments = append([]Comment(nil), t.meta.Comments...)
	return m, nil
}

// Title returns the track title, optionally filtered for path use
func (t *Track) Title(ctx context.Context, sanitize bool) (string, error) {
	m, err := t.Metadata(ctx)
	if err != nil {
		return "", err
	}
	return maybeSanitize(m.Title, sanitize), nil
}

// Artist returns the artist names joined by a space, optionally filtered for path use
func (t *Track) Artist(ctx context.Context, sanitize bool) (string, error) {
	m, err := t.Metadata(ctx)
	if err != nil {
		return "", err
	}
	artist := UnknownArtist
	if len(m.Artists) > 0 {
		artist = strings.Join(m.Artists, " ")
	}
	return maybeSanitize(artist, sanitize), nil
}

// CoverArtURL returns the album cover for this track
func (t *Track) CoverArtURL(ctx context.Context) (string, error) {
	m, err := t.Metadata(ctx)
	if err != nil {
		return "", err
	}
	return m.CoverArtURL, nil
}

// SearchableTitle is "<title> - <artist> <artist>...", used verbatim as a video search query
func (t *Track) SearchableTitle(ctx context.Context) (string, error) {
	m, err := t.Metadata(ctx)
	if err != nil {
		return "", err
	}
	return m.Title + searchableTitleJoiner + strings.Join(m.Artists, " "), nil
}

// Label is a display name that never triggers a load
func (t *Track) Label() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == Loaded {
		if len(t.meta.Artists) > 0 {
			return t.meta.Title + " by " + strings.Join(t.meta.Artists, ", ")
		}
		return t.meta.Title
	}
	if t.prefetched != nil && t.prefetched.Name != "" {
		return t.prefetched.Name
	}
	return "track " + t.id
}
