package catalog

import (
	"context"
	"sync"
)

// Collection is an album, playlist or the user's liked songs. It owns its member tracks.
type Collection struct {
	mu     sync.Mutex
	kind   Kind
	id     string
	svc    Service
	state  State
	title  string
	cover  string
	tracks []*Track
}

// NewAlbum creates an unloaded album
func NewAlbum(svc Service, id string) *Collection {
	return &Collection{kind: KindAlbum, id: id, svc: svc}
}

// NewPlaylist creates an unloaded playlist
func NewPlaylist(svc Service, id string) *Collection {
	return &Collection{kind: KindPlaylist, id: id, svc: svc}
}

// NewLikedSongs creates the pseudo-playlist of the current user's saved tracks
func NewLikedSongs(svc Service) *Collection {
	return &Collection{kind: KindLiked, id: "me", svc: svc}
}

// Kind returns the collection variant
func (c *Collection) Kind() Kind {
	return c.kind
}

// ID returns the catalog id ("me" for liked songs)
func (c *Collection) ID() string {
	return c.id
}

// State returns the current load state
func (c *Collection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// EnsureLoaded loads the header and every page of tracks if not loaded yet
func (c *Collection) EnsureLoaded(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Loaded {
		return nil
	}
	return c.load(ctx)
}

// Reload discards the cached state and loads again
func (c *Collection) Reload(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Unloaded
	c.title, c.cover, c.tracks = "", "", nil
	return c.load(ctx)
}

func (c *Collection) load(ctx context.Context) error {
	var (
		title, cover string
		first        *TrackPage
	)

	switch c.kind {
	case KindAlbum, KindPlaylist:
		var (
			rec *CollectionRecord
			err error
		)
		if c.kind == KindAlbum {
			rec, err = c.svc.GetAlbum(ctx, c.id)
		} else {
			rec, err = c.svc.GetPlaylist(ctx, c.id)
		}
		if err != nil {
			return classifyLoadError(c.kind, c.id, err)
		}
		if rec == nil {
			return notFound(c.kind, c.id)
		}
		def := UnknownAlbumName
		if c.kind == KindPlaylist {
			def = UnknownPlaylistName
		}
		title = orDefault(rec.Name, def)
		cover = orDefault(rec.CoverArtURL, UnknownCoverArtURL)
		first = rec.Tracks

	case KindLiked:
		page, err := c.svc.GetSavedTracks(ctx, LikedSongsPageSize)
		if err != nil {
			return classifyLoadError(c.kind, c.id, err)
		}
		if page == nil {
			return notFound(c.kind, c.id)
		}
		title = LikedSongsTitle
		cover = UnknownCoverArtURL
		// The profile image only decorates the collection; a failed lookup keeps the placeholder.
		if profile, err := c.svc.GetCurrentUserProfile(ctx); err == nil && profile != nil && profile.ImageURL != "" {
			cover = profile.ImageURL
		}
		first = page
	}

	records, err := collectPages(ctx, first)
	if err != nil {
		return classifyLoadError(c.kind, c.id, err)
	}

	tracks := make([]*Track, 0, len(records))
	for _, rec := range records {
		tracks = append(tracks, NewMemberTrack(c.svc, rec))
	}

	c.title, c.cover, c.tracks = title, cover, tracks
	c.state = Loaded
	return nil
}

// Title returns the collection title, optionally filtered for path use
func (c *Collection) Title(ctx context.Context, sanitize bool) (string, error) {
	if err := c.EnsureLoaded(ctx); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return maybeSanitize(c.title, sanitize), nil
}

// CoverArtURL returns the collection cover
func (c *Collection) CoverArtURL(ctx context.Context) (string, error) {
	if err := c.EnsureLoaded(ctx); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cover, nil
}

// Tracks returns the member tracks in catalog order
func (c *Collection) Tracks(ctx context.Context) ([]*Track, error) {
	if err := c.EnsureLoaded(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Track(nil), c.tracks...), nil
}
