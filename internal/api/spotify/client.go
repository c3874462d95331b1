package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"spotify2mp3/internal/catalog"
	"spotify2mp3/internal/shared"
)

var (
	ErrMissingCredentials = errors.New("spotify client id and secret are required")
	ErrUserAuthRequired   = errors.New("a saved user token is required for liked songs")
)

// Credentials selects how the client authenticates
type Credentials struct {
	ClientID     string
	ClientSecret string
	// TokenFile holds a saved oauth2 user token (JSON). When present the client acts as that user.
	TokenFile string
}

// Client implements catalog.Service on top of the Spotify Web API
type Client struct {
	api      *spotify.Client
	userAuth bool
	debug    bool
}

// NewClient authenticates and returns a ready client
func NewClient(ctx context.Context, creds Credentials, debug bool) (*Client, error) {
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, ErrMissingCredentials
	}

	if token, err := loadToken(creds.TokenFile); err == nil {
		auth := spotifyauth.New(
			spotifyauth.WithClientID(creds.ClientID),
			spotifyauth.WithClientSecret(creds.ClientSecret),
			spotifyauth.WithScopes(
				spotifyauth.ScopeUserLibraryRead,
				spotifyauth.ScopePlaylistReadPrivate,
				spotifyauth.ScopeUserReadPrivate,
			),
		)
		shared.DebugPrint(debug, "Using saved Spotify user token from %s", creds.TokenFile)
		return &Client{
			api:      spotify.New(auth.Client(ctx, token), spotify.WithRetry(true)),
			userAuth: true,
			debug:    debug,
		}, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read spotify token file: %w", err)
	}

	config := &clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	token, err := config.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get spotify access token: %w", err)
	}
	httpClient := spotifyauth.New().Client(ctx, token)
	return &Client{api: spotify.New(httpClient, spotify.WithRetry(true)), debug: debug}, nil
}

func loadToken(path string) (*oauth2.Token, error) {
	if path == "" {
		return nil, os.ErrNotExist
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

// UserAuthenticated reports whether the client acts as a user
func (c *Client) UserAuthenticated() bool {
	return c.userAuth
}

// wrapError turns a Web API error into a shared.HTTPError so callers can inspect the status
func wrapError(op string, err error) error {
	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %w", op, &shared.HTTPError{
			StatusCode: apiErr.Status,
			Status:     http.StatusText(apiErr.Status),
			Message:    apiErr.Message,
		})
	}
	return fmt.Errorf("%s: %w", op, err)
}

// GetTrack fetches one full track
func (c *Client) GetTrack(ctx context.Context, id string) (*catalog.TrackRecord, error) {
	shared.DebugPrint(c.debug, "Fetching track: %s", id)
	track, err := c.api.GetTrack(ctx, spotify.ID(id))
	if err != nil {
		return nil, wrapError("get track", err)
	}
	if track == nil || track.ID == "" {
		return nil, nil
	}
	rec := trackRecord(track)
	return &rec, nil
}

// fullTracks fetches full track objects in batches, preserving order
func (c *Client) fullTracks(ctx context.Context, ids []spotify.ID) ([]catalog.TrackRecord, error) {
	records := make([]catalog.TrackRecord, 0, len(ids))
	for start := 0; start < len(ids); start += tracksBatchSize {
		end := start + tracksBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		tracks, err := c.api.GetTracks(ctx, ids[start:end])
		if err != nil {
			return nil, wrapError("get tracks", err)
		}
		for _, t := range tracks {
			if t == nil || t.ID == "" {
				continue
			}
			records = append(records, trackRecord(t))
		}
	}
	return records, nil
}

// GetAlbum fetches the album header and its first page, upgraded to full tracks
func (c *Client) GetAlbum(ctx context.Context, id string) (*catalog.CollectionRecord, error) {
	shared.DebugPrint(c.debug, "Fetching album: %s", id)
	album, err := c.api.GetAlbum(ctx, spotify.ID(id))
	if err != nil {
		return nil, wrapError("get album", err)
	}
	if album == nil {
		return nil, nil
	}
	page, err := c.albumPage(ctx, &album.Tracks)
	if err != nil {
		return nil, err
	}
	return &catalog.CollectionRecord{
		Name:        album.Name,
		CoverArtURL: firstImageURL(album.Images),
		Tracks:      page,
	}, nil
}

func (c *Client) albumPage(ctx context.Context, page *spotify.SimpleTrackPage) (*catalog.TrackPage, error) {
	ids := make([]spotify.ID, 0, len(page.Tracks))
	for _, t := range page.Tracks {
		ids = append(ids, t.ID)
	}
	records, err := c.fullTracks(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := &catalog.TrackPage{Tracks: records}
	if page.Next != "" {
		out.Next = func(ctx context.Context) (*catalog.TrackPage, error) {
			if err := c.api.NextPage(ctx, page); err != nil {
				if errors.Is(err, spotify.ErrNoMorePages) {
					return nil, nil
				}
				return nil, wrapError("album tracks page", err)
			}
			return c.albumPage(ctx, page)
		}
	}
	return out, nil
}

// GetPlaylist fetches the playlist header and its first page of tracks
func (c *Client) GetPlaylist(ctx context.Context, id string) (*catalog.CollectionRecord, error) {
	shared.DebugPrint(c.debug, "Fetching playlist: %s", id)
	playlist, err := c.api.GetPlaylist(ctx, spotify.ID(id))
	if err != nil {
		return nil, wrapError("get playlist", err)
	}
	if playlist == nil {
		return nil, nil
	}
	return &catalog.CollectionRecord{
		Name:        playlist.Name,
		CoverArtURL: firstImageURL(playlist.Images),
		Tracks:      c.playlistPage(&playlist.Tracks),
	}, nil
}

func (c *Client) playlistPage(page *spotify.PlaylistTrackPage) *catalog.TrackPage {
	out := &catalog.TrackPage{Tracks: playlistRecords(page.Tracks)}
	if page.Next != "" {
		out.Next = func(ctx context.Context) (*catalog.TrackPage, error) {
			if err := c.api.NextPage(ctx, page); err != nil {
				if errors.Is(err, spotify.ErrNoMorePages) {
					return nil, nil
				}
				return nil, wrapError("playlist tracks page", err)
			}
			return c.playlistPage(page), nil
		}
	}
	return out
}

// GetSavedTracks fetches the first page of the user's liked songs
func (c *Client) GetSavedTracks(ctx context.Context, pageSize int) (*catalog.TrackPage, error) {
	if !c.userAuth {
		return nil, ErrUserAuthRequired
	}
	page, err := c.api.CurrentUsersTracks(ctx, spotify.Limit(pageSize))
	if err != nil {
		return nil, wrapError("get saved tracks", err)
	}
	if page == nil {
		return nil, nil
	}
	return c.savedPage(page), nil
}

func (c *Client) savedPage(page *spotify.SavedTrackPage) *catalog.TrackPage {
	out := &catalog.TrackPage{Tracks: savedRecords(page.Tracks)}
	if page.Next != "" {
		out.Next = func(ctx context.Context) (*catalog.TrackPage, error) {
			if err := c.api.NextPage(ctx, page); err != nil {
				if errors.Is(err, spotify.ErrNoMorePages) {
					return nil, nil
				}
				return nil, wrapError("saved tracks page", err)
			}
			return c.savedPage(page), nil
		}
	}
	return out
}

// GetCurrentUserProfile returns the authenticated user's display name and image
func (c *Client) GetCurrentUserProfile(ctx context.Context) (*catalog.UserProfile, error) {
	if !c.userAuth {
		return nil, ErrUserAuthRequired
	}
	user, err := c.api.CurrentUser(ctx)
	if err != nil {
		return nil, wrapError("get current user", err)
	}
	return &catalog.UserProfile{
		DisplayName: user.DisplayName,
		ImageURL:    firstImageURL(user.Images),
	}, nil
}
