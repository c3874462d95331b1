package navidrome

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	subsonic "github.com/delucks/go-subsonic"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"spotify2mp3/internal/shared"
)

const (
	apiVersion = "1.16.1"
	clientName = "spotify2mp3"
)

// library is the part of the subsonic API used for lookups
type library interface {
	Search2(query string, parameters map[string]string) (*subsonic.SearchResult2, error)
	GetPlaylists(parameters map[string]string) ([]*subsonic.Playlist, error)
	GetPlaylist(id string) (*subsonic.Playlist, error)
}

// Client talks to a Navidrome (subsonic compatible) server
type Client struct {
	url        string
	username   string
	password   string
	httpClient *http.Client
	debug      bool

	api   library
	salt  string
	token string
}

// NewClient creates a new navidrome client. Authenticate must be called before use.
func NewClient(serverURL, username, password string, httpClient *http.Client, debug bool) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		url:        strings.TrimRight(serverURL, "/"),
		username:   username,
		password:   password,
		httpClient: httpClient,
		debug:      debug,
	}
}

// Authenticate pings the server with token auth and prepares the credentials for raw calls
func (c *Client) Authenticate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	api := &subsonic.Client{
		Client:     c.httpClient,
		BaseUrl:    c.url,
		User:       c.username,
		ClientName: clientName,
	}
	if err := api.Authenticate(c.password); err != nil {
		return fmt.Errorf("navidrome authentication failed: %w", err)
	}
	c.api = api
	c.salt = strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	c.token = saltedPassword(c.password, c.salt)
	return nil
}

// SearchSong finds the library song matching ref. A nil song with a nil error means no match.
func (c *Client) SearchSong(ref shared.SongRef) (*subsonic.Child, error) {
	combined := strings.TrimSpace(ref.Title + " " + ref.Artist)
	shared.DebugPrint(c.debug, "Searching Navidrome for %q", combined)

	result, err := c.api.Search2(combined, map[string]string{"songCount": "5"})
	if err != nil {
		shared.DebugPrint(c.debug, "Combined search for %q failed: %v", combined, err)
	}
	if result != nil && len(result.Song) > 0 {
		for _, song := range result.Song {
			if strings.EqualFold(song.Title, ref.Title) && artistMatches(song.Artist, ref.Artist) {
				return song, nil
			}
		}
		return result.Song[0], nil
	}

	result, err = c.api.Search2(ref.Title, map[string]string{"songCount": "10"})
	if err != nil {
		return nil, err
	}
	if result != nil {
		for _, song := range result.Song {
			if artistMatches(song.Artist, ref.Artist) {
				return song, nil
			}
		}
	}
	shared.DebugPrint(c.debug, "Song %q by %q not found", ref.Title, ref.Artist)
	return nil, nil
}

// artistMatches compares against the first credited artist as well as the full credit
func artistMatches(libraryArtist, wanted string) bool {
	if strings.EqualFold(libraryArtist, wanted) {
		return true
	}
	first := strings.TrimSpace(strings.Split(wanted, ",")[0])
	return first != "" && strings.EqualFold(libraryArtist, first)
}

// FindPlaylist returns the id of the playlist with the given name, or "" if none exists
func (c *Client) FindPlaylist(name string) (string, error) {
	playlists, err := c.api.GetPlaylists(map[string]string{})
	if err != nil {
		return "", err
	}
	for _, playlist := range playlists {
		if playlist.Name == name {
			return playlist.ID, nil
		}
	}
	return "", nil
}

// CreatePlaylist creates an empty playlist and returns its id
func (c *Client) CreatePlaylist(ctx context.Context, name string) (string, error) {
	params := url.Values{}
	params.Set("name", name)
	body, err := c.call(ctx, "createPlaylist", params)
	if err != nil {
		return "", fmt.Errorf("failed to create playlist: %w", err)
	}
	id := gjson.GetBytes(body, "subsonic-response.playlist.id").String()
	if id == "" {
		// servers before API 1.14 do not echo the playlist back
		return c.FindPlaylist(name)
	}
	return id, nil
}

// AddSongs adds multiple songs to a playlist in a single call
func (c *Client) AddSongs(ctx context.Context, playlistID string, songIDs []string) error {
	if len(songIDs) == 0 {
		return nil
	}
	params := url.Values{}
	params.Set("playlistId", playlistID)
	for _, id := range songIDs {
		params.Add("songIdToAdd", id)
	}
	if _, err := c.call(ctx, "updatePlaylist", params); err != nil {
		return fmt.Errorf("failed to update playlist: %w", err)
	}
	return nil
}

// SyncPlaylist mirrors a downloaded collection into a server playlist of the same name.
// Songs already on the playlist are not added twice. Returns how many songs were matched in the library.
func (c *Client) SyncPlaylist(ctx context.Context, name string, songs []shared.SongRef) (int, error) {
	if c.api == nil {
		if err := c.Authenticate(ctx); err != nil {
			return 0, err
		}
	}

	playlistID, err := c.FindPlaylist(name)
	if err != nil {
		return 0, fmt.Errorf("failed to list playlists: %w", err)
	}

	existing := make(map[string]bool)
	if playlistID == "" {
		if playlistID, err = c.CreatePlaylist(ctx, name); err != nil {
			return 0, err
		}
		if playlistID == "" {
			return 0, fmt.Errorf("playlist %q was not created", name)
		}
	} else if playlist, err := c.api.GetPlaylist(playlistID); err == nil && playlist != nil {
		for _, entry := range playlist.Entry {
			existing[entry.ID] = true
		}
	}

	matched := 0
	var toAdd []string
	for _, ref := range songs {
		if err := ctx.Err(); err != nil {
			return matched, err
		}
		song, err := c.SearchSong(ref)
		if err != nil {
			shared.DebugPrint(c.debug, "Search failed for %q: %v", ref.Title, err)
			continue
		}
		if song == nil {
			continue
		}
		matched++
		if !existing[song.ID] {
			existing[song.ID] = true
			toAdd = append(toAdd, song.ID)
		}
	}

	return matched, c.AddSongs(ctx, playlistID, toAdd)
}

// call issues a raw REST request with token auth and checks the subsonic status
func (c *Client) call(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	params.Set("u", c.username)
	params.Set("t", c.token)
	params.Set("s", c.salt)
	params.Set("v", apiVersion)
	params.Set("c", clientName)
	params.Set("f", "json")

	endpointURL := fmt.Sprintf("%s/rest/%s.view?%s", c.url, endpoint, params.Encode())
	shared.DebugPrint(c.debug, "Calling Navidrome endpoint %s", endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpointURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &shared.HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, Message: string(body)}
	}

	status := gjson.GetBytes(body, "subsonic-response.status").String()
	if status == "failed" {
		return nil, fmt.Errorf("%s (code %d)",
			gjson.GetBytes(body, "subsonic-response.error.message").String(),
			gjson.GetBytes(body, "subsonic-response.error.code").Int())
	}
	return body, nil
}

func saltedPassword(password, salt string) string {
	sum := md5.Sum([]byte(password + salt))
	return hex.EncodeToString(sum[:])
}
