package musicbrainz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"spotify2mp3/internal/shared"
)

const (
	defaultBaseURL      = "https://musicbrainz.org/ws/2/"
	defaultUserAgent    = "spotify2mp3/1.0 ( https://github.com/spotify2mp3/spotify2mp3 )"
	defaultTimeout      = 30 * time.Second
	defaultRateLimit    = 1100 * time.Millisecond // MusicBrainz asks for at most one request per second
	defaultBurstLimit   = 1
	defaultMaxRetries   = 4
	defaultInitialDelay = 2 * time.Second
	defaultMaxDelay     = 30 * time.Second
)

// ErrNoRecording means no recording carries the requested ISRC
var ErrNoRecording = errors.New("no MusicBrainz recording found")

// Config holds configuration for the MusicBrainz API client
type Config struct {
	BaseURL      string        `json:"base_url"`
	UserAgent    string        `json:"user_agent"`
	Timeout      time.Duration `json:"timeout"`
	MaxRetries   int           `json:"max_retries"`
	InitialDelay time.Duration `json:"initial_delay"`
	MaxDelay     time.Duration `json:"max_delay"`
	RateLimit    time.Duration `json:"rate_limit"`
	BurstLimit   int           `json:"burst_limit"`
	Debug        bool          `json:"debug"`
}

// Client represents a MusicBrainz API client
type Client struct {
	httpClient  *http.Client
	config      Config
	rateLimiter *rate.Limiter
}

// DefaultConfig returns sensible defaults for the MusicBrainz API client
func DefaultConfig() Config {
	return Config{
		BaseURL:      defaultBaseURL,
		UserAgent:    defaultUserAgent,
		Timeout:      defaultTimeout,
		MaxRetries:   defaultMaxRetries,
		InitialDelay: defaultInitialDelay,
		MaxDelay:     defaultMaxDelay,
		RateLimit:    defaultRateLimit,
		BurstLimit:   defaultBurstLimit,
	}
}

// NewClient creates a client with default configuration
func NewClient(debug bool) *Client {
	config := DefaultConfig()
	config.Debug = debug
	return NewClientWithConfig(config)
}

// NewClientWithConfig creates a client with custom configuration
func NewClientWithConfig(config Config) *Client {
	if !strings.HasSuffix(config.BaseURL, "/") {
		config.BaseURL += "/"
	}
	return &Client{
		httpClient:  &http.Client{Timeout: config.Timeout},
		config:      config,
		rateLimiter: rate.NewLimiter(rate.Every(config.RateLimit), config.BurstLimit),
	}
}

// GetConfig returns the current client configuration
func (c *Client) GetConfig() Config {
	return c.config
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, &shared.HTTPError{
				StatusCode: http.StatusGatewayTimeout,
				Status:     "Gateway Timeout",
				Message:    err.Error(),
			}
		}
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &shared.HTTPError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Message:    shared.TruncateString(string(body), 200),
		}
	}
	return body, nil
}

func (c *Client) getWithRetry(ctx context.Context, path string) ([]byte, error) {
	var result []byte
	err := shared.RetryWithBackoffForHTTP(ctx, c.config.MaxRetries, c.config.InitialDelay, c.config.MaxDelay, func() error {
		var err error
		result, err = c.get(ctx, path)
		return err
	}, c.config.Debug)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SearchRecordingByISRC returns the best recording for an ISRC
func (c *Client) SearchRecordingByISRC(ctx context.Context, isrc string) (*Recording, error) {
	if isrc == "" {
		return nil, fmt.Errorf("ISRC cannot be empty")
	}

	query := fmt.Sprintf("isrc:\"%s\"", isrc)
	path := fmt.Sprintf("recording?query=%s&limit=1&fmt=json", url.QueryEscape(query))

	body, err := c.getWithRetry(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to search recording by ISRC %s: %w", isrc, err)
	}

	var searchResult struct {
		Recordings []Recording `json:"recordings"`
	}
	if err := json.Unmarshal(body, &searchResult); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ISRC search result: %w", err)
	}
	if len(searchResult.Recordings) == 0 {
		return nil, fmt.Errorf("%w for ISRC %s", ErrNoRecording, isrc)
	}
	return &searchResult.Recordings[0], nil
}

// LookupISRC resolves the recording, release and artist identifiers for an ISRC
func (c *Client) LookupISRC(ctx context.Context, isrc string) (*shared.RecordingIDs, error) {
	recording, err := c.SearchRecordingByISRC(ctx, isrc)
	if err != nil {
		return nil, err
	}

	ids := &shared.RecordingIDs{TrackID: recording.ID}
	if len(recording.ArtistCredit) > 0 {
		ids.ArtistID = recording.ArtistCredit[0].Artist.ID
	}
	if release := recording.preferredRelease(); release != nil {
		ids.AlbumID = release.ID
	}
	shared.DebugPrint(c.config.Debug, "MusicBrainz ISRC %s -> recording %s, release %s", isrc, ids.TrackID, ids.AlbumID)
	return ids, nil
}

// Artist represents a MusicBrainz artist
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ArtistCredit represents artist credit information
type ArtistCredit struct {
	Artist Artist `json:"artist"`
}

// ReleaseGroup represents a MusicBrainz release group
type ReleaseGroup struct {
	ID          string `json:"id"`
	PrimaryType string `json:"primary-type"`
}

// Release is a release as embedded in a recording search hit
type Release struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Status       string       `json:"status"`
	Date         string       `json:"date"`
	ReleaseGroup ReleaseGroup `json:"release-group"`
}

// Recording represents a MusicBrainz recording
type Recording struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Length       int            `json:"length"` // milliseconds
	ArtistCredit []ArtistCredit `json:"artist-credit"`
	Releases     []Release      `json:"releases"`
}

// preferredRelease picks the first official album release, then any official release, then the first one
func (r *Recording) preferredRelease() *Release {
	if len(r.Releases) == 0 {
		return nil
	}
	var official *Release
	for i := range r.Releases {
		rel := &r.Releases[i]
		if rel.Status != "Official" {
			continue
		}
		if rel.ReleaseGroup.PrimaryType == "Album" {
			return rel
		}
		if official == nil {
			official = rel
		}
	}
	if official != nil {
		return official
	}
	return &r.Releases[0]
}
