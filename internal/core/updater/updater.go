package updater

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	version "github.com/hashicorp/go-version"

	"spotify2mp3/internal/shared"
)

// DefaultBaseURL hosts version/version.json for each update repository
const DefaultBaseURL = "https://raw.githubusercontent.com"

// Updater checks the update repository for a newer release
type Updater struct {
	baseURL    string
	httpClient *http.Client
	debug      bool
}

// NewUpdater creates an updater. An empty baseURL selects GitHub raw content.
func NewUpdater(baseURL string, httpClient *http.Client, debug bool) *Updater {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Updater{baseURL: baseURL, httpClient: httpClient, debug: debug}
}

// CheckForUpdates fetches the published version and compares it with currentVersion
func (u *Updater) CheckForUpdates(ctx context.Context, currentVersion, updateRepo string) (*shared.UpdateInfo, error) {
	rawURL := fmt.Sprintf("%s/%s/main/version/version.json", u.baseURL, updateRepo)
	shared.DebugPrint(u.debug, "Checking for updates at %s", rawURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", shared.UserAgent)

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error checking for updates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &shared.HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, Message: "update check failed"}
	}

	var remote shared.VersionInfo
	if err := json.NewDecoder(resp.Body).Decode(&remote); err != nil {
		return nil, fmt.Errorf("error decoding remote version.json: %w", err)
	}

	newer, err := isNewerVersion(remote.Version, currentVersion)
	if err != nil {
		return nil, err
	}
	return &shared.UpdateInfo{
		CurrentVersion:  currentVersion,
		LatestVersion:   remote.Version,
		UpdateAvailable: newer,
		ReleaseURL:      fmt.Sprintf("https://github.com/%s/releases", updateRepo),
	}, nil
}

// isNewerVersion compares two versions using semantic versioning
func isNewerVersion(latest, current string) (bool, error) {
	vLatest, err := version.NewVersion(latest)
	if err != nil {
		return false, fmt.Errorf("error parsing latest version %q: %w", latest, err)
	}
	vCurrent, err := version.NewVersion(current)
	if err != nil {
		return false, fmt.Errorf("error parsing current version %q: %w", current, err)
	}
	return vLatest.GreaterThan(vCurrent), nil
}
