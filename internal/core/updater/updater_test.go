package updater

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"spotify2mp3/internal/shared"
)

func TestIsNewerVersion(t *testing.T) {
	tests := []struct {
		latest, current string
		want            bool
	}{
		{"1.2.0", "1.1.9", true},
		{"v2.0.0", "1.9.9", true},
		{"1.0.0", "1.0.0", false},
		{"1.0.0", "1.0.1", false},
		{"1.10.0", "1.9.0", true},
	}
	for _, tt := range tests {
		got, err := isNewerVersion(tt.latest, tt.current)
		if err != nil {
			t.Errorf("isNewerVersion(%q, %q) unexpected error: %v", tt.latest, tt.current, err)
			continue
		}
		if got != tt.want {
			t.Errorf("isNewerVersion(%q, %q) = %v, want %v", tt.latest, tt.current, got, tt.want)
		}
	}

	if _, err := isNewerVersion("not-a-version", "1.0.0"); err == nil {
		t.Error("expected parse error")
	}
}

func TestCheckForUpdates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/owner/repo/main/version/version.json" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"version":"1.3.0"}`))
	}))
	defer server.Close()

	u := NewUpdater(server.URL, server.Client(), false)

	info, err := u.CheckForUpdates(context.Background(), "1.2.0", "owner/repo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !info.UpdateAvailable || info.LatestVersion != "1.3.0" {
		t.Errorf("unexpected update info %+v", info)
	}

	info, err = u.CheckForUpdates(context.Background(), "1.3.0", "owner/repo")
	if err != nil || info.UpdateAvailable {
		t.Errorf("expected no update, got %+v, %v", info, err)
	}

	_, err = u.CheckForUpdates(context.Background(), "1.3.0", "other/repo")
	if shared.StatusCodeOf(err) != http.StatusNotFound {
		t.Errorf("expected 404 HTTPError, got %v", err)
	}
}
