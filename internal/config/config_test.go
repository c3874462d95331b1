package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseQuality(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"low", 50000, false},
		{"Medium", 80000, false},
		{"high", 256000, false},
		{"128000", 128000, false},
		{"48000", 48000, false},
		{"256000", 256000, false},
		{"47999", 0, true},
		{"320000", 0, true},
		{"best", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseQuality(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseQuality(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseQuality(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.DownloadLocation != "downloads" || cfg.ScratchLocation != "temp" {
		t.Errorf("unexpected locations: %q %q", cfg.DownloadLocation, cfg.ScratchLocation)
	}
	if cfg.MaxLengthSeconds != 1800 || cfg.MinViews != 10000 {
		t.Errorf("unexpected bounds: %d %d", cfg.MaxLengthSeconds, cfg.MinViews)
	}
	if !cfg.ProgressBarsEnabled() {
		t.Error("progress bars should default to enabled")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Parallelism = -1
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for negative parallelism")
	}

	cfg = DefaultConfig()
	cfg.NavidromeSync = true
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for navidrome sync without URL")
	}
}

func TestSaveAndLoadJSONAndYAML(t *testing.T) {
	for _, name := range []string{"config.json", "config.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			in := DefaultConfig()
			in.SpotifyClientID = "abc"
			in.Parallelism = 4
			if err := SaveConfig(path, in); err != nil {
				t.Fatalf("SaveConfig: %v", err)
			}
			out := &Config{}
			if err := LoadConfig(path, out); err != nil {
				t.Fatalf("LoadConfig: %v", err)
			}
			if out.SpotifyClientID != "abc" || out.Parallelism != 4 {
				t.Errorf("loaded config mismatch: %+v", out)
			}
		})
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SPOTIFY_CLIENT_ID", "from-env")
	cfg := DefaultConfig()
	cfg.SpotifyClientID = "from-file"
	LoadEnv(cfg, filepath.Join(t.TempDir(), "missing.env"))
	if cfg.SpotifyClientID != "from-env" {
		t.Errorf("expected env override, got %q", cfg.SpotifyClientID)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"), &Config{})
	if err == nil {
		t.Fatal("expected error")
	}
	if _, statErr := os.Stat("nope.json"); statErr == nil {
		t.Error("LoadConfig must not create files")
	}
}
