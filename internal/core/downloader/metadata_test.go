package downloader

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"spotify2mp3/internal/catalog"
	"spotify2mp3/internal/core/scratch"
	"spotify2mp3/internal/shared"
)

type fakeEnricher struct {
	ids *shared.RecordingIDs
	err error
}

func (f *fakeEnricher) LookupISRC(ctx context.Context, isrc string) (*shared.RecordingIDs, error) {
	return f.ids, f.err
}

// recordingRunner captures the ffmpeg arguments and writes the output file
type recordingRunner struct {
	args []string
	fail bool
}

func (r *recordingRunner) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	r.args = args
	if r.fail {
		return []byte("encoder exploded"), errors.New("exit status 1")
	}
	return nil, os.WriteFile(args[len(args)-1], []byte("ID3"), 0644)
}

func (r *recordingRunner) metadata() map[string]string {
	out := make(map[string]string)
	for i := 0; i < len(r.args)-1; i++ {
		if r.args[i] == "-metadata" {
			kv := strings.SplitN(r.args[i+1], "=", 2)
			out[kv[0]] = kv[1]
		}
	}
	return out
}

func (r *recordingRunner) has(flag string) bool {
	for _, a := range r.args {
		if a == flag {
			return true
		}
	}
	return false
}

func testMetadata(coverURL string) catalog.Metadata {
	return catalog.Metadata{
		Title:       "Song",
		Artists:     []string{"First", "Second"},
		Album:       "Album",
		ReleaseDate: "2020-01-02",
		TrackNumber: 3,
		DiscNumber:  1,
		ISRC:        "USRC17607839",
		CoverArtURL: coverURL,
		Comments: []catalog.Comment{
			{Label: "Spotify Track URL", Value: "https://open.spotify.com/track/1"},
			{Label: "Album Type", Value: ""},
		},
	}
}

func newTestEmbedder(t *testing.T, warnings *shared.WarningCollector) (*Embedder, *recordingRunner, string) {
	t.Helper()
	dir := t.TempDir()
	area := scratch.New(filepath.Join(dir, "temp"))
	if err := area.Prepare(); err != nil {
		t.Fatal(err)
	}
	e := NewEmbedder(area, nil, nil, nil, nil)
	if warnings != nil {
		e.warnings = warnings
	}
	runner := &recordingRunner{}
	e.run = runner.run
	return e, runner, dir
}

func TestKbps(t *testing.T) {
	cases := map[int]int{
		128000: 128,
		129600: 130,
		8000:   minKbps,
		510000: maxKbps,
		0:      minKbps,
	}
	for in, want := range cases {
		if got := kbps(in); got != want {
			t.Errorf("kbps(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestBuildTags(t *testing.T) {
	tags := buildTags(testMetadata(""), &shared.RecordingIDs{TrackID: "rec", AlbumID: "rel"})
	got := make(map[string]string)
	for _, tag := range tags {
		got[tag.key] = tag.value
	}

	want := map[string]string{
		"title":                "Song",
		"artist":               "First, Second",
		"album":                "Album",
		"date":                 "2020-01-02",
		"track":                "3",
		"disc":                 "1",
		"TSRC":                 "USRC17607839",
		"Spotify Track URL":    "https://open.spotify.com/track/1",
		"comment":              "Spotify Track URL: https://open.spotify.com/track/1",
		"MusicBrainz Track Id": "rec",
		"MusicBrainz Album Id": "rel",
	}
	for key, value := range want {
		if got[key] != value {
			t.Errorf("tag %s = %q, want %q", key, got[key], value)
		}
	}
	if _, ok := got["Album Type"]; ok {
		t.Error("empty comment should not be written")
	}
	if _, ok := got["MusicBrainz Artist Id"]; ok {
		t.Error("empty MusicBrainz id should not be written")
	}
}

func TestEmbedWithCover(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("\xff\xd8jpeg"))
	}))
	defer server.Close()

	e, runner, dir := newTestEmbedder(t, nil)
	dest := filepath.Join(dir, "playlists", "Mix", "Song.mp3")

	if err := e.Embed(context.Background(), "in.webm", testMetadata(server.URL+"/cover.jpg"), dest, 160000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !shared.FileExists(dest) {
		t.Fatal("expected destination file")
	}
	if shared.FileExists(dest + partialSuffix) {
		t.Error("partial file should have been renamed")
	}
	if !runner.has("attached_pic") || !runner.has("1:v") {
		t.Errorf("expected cover mapping in %v", runner.args)
	}
	if !runner.has("160k") {
		t.Errorf("expected 160k bitrate in %v", runner.args)
	}
	if runner.metadata()["title"] != "Song" {
		t.Errorf("expected title tag, got %v", runner.metadata())
	}

	entries, _ := os.ReadDir(e.area.Dir())
	if len(entries) != 0 {
		t.Errorf("expected cover to be removed from scratch, found %d files", len(entries))
	}
}

func TestEmbedCoverFailureIsWarning(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	warnings := shared.NewWarningCollector(true)
	e, runner, dir := newTestEmbedder(t, warnings)
	dest := filepath.Join(dir, "Song.mp3")

	if err := e.Embed(context.Background(), "in.webm", testMetadata(server.URL), dest, 128000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if runner.has("attached_pic") {
		t.Error("cover should not be mapped after a failed download")
	}
	if warnings.GetWarningCount() != 1 {
		t.Errorf("expected one cover warning, got %d", warnings.GetWarningCount())
	}
}

func TestEmbedSkipsPlaceholderCover(t *testing.T) {
	e, runner, dir := newTestEmbedder(t, nil)
	if err := e.Embed(context.Background(), "in.webm", testMetadata(catalog.UnknownCoverArtURL), filepath.Join(dir, "Song.mp3"), 128000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if runner.has("-disposition:v") {
		t.Error("placeholder cover should not be fetched")
	}
}

func TestEmbedEnrichment(t *testing.T) {
	warnings := shared.NewWarningCollector(true)
	e, runner, dir := newTestEmbedder(t, warnings)
	e.enricher = &fakeEnricher{ids: &shared.RecordingIDs{TrackID: "rec", AlbumID: "rel", ArtistID: "art"}}

	if err := e.Embed(context.Background(), "in.webm", testMetadata(""), filepath.Join(dir, "Song.mp3"), 128000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if runner.metadata()["MusicBrainz Artist Id"] != "art" {
		t.Errorf("expected MusicBrainz tags, got %v", runner.metadata())
	}

	e.enricher = &fakeEnricher{err: errors.New("not found")}
	if err := e.Embed(context.Background(), "in.webm", testMetadata(""), filepath.Join(dir, "Other.mp3"), 128000); err != nil {
		t.Fatalf("lookup failure should not fail the embed: %v", err)
	}
	if warnings.GetWarningCount() != 1 {
		t.Errorf("expected one MusicBrainz warning, got %d", warnings.GetWarningCount())
	}
}

func TestEmbedFailureLeavesNoDestination(t *testing.T) {
	e, runner, dir := newTestEmbedder(t, nil)
	runner.fail = true
	dest := filepath.Join(dir, "Song.mp3")

	err := e.Embed(context.Background(), "in.webm", testMetadata(""), dest, 128000)
	if err == nil || !strings.Contains(err.Error(), "encoder exploded") {
		t.Fatalf("expected ffmpeg output in error, got %v", err)
	}
	if shared.FileExists(dest) || shared.FileExists(dest+partialSuffix) {
		t.Error("no output should remain after a failed embed")
	}
}
