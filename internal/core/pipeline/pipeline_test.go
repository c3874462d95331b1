package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"spotify2mp3/internal/catalog"
	"spotify2mp3/internal/core/fetcher"
	"spotify2mp3/internal/core/scratch"
	"spotify2mp3/internal/core/search"
	"spotify2mp3/internal/shared"
)

type fakeCatalog struct {
	tracks map[string]*catalog.TrackRecord
}

func (f *fakeCatalog) GetTrack(ctx context.Context, id string) (*catalog.TrackRecord, error) {
	return f.tracks[id], nil
}

func (f *fakeCatalog) GetAlbum(ctx context.Context, id string) (*catalog.CollectionRecord, error) {
	return nil, nil
}

func (f *fakeCatalog) GetPlaylist(ctx context.Context, id string) (*catalog.CollectionRecord, error) {
	return nil, nil
}

func (f *fakeCatalog) GetSavedTracks(ctx context.Context, pageSize int) (*catalog.TrackPage, error) {
	return nil, nil
}

func (f *fakeCatalog) GetCurrentUserProfile(ctx context.Context) (*catalog.UserProfile, error) {
	return nil, nil
}

type fakeSelector struct {
	mu      sync.Mutex
	queries []string
	err     error
}

func (f *fakeSelector) Select(ctx context.Context, query string, c search.Constraints) (*search.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return &search.Candidate{URLSuffix: "/watch?v=" + catalog.Sanitize(query)}, nil
}

type fakeFetcher struct {
	area  *scratch.Area
	calls int
	err   error
}

func (f *fakeFetcher) Fetch(ctx context.Context, videoURL string, targetBitrate int) (*fetcher.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	path := f.area.NewPath(".webm")
	if err := os.WriteFile(path, []byte("payload"), 0644); err != nil {
		return nil, err
	}
	return &fetcher.Result{Path: path, Bitrate: targetBitrate, Size: 7}, nil
}

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(ctx context.Context, source string, meta catalog.Metadata, dest string, bitrate int) error {
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(dest, []byte("mp3:"+meta.Title), 0644)
}

type harness struct {
	pipeline *Pipeline
	selector *fakeSelector
	fetcher  *fakeFetcher
	embedder *fakeEmbedder
	area     *scratch.Area
	outDir   string
	events   []Event
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	area := scratch.New(filepath.Join(dir, "temp"))
	if err := area.Prepare(); err != nil {
		t.Fatal(err)
	}
	h := &harness{
		selector: &fakeSelector{},
		fetcher:  &fakeFetcher{area: area},
		embedder: &fakeEmbedder{},
		area:     area,
		outDir:   filepath.Join(dir, "downloads", "tracks"),
	}
	if err := os.MkdirAll(h.outDir, 0755); err != nil {
		t.Fatal(err)
	}
	opts := Options{
		Constraints:   search.Constraints{MaxLengthSeconds: 1800, MinViewCount: 10000, ResultCount: 5},
		TargetBitrate: 128000,
	}
	h.pipeline = New(h.selector, h.fetcher, h.embedder, area, opts, ProgressFunc(func(e Event) {
		h.events = append(h.events, e)
	}))
	return h
}

func memberTrack(id, title string, artists ...string) *catalog.Track {
	rec := catalog.TrackRecord{ID: id, Name: title}
	for _, a := range artists {
		rec.Artists = append(rec.Artists, catalog.ArtistRecord{Name: a})
	}
	return catalog.NewMemberTrack(&fakeCatalog{}, rec)
}

func scratchFiles(t *testing.T, area *scratch.Area) int {
	t.Helper()
	entries, err := os.ReadDir(area.Dir())
	if err != nil {
		t.Fatal(err)
	}
	return len(entries)
}

func TestResolveDownloads(t *testing.T) {
	h := newHarness(t)
	track := memberTrack("t1", "Song: Live?", "Artist", "Guest")

	result, err := h.pipeline.Resolve(context.Background(), track, h.outDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantPath := filepath.Join(h.outDir, "Song Live.mp3")
	if result.Path != wantPath || result.Outcome != Downloaded {
		t.Errorf("unexpected result: %+v", result)
	}
	if !shared.FileExists(wantPath) {
		t.Error("expected destination file")
	}
	if len(h.selector.queries) != 1 || h.selector.queries[0] != "Song: Live? - Artist Guest" {
		t.Errorf("unexpected queries: %v", h.selector.queries)
	}
	if result.Bitrate != 128000 {
		t.Errorf("expected bitrate 128000, got %d", result.Bitrate)
	}
	if n := scratchFiles(t, h.area); n != 0 {
		t.Errorf("expected scratch payload to be removed, found %d files", n)
	}

	wantSteps := []Step{StepResolveMetadata, StepDestination, StepExistingCheck, StepBuildQuery, StepSearch, StepFetch, StepEmbed, StepCleanup, StepFinished}
	if len(h.events) != len(wantSteps) {
		t.Fatalf("expected %d events, got %d", len(wantSteps), len(h.events))
	}
	for i, step := range wantSteps {
		if h.events[i].Step != step {
			t.Errorf("event %d: expected %s, got %s", i, step, h.events[i].Step)
		}
	}
}

func TestResolveShortCircuitsExistingFile(t *testing.T) {
	h := newHarness(t)
	dest := filepath.Join(h.outDir, "Song.mp3")
	if err := os.WriteFile(dest, []byte("done"), 0644); err != nil {
		t.Fatal(err)
	}

	result, err := h.pipeline.Resolve(context.Background(), memberTrack("t1", "Song", "Artist"), h.outDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Outcome != AlreadyExists {
		t.Errorf("expected AlreadyExists, got %s", result.Outcome)
	}
	if len(h.selector.queries) != 0 || h.fetcher.calls != 0 {
		t.Errorf("expected no video backend calls, got %d searches and %d fetches", len(h.selector.queries), h.fetcher.calls)
	}
	data, _ := os.ReadFile(dest)
	if string(data) != "done" {
		t.Error("existing file should not be touched")
	}
}

func TestResolvePropagatesSelectionErrors(t *testing.T) {
	h := newHarness(t)
	h.selector.err = &search.ViewCountTooLowError{Link: "https://www.youtube.com/watch?v=x", Views: 10, MinViews: 10000}

	_, err := h.pipeline.Resolve(context.Background(), memberTrack("t1", "Song", "Artist"), h.outDir)
	if !errors.Is(err, search.ErrViewCountTooLow) {
		t.Errorf("expected ErrViewCountTooLow, got %v", err)
	}
	if h.fetcher.calls != 0 {
		t.Error("fetch should not run after a rejected candidate")
	}
}

func TestResolvePropagatesFetchErrors(t *testing.T) {
	h := newHarness(t)
	h.fetcher.err = &fetcher.StreamFetchError{URL: "x", Attempts: 3, Err: fetcher.ErrNoAudioStreamAvailable}

	_, err := h.pipeline.Resolve(context.Background(), memberTrack("t1", "Song", "Artist"), h.outDir)
	var fetchErr *fetcher.StreamFetchError
	if !errors.As(err, &fetchErr) {
		t.Errorf("expected StreamFetchError, got %v", err)
	}
}

func TestResolveEmbedFailureKeepsPayloadForSweep(t *testing.T) {
	h := newHarness(t)
	h.embedder.err = errors.New("ffmpeg failed")

	_, err := h.pipeline.Resolve(context.Background(), memberTrack("t1", "Song", "Artist"), h.outDir)
	if err == nil {
		t.Fatal("expected an error")
	}
	if n := scratchFiles(t, h.area); n != 1 {
		t.Errorf("expected the payload to stay in scratch, found %d files", n)
	}
	if shared.FileExists(filepath.Join(h.outDir, "Song.mp3")) {
		t.Error("no destination file expected")
	}
}

func TestResolveCancelled(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.pipeline.Resolve(ctx, memberTrack("t1", "Song", "Artist"), h.outDir)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(h.selector.queries) != 0 {
		t.Error("no search expected after cancellation")
	}
}

func TestDownloadTrackNotFound(t *testing.T) {
	h := newHarness(t)
	track := catalog.NewTrack(&fakeCatalog{}, "missing")

	ok, result, err := h.pipeline.DownloadTrack(context.Background(), track, h.outDir)
	if err != nil {
		t.Fatalf("not found should not be returned as an error: %v", err)
	}
	if ok || result != nil {
		t.Error("expected a false result")
	}
	last := h.events[len(h.events)-1]
	if last.Step != StepNotFound || !errors.Is(last.Err, catalog.ErrEntityNotFound) {
		t.Errorf("expected a not-found event, got %+v", last)
	}
}

func TestDownloadTrackOtherErrorsPropagate(t *testing.T) {
	h := newHarness(t)
	h.selector.err = search.ErrNoResultsFound

	ok, _, err := h.pipeline.DownloadTrack(context.Background(), memberTrack("t1", "Song", "Artist"), h.outDir)
	if ok || !errors.Is(err, search.ErrNoResultsFound) {
		t.Errorf("expected ErrNoResultsFound, got ok=%v err=%v", ok, err)
	}
}

func TestDestinationPath(t *testing.T) {
	if got := DestinationPath("out", "A/B"); got != filepath.Join("out", "AB.mp3") {
		t.Errorf("unexpected path %s", got)
	}
	if got := DestinationPath("out", "???"); got != filepath.Join("out", catalog.UnknownTitle+".mp3") {
		t.Errorf("unexpected fallback path %s", got)
	}
}
