package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/semaphore"

	"spotify2mp3/internal/catalog"
	"spotify2mp3/internal/core/fetcher"
	"spotify2mp3/internal/core/pipeline"
	"spotify2mp3/internal/core/search"
)

// TrackState is the per-track state within one batch run
type TrackState int

const (
	Pending TrackState = iota
	Resolving
	Found
	Skipped
)

func (s TrackState) String() string {
	switch s {
	case Resolving:
		return "resolving"
	case Found:
		return "found"
	case Skipped:
		return "skipped"
	default:
		return "pending"
	}
}

// Reason classifies why a track was skipped
type Reason int

const (
	ReasonOther Reason = iota
	ReasonNotFound
	ReasonRetrieval
	ReasonNoResults
	ReasonLengthExceeded
	ReasonViewCountTooLow
	ReasonNoAudioStream
	ReasonStreamFetch
)

func (r Reason) String() string {
	switch r {
	case ReasonNotFound:
		return "Skipped a song we could not find."
	case ReasonRetrieval:
		return "Could not retrieve the song from Spotify."
	case ReasonNoResults:
		return "Skipped a song found on Spotify but not on YouTube."
	case ReasonLengthExceeded:
		return "Song length exceeds max length."
	case ReasonViewCountTooLow:
		return "View count below minimum threshold."
	case ReasonNoAudioStream:
		return "No audio stream available."
	case ReasonStreamFetch:
		return "Audio download failed."
	default:
		return "Unexpected error."
	}
}

// Classify maps a pipeline error onto a skip reason
func Classify(err error) Reason {
	var retrieval *catalog.RetrievalError
	switch {
	case errors.Is(err, catalog.ErrEntityNotFound):
		return ReasonNotFound
	case errors.As(err, &retrieval):
		return ReasonRetrieval
	case errors.Is(err, search.ErrNoResultsFound):
		return ReasonNoResults
	case errors.Is(err, search.ErrLengthExceeded):
		return ReasonLengthExceeded
	case errors.Is(err, search.ErrViewCountTooLow):
		return ReasonViewCountTooLow
	case errors.Is(err, fetcher.ErrNoAudioStreamAvailable):
		return ReasonNoAudioStream
	}
	var fetchErr *fetcher.StreamFetchError
	if errors.As(err, &fetchErr) {
		return ReasonStreamFetch
	}
	return ReasonOther
}

// SkipRecord pairs a track with the reason it was skipped
type SkipRecord struct {
	Index  int
	Track  *catalog.Track
	Title  string
	Reason Reason
	Err    error
}

// Resolver is the single-track unit of work
type Resolver interface {
	Resolve(ctx context.Context, track *catalog.Track, outputDir string) (*pipeline.Result, error)
}

// Report is the outcome of one collection
type Report struct {
	Title     string
	Directory string
	Tracks    []*catalog.Track
	States    []TrackState
	Results   []*pipeline.Result
	Skipped   []SkipRecord
}

// Downloaded counts freshly written files
func (r *Report) Downloaded() int {
	return r.count(pipeline.Downloaded)
}

// Existing counts files that were already present
func (r *Report) Existing() int {
	return r.count(pipeline.AlreadyExists)
}

func (r *Report) count(outcome pipeline.Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res != nil && res.Outcome == outcome {
			n++
		}
	}
	return n
}

// FoundTracks returns the tracks whose file exists at the destination, in order
func (r *Report) FoundTracks() []*catalog.Track {
	var found []*catalog.Track
	for i, state := range r.States {
		if state == Found {
			found = append(found, r.Tracks[i])
		}
	}
	return found
}

// Driver downloads whole collections
type Driver struct {
	resolver    Resolver
	root        string
	parallelism int
	listener    pipeline.ProgressListener
}

// NewDriver creates a driver writing under root. parallelism below 2 runs tracks one at a time.
func NewDriver(resolver Resolver, root string, parallelism int, listener pipeline.ProgressListener) *Driver {
	if listener == nil {
		listener = pipeline.Discard
	}
	if parallelism < 1 {
		parallelism = 1
	}
	return &Driver{resolver: resolver, root: root, parallelism: parallelism, listener: listener}
}

// Directory is where a collection's files go: <root>/<kind dir>/<sanitized title>
func (d *Driver) Directory(ctx context.Context, c *catalog.Collection) (string, error) {
	title, err := c.Title(ctx, true)
	if err != nil {
		return "", err
	}
	if title == "" {
		title = catalog.Sanitize(catalog.UnknownPlaylistName)
	}
	return filepath.Join(d.root, c.Kind().Dir(), title), nil
}

// DownloadCollection resolves every track of c in order. A failing track becomes a SkipRecord and
// never stops the batch. The returned error is non-nil only when the collection itself cannot be
// loaded or the context is cancelled; in the latter case the partial report is returned as well.
func (d *Driver) DownloadCollection(ctx context.Context, c *catalog.Collection) (*Report, error) {
	if err := c.EnsureLoaded(ctx); err != nil {
		return nil, err
	}
	title, err := c.Title(ctx, false)
	if err != nil {
		return nil, err
	}
	dir, err := d.Directory(ctx, c)
	if err != nil {
		return nil, err
	}
	tracks, err := c.Tracks(ctx)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	report := &Report{
		Title:     title,
		Directory: dir,
		Tracks:    tracks,
		States:    make([]TrackState, len(tracks)),
		Results:   make([]*pipeline.Result, len(tracks)),
	}
	d.listener.OnProgress(pipeline.Event{Step: pipeline.StepCollectionLoaded, Collection: title, Path: dir, Total: len(tracks)})

	errs := make([]error, len(tracks))
	if d.parallelism > 1 {
		d.runParallel(ctx, report, errs)
	} else {
		d.runSequential(ctx, report, errs)
	}

	for i, err := range errs {
		if err == nil || report.States[i] != Skipped {
			continue
		}
		report.Skipped = append(report.Skipped, SkipRecord{
			Index:  i,
			Track:  tracks[i],
			Title:  tracks[i].Label(),
			Reason: Classify(err),
			Err:    err,
		})
	}
	return report, ctx.Err()
}

func (d *Driver) runSequential(ctx context.Context, report *Report, errs []error) {
	for i := range report.Tracks {
		if ctx.Err() != nil {
			return
		}
		d.resolveOne(ctx, report, errs, i)
	}
}

func (d *Driver) runParallel(ctx context.Context, report *Report, errs []error) {
	sem := semaphore.NewWeighted(int64(d.parallelism))
	var wg sync.WaitGroup
	for i := range report.Tracks {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer sem.Release(1)
			d.resolveOne(ctx, report, errs, i)
		}(i)
	}
	wg.Wait()
}

// resolveOne only writes index i of the report slices
func (d *Driver) resolveOne(ctx context.Context, report *Report, errs []error, i int) {
	track := report.Tracks[i]
	report.States[i] = Resolving

	result, err := d.resolver.Resolve(ctx, track, report.Directory)
	if err != nil {
		if ctx.Err() != nil {
			// interrupted, not skipped
			return
		}
		report.States[i] = Skipped
		errs[i] = err
		reason := Classify(err)
		d.listener.OnProgress(pipeline.Event{
			Step:       pipeline.StepSkipped,
			Track:      track.Label(),
			Collection: report.Title,
			Index:      i + 1,
			Total:      len(report.Tracks),
			Message:    reason.String(),
			Err:        err,
		})
		return
	}
	report.States[i] = Found
	report.Results[i] = result
}
