package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"golang.org/x/sync/singleflight"

	"spotify2mp3/internal/catalog"
	"spotify2mp3/internal/core/fetcher"
	"spotify2mp3/internal/core/search"
	"spotify2mp3/internal/shared"
)

// Extension of every finished file
const Extension = ".mp3"

// CandidateSelector picks a video for a query
type CandidateSelector interface {
	Select(ctx context.Context, query string, c search.Constraints) (*search.Candidate, error)
}

// StreamFetcher downloads the audio of a video into the scratch area
type StreamFetcher interface {
	Fetch(ctx context.Context, videoURL string, targetBitrate int) (*fetcher.Result, error)
}

// TagEmbedder writes the finished, tagged file
type TagEmbedder interface {
	Embed(ctx context.Context, source string, meta catalog.Metadata, dest string, bitrate int) error
}

// PayloadRemover deletes a scratch payload
type PayloadRemover interface {
	Remove(path string) error
}

// Options are the per-run resolution settings
type Options struct {
	Constraints   search.Constraints
	TargetBitrate int
}

// Result of one resolved track
type Result struct {
	Path    string
	Outcome Outcome
	Link    string
	Bitrate int
}

// Pipeline resolves one track to a finished file
type Pipeline struct {
	selector CandidateSelector
	fetcher  StreamFetcher
	embedder TagEmbedder
	scratch  PayloadRemover
	opts     Options
	listener ProgressListener
	fetches  singleflight.Group
}

// New creates a pipeline. listener may be nil.
func New(selector CandidateSelector, fetcher StreamFetcher, embedder TagEmbedder, scratch PayloadRemover, opts Options, listener ProgressListener) *Pipeline {
	if listener == nil {
		listener = Discard
	}
	return &Pipeline{
		selector: selector,
		fetcher:  fetcher,
		embedder: embedder,
		scratch:  scratch,
		opts:     opts,
		listener: listener,
	}
}

// DestinationPath is where a track titled title ends up inside outputDir
func DestinationPath(outputDir, title string) string {
	name := catalog.Sanitize(title)
	if name == "" {
		name = catalog.UnknownTitle
	}
	return filepath.Join(outputDir, name+Extension)
}

// Resolve runs every step for one track. Errors are returned as-is so the caller can classify them.
// Cancellation is checked between steps.
func (p *Pipeline) Resolve(ctx context.Context, track *catalog.Track, outputDir string) (*Result, error) {
	p.emit(Event{Step: StepResolveMetadata, Track: track.Label()})
	meta, err := track.Metadata(ctx)
	if err != nil {
		return nil, err
	}
	label := track.Label()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dest := DestinationPath(outputDir, meta.Title)
	p.emit(Event{Step: StepDestination, Track: label, Path: dest})

	if shared.FileExists(dest) {
		p.emit(Event{Step: StepFinished, Track: label, Path: dest, Outcome: AlreadyExists})
		return &Result{Path: dest, Outcome: AlreadyExists}, nil
	}
	p.emit(Event{Step: StepExistingCheck, Track: label, Path: dest})

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	query, err := track.SearchableTitle(ctx)
	if err != nil {
		return nil, err
	}
	p.emit(Event{Step: StepBuildQuery, Track: label, Query: query})

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.emit(Event{Step: StepSearch, Track: label, Query: query})
	candidate, err := p.selector.Select(ctx, query, p.opts.Constraints)
	if err != nil {
		return nil, err
	}
	link := candidate.Link()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.emit(Event{Step: StepFetch, Track: label, Link: link, Bitrate: p.opts.TargetBitrate})
	payload, deduplicated, err := p.fetch(ctx, link)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.emit(Event{Step: StepEmbed, Track: label, Path: dest, Link: link, Bitrate: payload.Bitrate, Bytes: payload.Size})
	if err := p.embedder.Embed(ctx, payload.Path, meta, dest, payload.Bitrate); err != nil {
		// the payload stays for the end-of-run sweep
		return nil, fmt.Errorf("failed to write %s: %w", dest, err)
	}

	// a payload shared with another track is left for the sweep
	if !deduplicated {
		if err := p.scratch.Remove(payload.Path); err != nil {
			p.emit(Event{Step: StepCleanup, Track: label, Path: payload.Path, Err: err})
		} else {
			p.emit(Event{Step: StepCleanup, Track: label, Path: payload.Path})
		}
	}

	p.emit(Event{Step: StepFinished, Track: label, Path: dest, Link: link, Bitrate: payload.Bitrate, Outcome: Downloaded})
	return &Result{Path: dest, Outcome: Downloaded, Link: link, Bitrate: payload.Bitrate}, nil
}

// fetch downloads link once even when several tracks resolve to it at the same time
func (p *Pipeline) fetch(ctx context.Context, link string) (*fetcher.Result, bool, error) {
	v, err, dup := p.fetches.Do(link, func() (interface{}, error) {
		return p.fetcher.Fetch(ctx, link, p.opts.TargetBitrate)
	})
	if err != nil {
		return nil, dup, err
	}
	return v.(*fetcher.Result), dup, nil
}

// DownloadTrack resolves a single requested track. A track missing from the catalog is reported
// and turned into a false result; every other failure is returned.
func (p *Pipeline) DownloadTrack(ctx context.Context, track *catalog.Track, outputDir string) (bool, *Result, error) {
	result, err := p.Resolve(ctx, track, outputDir)
	if err != nil {
		if errors.Is(err, catalog.ErrEntityNotFound) {
			p.emit(Event{Step: StepNotFound, Track: track.Label(), Err: err})
			return false, nil, nil
		}
		return false, nil, err
	}
	return true, result, nil
}

func (p *Pipeline) emit(e Event) {
	p.listener.OnProgress(e)
}
