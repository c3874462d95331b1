package fetcher

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"spotify2mp3/internal/core/scratch"
	"spotify2mp3/internal/interfaces"
	"spotify2mp3/internal/shared"
)

// Stream is one encoded stream offered for a video
type Stream interface {
	OnlyAudio() bool
	HasAudio() bool
	// Bitrate is the average bitrate in bits per second, 0 when unknown
	Bitrate() int
	MimeType() string
	Download(ctx context.Context, path string) (int64, error)
}

// Session is an opened video
type Session interface {
	BypassAgeGate(ctx context.Context) error
	Streams() []Stream
}

// SessionOpener opens a video in the given auth mode
type SessionOpener interface {
	Open(ctx context.Context, videoURL string, mode AuthMode) (Session, error)
}

var ErrNoAudioStreamAvailable = errors.New("no audio stream available")

// StreamFetchError is returned once every strategy has failed. It unwraps to the last failure.
type StreamFetchError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *StreamFetchError) Error() string {
	return fmt.Sprintf("failed to fetch audio for %s after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *StreamFetchError) Unwrap() error {
	return e.Err
}

// Result describes a payload written to the scratch area
type Result struct {
	Path     string
	Bitrate  int
	MimeType string
	Size     int64
	Attempts int
	Mode     AuthMode
}

// Options configures retries
type Options struct {
	Strategies []Strategy
	RetryDelay time.Duration
}

// DefaultOptions is three attempts with a fixed two second delay
func DefaultOptions() Options {
	return Options{Strategies: Strategies(3), RetryDelay: 2 * time.Second}
}

// Fetcher downloads the audio stream closest to a target bitrate
type Fetcher struct {
	opener   SessionOpener
	area     *scratch.Area
	opts     Options
	logger   interfaces.LoggerService
	warnings interfaces.WarningCollectorService
}

// NewFetcher creates a fetcher. logger and warnings may be nil.
func NewFetcher(opener SessionOpener, area *scratch.Area, opts Options, logger interfaces.LoggerService, warnings interfaces.WarningCollectorService) *Fetcher {
	if len(opts.Strategies) == 0 {
		opts.Strategies = Strategies(3)
	}
	return &Fetcher{opener: opener, area: area, opts: opts, logger: logger, warnings: warnings}
}

// Fetch runs the strategies in order until one attempt succeeds
func (f *Fetcher) Fetch(ctx context.Context, videoURL string, targetBitrate int) (*Result, error) {
	var lastErr error
	for i, strategy := range f.opts.Strategies {
		if i > 0 {
			if err := shared.SleepContext(ctx, f.opts.RetryDelay); err != nil {
				return nil, err
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := f.attempt(ctx, videoURL, targetBitrate, strategy.Mode)
		if err == nil {
			result.Attempts = i + 1
			result.Mode = strategy.Mode
			return result, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		lastErr = err
		f.debug("Attempt %d/%d (%s) for %s failed: %v", i+1, len(f.opts.Strategies), strategy.Name, videoURL, err)
	}
	return nil, &StreamFetchError{URL: videoURL, Attempts: len(f.opts.Strategies), Err: lastErr}
}

func (f *Fetcher) attempt(ctx context.Context, videoURL string, targetBitrate int, mode AuthMode) (*Result, error) {
	session, err := f.opener.Open(ctx, videoURL, mode)
	if err != nil {
		return nil, fmt.Errorf("open video: %w", err)
	}

	if err := session.BypassAgeGate(ctx); err != nil {
		f.debug("Age-gate bypass failed for %s: %v", videoURL, err)
		if f.warnings != nil {
			f.warnings.AddAgeGateWarning(videoURL, err.Error())
		}
	}

	stream, err := SelectStream(session.Streams(), targetBitrate)
	if err != nil {
		return nil, err
	}

	path := f.area.NewPath(extensionFor(stream.MimeType()))
	size, err := stream.Download(ctx, path)
	if err != nil {
		_ = f.area.Remove(path)
		return nil, fmt.Errorf("download stream: %w", err)
	}

	bitrate := stream.Bitrate()
	if bitrate <= 0 {
		bitrate = targetBitrate
	}
	return &Result{Path: path, Bitrate: bitrate, MimeType: stream.MimeType(), Size: size}, nil
}

func (f *Fetcher) debug(format string, args ...interface{}) {
	if f.logger != nil {
		f.logger.Debug(format, args...)
	}
}

// SelectStream picks the highest-bitrate audio-only stream that does not exceed target.
// Streams without a reported bitrate are never matched by the walk. When nothing is at or
// below target the highest-bitrate stream is returned. Audio-only streams are preferred;
// when there are none any stream carrying audio is considered.
func SelectStream(streams []Stream, target int) (Stream, error) {
	candidates := filterStreams(streams, Stream.OnlyAudio)
	if len(candidates) == 0 {
		candidates = filterStreams(streams, Stream.HasAudio)
	}
	if len(candidates) == 0 {
		return nil, ErrNoAudioStreamAvailable
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Bitrate() > candidates[j].Bitrate()
	})

	for _, s := range candidates {
		if s.Bitrate() <= 0 {
			continue
		}
		if s.Bitrate() <= target {
			return s, nil
		}
	}
	return candidates[0], nil
}

func filterStreams(streams []Stream, keep func(Stream) bool) []Stream {
	out := make([]Stream, 0, len(streams))
	for _, s := range streams {
		if s != nil && keep(s) {
			out = append(out, s)
		}
	}
	return out
}

func extensionFor(mimeType string) string {
	base := strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0])
	switch base {
	case "audio/mp4":
		return ".m4a"
	case "audio/webm":
		return ".webm"
	case "video/mp4":
		return ".mp4"
	case "video/webm":
		return ".webm"
	default:
		return ".bin"
	}
}
