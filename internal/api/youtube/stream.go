package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/dustin/go-humanize"
	"github.com/kkdai/youtube/v2"

	"spotify2mp3/internal/core/fetcher"
	"spotify2mp3/internal/shared"
)

const progressTemplate = `{{ string . "prefix" }} {{ bar . }} {{ percent . }} | {{ speed . "%s/s" }} | ETA {{ rtime . "%s" }}`

// the youtube library selects its innertube client through package state
var clientMu sync.Mutex

// StreamClient opens videos and downloads their streams. It implements fetcher.SessionOpener.
type StreamClient struct {
	timeout      time.Duration
	showProgress bool
	debug        bool
}

// NewStreamClient creates a stream client. showProgress draws a bar per download when stdout is a terminal.
func NewStreamClient(timeout time.Duration, showProgress, debug bool) *StreamClient {
	return &StreamClient{
		timeout:      timeout,
		showProgress: showProgress && shared.IsTTY(),
		debug:        debug,
	}
}

func (c *StreamClient) newClient() *youtube.Client {
	return &youtube.Client{
		HTTPClient: &http.Client{Timeout: c.timeout},
	}
}

// withMode runs fn with the innertube client matching mode
func withMode(mode fetcher.AuthMode, fn func()) {
	clientMu.Lock()
	defer clientMu.Unlock()

	saved := youtube.DefaultClient
	defer func() {
		youtube.DefaultClient = saved
	}()

	switch mode {
	case fetcher.AuthCachedCredential:
		youtube.DefaultClient = youtube.WebClient
	case fetcher.AuthAnonymousToken:
		youtube.DefaultClient = youtube.EmbeddedClient
	default:
		youtube.DefaultClient = youtube.AndroidClient
	}
	fn()
}

// Open fetches video metadata in the given mode
func (c *StreamClient) Open(ctx context.Context, videoURL string, mode fetcher.AuthMode) (fetcher.Session, error) {
	client := c.newClient()
	var (
		video *youtube.Video
		err   error
	)
	withMode(mode, func() {
		video, err = client.GetVideoContext(ctx, videoURL)
	})
	if err != nil {
		return nil, wrapAccessError(err)
	}
	shared.DebugPrint(c.debug, "Opened %s (%s) with %d formats [%s]", video.ID, video.Title, len(video.Formats), mode)
	return &session{owner: c, client: client, mode: mode, videoURL: videoURL, video: video}, nil
}

func wrapAccessError(err error) error {
	switch {
	case errors.Is(err, youtube.ErrLoginRequired),
		errors.Is(err, youtube.ErrVideoPrivate),
		errors.Is(err, youtube.ErrNotPlayableInEmbed):
		return fmt.Errorf("restricted access: %w", err)
	}
	return err
}

type session struct {
	owner    *StreamClient
	client   *youtube.Client
	mode     fetcher.AuthMode
	videoURL string
	video    *youtube.Video
}

// BypassAgeGate refetches the video through the embedded player. A gated video comes back
// without formats; the refetch replaces it when it yields some. Failing to bypass a video
// that already has formats is not an error.
func (s *session) BypassAgeGate(ctx context.Context) error {
	var (
		video *youtube.Video
		err   error
	)
	withMode(fetcher.AuthAnonymousToken, func() {
		video, err = s.client.GetVideoContext(ctx, s.videoURL)
	})
	if err != nil {
		if len(s.video.Formats) > 0 {
			shared.DebugPrint(s.owner.debug, "Embedded refetch of %s failed, keeping original formats: %v", s.videoURL, err)
			return nil
		}
		return fmt.Errorf("age-gate bypass: %w", err)
	}
	if len(video.Formats) > len(s.video.Formats) {
		s.video = video
	}
	return nil
}

func (s *session) Streams() []fetcher.Stream {
	out := make([]fetcher.Stream, 0, len(s.video.Formats))
	for i := range s.video.Formats {
		out = append(out, &stream{session: s, format: &s.video.Formats[i]})
	}
	return out
}

type stream struct {
	session *session
	format  *youtube.Format
}

func (st *stream) OnlyAudio() bool {
	return st.format.AudioChannels > 0 && st.format.Width == 0
}

func (st *stream) HasAudio() bool {
	return st.format.AudioChannels > 0
}

// Bitrate prefers the average bitrate, which is what the platform's abr label reports
func (st *stream) Bitrate() int {
	if st.format.AverageBitrate > 0 {
		return st.format.AverageBitrate
	}
	return st.format.Bitrate
}

func (st *stream) MimeType() string {
	return st.format.MimeType
}

// Download writes the stream to path
func (st *stream) Download(ctx context.Context, path string) (int64, error) {
	var (
		reader io.ReadCloser
		size   int64
		err    error
	)
	withMode(st.session.mode, func() {
		reader, size, err = st.session.client.GetStreamContext(ctx, st.session.video, st.format)
	})
	if err != nil {
		return 0, fmt.Errorf("starting stream: %w", err)
	}
	defer reader.Close()

	out, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	var src io.Reader = reader
	var bar *pb.ProgressBar
	if st.session.owner.showProgress {
		bar = pb.New64(size)
		bar.SetWriter(os.Stdout)
		bar.SetTemplateString(progressTemplate)
		bar.Set(pb.Bytes, true)
		bar.Set("prefix", fmt.Sprintf("Downloading %-40s: ", shared.TruncateString(st.session.video.Title, 40)))
		if size <= 0 {
			bar.Set("indeterminate", true)
		}
		bar.Start()
		src = bar.NewProxyReader(reader)
		defer bar.Finish()
	}

	written, err := io.Copy(out, src)
	if err != nil {
		return written, fmt.Errorf("failed to write audio stream: %w", err)
	}
	if size > 0 && written != size {
		return written, fmt.Errorf("incomplete download: expected %d bytes, got %d bytes", size, written)
	}

	shared.DebugPrint(st.session.owner.debug, "Downloaded %s stream (%s, %d bps) for %s",
		humanize.Bytes(uint64(written)), mimeBase(st.format.MimeType), st.Bitrate(), st.session.videoURL)
	return written, nil
}

func mimeBase(mimeType string) string {
	return strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0])
}
