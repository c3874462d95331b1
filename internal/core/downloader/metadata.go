package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"spotify2mp3/internal/catalog"
	"spotify2mp3/internal/core/scratch"
	"spotify2mp3/internal/interfaces"
	"spotify2mp3/internal/shared"
)

const (
	coverTimeout  = 30 * time.Second
	maxCoverBytes = 10 << 20
	partialSuffix = ".partial"
)

type tagField struct {
	key   string
	value string
}

// addField appends a tag only if value is not empty
func addField(fields []tagField, key, value string) []tagField {
	if strings.TrimSpace(value) == "" {
		return fields
	}
	return append(fields, tagField{key: key, value: value})
}

// buildTags maps track metadata to ffmpeg metadata keys. Four letter keys are written as
// ID3v2 frames of that name, other unknown keys become TXXX frames.
func buildTags(meta catalog.Metadata, ids *shared.RecordingIDs) []tagField {
	var fields []tagField
	fields = addField(fields, "title", meta.Title)
	fields = addField(fields, "artist", meta.ArtistString())
	fields = addField(fields, "album", meta.Album)
	fields = addField(fields, "date", meta.ReleaseDate)
	if meta.TrackNumber > 0 {
		fields = addField(fields, "track", strconv.Itoa(meta.TrackNumber))
	}
	if meta.DiscNumber > 0 {
		fields = addField(fields, "disc", strconv.Itoa(meta.DiscNumber))
	}
	fields = addField(fields, "TSRC", meta.ISRC)

	var comment []string
	for _, c := range meta.Comments {
		if c.Value == "" {
			continue
		}
		fields = addField(fields, c.Label, c.Value)
		comment = append(comment, c.Label+": "+c.Value)
	}
	fields = addField(fields, "comment", strings.Join(comment, "\n"))

	if !ids.Empty() {
		fields = addField(fields, "MusicBrainz Track Id", ids.TrackID)
		fields = addField(fields, "MusicBrainz Album Id", ids.AlbumID)
		fields = addField(fields, "MusicBrainz Artist Id", ids.ArtistID)
	}
	return fields
}

// Embedder turns a downloaded stream into a tagged mp3
type Embedder struct {
	area       *scratch.Area
	httpClient *http.Client
	enricher   interfaces.MetadataEnricher
	logger     interfaces.LoggerService
	warnings   interfaces.WarningCollectorService
	run        commandRunner
}

// NewEmbedder creates an embedder. enricher, logger and warnings may be nil.
func NewEmbedder(area *scratch.Area, httpClient *http.Client, enricher interfaces.MetadataEnricher, logger interfaces.LoggerService, warnings interfaces.WarningCollectorService) *Embedder {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: coverTimeout}
	}
	return &Embedder{
		area:       area,
		httpClient: httpClient,
		enricher:   enricher,
		logger:     logger,
		warnings:   warnings,
		run:        runCommand,
	}
}

// Embed transcodes source to an mp3 at dest, tagged with meta. The output is written next to
// dest and renamed into place, so dest either does not exist or is complete.
func (e *Embedder) Embed(ctx context.Context, source string, meta catalog.Metadata, dest string, bitrate int) error {
	label := fmt.Sprintf("%s - %s", meta.ArtistString(), meta.Title)

	coverPath := e.fetchCover(ctx, meta.CoverArtURL, label)
	if coverPath != "" {
		defer e.area.Remove(coverPath)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tags := buildTags(meta, e.lookupIDs(ctx, meta))

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	partial := dest + partialSuffix
	args := transcodeArgs(source, coverPath, partial, bitrate, tags)
	e.debug("ffmpeg %s", strings.Join(args, " "))

	output, err := e.run(ctx, ffmpegBinary, args...)
	if err != nil {
		os.Remove(partial)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("failed to embed tags: %w\nffmpeg output: %s", err, string(output))
	}

	if _, err := os.Stat(partial); err != nil {
		return fmt.Errorf("encoded file not found after conversion: %w", err)
	}
	if err := os.Rename(partial, dest); err != nil {
		os.Remove(partial)
		return fmt.Errorf("failed to move encoded file into place: %w", err)
	}
	return nil
}

func (e *Embedder) lookupIDs(ctx context.Context, meta catalog.Metadata) *shared.RecordingIDs {
	if e.enricher == nil || meta.ISRC == "" {
		return nil
	}
	ids, err := e.enricher.LookupISRC(ctx, meta.ISRC)
	if err != nil {
		e.debug("MusicBrainz lookup for %s failed: %v", meta.ISRC, err)
		if e.warnings != nil && ctx.Err() == nil {
			e.warnings.AddMusicBrainzWarning(meta.ArtistString(), meta.Title, err.Error())
		}
		return nil
	}
	return ids
}

// fetchCover downloads the cover into the scratch area. Failures are recorded as warnings
// and yield an empty path.
func (e *Embedder) fetchCover(ctx context.Context, coverURL, label string) string {
	if coverURL == "" || coverURL == catalog.UnknownCoverArtURL {
		return ""
	}

	path, err := e.downloadCover(ctx, coverURL)
	if err != nil {
		e.debug("Cover download for %s failed: %v", label, err)
		if e.warnings != nil && ctx.Err() == nil {
			e.warnings.AddCoverArtWarning(label, err.Error())
		}
		return ""
	}
	return path
}

func (e *Embedder) downloadCover(ctx context.Context, coverURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, coverURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", shared.UserAgent)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download cover: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &shared.HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, Message: "cover download failed"}
	}

	path := e.area.NewPath(".jpg")
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create cover file: %w", err)
	}
	n, err := io.Copy(out, io.LimitReader(resp.Body, maxCoverBytes))
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && n == 0 {
		err = fmt.Errorf("empty cover image")
	}
	if err != nil {
		e.area.Remove(path)
		return "", fmt.Errorf("failed to write cover file: %w", err)
	}
	return path, nil
}

func (e *Embedder) debug(format string, args ...interface{}) {
	if e.logger != nil {
		e.logger.Debug(format, args...)
	}
}
