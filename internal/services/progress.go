package services

import (
	"sync"

	"github.com/dustin/go-humanize"

	"spotify2mp3/internal/core/pipeline"
	"spotify2mp3/internal/interfaces"
)

// ConsoleProgress renders pipeline events through the logger
type ConsoleProgress struct {
	mu     sync.Mutex
	logger interfaces.LoggerService
}

// NewConsoleProgress creates a progress reporter
func NewConsoleProgress(logger interfaces.LoggerService) *ConsoleProgress {
	return &ConsoleProgress{logger: logger}
}

// OnProgress prints one event. Lines from parallel workers are never interleaved.
func (p *ConsoleProgress) OnProgress(e pipeline.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch e.Step {
	case pipeline.StepResolveMetadata:
		p.logger.Debug("Resolving metadata for %s", e.Track)
	case pipeline.StepDestination, pipeline.StepExistingCheck:
		p.logger.Debug("%s: %s", e.Step, e.Path)
	case pipeline.StepBuildQuery:
		p.logger.Debug("Search query: %s", e.Query)
	case pipeline.StepSearch:
		p.logger.Info("🔍 Searching for %s", e.Query)
	case pipeline.StepFetch:
		p.logger.Info("⬇️ Downloading %s", e.Link)
	case pipeline.StepEmbed:
		p.logger.Info("🏷️ Tagging %s (%s at %d kbps)", e.Track, humanize.Bytes(uint64(e.Bytes)), e.Bitrate/1000)
	case pipeline.StepCleanup:
		if e.Err != nil {
			p.logger.Debug("Could not remove %s: %v", e.Path, e.Err)
		}
	case pipeline.StepFinished:
		if e.Outcome == pipeline.AlreadyExists {
			p.logger.Info("⭐ Track already exists: %s", e.Path)
		} else {
			p.logger.Success("Downloaded %s", e.Path)
		}
	case pipeline.StepNotFound:
		p.logger.Error("Track not found: %s", e.Track)
	case pipeline.StepCollectionLoaded:
		p.logger.Info("📋 %s: %d tracks → %s", e.Collection, e.Total, e.Path)
	case pipeline.StepSkipped:
		p.logger.Warning("[%d/%d] Skipping %s: %s", e.Index, e.Total, e.Track, e.Message)
		if e.Err != nil {
			p.logger.Debug("%v", e.Err)
		}
	}
}
