package shared

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// WarningType represents different types of warnings
type WarningType int

const (
	AgeGateWarning WarningType = iota
	CoverArtWarning
	MusicBrainzWarning
	NavidromeWarning
	ScratchCleanupWarning
	UpdateCheckWarning
)

// Warning represents a single warning with context
type Warning struct {
	Type    WarningType
	Message string
	Context string // track or collection the warning is about
	Details string
}

// WarningCollector gathers non-fatal problems during a run. Safe for concurrent use.
type WarningCollector struct {
	mu       sync.Mutex
	warnings []Warning
	enabled  bool
}

// NewWarningCollector creates a new warning collector
func NewWarningCollector(enabled bool) *WarningCollector {
	return &WarningCollector{
		warnings: make([]Warning, 0),
		enabled:  enabled,
	}
}

// AddWarning adds a warning to the collector
func (wc *WarningCollector) AddWarning(warningType WarningType, context, message, details string) {
	if !wc.enabled {
		return
	}

	wc.mu.Lock()
	defer wc.mu.Unlock()
	wc.warnings = append(wc.warnings, Warning{
		Type:    warningType,
		Message: message,
		Context: context,
		Details: details,
	})
}

// AddAgeGateWarning records a failed age-gate bypass for a video
func (wc *WarningCollector) AddAgeGateWarning(videoURL, details string) {
	wc.AddWarning(AgeGateWarning, videoURL, "Age-gate bypass failed", details)
}

// AddCoverArtWarning records a cover that could not be fetched or attached
func (wc *WarningCollector) AddCoverArtWarning(track, details string) {
	wc.AddWarning(CoverArtWarning, track, "Could not attach cover art", details)
}

// AddMusicBrainzWarning records a failed ISRC lookup
func (wc *WarningCollector) AddMusicBrainzWarning(artist, title, details string) {
	wc.AddWarning(MusicBrainzWarning, fmt.Sprintf("%s - %s", artist, title), "Failed to find MusicBrainz recording", details)
}

// AddNavidromeWarning records a playlist mirror problem
func (wc *WarningCollector) AddNavidromeWarning(context, details string) {
	wc.AddWarning(NavidromeWarning, context, "Navidrome sync problem", details)
}

// HasWarnings returns true if there are any warnings
func (wc *WarningCollector) HasWarnings() bool {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	return len(wc.warnings) > 0
}

// GetWarningCount returns the total number of warnings
func (wc *WarningCollector) GetWarningCount() int {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	return len(wc.warnings)
}

// GetWarningsByType returns warnings grouped by type
func (wc *WarningCollector) GetWarningsByType() map[WarningType][]Warning {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	grouped := make(map[WarningType][]Warning)
	for _, warning := range wc.warnings {
		grouped[warning.Type] = append(grouped[warning.Type], warning)
	}
	return grouped
}

// PrintSummary prints a formatted summary of all warnings
func (wc *WarningCollector) PrintSummary() {
	count := wc.GetWarningCount()
	if count == 0 {
		return
	}

	ColorWarning.Printf("\n⚠️  Warning Summary (%d warnings):\n", count)
	ColorWarning.Println(strings.Repeat("─", 50))

	grouped := wc.GetWarningsByType()

	var types []WarningType
	for warningType := range grouped {
		types = append(types, warningType)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	for _, warningType := range types {
		printWarningTypeSection(warningType, grouped[warningType])
	}
}

func printWarningTypeSection(warningType WarningType, warnings []Warning) {
	if len(warnings) == 0 {
		return
	}

	ColorWarning.Printf("\n%s (%d):\n", warningTypeTitle(warningType), len(warnings))

	contextCounts := make(map[string]int)
	details := make(map[string]string)
	for _, warning := range warnings {
		contextCounts[warning.Context]++
		details[warning.Context] = warning.Details
	}

	var contexts []string
	for context := range contextCounts {
		contexts = append(contexts, context)
	}
	sort.Strings(contexts)

	for _, context := range contexts {
		line := context
		if d := details[context]; d != "" {
			line = fmt.Sprintf("%s: %s", context, TruncateString(d, 120))
		}
		if count := contextCounts[context]; count > 1 {
			ColorWarning.Printf("  • %s (×%d)\n", line, count)
		} else {
			ColorWarning.Printf("  • %s\n", line)
		}
	}
}

func warningTypeTitle(warningType WarningType) string {
	switch warningType {
	case AgeGateWarning:
		return "Age-Gate Bypass Failures"
	case CoverArtWarning:
		return "Cover Art Failures"
	case MusicBrainzWarning:
		return "MusicBrainz Lookup Failures"
	case NavidromeWarning:
		return "Navidrome Sync Problems"
	case ScratchCleanupWarning:
		return "Scratch Cleanup Failures"
	case UpdateCheckWarning:
		return "Update Check Failures"
	default:
		return "Other Warnings"
	}
}
