package pipeline

// Step identifies where an event was emitted
type Step int

const (
	StepResolveMetadata Step = iota
	StepDestination
	StepExistingCheck
	StepBuildQuery
	StepSearch
	StepFetch
	StepEmbed
	StepCleanup
	StepFinished
	StepNotFound

	// emitted by batch drivers
	StepCollectionLoaded
	StepSkipped
)

func (s Step) String() string {
	switch s {
	case StepResolveMetadata:
		return "resolve-metadata"
	case StepDestination:
		return "destination"
	case StepExistingCheck:
		return "existing-check"
	case StepBuildQuery:
		return "build-query"
	case StepSearch:
		return "search"
	case StepFetch:
		return "fetch"
	case StepEmbed:
		return "embed"
	case StepCleanup:
		return "cleanup"
	case StepFinished:
		return "finished"
	case StepNotFound:
		return "not-found"
	case StepCollectionLoaded:
		return "collection-loaded"
	case StepSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Outcome of a successful resolution
type Outcome int

const (
	Downloaded Outcome = iota
	AlreadyExists
)

func (o Outcome) String() string {
	if o == AlreadyExists {
		return "already-exists"
	}
	return "downloaded"
}

// Event describes progress. Only the fields relevant to Step are set.
type Event struct {
	Step  Step
	Track string

	Query   string
	Link    string
	Path    string
	Bitrate int
	Bytes   int64
	Outcome Outcome
	Message string
	Err     error

	Collection string
	Index      int
	Total      int
}

// ProgressListener receives events. Implementations must be safe for concurrent use
// when tracks are resolved in parallel.
type ProgressListener interface {
	OnProgress(Event)
}

// ProgressFunc adapts a function to ProgressListener
type ProgressFunc func(Event)

func (f ProgressFunc) OnProgress(e Event) {
	f(e)
}

type nopListener struct{}

func (nopListener) OnProgress(Event) {}

// Discard ignores every event
var Discard ProgressListener = nopListener{}
