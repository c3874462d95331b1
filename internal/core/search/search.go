package search

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// VideoBaseURL prefixes a result's url suffix to form a playable link
const VideoBaseURL = "https://www.youtube.com"

// Result is one raw hit from the video search backend
type Result struct {
	URLSuffix string `json:"url_suffix"`
	Duration  string `json:"duration"`
	Views     string `json:"views"`
	Title     string `json:"title,omitempty"`
}

// Backend runs a text search against the video platform
type Backend interface {
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}

// Constraints bound which candidate may be chosen
type Constraints struct {
	MaxLengthSeconds int
	MinViewCount     int64
	ResultCount      int
}

// Candidate is a parsed search result
type Candidate struct {
	URLSuffix       string
	Title           string
	RawDuration     string
	RawViews        string
	DurationSeconds int
	Views           int64
}

// Link is the full watch URL
func (c Candidate) Link() string {
	return VideoBaseURL + c.URLSuffix
}

var (
	ErrNoResultsFound  = errors.New("no results found on the video platform")
	ErrLengthExceeded  = errors.New("video length exceeds max length")
	ErrViewCountTooLow = errors.New("video view count below minimum")
)

// LengthExceededError rejects a candidate at or above the length bound
type LengthExceededError struct {
	Link            string
	DurationSeconds int
	MaxSeconds      int
}

func (e *LengthExceededError) Error() string {
	return fmt.Sprintf("length %ds exceeds max length of %ds [%s]", e.DurationSeconds, e.MaxSeconds, e.Link)
}

func (e *LengthExceededError) Is(target error) bool { return target == ErrLengthExceeded }

// ViewCountTooLowError rejects a candidate at or below the view bound
type ViewCountTooLowError struct {
	Link     string
	Views    int64
	MinViews int64
}

func (e *ViewCountTooLowError) Error() string {
	return fmt.Sprintf("view count %d does not exceed min view count of %d [%s]", e.Views, e.MinViews, e.Link)
}

func (e *ViewCountTooLowError) Is(target error) bool { return target == ErrViewCountTooLow }

// ParseDuration converts "M:S" or "H:M:S" to seconds
func ParseDuration(token string) (int, error) {
	parts := strings.Split(strings.TrimSpace(token), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid duration %q", token)
	}
	total := 0
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid duration %q", token)
		}
		total = total*60 + n
	}
	return total, nil
}

var nonDigits = regexp.MustCompile(`[^0-9]`)

// ParseViews strips every non-digit. Tokens without digits, or too large to represent, count as zero.
func ParseViews(token string) int64 {
	digits := nonDigits.ReplaceAllString(token, "")
	if digits == "" {
		return 0
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// Selector picks one video for a query
type Selector struct {
	backend Backend
}

// NewSelector creates a selector over the given backend
func NewSelector(backend Backend) *Selector {
	return &Selector{backend: backend}
}

// Rank parses results and orders them by view count, highest first.
// The sort is stable so equal counts keep backend order. Results whose duration cannot be
// parsed (live streams, premieres) are dropped.
func Rank(results []Result) []Candidate {
	candidates := make([]Candidate, 0, len(results))
	for _, r := range results {
		seconds, err := ParseDuration(r.Duration)
		if err != nil {
			continue
		}
		candidates = append(candidates, Candidate{
			URLSuffix:       r.URLSuffix,
			Title:           r.Title,
			RawDuration:     r.Duration,
			RawViews:        r.Views,
			DurationSeconds: seconds,
			Views:           ParseViews(r.Views),
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Views > candidates[j].Views
	})
	return candidates
}

// Select searches, ranks and validates the top candidate against the constraints
func (s *Selector) Select(ctx context.Context, query string, c Constraints) (*Candidate, error) {
	count := c.ResultCount
	if count < 1 {
		count = 1
	}
	results, err := s.backend.Search(ctx, query, count)
	if err != nil {
		return nil, fmt.Errorf("video search failed: %w", err)
	}
	if len(results) > count {
		results = results[:count]
	}

	ranked := Rank(results)
	if len(ranked) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoResultsFound, query)
	}

	chosen := ranked[0]
	if chosen.DurationSeconds >= c.MaxLengthSeconds {
		return nil, &LengthExceededError{Link: chosen.Link(), DurationSeconds: chosen.DurationSeconds, MaxSeconds: c.MaxLengthSeconds}
	}
	if chosen.Views <= c.MinViewCount {
		return nil, &ViewCountTooLowError{Link: chosen.Link(), Views: chosen.Views, MinViews: c.MinViewCount}
	}
	return &chosen, nil
}
