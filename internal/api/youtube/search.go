package youtube

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"spotify2mp3/internal/core/search"
	"spotify2mp3/internal/shared"
)

const (
	defaultRateLimit       = 500 * time.Millisecond // 2 req/sec
	defaultBurstLimit      = 4
	conservativeRateLimit  = 2 * time.Second
	conservativeBurstLimit = 1

	maxRetries         = 5
	baseRetryDelay     = 1 * time.Second
	maxRetryDelay      = 30 * time.Second
	rateLimitThreshold = 5

	maxPageBytes = 8 << 20
)

// DefaultSearchEndpoint is the results page queried by SearchClient
const DefaultSearchEndpoint = "https://www.youtube.com/results"

var fibonacciSequence = []int{1, 2, 3, 5, 8, 13, 21, 34}

// SearchClient scrapes the public results page. It implements search.Backend.
type SearchClient struct {
	endpoint      string
	client        *http.Client
	rateLimiter   *rate.Limiter
	rateLimitHits int
	debug         bool
	mu            sync.Mutex
}

// NewSearchClient creates a search client. An empty endpoint means DefaultSearchEndpoint.
func NewSearchClient(endpoint string, client *http.Client, debug bool) *SearchClient {
	if endpoint == "" {
		endpoint = DefaultSearchEndpoint
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &SearchClient{
		endpoint:    endpoint,
		client:      client,
		rateLimiter: rate.NewLimiter(rate.Every(defaultRateLimit), defaultBurstLimit),
		debug:       debug,
	}
}

// Search returns at most maxResults video hits in page order
func (c *SearchClient) Search(ctx context.Context, query string, maxResults int) ([]search.Result, error) {
	if err := c.limiter().Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("error parsing URL: %w", err)
	}
	q := u.Query()
	q.Set("search_query", query)
	u.RawQuery = q.Encode()

	shared.DebugPrint(c.debug, "Searching videos: %s", u.String())

	body, err := c.requestWithRetry(ctx, u.String())
	if err != nil {
		return nil, err
	}

	results, err := ParseResults(body)
	if err != nil {
		return nil, err
	}
	if maxResults > 0 && len(results) > maxResults {
		results = results[:maxResults]
	}
	shared.DebugPrint(c.debug, "Search for %q returned %d videos", query, len(results))
	return results, nil
}

func (c *SearchClient) limiter() *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rateLimiter
}

// requestWithRetry retries network errors and 429s with Fibonacci backoff
func (c *SearchClient) requestWithRetry(ctx context.Context, target string) ([]byte, error) {
	var lastErr error
	consecutiveRateLimits := 0

	for attempt := 0; attempt < maxRetries; attempt++ {
		body, status, err := c.executeRequest(ctx, target)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			if attempt < maxRetries-1 {
				if err := waitWithContext(ctx, fibonacciDelay(attempt, baseRetryDelay)); err != nil {
					return nil, err
				}
			}
			continue
		}

		switch {
		case status == http.StatusOK:
			c.resetRateLimitCounters()
			return body, nil
		case status == http.StatusTooManyRequests:
			consecutiveRateLimits++
			lastErr = &shared.HTTPError{StatusCode: status, Status: http.StatusText(status), Message: "rate limited by video search"}
			if c.trackRateLimitHit() {
				c.adjustRateLimitForOverload()
			}
			if attempt < maxRetries-1 {
				delay := calculateRateLimitDelay(attempt, consecutiveRateLimits)
				shared.ColorWarning.Printf("⚠️ Rate limit hit (429), retrying in %v (attempt %d/%d)\n", delay, attempt+1, maxRetries)
				if err := waitWithContext(ctx, delay); err != nil {
					return nil, err
				}
			}
		default:
			return nil, &shared.HTTPError{StatusCode: status, Status: http.StatusText(status), Message: "video search request failed"}
		}
	}

	return nil, fmt.Errorf("video search failed after %d attempts: %w", maxRetries, lastErr)
}

func (c *SearchClient) executeRequest(ctx context.Context, target string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("User-Agent", shared.UserAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("error executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxPageBytes))
		return nil, resp.StatusCode, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, resp.StatusCode, nil
}

func (c *SearchClient) resetRateLimitCounters() {
	c.mu.Lock()
	c.rateLimitHits = 0
	c.mu.Unlock()
}

func (c *SearchClient) trackRateLimitHit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rateLimitHits++
	return c.rateLimitHits == rateLimitThreshold
}

// adjustRateLimitForOverload slows every later search down for the rest of the run
func (c *SearchClient) adjustRateLimitForOverload() {
	c.mu.Lock()
	c.rateLimiter = rate.NewLimiter(rate.Every(conservativeRateLimit), conservativeBurstLimit)
	c.mu.Unlock()
	shared.ColorWarning.Println("⚠️ Adjusted video search rate limit to be more conservative")
}

func fibonacciDelay(attempt int, baseDelay time.Duration) time.Duration {
	if attempt < 0 {
		return baseDelay
	}
	if attempt >= len(fibonacciSequence) {
		attempt = len(fibonacciSequence) - 1
	}
	delay := baseDelay * time.Duration(fibonacciSequence[attempt])
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	return delay
}

func calculateRateLimitDelay(attempt, consecutiveRateLimits int) time.Duration {
	delay := fibonacciDelay(attempt, baseRetryDelay)
	if consecutiveRateLimits > 2 {
		delay *= time.Duration(consecutiveRateLimits)
		if delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}
	return addJitter(delay)
}

// addJitter adds up to 25% random delay
func addJitter(delay time.Duration) time.Duration {
	if delay < 4 {
		return delay
	}
	return delay + time.Duration(rand.Int63n(int64(delay/4)))
}

func waitWithContext(ctx context.Context, delay time.Duration) error {
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// watchPath keeps only the path and v parameter of a watch link
func watchPath(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || !strings.HasPrefix(u.Path, "/watch") {
		return ""
	}
	id := u.Query().Get("v")
	if id == "" {
		return ""
	}
	return "/watch?v=" + id
}
