package shared

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
)

// UserAgent is sent by every hand-rolled HTTP client
const UserAgent = "spotify2mp3/1.0"

// HTTPError represents an HTTP error with status code
type HTTPError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s - %s", e.StatusCode, e.Status, e.Message)
}

// StatusCodeOf returns the status code of the first HTTPError in err's chain, or 0
func StatusCodeOf(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

// IsRetryableHTTPError checks if an HTTP error should be retried
func IsRetryableHTTPError(err error) bool {
	switch StatusCodeOf(err) {
	case http.StatusServiceUnavailable, // 503
		http.StatusTooManyRequests, // 429
		http.StatusBadGateway,      // 502
		http.StatusGatewayTimeout:  // 504
		return true
	}
	return false
}

// SleepContext waits for d or until ctx is done
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RetryWithBackoffForHTTP retries fn on retryable HTTP errors with exponential backoff and ±25% jitter.
// Non-retryable errors are returned immediately.
func RetryWithBackoffForHTTP(ctx context.Context, maxRetries int, initialDelay, maxDelay time.Duration, fn func() error, debug bool) error {
	var lastErr error

	if maxRetries <= 0 {
		return fn()
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if !IsRetryableHTTPError(lastErr) {
			return lastErr
		}

		if attempt == maxRetries-1 {
			break
		}

		delay := initialDelay * time.Duration(1<<uint(attempt))
		if delay > maxDelay {
			delay = maxDelay
		}

		finalDelay := delay
		if half := int64(delay / 2); half > 0 {
			finalDelay = delay + time.Duration(rand.Int63n(half)) - delay/4
		}

		if debug {
			log.Printf("HTTP request failed (attempt %d/%d): %v. Retrying in %v",
				attempt+1, maxRetries, lastErr, finalDelay)
		}

		if err := SleepContext(ctx, finalDelay); err != nil {
			return err
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", maxRetries, lastErr)
}

// stdin is swapped in tests
var stdin io.Reader = os.Stdin

// GetUserInput prompts the user for input with a default value
func GetUserInput(prompt, defaultValue string) string {
	if defaultValue != "" {
		prompt = fmt.Sprintf("%s [%s]", prompt, defaultValue)
	}
	ColorPrompt.Print(prompt + ": ")
	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		if input == "" && defaultValue != "" {
			return defaultValue
		}
		return input
	}
	return defaultValue
}

// FileExists checks if a regular file exists at the given path
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// CreateDirIfNotExists creates a directory if it doesn't exist
func CreateDirIfNotExists(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

// TruncateString truncates a string to the specified length, adding ellipsis if truncated.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen || maxLen < 4 {
		return s
	}
	return s[:maxLen-3] + "..."
}

func IsTTY() bool {
	return isatty.IsTerminal(os.Stdout.Fd())
}
