package embed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/ppiankov/contrapair/internal/model"
)

// DefaultMaxAttempts is the number of tries per batch, including the first
const DefaultMaxAttempts = 3

// retryBackoff is the wait before retry number attempt (injectable for tests)
var retryBackoff = func(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Second
}

// StatusError is a non-200 response from an embedding endpoint
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// embedWithRetry retries transient failures with exponential backoff
func embedWithRetry(ctx context.Context, p Provider, texts []string, attempts int) ([]model.Embedding, error) {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		vecs, err := p.Embed(ctx, texts)
		if err == nil {
			return vecs, nil
		}
		lastErr = err
		if !isRetryable(err) || attempt == attempts-1 {
			break
		}

		select {
		case <-time.After(retryBackoff(attempt)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

// isRetryable reports whether err indicates a transient failure:
// 5xx, 429 or a network timeout/refusal/reset
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	if code := statusCode(err); code != 0 {
		return code == http.StatusTooManyRequests || (code >= 500 && code < 600)
	}

	s := strings.ToLower(err.Error())
	return strings.Contains(s, "timeout") ||
		strings.Contains(s, "connection refused") ||
		strings.Contains(s, "connection reset")
}

func statusCode(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
