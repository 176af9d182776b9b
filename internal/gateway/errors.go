package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/go-github/v62/github"
)

// Kind classifies a fetch failure.
type Kind string

const (
	KindTimeout   Kind = "timeout"
	KindNotFound  Kind = "not_found"
	KindForbidden Kind = "forbidden"
	KindHTTP      Kind = "http_error"
	KindNetwork   Kind = "network_error"
)

// retryableStatus lists the response codes worth another attempt.
var retryableStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// FetchError is the typed failure of a repository fetch.
type FetchError struct {
	Kind   Kind
	Repo   string
	Status int
	Body   string
	Err    error

	// RetryAfter is set when the server asked for a specific wait.
	RetryAfter time.Duration
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case KindTimeout:
		return fmt.Sprintf("timed out fetching %s: %v", e.Repo, e.Err)
	case KindNotFound:
		return fmt.Sprintf("repository %s not found", e.Repo)
	case KindForbidden:
		return fmt.Sprintf("API rate limit exceeded or access forbidden for %s", e.Repo)
	case KindHTTP:
		if e.Body != "" {
			return fmt.Sprintf("HTTP error %d fetching %s: %s", e.Status, e.Repo, e.Body)
		}
		return fmt.Sprintf("HTTP error %d fetching %s: %v", e.Status, e.Repo, e.Err)
	default:
		return fmt.Sprintf("request for %s failed: %v", e.Repo, e.Err)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is transient.
func (e *FetchError) Retryable() bool {
	switch e.Kind {
	case KindTimeout, KindNetwork:
		return true
	case KindHTTP:
		return retryableStatus[e.Status]
	default:
		return false
	}
}

// isRetryable is the predicate handed to the retry policy.
func isRetryable(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Retryable()
}

// retryAfterHint exposes a server-requested wait to the retry policy.
func retryAfterHint(err error) (time.Duration, bool) {
	var fe *FetchError
	if errors.As(err, &fe) && fe.RetryAfter > 0 {
		return fe.RetryAfter, true
	}
	return 0, false
}

// classify turns the outcome of one attempt into a FetchError. parent is the
// invocation context; its cancellation is passed through untouched so callers
// can tell an operator interrupt from a timeout.
func classify(parent, attempt context.Context, repo string, resp *github.Response, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if hr := errorResponse(err); hr != nil {
		fe := &FetchError{Repo: repo, Status: hr.StatusCode, Err: err}
		switch hr.StatusCode {
		case http.StatusNotFound:
			fe.Kind = KindNotFound
		case http.StatusForbidden:
			fe.Kind = KindForbidden
		default:
			fe.Kind = KindHTTP
			fe.Body = readBody(hr)
			if hr.StatusCode == http.StatusTooManyRequests || hr.StatusCode == http.StatusServiceUnavailable {
				fe.RetryAfter = parseRetryAfter(hr.Header.Get("Retry-After"))
			}
		}
		return fe
	}

	if errors.Is(attempt.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return &FetchError{Kind: KindTimeout, Repo: repo, Err: err}
	}

	// A 2xx with an error means the payload could not be used (bad JSON, 202 Accepted).
	if resp != nil && resp.Response != nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return &FetchError{Kind: KindHTTP, Repo: repo, Status: resp.StatusCode, Err: fmt.Errorf("unusable response body: %w", err)}
	}

	return &FetchError{Kind: KindNetwork, Repo: repo, Err: err}
}

// errorResponse extracts the HTTP response from go-github's error types.
func errorResponse(err error) *http.Response {
	var (
		rateErr  *github.RateLimitError
		abuseErr *github.AbuseRateLimitError
		apiErr   *github.ErrorResponse
	)
	switch {
	case errors.As(err, &rateErr):
		return rateErr.Response
	case errors.As(err, &abuseErr):
		return abuseErr.Response
	case errors.As(err, &apiErr):
		return apiErr.Response
	}
	return nil
}

// readBody returns the error payload. go-github re-populates the body after parsing it.
func readBody(resp *http.Response) string {
	if resp.Body == nil {
		return ""
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return ""
	}
	return string(data)
}

func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
