// Package gateway provides a gateway to the GitHub REST API,
// abstracting away the underlying client, its retry policy and its error types.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v62/github"
	"github.com/sirupsen/logrus"

	"github.com/naka-gawa/repo-health/internal/domain"
	"github.com/naka-gawa/repo-health/internal/retry"
)

// Defaults applied when Options leaves a field zero.
const (
	DefaultTimeout    = 10 * time.Second
	DefaultBackoffMax = 120 * time.Second
	DefaultUserAgent  = "SRE-Health-Monitor/1.0"
)

// Fetcher defines the behavior of a gateway for fetching repository metadata.
type Fetcher interface {
	FetchRepository(ctx context.Context, owner, repo string) (domain.RawAttributes, error)
}

// Options configures a GitHubGateway.
type Options struct {
	// BaseURL overrides the API root, e.g. for GitHub Enterprise. Empty means api.github.com.
	BaseURL   string
	UserAgent string

	// Timeout bounds each attempt, not the whole fetch.
	Timeout time.Duration

	MaxRetries    int
	BackoffFactor time.Duration
	BackoffMax    time.Duration

	// Sleep replaces the backoff timer. Tests use it to skip real waits.
	Sleep retry.SleepFunc
}

// GitHubGateway is the concrete implementation of the Fetcher interface.
type GitHubGateway struct {
	restClient *github.Client
	opts       Options
	logger     logrus.FieldLogger
}

// NewGitHubGateway is a constructor that creates a new instance of GitHubGateway.
// Secondary rate limits are detected and logged by the transport but never waited
// on, so a 403 stays terminal.
func NewGitHubGateway(opts Options, logger logrus.FieldLogger) (*GitHubGateway, error) {
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil,
		github_ratelimit.WithSingleSleepLimit(0, func(cbContext *github_ratelimit.CallbackContext) {
			entry := logger.WithField("component", "ratelimit")
			if cbContext.SleepUntil != nil {
				entry = entry.WithField("resets_at", cbContext.SleepUntil.UTC().Format(time.RFC3339))
			}
			if cbContext.Request != nil {
				entry = entry.WithField("path", cbContext.Request.URL.Path)
			}
			entry.Warn("Secondary rate limit hit; not waiting for it")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}

	restClient := github.NewClient(&http.Client{Transport: rateLimitWaiter})
	if err := configureClient(restClient, &opts); err != nil {
		return nil, err
	}

	return &GitHubGateway{
		restClient: restClient,
		opts:       opts,
		logger:     logger,
	}, nil
}

// configureClient applies identity headers, base URL and option defaults.
func configureClient(client *github.Client, opts *Options) error {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.BackoffMax <= 0 {
		opts.BackoffMax = DefaultBackoffMax
	}
	client.UserAgent = opts.UserAgent

	if opts.BaseURL != "" {
		raw := opts.BaseURL
		if !strings.HasSuffix(raw, "/") {
			raw += "/"
		}
		baseURL, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid API base URL %q: %w", opts.BaseURL, err)
		}
		client.BaseURL = baseURL
	}
	return nil
}

// FetchRepository issues GET /repos/{owner}/{repo}, retrying transient failures
// (timeouts, connection errors, 429 and 5xx). 404 and 403 are returned at once.
func (g *GitHubGateway) FetchRepository(ctx context.Context, owner, repo string) (domain.RawAttributes, error) {
	if owner == "" || repo == "" {
		return nil, &domain.InputError{Value: owner + "/" + repo, Reason: "owner and repo must both be non-empty"}
	}
	fullName := owner + "/" + repo
	log := g.logger.WithField("repo", fullName)
	log.Info("Fetching repository data")

	policy := retry.NewPolicy(
		retry.WithMaxRetries(g.opts.MaxRetries),
		retry.WithBaseDelay(g.opts.BackoffFactor),
		retry.WithMaxDelay(g.opts.BackoffMax),
		retry.WithRetryIf(isRetryable),
		retry.WithDelayHint(retryAfterHint),
		retry.WithSleep(g.opts.Sleep),
		retry.WithOnRetry(func(attempt int, delay time.Duration, err error) {
			log.WithError(err).WithFields(logrus.Fields{
				"attempt": attempt,
				"backoff": delay.String(),
			}).Warn("Transient failure, retrying")
		}),
	)

	var raw domain.RawAttributes
	started := time.Now()
	err := policy.Do(ctx, func(ctx context.Context, attempt int) error {
		var attemptErr error
		raw, attemptErr = g.fetchOnce(ctx, owner, repo, attempt, log)
		return attemptErr
	})
	if err != nil {
		return nil, g.failure(log, err, time.Since(started))
	}
	return raw, nil
}

// fetchOnce performs a single attempt bounded by the per-attempt timeout.
func (g *GitHubGateway) fetchOnce(ctx context.Context, owner, repo string, attempt int, log logrus.FieldLogger) (domain.RawAttributes, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()
	// The retry policy alone decides whether an attempt goes out; go-github would
	// otherwise answer locally once it has seen a zero remaining quota.
	attemptCtx = context.WithValue(attemptCtx, github.BypassRateLimitCheck, true)

	req, err := g.restClient.NewRequest(http.MethodGet, fmt.Sprintf("repos/%v/%v", owner, repo), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	var raw domain.RawAttributes
	started := time.Now()
	resp, err := g.restClient.Do(attemptCtx, req, &raw)
	latency := time.Since(started)
	if err != nil {
		log.WithFields(logrus.Fields{"attempt": attempt, "latency": latency.String()}).WithError(err).Debug("Attempt failed")
		return nil, classify(ctx, attemptCtx, owner+"/"+repo, resp, err)
	}

	log.WithFields(logrus.Fields{
		"attempt": attempt,
		"status":  resp.StatusCode,
		"latency": latency.Round(time.Millisecond).String(),
	}).Infof("API call completed in %.2fs", latency.Seconds())
	logRateLimit(log, resp)

	if raw == nil {
		raw = domain.RawAttributes{}
	}
	return raw, nil
}

// logRateLimit records the rate-limit snapshot when the headers are present.
func logRateLimit(log logrus.FieldLogger, resp *github.Response) {
	remaining := resp.Header.Get("X-RateLimit-Remaining")
	if remaining == "" {
		return
	}
	reset := resp.Header.Get("X-RateLimit-Reset")
	if reset == "" {
		reset = "unknown"
	}
	fields := logrus.Fields{"remaining": remaining, "reset": reset}
	if !resp.Rate.Reset.IsZero() {
		fields["resets_at"] = resp.Rate.Reset.UTC().Format(time.RFC3339)
	}
	log.WithFields(fields).Info("Rate limit status")
}

// failure logs the final error with a precise diagnosis and returns the typed error.
func (g *GitHubGateway) failure(log logrus.FieldLogger, err error, elapsed time.Duration) error {
	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		log = log.WithField("attempts", exhausted.Attempts)
		err = exhausted.Err
	}
	log = log.WithField("elapsed", elapsed.Round(time.Millisecond).String())

	if errors.Is(err, context.Canceled) {
		log.Info("Fetch cancelled")
		return err
	}
	var fe *FetchError
	if !errors.As(err, &fe) {
		log.WithError(err).Error("Request failed")
		return err
	}

	entry := log.WithField("kind", string(fe.Kind))
	switch fe.Kind {
	case KindTimeout:
		entry.Errorf("Timeout after %s fetching %s", g.opts.Timeout, fe.Repo)
	case KindNotFound:
		entry.Errorf("Repository %s not found", fe.Repo)
	case KindForbidden:
		entry.Error("API rate limit exceeded or access forbidden")
	case KindHTTP:
		entry.WithField("status", fe.Status).Errorf("HTTP error %d: %s", fe.Status, fe.Body)
	default:
		entry.WithError(fe.Err).Error("Request failed")
	}
	return fe
}
