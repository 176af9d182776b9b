// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/naka-gawa/repo-health/internal/domain"
	"github.com/naka-gawa/repo-health/internal/gateway"
)

// AnalysisError wraps an unexpected fault raised while analyzing fetched data.
type AnalysisError struct {
	Repo  string
	Cause interface{}
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("unexpected error analyzing %s: %v", e.Repo, e.Cause)
}

// Unwrap exposes the cause when it is an error.
func (e *AnalysisError) Unwrap() error {
	if err, ok := e.Cause.(error); ok {
		return err
	}
	return nil
}

// Monitor is the use case for checking a single repository's health.
// It orchestrates the fetch and the analysis.
type Monitor struct {
	fetcher  gateway.Fetcher
	analyzer *HealthAnalyzer
	logger   logrus.FieldLogger
	now      func() time.Time
}

// NewMonitor creates a new Monitor instance using the wall clock.
func NewMonitor(fetcher gateway.Fetcher, analyzer *HealthAnalyzer, logger logrus.FieldLogger) *Monitor {
	return &Monitor{
		fetcher:  fetcher,
		analyzer: analyzer,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock replaces the clock used for freshness and the record timestamp.
func (m *Monitor) WithClock(now func() time.Time) *Monitor {
	m.now = now
	return m
}

// Check fetches and analyzes one repository. It returns either a complete record
// or an error, never both. Fetch errors are returned as the gateway reported them.
func (m *Monitor) Check(ctx context.Context, ref domain.RepoRef) (*domain.RepositoryHealth, error) {
	log := m.logger.WithField("repo", ref.String())
	log.Debug("Usecase: starting repository check")

	raw, err := m.fetcher.FetchRepository(ctx, ref.Owner, ref.Name)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	health, err := m.analyze(raw, ref)
	if err != nil {
		log.WithError(err).Error("Analysis failed")
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"health_score":   health.HealthScore.String(),
		"activity_level": string(health.ActivityLevel),
	}).Info("Repository analysis completed")
	return health, nil
}

// analyze runs the analyzer and turns a panic into an AnalysisError.
func (m *Monitor) analyze(raw domain.RawAttributes, ref domain.RepoRef) (health *domain.RepositoryHealth, err error) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.WithFields(logrus.Fields{
				"repo":  ref.String(),
				"panic": fmt.Sprint(r),
				"stack": string(debug.Stack()),
			}).Debug("Recovered from analysis panic")
			health = nil
			err = &AnalysisError{Repo: ref.String(), Cause: r}
		}
	}()
	return m.analyzer.Analyze(raw, m.now()), nil
}
