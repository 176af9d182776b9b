package usecase

import (
	"math"
	"strconv"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/sirupsen/logrus"

	"github.com/naka-gawa/repo-health/internal/domain"
)

// Activity thresholds on the combined popularity/freshness score (0-10).
const (
	activityHighThreshold   = 7.0
	activityMediumThreshold = 4.0

	activityPopularityCap = 10.0
	activityFreshnessMax  = 10.0
	activityDaysPerPoint  = 30.0
)

// Health score component caps and steps. The four components sum to at most 100.
const (
	popularityCap = 30.0

	freshnessWeek    = 7
	freshnessMonth   = 30
	freshnessQuarter = 90
	freshnessYear    = 365

	issuesNone  = 0
	issuesFew   = 10
	issuesSome  = 50
	issuesScale = 10.0

	baseHealth = 20.0
)

const secondsPerDay = 24 * 60 * 60

// TimestampLayout renders the analysis time the way the snapshot stores it.
const TimestampLayout = "2006-01-02T15:04:05.000000-07:00"

// pushedAtLayouts are the ISO-8601 forms accepted for pushed_at. An offset is required.
var pushedAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999Z0700",
}

// HealthAnalyzer turns raw repository attributes into a RepositoryHealth.
// It performs no I/O; the logger only records the outcome.
type HealthAnalyzer struct {
	logger logrus.FieldLogger
}

// NewHealthAnalyzer creates a new HealthAnalyzer instance.
func NewHealthAnalyzer(logger logrus.FieldLogger) *HealthAnalyzer {
	return &HealthAnalyzer{logger: logger}
}

// Analyze decodes raw and derives freshness, activity level and health score
// relative to now. It is total: malformed fields degrade to defaults.
func (a *HealthAnalyzer) Analyze(raw domain.RawAttributes, now time.Time) *domain.RepositoryHealth {
	attrs := domain.Decode(raw)

	freshness := Freshness(attrs.PushedAt, now)
	health := &domain.RepositoryHealth{
		Name:          attrs.Name,
		FullName:      attrs.FullName,
		Description:   attrs.Description,
		Language:      attrs.Language,
		Stars:         attrs.Stars,
		Forks:         attrs.Forks,
		OpenIssues:    attrs.OpenIssues,
		Watchers:      attrs.Watchers,
		SizeKB:        attrs.SizeKB,
		CreatedAt:     attrs.CreatedAt,
		UpdatedAt:     attrs.UpdatedAt,
		PushedAt:      attrs.PushedAt,
		License:       attrs.License,
		HealthScore:   HealthScore(attrs.Stars, attrs.Forks, attrs.OpenIssues, freshness),
		FreshnessDays: freshness,
		ActivityLevel: ClassifyActivity(attrs.Stars, attrs.Forks, freshness),
		Timestamp:     now.UTC().Format(TimestampLayout),
	}

	a.logger.WithFields(logrus.Fields{
		"repo":           health.FullName,
		"health_score":   health.HealthScore.String(),
		"activity_level": string(health.ActivityLevel),
		"freshness_days": health.FreshnessDays,
	}).Debug("Analysis complete")
	return health
}

// Freshness returns the whole days between pushedAt and now, truncated toward
// zero. It returns domain.FreshnessUnknown when pushedAt is empty, unparsable
// or lacks a UTC offset.
func Freshness(pushedAt string, now time.Time) int {
	if pushedAt == "" {
		return domain.FreshnessUnknown
	}
	for _, layout := range pushedAtLayouts {
		t, err := time.Parse(layout, pushedAt)
		if err == nil {
			return wholeDaysBetween(t, now)
		}
	}
	return domain.FreshnessUnknown
}

// wholeDaysBetween counts days from t to now, truncated toward zero. It works on
// Unix seconds because time.Duration saturates at about 292 years.
func wholeDaysBetween(t, now time.Time) int {
	secs := now.Unix() - t.Unix()
	nanos := now.Nanosecond() - t.Nanosecond()
	switch {
	case secs > 0 && nanos < 0:
		secs--
	case secs < 0 && nanos > 0:
		secs++
	}
	return int(secs / secondsPerDay)
}

// ClassifyActivity combines a popularity score and a freshness score, each 0-10,
// and maps their mean onto High, Medium or Low.
func ClassifyActivity(stars, forks, freshnessDays int) domain.ActivityLevel {
	popularity := math.Min((float64(stars)+2*float64(forks))/100, activityPopularityCap)
	freshness := math.Max(activityFreshnessMax-float64(freshnessDays)/activityDaysPerPoint, 0)
	combined := (popularity + freshness) / 2

	switch {
	case combined >= activityHighThreshold:
		return domain.ActivityHigh
	case combined >= activityMediumThreshold:
		return domain.ActivityMedium
	default:
		return domain.ActivityLow
	}
}

// Breakdown computes the four additive components of the health score.
func Breakdown(stars, forks, openIssues, freshnessDays int) domain.HealthBreakdown {
	return domain.HealthBreakdown{
		Popularity:  math.Min((float64(stars)+float64(forks))/100, popularityCap),
		Freshness:   freshnessPoints(freshnessDays),
		IssueHealth: issuePoints(openIssues),
		BaseHealth:  baseHealth,
	}
}

// BreakdownOf recomputes the components behind an existing record.
func BreakdownOf(h *domain.RepositoryHealth) domain.HealthBreakdown {
	return Breakdown(h.Stars, h.Forks, h.OpenIssues, h.FreshnessDays)
}

// HealthScore sums the breakdown and rounds it to one decimal place.
func HealthScore(stars, forks, openIssues, freshnessDays int) domain.Score {
	b := Breakdown(stars, forks, openIssues, freshnessDays)
	// Sum only fails on empty input.
	total, _ := stats.Sum(stats.Float64Data{b.Popularity, b.Freshness, b.IssueHealth, b.BaseHealth})
	return domain.Score(roundOneDecimal(total))
}

func freshnessPoints(days int) float64 {
	switch {
	case days <= freshnessWeek:
		return 30
	case days <= freshnessMonth:
		return 25
	case days <= freshnessQuarter:
		return 15
	case days <= freshnessYear:
		return 5
	default:
		return 0
	}
}

func issuePoints(open int) float64 {
	switch {
	case open == issuesNone:
		return 20
	case open <= issuesFew:
		return 15
	case open <= issuesSome:
		return 10
	default:
		return math.Max(20-float64(open)/issuesScale, 0)
	}
}

// roundOneDecimal rounds half to even on the exact binary value, so 70.05
// (stored just below) becomes 70.0.
func roundOneDecimal(x float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(x, 'f', 1, 64), 64)
	if err != nil {
		return x
	}
	return r
}
