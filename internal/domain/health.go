// Package domain contains the core data structures and domain logic for the application.
package domain

import (
	"strconv"

	"gopkg.in/yaml.v3"
)

// FreshnessUnknown is the freshness reported when a repository has no usable push date.
// The scoring rules treat it as maximally stale.
const FreshnessUnknown = 9999

// ActivityLevel is the coarse activity classification of a repository.
type ActivityLevel string

const (
	ActivityHigh   ActivityLevel = "High"
	ActivityMedium ActivityLevel = "Medium"
	ActivityLow    ActivityLevel = "Low"
)

// Score is a health score in the range [0, 100], already rounded to one decimal.
// It always serializes with exactly one decimal place.
type Score float64

// String renders the score with one decimal place.
func (s Score) String() string {
	return strconv.FormatFloat(float64(s), 'f', 1, 64)
}

// MarshalJSON keeps the single decimal in the persisted snapshot (85.0, not 85).
func (s Score) MarshalJSON() ([]byte, error) {
	return []byte(s.String()), nil
}

// MarshalYAML emits the score as a float node with one decimal.
func (s Score) MarshalYAML() (interface{}, error) {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: s.String()}, nil
}

// RepositoryHealth is the outcome of analyzing one repository.
// It is built once per invocation and never mutated afterwards.
type RepositoryHealth struct {
	Name          string        `json:"name" yaml:"name"`
	FullName      string        `json:"full_name" yaml:"full_name"`
	Description   string        `json:"description" yaml:"description"`
	Language      string        `json:"language" yaml:"language"`
	Stars         int           `json:"stars" yaml:"stars"`
	Forks         int           `json:"forks" yaml:"forks"`
	OpenIssues    int           `json:"open_issues" yaml:"open_issues"`
	Watchers      int           `json:"watchers" yaml:"watchers"`
	SizeKB        int           `json:"size_kb" yaml:"size_kb"`
	CreatedAt     string        `json:"created_at" yaml:"created_at"`
	UpdatedAt     string        `json:"updated_at" yaml:"updated_at"`
	PushedAt      string        `json:"pushed_at" yaml:"pushed_at"`
	License       *string       `json:"license" yaml:"license"`
	HealthScore   Score         `json:"health_score" yaml:"health_score"`
	FreshnessDays int           `json:"freshness_days" yaml:"freshness_days"`
	ActivityLevel ActivityLevel `json:"activity_level" yaml:"activity_level"`
	Timestamp     string        `json:"timestamp" yaml:"timestamp"`
}

// HasLicense reports whether a license name was found.
func (h *RepositoryHealth) HasLicense() bool {
	return h.License != nil && *h.License != ""
}

// LicenseName returns the license name or "Not specified".
func (h *RepositoryHealth) LicenseName() string {
	if !h.HasLicense() {
		return "Not specified"
	}
	return *h.License
}

// HealthBreakdown holds the four additive components of a health score
// before they are summed and rounded.
type HealthBreakdown struct {
	Popularity  float64 `json:"popularity"`
	Freshness   float64 `json:"freshness"`
	IssueHealth float64 `json:"issue_health"`
	BaseHealth  float64 `json:"base_health"`
}
