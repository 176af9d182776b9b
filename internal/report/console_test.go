package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/naka-gawa/repo-health/internal/domain"
)

func sampleHealth() *domain.RepositoryHealth {
	license := "MIT License"
	return &domain.RepositoryHealth{
		Name:          "node",
		FullName:      "nodejs/node",
		Description:   "Node.js JavaScript runtime",
		Language:      "JavaScript",
		Stars:         104321,
		Forks:         28765,
		OpenIssues:    15,
		Watchers:      2999,
		SizeKB:        1234567,
		CreatedAt:     "2014-11-26T19:57:11Z",
		UpdatedAt:     "2024-05-31T08:00:00Z",
		PushedAt:      "2024-05-31T07:00:00Z",
		License:       &license,
		HealthScore:   85.0,
		FreshnessDays: 1,
		ActivityLevel: domain.ActivityHigh,
		Timestamp:     "2024-06-01T12:00:00.000000+00:00",
	}
}

func TestConsole_Report(t *testing.T) {
	var buf bytes.Buffer
	NewConsole(&buf).Report(sampleHealth(), nil)
	out := buf.String()

	for _, want := range []string{
		"🔍 REPOSITORY HEALTH REPORT",
		"Repository: nodejs/node",
		"Description: Node.js JavaScript runtime\n",
		"Primary Language: JavaScript",
		"License: MIT License",
		"⭐ Stars: 104,321",
		"🔄 Forks: 28,765",
		"👀 Watchers: 2,999",
		"🐛 Open Issues: 15",
		"💾 Size: 1,234,567 KB",
		"Created: 2014-11-26\n",
		"Last Updated: 2024-05-31\n",
		"Last Push: 2024-05-31 (1 days ago)",
		"Overall Health Score: 85.0/100 🟢",
		"Activity Level: High 🔥",
		"• " + RecommendHealthy,
	} {
		assert.Contains(t, out, want)
	}
	assert.True(t, strings.HasPrefix(out, "\n"+strings.Repeat("=", 60)+"\n"))
	assert.True(t, strings.HasSuffix(out, "\n"+strings.Repeat("=", 60)+"\n"))
	assert.NotContains(t, out, "SCORE BREAKDOWN")
}

func TestConsole_Report_Breakdown(t *testing.T) {
	var buf bytes.Buffer
	NewConsole(&buf).Report(sampleHealth(), &domain.HealthBreakdown{Popularity: 12.5, Freshness: 30, IssueHealth: 15, BaseHealth: 20})

	out := buf.String()
	assert.Contains(t, out, "SCORE BREAKDOWN")
	assert.Contains(t, out, "Popularity: 12.5/30")
	assert.Contains(t, out, "Issue Health: 15.0/20")
}

func TestConsole_Report_Defaults(t *testing.T) {
	h := sampleHealth()
	h.Description = strings.Repeat("é", 100)
	h.License = nil
	h.CreatedAt = ""
	h.PushedAt = ""
	h.FreshnessDays = domain.FreshnessUnknown

	var buf bytes.Buffer
	NewConsole(&buf).Report(h, nil)
	out := buf.String()

	assert.Contains(t, out, "Description: "+strings.Repeat("é", 80)+"...\n")
	assert.Contains(t, out, "License: Not specified")
	assert.Contains(t, out, "Created: \n")
	assert.Contains(t, out, "Last Push:  (9999 days ago)")
}

func TestConsole_Messages(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.Start(domain.RepoRef{Owner: "nodejs", Name: "node"})
	c.Saved("/tmp/report.json")
	c.SaveFailed(errors.New("disk full"))

	assert.Equal(t,
		"🚀 Analyzing repository: nodejs/node\n"+
			"\n💾 Report saved to: /tmp/report.json\n"+
			"⚠️  Failed to save report: disk full\n",
		buf.String())
}

func TestRecommendations(t *testing.T) {
	testCases := []struct {
		name     string
		mutate   func(h *domain.RepositoryHealth)
		expected []string
	}{
		{
			name:     "healthy repository",
			mutate:   func(h *domain.RepositoryHealth) {},
			expected: []string{RecommendHealthy},
		},
		{
			name:     "inactive",
			mutate:   func(h *domain.RepositoryHealth) { h.FreshnessDays = 120 },
			expected: []string{RecommendInactive},
		},
		{
			name:     "ninety days is not inactive",
			mutate:   func(h *domain.RepositoryHealth) { h.FreshnessDays = 90 },
			expected: []string{RecommendHealthy},
		},
		{
			name:     "issue backlog",
			mutate:   func(h *domain.RepositoryHealth) { h.OpenIssues = 50 },
			expected: []string{RecommendBacklog},
		},
		{
			name:     "missing license",
			mutate:   func(h *domain.RepositoryHealth) { h.License = nil },
			expected: []string{RecommendLicense},
		},
		{
			name:     "below average",
			mutate:   func(h *domain.RepositoryHealth) { h.HealthScore = 49.9 },
			expected: []string{RecommendBelowAverage},
		},
		{
			name: "everything at once keeps order",
			mutate: func(h *domain.RepositoryHealth) {
				h.FreshnessDays = domain.FreshnessUnknown
				h.OpenIssues = 100
				h.License = nil
				h.HealthScore = 30
			},
			expected: []string{RecommendInactive, RecommendBacklog, RecommendLicense, RecommendBelowAverage},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := sampleHealth()
			tc.mutate(h)
			assert.Equal(t, tc.expected, Recommendations(h))
		})
	}
}

func TestHealthIndicator(t *testing.T) {
	assert.Equal(t, "🟢", HealthIndicator(80.0))
	assert.Equal(t, "🟡", HealthIndicator(79.9))
	assert.Equal(t, "🟡", HealthIndicator(60.0))
	assert.Equal(t, "🔴", HealthIndicator(59.9))
}

func TestActivityIndicator(t *testing.T) {
	assert.Equal(t, "🔥", ActivityIndicator(domain.ActivityHigh))
	assert.Equal(t, "⚡", ActivityIndicator(domain.ActivityMedium))
	assert.Equal(t, "💤", ActivityIndicator(domain.ActivityLow))
	assert.Equal(t, "❓", ActivityIndicator("Unknown"))
}
