// Package report renders a RepositoryHealth for operators and persists it as a snapshot.
package report

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/naka-gawa/repo-health/internal/domain"
)

const (
	ruleWidth           = 60
	descriptionMaxRunes = 80
	dateOnlyLength      = 10
	healthyThreshold    = 80.0
	fairThreshold       = 60.0
	inactiveAfterDays   = 90
	backlogAfterIssues  = 20
	belowAverageScore   = 50.0
)

// Recommendation texts, in the order they are evaluated.
const (
	RecommendInactive     = "Consider updating the repository - it's been inactive for a while"
	RecommendBacklog      = "High number of open issues may indicate maintenance backlog"
	RecommendLicense      = "Consider adding a license for better legal clarity"
	RecommendBelowAverage = "Repository health is below average - review maintenance practices"
	RecommendHealthy      = "Repository appears healthy! Keep up the good work."
)

// Console writes human-readable output to the report stream.
type Console struct {
	w       io.Writer
	printer *message.Printer
}

// NewConsole creates a Console writing to w. Numbers use English grouping (1,234).
func NewConsole(w io.Writer) *Console {
	return &Console{w: w, printer: message.NewPrinter(language.English)}
}

// Start announces the repository about to be analyzed.
func (c *Console) Start(ref domain.RepoRef) {
	fmt.Fprintf(c.w, "🚀 Analyzing repository: %s\n", ref)
}

// Report renders the full health report. breakdown is optional and only
// printed when non-nil.
func (c *Console) Report(h *domain.RepositoryHealth, breakdown *domain.HealthBreakdown) {
	rule := strings.Repeat("=", ruleWidth)
	p := c.printer

	fmt.Fprintf(c.w, "\n%s\n", rule)
	fmt.Fprintln(c.w, "🔍 REPOSITORY HEALTH REPORT")
	fmt.Fprintln(c.w, rule)

	fmt.Fprintln(c.w, "\n📊 BASIC INFORMATION")
	fmt.Fprintf(c.w, "Repository: %s\n", h.FullName)
	fmt.Fprintf(c.w, "Description: %s\n", truncateDescription(h.Description))
	fmt.Fprintf(c.w, "Primary Language: %s\n", h.Language)
	fmt.Fprintf(c.w, "License: %s\n", h.LicenseName())

	fmt.Fprintln(c.w, "\n📈 METRICS")
	p.Fprintf(c.w, "⭐ Stars: %d\n", h.Stars)
	p.Fprintf(c.w, "🔄 Forks: %d\n", h.Forks)
	p.Fprintf(c.w, "👀 Watchers: %d\n", h.Watchers)
	p.Fprintf(c.w, "🐛 Open Issues: %d\n", h.OpenIssues)
	p.Fprintf(c.w, "💾 Size: %d KB\n", h.SizeKB)

	fmt.Fprintln(c.w, "\n🕒 ACTIVITY")
	fmt.Fprintf(c.w, "Created: %s\n", datePart(h.CreatedAt))
	fmt.Fprintf(c.w, "Last Updated: %s\n", datePart(h.UpdatedAt))
	fmt.Fprintf(c.w, "Last Push: %s (%d days ago)\n", datePart(h.PushedAt), h.FreshnessDays)

	fmt.Fprintln(c.w, "\n🎯 HEALTH ASSESSMENT")
	fmt.Fprintf(c.w, "Overall Health Score: %s/100 %s\n", h.HealthScore, HealthIndicator(h.HealthScore))
	fmt.Fprintf(c.w, "Activity Level: %s %s\n", h.ActivityLevel, ActivityIndicator(h.ActivityLevel))

	if breakdown != nil {
		fmt.Fprintln(c.w, "\n🧮 SCORE BREAKDOWN")
		fmt.Fprintf(c.w, "Popularity: %.1f/30\n", breakdown.Popularity)
		fmt.Fprintf(c.w, "Freshness: %.1f/30\n", breakdown.Freshness)
		fmt.Fprintf(c.w, "Issue Health: %.1f/20\n", breakdown.IssueHealth)
		fmt.Fprintf(c.w, "Base Health: %.1f/20\n", breakdown.BaseHealth)
	}

	fmt.Fprintln(c.w, "\n💡 RECOMMENDATIONS")
	for _, rec := range Recommendations(h) {
		fmt.Fprintf(c.w, "• %s\n", rec)
	}

	fmt.Fprintf(c.w, "\n%s\n", rule)
}

// Saved confirms where the snapshot was written.
func (c *Console) Saved(path string) {
	fmt.Fprintf(c.w, "\n💾 Report saved to: %s\n", path)
}

// SaveFailed reports a persistence failure as a warning.
func (c *Console) SaveFailed(err error) {
	fmt.Fprintf(c.w, "⚠️  Failed to save report: %v\n", err)
}

// Recommendations returns every applicable recommendation in a fixed order,
// or a single acknowledgment when none applies.
func Recommendations(h *domain.RepositoryHealth) []string {
	var recs []string
	if h.FreshnessDays > inactiveAfterDays {
		recs = append(recs, RecommendInactive)
	}
	if h.OpenIssues > backlogAfterIssues {
		recs = append(recs, RecommendBacklog)
	}
	if !h.HasLicense() {
		recs = append(recs, RecommendLicense)
	}
	if float64(h.HealthScore) < belowAverageScore {
		recs = append(recs, RecommendBelowAverage)
	}
	if len(recs) == 0 {
		recs = append(recs, RecommendHealthy)
	}
	return recs
}

// HealthIndicator maps a score onto a traffic-light marker.
func HealthIndicator(score domain.Score) string {
	switch {
	case float64(score) >= healthyThreshold:
		return "🟢"
	case float64(score) >= fairThreshold:
		return "🟡"
	default:
		return "🔴"
	}
}

// ActivityIndicator maps an activity level onto a marker.
func ActivityIndicator(level domain.ActivityLevel) string {
	switch level {
	case domain.ActivityHigh:
		return "🔥"
	case domain.ActivityMedium:
		return "⚡"
	case domain.ActivityLow:
		return "💤"
	default:
		return "❓"
	}
}

func truncateDescription(s string) string {
	runes := []rune(s)
	if len(runes) <= descriptionMaxRunes {
		return s
	}
	return string(runes[:descriptionMaxRunes]) + "..."
}

func datePart(s string) string {
	runes := []rune(s)
	if len(runes) <= dateOnlyLength {
		return s
	}
	return string(runes[:dateOnlyLength])
}
