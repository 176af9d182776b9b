package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/xuri/excelize/v2"
	"google.golang.org/protobuf/proto"
	"gopkg.in/yaml.v3"

	"github.com/naka-gawa/repo-health/internal/domain"
)

// Format is a snapshot encoding.
type Format string

const (
	FormatJSON       Format = "json"
	FormatYAML       Format = "yaml"
	FormatXLSX       Format = "xlsx"
	FormatPrometheus Format = "prom"
)

const (
	healthSheet    = "Health"
	breakdownSheet = "Breakdown"
	metricPrefix   = "repo_health_"
)

// FormatFor picks the encoding from the destination extension.
// Unknown or missing extensions fall back to JSON.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".xlsx":
		return FormatXLSX
	case ".prom":
		return FormatPrometheus
	default:
		return FormatJSON
	}
}

// SaveSnapshot encodes h in the format implied by path and writes it atomically.
// It returns the absolute path of the written file.
func SaveSnapshot(path string, h *domain.RepositoryHealth, breakdown domain.HealthBreakdown) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	var data []byte
	switch FormatFor(path) {
	case FormatYAML:
		data, err = encodeYAML(h)
	case FormatXLSX:
		data, err = encodeXLSX(h, breakdown)
	case FormatPrometheus:
		data, err = encodePrometheus(h, breakdown)
	default:
		data, err = json.MarshalIndent(h, "", "  ")
	}
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}

	if err := writeFileAtomic(absPath, data); err != nil {
		return "", err
	}
	return absPath, nil
}

// writeFileAtomic writes into a temporary file next to path and renames it
// into place, so readers never observe a partial snapshot.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move snapshot into %s: %w", path, err)
	}
	return nil
}

func encodeYAML(h *domain.RepositoryHealth) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(h); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// healthRows lists the record as field/value pairs in snapshot order.
func healthRows(h *domain.RepositoryHealth) [][]interface{} {
	license := ""
	if h.HasLicense() {
		license = *h.License
	}
	return [][]interface{}{
		{"name", h.Name},
		{"full_name", h.FullName},
		{"description", h.Description},
		{"language", h.Language},
		{"stars", h.Stars},
		{"forks", h.Forks},
		{"open_issues", h.OpenIssues},
		{"watchers", h.Watchers},
		{"size_kb", h.SizeKB},
		{"created_at", h.CreatedAt},
		{"updated_at", h.UpdatedAt},
		{"pushed_at", h.PushedAt},
		{"license", license},
		{"health_score", float64(h.HealthScore)},
		{"freshness_days", h.FreshnessDays},
		{"activity_level", string(h.ActivityLevel)},
		{"timestamp", h.Timestamp},
	}
}

func encodeXLSX(h *domain.RepositoryHealth, breakdown domain.HealthBreakdown) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", healthSheet); err != nil {
		return nil, err
	}
	if err := writeSheet(f, healthSheet, healthRows(h)); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(breakdownSheet); err != nil {
		return nil, err
	}
	if err := writeSheet(f, breakdownSheet, [][]interface{}{
		{"popularity", breakdown.Popularity},
		{"freshness", breakdown.Freshness},
		{"issue_health", breakdown.IssueHealth},
		{"base_health", breakdown.BaseHealth},
		{"total", float64(h.HealthScore)},
	}); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeSheet writes a header row followed by one row per pair.
func writeSheet(f *excelize.File, sheet string, rows [][]interface{}) error {
	if err := f.SetSheetRow(sheet, "A1", &[]interface{}{"field", "value"}); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

// encodePrometheus renders the record in the text exposition format, suitable
// for a node-exporter textfile collector.
func encodePrometheus(h *domain.RepositoryHealth, breakdown domain.HealthBreakdown) ([]byte, error) {
	repo := labelPair("repo", h.FullName)

	license := 0.0
	if h.HasLicense() {
		license = 1
	}

	families := []*dto.MetricFamily{
		gaugeFamily("score", "Composite health score (0-100).", gauge(float64(h.HealthScore), repo)),
		gaugeFamily("freshness_days", "Days since the last push, 9999 when unknown.", gauge(float64(h.FreshnessDays), repo)),
		gaugeFamily("stars", "Stargazer count.", gauge(float64(h.Stars), repo)),
		gaugeFamily("forks", "Fork count.", gauge(float64(h.Forks), repo)),
		gaugeFamily("open_issues", "Open issue count.", gauge(float64(h.OpenIssues), repo)),
		gaugeFamily("watchers", "Watcher count.", gauge(float64(h.Watchers), repo)),
		gaugeFamily("size_kb", "Repository size in kilobytes.", gauge(float64(h.SizeKB), repo)),
		gaugeFamily("license_present", "1 when a license was detected.", gauge(license, repo)),
		gaugeFamily("activity_level", "1 for the current activity level.", activityGauges(h, repo)...),
		gaugeFamily("score_component", "Additive components of the health score.",
			gauge(breakdown.Popularity, repo, labelPair("component", "popularity")),
			gauge(breakdown.Freshness, repo, labelPair("component", "freshness")),
			gauge(breakdown.IssueHealth, repo, labelPair("component", "issue_health")),
			gauge(breakdown.BaseHealth, repo, labelPair("component", "base_health")),
		),
	}
	sort.Slice(families, func(i, j int) bool {
		return families[i].GetName() < families[j].GetName()
	})

	var buf bytes.Buffer
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func activityGauges(h *domain.RepositoryHealth, repo *dto.LabelPair) []*dto.Metric {
	levels := []domain.ActivityLevel{domain.ActivityHigh, domain.ActivityMedium, domain.ActivityLow}
	metrics := make([]*dto.Metric, 0, len(levels))
	for _, level := range levels {
		v := 0.0
		if h.ActivityLevel == level {
			v = 1
		}
		metrics = append(metrics, gauge(v, repo, labelPair("level", string(level))))
	}
	return metrics
}

func gaugeFamily(name, help string, metrics ...*dto.Metric) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   proto.String(metricPrefix + name),
		Help:   proto.String(help),
		Type:   dto.MetricType_GAUGE.Enum(),
		Metric: metrics,
	}
}

func gauge(v float64, labels ...*dto.LabelPair) *dto.Metric {
	return &dto.Metric{
		Label: labels,
		Gauge: &dto.Gauge{Value: proto.Float64(v)},
	}
}

func labelPair(name, value string) *dto.LabelPair {
	return &dto.LabelPair{Name: proto.String(name), Value: proto.String(value)}
}
