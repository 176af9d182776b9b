package domain

import (
	"encoding/json"
	"math"
)

// RawAttributes is the repository payload as decoded from the API, before any
// field is trusted. Every key is optional.
type RawAttributes map[string]interface{}

// Attributes is the typed view of RawAttributes with all defaults applied.
// Scoring code only ever sees this struct.
type Attributes struct {
	Name        string
	FullName    string
	Description string
	Language    string
	Stars       int
	Forks       int
	OpenIssues  int
	Watchers    int
	SizeKB      int
	CreatedAt   string
	UpdatedAt   string
	PushedAt    string
	License     *string
}

// Defaults for absent or null text fields.
const (
	DefaultName        = "Unknown"
	DefaultDescription = "No description provided"
	DefaultLanguage    = "Not specified"
)

// Decode maps a raw payload onto Attributes. It never fails: a field that is
// missing, null or of the wrong type falls back to its default.
func Decode(raw RawAttributes) Attributes {
	return Attributes{
		Name:        raw.text("name", DefaultName),
		FullName:    raw.text("full_name", DefaultName),
		Description: raw.text("description", DefaultDescription),
		Language:    raw.text("language", DefaultLanguage),
		Stars:       raw.count("stargazers_count"),
		Forks:       raw.count("forks_count"),
		OpenIssues:  raw.count("open_issues_count"),
		Watchers:    raw.count("watchers_count"),
		SizeKB:      raw.count("size"),
		CreatedAt:   raw.text("created_at", ""),
		UpdatedAt:   raw.text("updated_at", ""),
		PushedAt:    raw.text("pushed_at", ""),
		License:     raw.license(),
	}
}

func (r RawAttributes) text(key, fallback string) string {
	if s, ok := r[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

// count reads a non-negative integer. Fractions are truncated, negatives clamp to 0.
func (r RawAttributes) count(key string) int {
	var f float64
	switch v := r[key].(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		n, err := v.Float64()
		if err != nil {
			return 0
		}
		f = n
	default:
		return 0
	}
	if math.IsNaN(f) || f <= 0 {
		return 0
	}
	if f >= math.MaxInt {
		return math.MaxInt
	}
	return int(f)
}

func (r RawAttributes) license() *string {
	obj, ok := r["license"].(map[string]interface{})
	if !ok {
		return nil
	}
	name, ok := obj["name"].(string)
	if !ok || name == "" {
		return nil
	}
	return &name
}
