package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	testCases := []struct {
		name     string
		payload  string
		expected Attributes
	}{
		{
			name: "happy path - every field present",
			payload: `{
				"name": "awesome-project",
				"full_name": "owner/awesome-project",
				"description": "An awesome test project",
				"language": "Go",
				"stargazers_count": 1500,
				"forks_count": 300,
				"open_issues_count": 10,
				"watchers_count": 1200,
				"size": 2048,
				"created_at": "2022-01-01T00:00:00Z",
				"updated_at": "2023-12-01T00:00:00Z",
				"pushed_at": "2023-12-01T00:00:00Z",
				"license": {"key": "apache-2.0", "name": "Apache License 2.0"}
			}`,
			expected: Attributes{
				Name:        "awesome-project",
				FullName:    "owner/awesome-project",
				Description: "An awesome test project",
				Language:    "Go",
				Stars:       1500,
				Forks:       300,
				OpenIssues:  10,
				Watchers:    1200,
				SizeKB:      2048,
				CreatedAt:   "2022-01-01T00:00:00Z",
				UpdatedAt:   "2023-12-01T00:00:00Z",
				PushedAt:    "2023-12-01T00:00:00Z",
				License:     strPtr("Apache License 2.0"),
			},
		},
		{
			name:    "minimal payload - only identity",
			payload: `{"name": "minimal-repo", "full_name": "owner/minimal-repo"}`,
			expected: Attributes{
				Name:        "minimal-repo",
				FullName:    "owner/minimal-repo",
				Description: DefaultDescription,
				Language:    DefaultLanguage,
			},
		},
		{
			name:    "empty payload - identity defaults to Unknown",
			payload: `{}`,
			expected: Attributes{
				Name:        DefaultName,
				FullName:    DefaultName,
				Description: DefaultDescription,
				Language:    DefaultLanguage,
			},
		},
		{
			name:    "nulls and wrong types fall back to defaults",
			payload: `{"name": null, "description": null, "language": 42, "stargazers_count": "many", "forks_count": null, "pushed_at": 12, "license": null}`,
			expected: Attributes{
				Name:        DefaultName,
				FullName:    DefaultName,
				Description: DefaultDescription,
				Language:    DefaultLanguage,
			},
		},
		{
			name:    "license object without a name is no license",
			payload: `{"name": "r", "full_name": "o/r", "license": {"key": "other"}}`,
			expected: Attributes{
				Name:        "r",
				FullName:    "o/r",
				Description: DefaultDescription,
				Language:    DefaultLanguage,
			},
		},
		{
			name:    "negative and fractional counts",
			payload: `{"name": "r", "full_name": "o/r", "stargazers_count": -5, "forks_count": 7.9}`,
			expected: Attributes{
				Name:        "r",
				FullName:    "o/r",
				Description: DefaultDescription,
				Language:    DefaultLanguage,
				Forks:       7,
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var raw RawAttributes
			require.NoError(t, json.Unmarshal([]byte(tc.payload), &raw))

			assert.Equal(t, tc.expected, Decode(raw))
		})
	}
}

func TestDecode_NilBag(t *testing.T) {
	attrs := Decode(nil)

	assert.Equal(t, DefaultName, attrs.Name)
	assert.Equal(t, 0, attrs.Stars)
	assert.Nil(t, attrs.License)
}

func TestDecode_JSONNumber(t *testing.T) {
	raw := RawAttributes{"stargazers_count": json.Number("42"), "open_issues_count": json.Number("x")}

	attrs := Decode(raw)

	assert.Equal(t, 42, attrs.Stars)
	assert.Equal(t, 0, attrs.OpenIssues)
}

func strPtr(s string) *string { return &s }
