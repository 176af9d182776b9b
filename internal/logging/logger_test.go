package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Levels(t *testing.T) {
	testCases := []struct {
		name          string
		opts          Options
		expectedLevel logrus.Level
	}{
		{name: "default is info", opts: Options{}, expectedLevel: logrus.InfoLevel},
		{name: "verbose is debug", opts: Options{Verbose: true}, expectedLevel: logrus.DebugLevel},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expectedLevel, New(&bytes.Buffer{}, tc.opts).GetLevel())
		})
	}
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Options{})

	logger.WithField("repo", "nodejs/node").Info("Fetching repository data")
	logger.Debug("hidden")

	out := buf.String()
	assert.Contains(t, out, "level=info")
	assert.Contains(t, out, `msg="Fetching repository data"`)
	assert.Contains(t, out, "repo=nodejs/node")
	assert.NotContains(t, out, "hidden")
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Options{Format: FormatJSON, Verbose: true})

	WithRun(logger).WithField("attempt", 2).Debug("Attempt failed")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "Attempt failed", entry["msg"])
	assert.Equal(t, float64(2), entry["attempt"])

	runID, ok := entry["run_id"].(string)
	require.True(t, ok)
	_, err := uuid.Parse(runID)
	assert.NoError(t, err)
}

func TestWithRun_Unique(t *testing.T) {
	logger := New(&bytes.Buffer{}, Options{})

	first := WithRun(logger).Data["run_id"]
	second := WithRun(logger).Data["run_id"]

	assert.NotEqual(t, first, second)
}
