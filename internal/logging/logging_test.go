package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_LevelFollowsVerbose(t *testing.T) {
	var quiet, verbose bytes.Buffer

	New(Options{Writer: &quiet}).Debug("hidden")
	New(Options{Writer: &quiet}).Info("hidden too")
	New(Options{Writer: &verbose, Verbose: true}).Debug("shown")

	assert.Empty(t, quiet.String())
	assert.Contains(t, verbose.String(), "shown")
}

func TestNew_Warn(t *testing.T) {
	var buf bytes.Buffer
	New(Options{Writer: &buf}).Warn("skipping record", "path", "macro.x.json")

	assert.Contains(t, buf.String(), "skipping record")
	assert.Contains(t, buf.String(), "macro.x.json")
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	New(Options{Writer: &buf, JSON: true}).Warn("resolve failed", "macros", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "resolve failed", entry["msg"])
	assert.EqualValues(t, 3, entry["macros"])
}

func TestSetup(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger := Setup(Options{Writer: &buf})
	assert.Same(t, logger, slog.Default())

	slog.Warn("via default")
	assert.Contains(t, buf.String(), "via default")
}
