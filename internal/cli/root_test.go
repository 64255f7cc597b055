package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testEnv is a record directory, cache and config file under t.TempDir.
type testEnv struct {
	envPath   string
	cachePath string
	config    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	e := &testEnv{
		envPath:   filepath.Join(dir, "swirlenv"),
		cachePath: filepath.Join(dir, "cache"),
		config:    filepath.Join(dir, "swirl.yaml"),
	}
	require.NoError(t, os.WriteFile(e.config, []byte("seed: 7\n"), 0o644))
	return e
}

// run executes the root command with the environment's paths prepended.
func (e *testEnv) run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	return e.runContext(context.Background(), args...)
}

func (e *testEnv) runContext(ctx context.Context, args ...string) (stdout, stderr string, err error) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(append([]string{
		"--config", e.config,
		"--envpath", e.envPath,
		"--cachepath", e.cachePath,
	}, args...))
	err = cmd.ExecuteContext(ctx)
	return out.String(), errOut.String(), err
}

// decode unmarshals a JSON CLI response, placing its data in data.
func decode(t *testing.T, out string, data any) CLIResponse {
	t.Helper()
	var raw struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
		Error  *CLIError       `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw), out)
	if data != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return CLIResponse{Status: raw.Status, Error: raw.Error}
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "swirl", cmd.Use)
	assert.Contains(t, cmd.Long, ".swirl.yaml")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"resolve", "create", "edit", "delete", "eval", "validate", "test", "watch"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	defaults := map[string]string{
		"format":    "text",
		"envpath":   "swirl/swirlenv",
		"cachepath": "swirl/cache",
		"owner":     "client@guest",
		"config":    "",
	}
	for name, want := range defaults {
		flag := cmd.PersistentFlags().Lookup(name)
		require.NotNil(t, flag, name)
		assert.Equal(t, want, flag.DefValue, name)
	}
}

func TestMacroCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"create", "edit"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		for _, flag := range []string{"name", "vars", "formula", "desc"} {
			assert.NotNil(t, sub.Flags().Lookup(flag), "%s --%s", name, flag)
		}
	}
}

// =============================================================================
// Configuration Tests
// =============================================================================

func TestConfigFileMissing(t *testing.T) {
	e := newTestEnv(t)
	e.config = filepath.Join(t.TempDir(), "missing.yaml")

	_, stderr, err := e.run(t, "resolve")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stderr, ErrCodeConfig)
}

func TestConfigInvalidFormat(t *testing.T) {
	e := newTestEnv(t)
	_, _, err := e.run(t, "resolve", "--format", "yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

// TestConfigFileFormat tests that the config file sets the output format.
func TestConfigFileFormat(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, os.WriteFile(e.config, []byte("format: json\n"), 0o644))

	out, _, err := e.run(t, "resolve")
	require.NoError(t, err)

	var result ResolveResult
	resp := decode(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, result.Generation)
}

// TestFlagOverridesConfigFile tests that flags win over the config file.
func TestFlagOverridesConfigFile(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, os.WriteFile(e.config, []byte("format: json\nowner: file@owner\n"), 0o644))

	out, _, err := e.run(t, "create", "--owner", "flag@owner", "--name", "f", "--formula", "1")
	require.NoError(t, err)

	var m struct {
		OwnerID string `json:"owner_id"`
	}
	decode(t, out, &m)
	assert.Equal(t, "flag@owner", m.OwnerID)
}
