package cli

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j3borquez/StyrofoamWrap/internal/app"
)

func TestParseDefaults(t *testing.T) {
	opts, done, err := Parse(nil, io.Discard)
	require.NoError(t, err)
	require.False(t, done)

	assert.Equal(t, app.BackendNone, opts.Backend)
	assert.False(t, opts.CleanModified)
	assert.False(t, opts.DryRun)
	assert.Equal(t, "info", opts.LogLevel)
	assert.Equal(t, "text", opts.LogFormat)
	assert.Empty(t, opts.ConfigPath)
}

func TestParseAllFlags(t *testing.T) {
	opts, done, err := Parse([]string{
		"--config", "pipeline.hcl",
		"--assets-dir", "/shared/assets",
		"--hip", "/shared/scenes/wrap.hip",
		"--launch-deadline",
		"--clean-modified",
		"--dry-run",
		"--log-format", "json",
		"--log-level", "debug",
	}, io.Discard)
	require.NoError(t, err)
	require.False(t, done)

	assert.Equal(t, "pipeline.hcl", opts.ConfigPath)
	assert.Equal(t, "/shared/assets", opts.AssetsDir)
	assert.Equal(t, "/shared/scenes/wrap.hip", opts.HipPath)
	assert.Equal(t, app.BackendDeadline, opts.Backend)
	assert.True(t, opts.CleanModified)
	assert.True(t, opts.DryRun)
	assert.Equal(t, "json", opts.LogFormat)
	assert.Equal(t, "debug", opts.LogLevel)
}

func TestParseLaunchLocal(t *testing.T) {
	opts, _, err := Parse([]string{"--launch-local"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, app.BackendLocal, opts.Backend)
}

func TestParseMutuallyExclusiveBackends(t *testing.T) {
	_, _, err := Parse([]string{"--launch-local", "--launch-deadline"}, io.Discard)
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
	assert.Contains(t, exitErr.Message, "mutually exclusive")
}

func TestParseHelp(t *testing.T) {
	var out strings.Builder
	opts, done, err := Parse([]string{"--help"}, &out)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Nil(t, opts)
	assert.Contains(t, out.String(), "Usage:")
}

func TestParseUnknownFlag(t *testing.T) {
	_, _, err := Parse([]string{"--frobnicate"}, io.Discard)
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
}

func TestParsePositionalArgument(t *testing.T) {
	_, _, err := Parse([]string{"extra"}, io.Discard)
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
	assert.Contains(t, exitErr.Message, "extra")
}

func TestParseInvalidLogOptions(t *testing.T) {
	_, _, err := Parse([]string{"--log-format", "xml"}, io.Discard)
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)

	_, _, err = Parse([]string{"--log-level", "verbose"}, io.Discard)
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
}

func TestParseCaseInsensitiveLogOptions(t *testing.T) {
	opts, _, err := Parse([]string{"--log-level", "WARN", "--log-format", "JSON"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "warn", opts.LogLevel)
	assert.Equal(t, "json", opts.LogFormat)
}
