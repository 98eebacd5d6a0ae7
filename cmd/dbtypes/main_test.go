package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the root command with args against a fresh data directory
// and returns its stdout.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	out, _, err := runWithStderr(t, dir, args...)
	return out, err
}

func runWithStderr(t *testing.T, dir string, args ...string) (string, string, error) {
	t.Helper()

	configFile, envFile, sourceType, sourcePath, logLevel = "", filepath.Join(dir, ".env"), "", "", "error"
	strict, jsonOutput, showStats, listAll, publishListOnly = false, false, false, false, false
	exportFormat, snapshotID = "json", ""
	logger, application = nil, nil
	dataDir = dir

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(append([]string{"--data-dir", dir, "--log-level", "error"}, args...))
	err := execute(context.Background())
	return out.String(), errOut.String(), err
}

func TestSupported(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "supported", "6", "SQLite", "v1.0")
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)

	out, err = run(t, dir, "supported", "VECTOR_BOOL", "sqlite", "1.0")
	require.Error(t, err)
	assert.Equal(t, exitNo, exitCode(err))
	assert.Equal(t, "false\n", out)

	_, err = run(t, dir, "supported", "6", "SQLite", "v7.0")
	require.Error(t, err)
	assert.Equal(t, exitNotFound, exitCode(err))
}

func TestLookupAndRank(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "--json", "lookup", "1", "hdf5", "1.1.4")
	require.NoError(t, err)
	var recs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, "INT", recs[0]["name"])
	assert.Equal(t, "v1.1", recs[0]["version"])

	out, err = run(t, dir, "rank", "MAP_STRING_STRING", "SQLite", "v1.0")
	require.NoError(t, err)
	assert.Equal(t, "3\n", out)
}

func TestListAndVersions(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "--json", "list", "SQLite", "v1.0")
	require.NoError(t, err)
	var recs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &recs))
	assert.Len(t, recs, 14)

	out, err = run(t, dir, "versions")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[3], "v1.3  144 types"))
}

func TestDiff(t *testing.T) {
	out, err := run(t, t.TempDir(), "--json", "diff", "SQLite", "v1.0", "v1.1")
	require.NoError(t, err)
	var d struct {
		NewlySupported []int `json:"newly_supported"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &d))
	assert.Len(t, d.NewlySupported, 72)
}

func TestLint(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "lint")
	require.NoError(t, err)
	assert.Contains(t, out, "PAIR_INT_DOUBLE")
	assert.Contains(t, out, "4 findings")

	_, err = run(t, dir, "--strict", "lint")
	require.Error(t, err)
	assert.Equal(t, exitLoad, exitCode(err))
}

func TestExportThenLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dbtypes.yaml.sz")

	_, err := run(t, dir, "export", path)
	require.NoError(t, err)
	_, err = os.Stat(path)
	require.NoError(t, err)

	out, err := run(t, dir, "--table", path, "supported", "6", "SQLite", "v1.0")
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)
}

func TestPublishThenLoadFromObject(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, dir, "publish", "tables/dbtypes.js")
	require.NoError(t, err)

	out, err := run(t, dir, "publish", "--list", "tables")
	require.NoError(t, err)
	assert.Equal(t, "tables/dbtypes.js\n", out)

	t.Setenv("DBTYPES_SOURCE_OBJECT_PATH", "tables/dbtypes.js")
	out, err = run(t, dir, "--source", "object", "rank", "4", "HDF5", "v1.3")
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)
}

func TestSnapshotCommands(t *testing.T) {
	dir := t.TempDir()

	first, err := run(t, dir, "snapshot", "write")
	require.NoError(t, err)
	second, err := run(t, dir, "snapshot", "write")
	require.NoError(t, err)
	assert.Equal(t, first, second, "unchanged table reuses the snapshot")

	out, err := run(t, dir, "--json", "snapshot", "list")
	require.NoError(t, err)
	var list []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	assert.Len(t, list, 1)

	out, err = run(t, dir, "snapshot", "matrix", "v1.0")
	require.NoError(t, err)
	assert.Contains(t, out, "VECTOR_BOOL")

	out, err = run(t, dir, "--source", "snapshot", "supported", "6", "SQLite", "v1.0")
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)
}

func TestStats_ReportedOnFailedCommand(t *testing.T) {
	dir := t.TempDir()

	out, stderr, err := runWithStderr(t, dir, "--stats", "supported", "VECTOR_BOOL", "SQLite", "v1.0")
	require.Error(t, err)
	assert.Equal(t, exitNo, exitCode(err))
	assert.Equal(t, "false\n", out)
	assert.Contains(t, stderr, "SQLite/v1.0")
	assert.Nil(t, application, "application released after the command")

	_, stderr, err = runWithStderr(t, dir, "--stats", "--json", "supported", "9999", "HDF5", "v1.3")
	require.Error(t, err)
	var usage struct {
		Tables    []map[string]any `json:"tables"`
		TopMisses []map[string]any `json:"top_misses"`
	}
	require.NoError(t, json.Unmarshal([]byte(stderr), &usage))
	require.Len(t, usage.TopMisses, 1)
	assert.Equal(t, "HDF5/v1.3/9999", usage.TopMisses[0]["key"])
}

func TestStats_SilentByDefault(t *testing.T) {
	dir := t.TempDir()

	_, stderr, err := runWithStderr(t, dir, "supported", "6", "SQLite", "v1.0")
	require.NoError(t, err)
	assert.Empty(t, stderr)
}
