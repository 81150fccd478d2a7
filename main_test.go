package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-sauced/benchtrend/pkg/history"
	"github.com/open-sauced/benchtrend/pkg/trends"
)

var fixture = filepath.Join("pkg", "history", "testdata", "data.js")

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return out.String(), err
}

func TestTrendsCommand(t *testing.T) {
	out, err := run(t, "trends", fixture, "--series", "Benchmark", "--dedupe", "latest")
	require.NoError(t, err, out)

	var got map[string]trends.Trends
	require.NoError(t, json.Unmarshal([]byte(out), &got))

	points := got["Benchmark"]["tests/test_api.py::test_list_consultants"]
	require.Len(t, points, 2)
	assert.Equal(t, "8f1c2a0d9b", points[0].CommitID)
	assert.Equal(t, 498.01, points[0].Value)
}

func TestCompareCommand(t *testing.T) {
	out, err := run(t, "compare", fixture)
	require.NoError(t, err, out)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "METRIC")
	assert.Contains(t, lines[1], "tests/test_api.py::test_list_consultants")
	assert.Contains(t, lines[1], "8f1c2a0")
}

func TestRenderCommand(t *testing.T) {
	output := filepath.Join(t.TempDir(), "chart.html")

	out, err := run(t, "render", fixture, "-o", output, "--title", "consultants")
	require.NoError(t, err, out)

	page, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(page), "consultants")
}

func TestNormalizeCommand(t *testing.T) {
	out, err := run(t, "normalize", fixture)
	require.NoError(t, err)

	store, warnings, err := history.Load([]byte(out))
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Len(t, store.Snapshots("Benchmark"), 3)
}

func TestCommandWithoutFeed(t *testing.T) {
	_, err := run(t, "normalize")
	assert.Error(t, err)
}

func TestSelectTrendsRejects(t *testing.T) {
	raw, err := os.ReadFile(fixture)
	require.NoError(t, err)

	store, _, err := history.Load(raw)
	require.NoError(t, err)

	_, err = selectTrends(store, "Nope", "")
	assert.Error(t, err)

	_, err = selectTrends(store, "", "newest")
	assert.Error(t, err)
}
