package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"kvbench/internal/runner"
	"kvbench/internal/storage"
)

func testConfig() runner.Config {
	cfg := runner.DefaultConfig()
	cfg.Operations = 100
	cfg.Processes = 2
	cfg.KeyRange = 10
	return cfg
}

func TestStartJSON(t *testing.T) {
	cfg := testConfig()
	cfg.JSON = true

	var stdout, stderr bytes.Buffer
	code := Start(context.Background(), cfg, Env{Stdout: &stdout, Stderr: &stderr, Log: zaptest.NewLogger(t)})
	require.Equal(t, 0, code)

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 1)
	var out struct {
		Configuration map[string]interface{} `json:"configuration"`
		Durations     map[string]uint64      `json:"durations"`
		StatusCodes   map[string]uint64      `json:"status_codes"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &out))
	assert.Equal(t, 2.0, out.Configuration["processes"])
	var total uint64
	for _, c := range out.Durations {
		total += c
	}
	assert.Equal(t, uint64(200), total)

	// iteration lines moved to stderr
	assert.Equal(t, 2, strings.Count(stderr.String(), "[worker: "))
}

func TestStartTable(t *testing.T) {
	cfg := testConfig()
	cfg.Iterations = 2

	var stdout bytes.Buffer
	code := Start(context.Background(), cfg, Env{Stdout: &stdout, Stderr: &bytes.Buffer{}, Log: zaptest.NewLogger(t)})
	require.Equal(t, 0, code)
	out := stdout.String()
	assert.Contains(t, out, "KVBENCH")
	assert.Equal(t, 4, strings.Count(out, "[worker: "))
	assert.Contains(t, out, "SUMMARY")
	assert.Contains(t, out, "Status Codes")
}

func TestStartSilentNoSummary(t *testing.T) {
	cfg := testConfig()
	cfg.Silent = true
	cfg.Summary = false

	var stdout bytes.Buffer
	code := Start(context.Background(), cfg, Env{Stdout: &stdout, Stderr: &bytes.Buffer{}, Log: zaptest.NewLogger(t)})
	require.Equal(t, 0, code)
	assert.Empty(t, stdout.String())
}

func TestStartStreamsMemoryWithoutSummary(t *testing.T) {
	cfg := testConfig()
	cfg.Iterations = 3
	cfg.Silent = true
	cfg.Summary = false
	cfg.ChartMemory = true

	var stdout bytes.Buffer
	code := Start(context.Background(), cfg, Env{Stdout: &stdout, Log: zaptest.NewLogger(t)})
	require.Equal(t, 0, code)

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 3)
	for i, line := range lines {
		assert.Regexp(t, fmt.Sprintf(`^\s*%d \|[= ]+\| `, i+1), line)
	}
	assert.NotContains(t, stdout.String(), "SUMMARY")
}

func TestStartExportsAndHistory(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig()
	cfg.Silent = true
	cfg.OutPrefix = filepath.Join(dir, "run")
	cfg.History = true
	cfg.ChartMemory = true
	histPath := filepath.Join(dir, "history.db")

	var stdout bytes.Buffer
	code := Start(context.Background(), cfg, Env{
		Stdout:      &stdout,
		Stderr:      &bytes.Buffer{},
		Log:         zaptest.NewLogger(t),
		HistoryPath: histPath,
	})
	require.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "Memory (0 - 400MiB)")

	for _, ext := range []string{".csv", ".json"} {
		info, err := os.Stat(cfg.OutPrefix + ext)
		require.NoError(t, err, ext)
		assert.Positive(t, info.Size())
	}

	s, err := storage.NewStore(histPath)
	require.NoError(t, err)
	defer s.Close()
	items, err := s.List()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, uint64(200), items[0].Summary.Operations)
}

func TestStartTimedWithMetrics(t *testing.T) {
	cfg := testConfig().WithDuration(150 * time.Millisecond)
	cfg.Silent = true
	cfg.JSON = true
	cfg.MetricsAddr = "127.0.0.1:0"

	var stdout bytes.Buffer
	code := Start(context.Background(), cfg, Env{Stdout: &stdout, Stderr: &bytes.Buffer{}, Log: zaptest.NewLogger(t)})
	require.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), `"iterations":null`)
}

func TestStartInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.KeyRange = 0
	var stdout bytes.Buffer
	assert.Equal(t, 1, Start(context.Background(), cfg, Env{Stdout: &stdout, Log: zaptest.NewLogger(t)}))
	assert.Empty(t, stdout.String())
}

func TestStartUnknownStoreCrashes(t *testing.T) {
	cfg := testConfig()
	cfg.Store = "nope"
	var stdout bytes.Buffer
	assert.Equal(t, 1, Start(context.Background(), cfg, Env{Stdout: &stdout, Stderr: &bytes.Buffer{}, Log: zaptest.NewLogger(t)}))
	assert.NotContains(t, stdout.String(), "SUMMARY")
}
