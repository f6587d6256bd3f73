package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"kvbench/internal/runner"
	"kvbench/internal/workload"
)

func TestParseTime(t *testing.T) {
	d, err := parseTime("2m")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, d)

	d, err = parseTime("1m30s")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	for _, bad := range []string{"soon", "0", "0s", "3000000h"} {
		_, err = parseTime(bad)
		assert.Equal(t, runner.ErrInvalidConfig, errors.Cause(err), bad)
	}
}

func TestParseTimeout(t *testing.T) {
	d, err := parseTimeout("25")
	require.NoError(t, err)
	assert.Equal(t, 25*time.Millisecond, d)

	d, err = parseTimeout("1s")
	require.NoError(t, err)
	assert.Equal(t, time.Second, d)

	_, err = parseTimeout("-1s")
	assert.Equal(t, runner.ErrInvalidConfig, errors.Cause(err))
}

func withOverrides(t *testing.T, kv map[string]any) {
	t.Helper()
	for k, v := range kv {
		viper.Set(k, v)
	}
	t.Cleanup(func() {
		for k := range kv {
			viper.Set(k, nil)
		}
	})
}

func TestBuildConfig(t *testing.T) {
	withOverrides(t, map[string]any{
		"operations":            "250",
		"time":                  "30s",
		"datatype":              "string",
		"datasize":              "1k",
		"store_options.timeout": "50",
	})

	cfg, err := buildConfig()
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.Operations)
	assert.Equal(t, 30*time.Second, cfg.Duration)
	assert.Equal(t, 0, cfg.Iterations)
	assert.Equal(t, workload.String, cfg.DataType)
	assert.Equal(t, 1024, cfg.DataSize)
	assert.Equal(t, 50*time.Millisecond, cfg.StoreOpts.Timeout)
	require.NoError(t, cfg.Validate())
}

func TestBuildConfigUnknownDatatype(t *testing.T) {
	withOverrides(t, map[string]any{"datatype": "float"})

	cfg, err := buildConfig()
	require.NoError(t, err)
	assert.Equal(t, workload.Integer, cfg.DataType)
}

func TestBuildConfigBadDatasize(t *testing.T) {
	withOverrides(t, map[string]any{"datasize": "lots"})

	_, err := buildConfig()
	assert.Equal(t, runner.ErrInvalidConfig, errors.Cause(err))
}

func TestConfigCommandRoundTrip(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"config", "-O", "42", "-N", "3", "-T", "90s", "--store", "memory"})
	require.NoError(t, rootCmd.Execute())

	var dumped map[string]any
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &dumped))
	assert.Equal(t, 42, dumped["operations"])
	assert.Equal(t, 3, dumped["processes"])
	assert.Equal(t, "1m30s", dumped["time"])

	// the dump reads back as a config file
	file := filepath.Join(t.TempDir(), "kvbench.yaml")
	require.NoError(t, os.WriteFile(file, out.Bytes(), 0o644))
	v := viper.New()
	v.SetConfigFile(file)
	require.NoError(t, v.ReadInConfig())
	d, err := parseTime(v.GetString("time"))
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)
	assert.Equal(t, "127.0.0.1", v.GetString("store_options.host"))
}
