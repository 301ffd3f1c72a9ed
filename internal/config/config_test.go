package config_test

import (
	"blocklist/internal/config"
	"blocklist/pkg/serrors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
inputs:
  - path: add-manual-addresses-here.txt
    output: output/blocklist-industrial-manual.txt
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "development", cfg.Environment)
	require.Equal(t, 10, cfg.Aggregation.Threshold)
	require.Equal(t, 0, cfg.Aggregation.IPv6GroupBits)
	require.Equal(t, 131072, cfg.Limits.MaxEntries)
	require.Equal(t, 63, cfg.Limits.MaxAnnotationLength)
	require.EqualValues(t, 10485760, cfg.Limits.MaxSizeBytes)
	require.Equal(t, config.ProviderIPWhois, cfg.Enrichment.Provider)
	require.Equal(t, 10*time.Second, cfg.Enrichment.Timeout)
	require.Equal(t, 1, cfg.Enrichment.Concurrency)
	require.False(t, cfg.Publish.Enabled)
	require.Equal(t, "origin", cfg.Publish.Remote)
	require.Equal(t, "Update validated blocklists", cfg.Publish.CommitMessage)
	require.Equal(t, []config.Input{{
		Path:   "add-manual-addresses-here.txt",
		Output: "output/blocklist-industrial-manual.txt",
	}}, cfg.Inputs)
}

func TestLoad_Overrides(t *testing.T) {
	path := writeConfig(t, `
environment: production
repoPath: /srv/blocklist
inputs:
  - path: a.txt
    output: out/a.txt
  - path: b.txt
    output: out/b.txt
aggregation:
  threshold: 5
limits:
  maxEntries: 100
enrichment:
  provider: none
  concurrency: 8
publish:
  enabled: true
  branch: release
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "production", cfg.Environment)
	require.Equal(t, "/srv/blocklist", cfg.RepoPath)
	require.Len(t, cfg.Inputs, 2)
	require.Equal(t, 5, cfg.Aggregation.Threshold)
	require.Equal(t, 100, cfg.Limits.MaxEntries)
	require.Equal(t, config.ProviderNone, cfg.Enrichment.Provider)
	require.Equal(t, 8, cfg.Enrichment.Concurrency)
	require.True(t, cfg.Publish.Enabled)
	require.Equal(t, "release", cfg.Publish.Branch)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"no inputs": `environment: production`,
		"negative threshold": `
inputs: [{path: a, output: b}]
aggregation: {threshold: -1}`,
		"unknown provider": `
inputs: [{path: a, output: b}]
enrichment: {provider: carrier-pigeon}`,
		"tiny annotation": `
inputs: [{path: a, output: b}]
limits: {maxAnnotationLength: 4}`,
		"missing output": `
inputs: [{path: a}]`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, body))
			require.ErrorIs(t, err, serrors.ErrBadRequest)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.Error(t, err)
}
