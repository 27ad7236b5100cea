package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoad_ReadsYAMLFile(t *testing.T) {
	path := writeYAML(t, `
streams:
  - label: wx1
    url: http://example.invalid/stream
watched_fips:
  - "006037"
relay_enabled: true
relay_url: http://relay.example/mount
`)

	cfg, err := Load([]string{"--config", path})
	require.NoError(t, err)

	require.Len(t, cfg.Streams, 1)
	assert.Equal(t, "wx1", cfg.Streams[0].Label)
	assert.True(t, cfg.RelayEnabled)
	assert.Equal(t, []string{"006037"}, cfg.WatchedFIPS)
}

func TestLoad_RequiresAtLeastOneStream(t *testing.T) {
	path := writeYAML(t, "streams: []\n")
	_, err := Load([]string{"--config", path})
	assert.Error(t, err)
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeYAML(t, `
streams:
  - label: wx1
    url: http://example.invalid/stream
`)
	cfg, err := Load([]string{"--config", path})
	require.NoError(t, err)

	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, "48000", cfg.SampleRate)
	assert.Equal(t, 256, cfg.MonitorCapacity)
}

func TestWatchedFIPSSet_BuildsLookupSet(t *testing.T) {
	cfg := &Config{WatchedFIPS: []string{"006037", "048201"}}
	set := cfg.WatchedFIPSSet()
	_, ok := set["006037"]
	assert.True(t, ok)
	assert.Len(t, set, 2)
}

func TestLocation_FallsBackToUTC(t *testing.T) {
	cfg := &Config{Timezone: "not-a-real-zone"}
	assert.Equal(t, "UTC", cfg.Location().String())

	cfg2 := &Config{Timezone: ""}
	assert.Equal(t, "UTC", cfg2.Location().String())
}
