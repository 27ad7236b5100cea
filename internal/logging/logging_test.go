package logging

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_BuildsLoggerAndInstallsSlogBridge(t *testing.T) {
	dir := t.TempDir()
	logger, err := New(Config{Level: "info", Dir: dir})
	require.NoError(t, err)
	require.NotNil(t, logger)

	assert.NotPanics(t, func() {
		slog.Info("bridged message", "key", "value")
	})
}

func TestParseLevel_FallsBackToInfoOnGarbage(t *testing.T) {
	assert.Equal(t, "info", parseLevel("not-a-level").String())
	assert.Equal(t, "debug", parseLevel("debug").String())
}
