package eas

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcileStatusFiles(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, ReconcileStatusFiles(dir, []Alert{{Data: Data{EventCode: "TOR"}}}))
	assertExists(t, filepath.Join(dir, severeDayFile), true)
	assertExists(t, filepath.Join(dir, rainyDayFile), false)

	require.NoError(t, ReconcileStatusFiles(dir, []Alert{{Data: Data{EventCode: "SVA"}}}))
	assertExists(t, filepath.Join(dir, severeDayFile), false)
	assertExists(t, filepath.Join(dir, rainyDayFile), true)

	require.NoError(t, ReconcileStatusFiles(dir, nil))
	assertExists(t, filepath.Join(dir, severeDayFile), false)
	assertExists(t, filepath.Join(dir, rainyDayFile), false)
}

func assertExists(t *testing.T, path string, want bool) {
	t.Helper()
	_, err := os.Stat(path)
	if want {
		assert.NoError(t, err)
	} else {
		assert.True(t, os.IsNotExist(err))
	}
}
