package cleanup

import (
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeAgedFile(t *testing.T, dir, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("log line\n"), 0o644))
	mtime := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, mtime, mtime))
	return path
}

func TestParseDate_ExtractsTrailingDate(t *testing.T) {
	s := New(t.TempDir(), "alerts.log")
	date, ok := s.parseDate("alerts.log.2026-07-20")
	require.True(t, ok)
	assert.Equal(t, 2026, date.Year())
	assert.Equal(t, time.July, date.Month())
	assert.Equal(t, 20, date.Day())
}

func TestParseDate_RejectsUnrelatedFile(t *testing.T) {
	s := New(t.TempDir(), "alerts.log")
	_, ok := s.parseDate("other-file.txt")
	assert.False(t, ok)
}

func TestSweep_CompressesFilesOlderThanOneDay(t *testing.T) {
	dir := t.TempDir()
	name := "alerts.log." + time.Now().Add(-36*time.Hour).Format(dateLayout)
	writeAgedFile(t, dir, name, 36*time.Hour)

	s := New(dir, "alerts.log")
	s.Sweep()

	gzPath := filepath.Join(dir, name+".gz")
	_, err := os.Stat(gzPath)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, name))
	assert.True(t, os.IsNotExist(err))

	f, err := os.Open(gzPath)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	contents, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.Equal(t, "log line\n", string(contents))
}

func TestSweep_DeletesFilesOlderThanThreeDays(t *testing.T) {
	dir := t.TempDir()
	name := "alerts.log." + time.Now().Add(-96*time.Hour).Format(dateLayout)
	writeAgedFile(t, dir, name, 96*time.Hour)

	s := New(dir, "alerts.log")
	s.Sweep()

	_, err := os.Stat(filepath.Join(dir, name))
	assert.True(t, os.IsNotExist(err))
}

func TestSweep_LeavesRecentFilesAlone(t *testing.T) {
	dir := t.TempDir()
	name := "alerts.log." + time.Now().Format(dateLayout)
	writeAgedFile(t, dir, name, time.Hour)

	s := New(dir, "alerts.log")
	s.Sweep()

	_, err := os.Stat(filepath.Join(dir, name))
	assert.NoError(t, err)
}
