package hdecoder

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFakeDecoder writes a tiny shell script standing in for the real
// header-decoder binary, emitting canned JSON or a failure depending on
// the message it receives.
func writeFakeDecoder(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake decoder script is POSIX shell only")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "decoder.sh")
	script := `#!/bin/sh
if [ "$2" = "ZCZC-FAIL" ]; then
  echo "boom" >&2
  exit 1
fi
echo '{"event_text":"Tornado Warning","event_code":"TOR","originator":"WXR","fips":["048151"],"locations":"048151","eas_text":"Tornado Warning issued"}'
`
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestDecoder_Decode_Success(t *testing.T) {
	d := New(writeFakeDecoder(t))
	data, err := d.Decode(context.Background(), "ZCZC-WXR-TOR-048151+0030-2130415-KXYZ/NWS-")
	require.NoError(t, err)
	assert.Equal(t, "TOR", data.EventCode)
	assert.Equal(t, "Tornado Warning", data.EventText)
}

func TestDecoder_Decode_FailurePropagatesStderr(t *testing.T) {
	d := New(writeFakeDecoder(t))
	_, err := d.Decode(context.Background(), "ZCZC-FAIL")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}
