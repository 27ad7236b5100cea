package alertmgr

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wx-endec/eas-listener/internal/eas"
	"github.com/wx-endec/eas-listener/internal/eom"
	"github.com/wx-endec/eas-listener/internal/hdecoder"
	"github.com/wx-endec/eas-listener/internal/recording"
	"github.com/wx-endec/eas-listener/internal/same"
)

type fakeNotifier struct {
	last []eas.Alert
}

func (f *fakeNotifier) AlertsChanged(snapshot []eas.Alert) { f.last = snapshot }

// fakeDecoder writes a shell script standing in for the header-decoder
// subprocess: it matches the raw header verbatim and echoes the
// pre-baked JSON response registered for it.
func fakeDecoder(t *testing.T, responses map[string]eas.Data) *hdecoder.Decoder {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "decoder.sh")

	script := "#!/bin/sh\ncase \"$2\" in\n"
	for header, data := range responses {
		payload, err := json.Marshal(data)
		require.NoError(t, err)
		script += fmt.Sprintf("%q)\n  echo %q\n  ;;\n", header, string(payload))
	}
	script += "*)\n  echo 'unknown header' >&2\n  exit 1\n  ;;\nesac\n"

	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return hdecoder.New(path)
}

func newTestManager(t *testing.T, watched map[string]struct{}, decoder *hdecoder.Decoder) (*Manager, string) {
	t.Helper()
	stateDir := t.TempDir()
	logPath := filepath.Join(t.TempDir(), "alerts.log")

	notifier := &fakeNotifier{}
	recorder := recording.NewCoordinator("128k", "48000", "1")
	eomB := eom.New()

	m, err := New(Config{
		WatchedFIPS:  watched,
		StateDir:     stateDir,
		AlertLogPath: logPath,
		RecordingDir: t.TempDir(),
		Location:     time.UTC,
		RelayEnabled: false,
	}, decoder, recorder, eomB, nil, nil, notifier)
	require.NoError(t, err)
	return m, stateDir
}

func TestHandleStartOfMessage_DiscardsNonRelevantAlert(t *testing.T) {
	header := "ZCZC-WXR-TOR-048201+0030-2130415-KXYZ/NWS-"
	decoder := fakeDecoder(t, map[string]eas.Data{
		header: {EventText: "Tornado Warning", EventCode: "TOR", FIPS: []string{"048201"}},
	})
	m, _ := newTestManager(t, map[string]struct{}{"006037": {}}, decoder)

	m.HandleStartOfMessage(context.Background(), StartOfMessageEvent{
		RawHeader:   header,
		SourceLabel: "wx1",
		Fields:      same.HeaderFields{EventCode: "TOR", FIPS: []string{"048201"}},
	})

	assert.Empty(t, m.ActiveAlerts())
}

func TestHandleStartOfMessage_AcceptsUniversalFIPS(t *testing.T) {
	header := "ZCZC-WXR-TOR-000000+0030-2130415-KXYZ/NWS-"
	decoder := fakeDecoder(t, map[string]eas.Data{
		header: {EventText: "Tornado Warning", EventCode: "TOR", FIPS: []string{"000000"}},
	})
	m, stateDir := newTestManager(t, map[string]struct{}{"006037": {}}, decoder)

	m.HandleStartOfMessage(context.Background(), StartOfMessageEvent{
		RawHeader:   header,
		SourceLabel: "wx1",
		Fields:      same.HeaderFields{EventCode: "TOR", FIPS: []string{"000000"}, ValidDuration: 30 * time.Minute},
	})

	alerts := m.ActiveAlerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, header, alerts[0].RawHeader)

	_, err := os.Stat(filepath.Join(stateDir, "severe_day.txt"))
	assert.NoError(t, err)
}

func TestHandleStartOfMessage_RefreshesRatherThanDuplicates(t *testing.T) {
	header := "ZCZC-WXR-SVA-006037+0015-2130415-KXYZ/NWS-"
	decoder := fakeDecoder(t, map[string]eas.Data{
		header: {EventText: "Severe Thunderstorm Watch", EventCode: "SVA", FIPS: []string{"006037"}},
	})
	m, _ := newTestManager(t, nil, decoder)

	ev := StartOfMessageEvent{
		RawHeader:   header,
		SourceLabel: "wx1",
		Fields:      same.HeaderFields{EventCode: "SVA", FIPS: []string{"006037"}, ValidDuration: 15 * time.Minute},
	}
	m.HandleStartOfMessage(context.Background(), ev)
	m.HandleStartOfMessage(context.Background(), ev)

	assert.Len(t, m.ActiveAlerts(), 1)
}

func TestAppendAlertLog_WritesExpectedFormat(t *testing.T) {
	m, _ := newTestManager(t, nil, nil)
	m.appendAlertLog("ZCZC-WXR-TOR-006037+0030-2130415-KXYZ/NWS-", "Tornado Warning issued")

	contents, err := os.ReadFile(m.alertLogPath)
	require.NoError(t, err)
	assert.Contains(t, string(contents), "ZCZC-WXR-TOR-006037+0030-2130415-KXYZ/NWS-: Tornado Warning issued (Received @ ")
}

func TestEnrich_FallsBackToPlaceholderOnDecoderFailure(t *testing.T) {
	m, _ := newTestManager(t, nil, hdecoder.New("/nonexistent/decoder-binary"))

	ev := StartOfMessageEvent{
		RawHeader: "ZCZC-WXR-TOR-006037+0030-2130415-KXYZ/NWS-",
		Fields:    same.HeaderFields{EventCode: "TOR", FIPS: []string{"006037"}},
	}
	data, err := m.enrich(context.Background(), ev)
	assert.Error(t, err)
	assert.Equal(t, "TOR", data.EventCode)
	assert.Empty(t, data.FIPS)
}

func TestEnrich_NoDecoderConfiguredUsesPlaceholder(t *testing.T) {
	m, _ := newTestManager(t, nil, nil)

	ev := StartOfMessageEvent{
		RawHeader: "ZCZC-WXR-TOR-006037+0030-2130415-KXYZ/NWS-",
		Fields:    same.HeaderFields{EventCode: "TOR"},
	}
	_, err := m.enrich(context.Background(), ev)
	assert.Error(t, err)
}
