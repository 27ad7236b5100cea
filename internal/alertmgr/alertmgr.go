// Package alertmgr implements the Alert Manager: it turns StartOfMessage
// events into durable ActiveAlert entries, enriches them via the external
// header-decoder collaborator, applies FIPS relevance filtering, and
// spawns the per-alert fan-out task that coordinates recording, webhook
// dispatch, and relay — the protocol described in SPEC_FULL.md §4.3/4.4,
// grounded on original_source/src/alerts.rs.
package alertmgr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lestrrat-go/strftime"

	"github.com/wx-endec/eas-listener/internal/eas"
	"github.com/wx-endec/eas-listener/internal/eom"
	"github.com/wx-endec/eas-listener/internal/hdecoder"
	"github.com/wx-endec/eas-listener/internal/recording"
	"github.com/wx-endec/eas-listener/internal/relay"
	"github.com/wx-endec/eas-listener/internal/same"
	"github.com/wx-endec/eas-listener/internal/webhook"
)

const recordingTimeout = 300 * time.Second

// StartOfMessageEvent describes one SAME StartOfMessage burst detected by
// the Audio Decoder. Each per-source pipeline passes it to
// HandleStartOfMessage with a direct, synchronous call, so no event is
// dropped.
type StartOfMessageEvent struct {
	RawHeader   string
	SourceLabel string
	Fields      same.HeaderFields
}

// ActiveSetNotifier receives a snapshot of the active alert set after
// every mutation, for the monitoring hub.
type ActiveSetNotifier interface {
	AlertsChanged(snapshot []eas.Alert)
}

// Manager wires together the active set, status files, alert log, the
// header-decoder collaborator, the recording coordinator, the
// EndOfMessage broadcaster, the webhook sink, and the relay muxer.
type Manager struct {
	activeSet     *eas.ActiveSet
	watchedFIPS   map[string]struct{}
	stateDir      string
	decoder       *hdecoder.Decoder
	recorder      *recording.Coordinator
	eomBroadcast  *eom.Broadcaster
	webhookSink   *webhook.Sink
	relayMuxer    *relay.Muxer
	relayEnabled  bool
	notifier      ActiveSetNotifier
	recordingDir  string

	alertLogPath string
	timestampFmt *strftime.Strftime
	location     *time.Location
}

// Config carries Manager's static dependencies and configuration.
type Config struct {
	WatchedFIPS  map[string]struct{}
	StateDir     string
	AlertLogPath string
	RecordingDir string
	Location     *time.Location
	RelayEnabled bool
}

// New constructs a Manager.
func New(cfg Config, decoder *hdecoder.Decoder, recorder *recording.Coordinator, eomBroadcast *eom.Broadcaster, webhookSink *webhook.Sink, relayMuxer *relay.Muxer, notifier ActiveSetNotifier) (*Manager, error) {
	ts, err := strftime.New("%Y-%m-%d %I:%M:%S %p")
	if err != nil {
		return nil, fmt.Errorf("alertmgr: building timestamp formatter: %w", err)
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	return &Manager{
		activeSet:    eas.NewActiveSet(),
		watchedFIPS:  cfg.WatchedFIPS,
		stateDir:     cfg.StateDir,
		decoder:      decoder,
		recorder:     recorder,
		eomBroadcast: eomBroadcast,
		webhookSink:  webhookSink,
		relayMuxer:   relayMuxer,
		relayEnabled: cfg.RelayEnabled,
		notifier:     notifier,
		recordingDir: cfg.RecordingDir,
		alertLogPath: cfg.AlertLogPath,
		timestampFmt: ts,
		location:     loc,
	}, nil
}

// ActiveAlerts exposes a snapshot of the active set for other
// collaborators (the dashboard, the janitor's sibling views).
func (m *Manager) ActiveAlerts() []eas.Alert {
	return m.activeSet.Snapshot()
}

// ActiveSet exposes the underlying *eas.ActiveSet so the State Janitor can
// expire alerts from the same instance the Alert Manager mutates.
func (m *Manager) ActiveSet() *eas.ActiveSet {
	return m.activeSet
}

// HandleStartOfMessage runs the full §4.3 protocol for one detected
// StartOfMessage event: enrich, log, filter, insert/refresh, reconcile
// status files, and spawn fan-out.
func (m *Manager) HandleStartOfMessage(ctx context.Context, ev StartOfMessageEvent) {
	data, decodeErr := m.enrich(ctx, ev)
	if decodeErr != nil {
		slog.Warn("alertmgr: header decoder failed, using placeholder", "error", decodeErr, "raw_header", ev.RawHeader)
	}

	m.appendAlertLog(ev.RawHeader, data.EASText)

	if !data.IsRelevant(m.watchedFIPS) {
		slog.Info("alertmgr: alert not relevant to watched FIPS, discarding", "raw_header", ev.RawHeader)
		return
	}

	alert := eas.NewAlert(data, ev.RawHeader, ev.Fields.ValidDuration)
	snapshot := m.activeSet.Upsert(alert)

	if err := eas.ReconcileStatusFiles(m.stateDir, snapshot); err != nil {
		slog.Error("alertmgr: reconciling status files", "error", err)
	}
	if m.notifier != nil {
		m.notifier.AlertsChanged(snapshot)
	}

	go m.fanOut(ctx, ev.SourceLabel, alert)
}

// enrich invokes the header-decoder collaborator, falling back to the
// event-derived placeholder fields on failure (SPEC_FULL.md §7).
func (m *Manager) enrich(ctx context.Context, ev StartOfMessageEvent) (eas.Data, error) {
	if m.decoder == nil {
		return placeholderData(ev), fmt.Errorf("no header decoder configured")
	}
	data, err := m.decoder.Decode(ctx, ev.RawHeader)
	if err != nil {
		return placeholderData(ev), err
	}
	return data, nil
}

func placeholderData(ev StartOfMessageEvent) eas.Data {
	return eas.Data{
		EventText:  ev.Fields.EventCode,
		EventCode:  ev.Fields.EventCode,
		Originator: ev.Fields.Originator,
		FIPS:       nil,
		Locations:  ev.Fields.Locations,
		EASText:    "placeholder: header decoder unavailable",
	}
}

func (m *Manager) appendAlertLog(rawHeader, easText string) {
	if m.alertLogPath == "" {
		return
	}
	f, err := os.OpenFile(m.alertLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		slog.Error("alertmgr: opening alert log", "error", err)
		return
	}
	defer f.Close()

	timestamp := m.timestampFmt.FormatString(time.Now().In(m.location))
	line := fmt.Sprintf("%s: %s (Received @ %s)\n\n", rawHeader, easText, timestamp)
	if _, err := f.WriteString(line); err != nil {
		slog.Error("alertmgr: writing alert log", "error", err)
	}
}

// fanOut runs the per-alert protocol: start-or-skip recording, wait for
// EndOfMessage or timeout, stop recording, webhook, relay.
func (m *Manager) fanOut(ctx context.Context, sourceLabel string, alert eas.Alert) {
	outputPath := filepath.Join(m.recordingDir, recordingFileName(alert))
	started := m.recorder.StartIfEmpty(ctx, sourceLabel, outputPath)

	var recordingPath string
	if started {
		sub := m.eomBroadcast.Subscribe()
		select {
		case <-sub.C:
		case <-time.After(recordingTimeout):
		case <-ctx.Done():
		}
		m.eomBroadcast.Unsubscribe(sub)

		path, _, ok := m.recorder.Stop()
		if ok {
			recordingPath = path
		}
	}

	if m.webhookSink != nil {
		if err := m.webhookSink.Send(ctx, sourceLabel, alert, recordingPath); err != nil {
			slog.Warn("alertmgr: webhook dispatch failed", "error", err)
		}
	}

	if recordingPath != "" && m.relayEnabled && m.relayMuxer != nil {
		if err := m.relayMuxer.Start(ctx, alert.Data.EventCode, recordingPath, sourceLabel); err != nil {
			slog.Warn("alertmgr: relay failed", "error", err)
		}
	}
}

func recordingFileName(alert eas.Alert) string {
	return fmt.Sprintf("%s-%d.ogg", alert.Data.EventCode, alert.ReceivedAt.UnixNano())
}
