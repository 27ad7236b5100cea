package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wx-endec/eas-listener/config"
	"github.com/wx-endec/eas-listener/internal/alertmgr"
	"github.com/wx-endec/eas-listener/internal/auth"
	"github.com/wx-endec/eas-listener/internal/cleanup"
	"github.com/wx-endec/eas-listener/internal/dashboard"
	"github.com/wx-endec/eas-listener/internal/decode"
	"github.com/wx-endec/eas-listener/internal/eom"
	"github.com/wx-endec/eas-listener/internal/hdecoder"
	"github.com/wx-endec/eas-listener/internal/janitor"
	"github.com/wx-endec/eas-listener/internal/logging"
	"github.com/wx-endec/eas-listener/internal/monitor"
	"github.com/wx-endec/eas-listener/internal/recording"
	"github.com/wx-endec/eas-listener/internal/relay"
	"github.com/wx-endec/eas-listener/internal/same"
	"github.com/wx-endec/eas-listener/internal/stream"
	"github.com/wx-endec/eas-listener/internal/webhook"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	if _, err := logging.New(logging.Config{Level: cfg.LogLevel, Dir: cfg.LogDir}); err != nil {
		fmt.Fprintln(os.Stderr, "logging:", err)
		os.Exit(1)
	}

	slog.Info("starting EAS listener",
		"streams", len(cfg.Streams),
		"watched_fips", len(cfg.WatchedFIPS),
		"dashboard_bind_addr", cfg.DashboardBindAddr,
	)

	for _, dir := range []string{cfg.StateDir, cfg.RecordingDir, cfg.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			slog.Error("creating directory", "dir", dir, "error", err)
			os.Exit(1)
		}
	}

	hub := monitor.New(cfg.MonitorCapacity)

	var decoderBin *hdecoder.Decoder
	if cfg.DecoderPath != "" {
		decoderBin = hdecoder.New(cfg.DecoderPath)
	}

	recorder := recording.NewCoordinator(cfg.RecorderBitrate, cfg.SampleRate, cfg.Channels)
	eomBroadcast := eom.New()

	var webhookSink *webhook.Sink
	if cfg.AppriseConfigPath != "" || len(cfg.DiscordWebhookURLs) > 0 {
		webhookSink = webhook.New(webhook.Config{
			AppriseConfigPath:  cfg.AppriseConfigPath,
			DiscordWebhookURLs: cfg.DiscordWebhookURLs,
			MonitorLabel:       cfg.MonitorLabel,
		})
	}

	relayMuxer, err := relay.New(relay.Config{
		Enabled:     cfg.RelayEnabled,
		DestURL:     cfg.RelayURL,
		IntroPath:   cfg.IntroPath,
		OutroPath:   cfg.OutroPath,
		FilterRules: cfg.RelayFilters,
		TempDir:     cfg.RecordingDir,
	})
	if err != nil {
		slog.Error("relay: invalid configuration", "error", err)
		os.Exit(1)
	}

	mgr, err := alertmgr.New(alertmgr.Config{
		WatchedFIPS:  cfg.WatchedFIPSSet(),
		StateDir:     cfg.StateDir,
		AlertLogPath: cfg.AlertLogPath,
		RecordingDir: cfg.RecordingDir,
		Location:     cfg.Location(),
		RelayEnabled: cfg.RelayEnabled,
	}, decoderBin, recorder, eomBroadcast, webhookSink, relayMuxer, hub)
	if err != nil {
		slog.Error("alertmgr: construction failed", "error", err)
		os.Exit(1)
	}

	j := janitor.New(mgr.ActiveSet(), cfg.StateDir, hub)
	sweeper := cleanup.New(cfg.LogDir, "eas-listener.log")
	cronRunner := cron.New()

	authInstance := auth.New(auth.Config{
		Username:  cfg.DashboardUsername,
		Password:  cfg.DashboardPassword,
		JWTSecret: cfg.JWTSecret,
	})
	dash := dashboard.New(dashboard.Config{BindAddr: cfg.DashboardBindAddr}, mgr, hub, authInstance)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		slog.Info("shutdown signal received")
		cancel()
	}()

	httpClient := stream.NewClient()
	for _, s := range cfg.Streams {
		go runStreamPipeline(ctx, s.Label, s.URL, httpClient, hub, mgr, recorder, eomBroadcast)
	}

	go func() {
		if err := j.Start(ctx, cronRunner); err != nil {
			slog.Error("janitor: scheduling failed", "error", err)
		}
	}()

	go func() {
		if err := sweeper.Start(ctx, cronRunner); err != nil {
			slog.Error("log cleanup: scheduling failed", "error", err)
		}
	}()

	cronRunner.Start()
	go func() {
		<-ctx.Done()
		stopCtx := cronRunner.Stop()
		<-stopCtx.Done()
		slog.Info("cron scheduler stopped")
	}()

	if err := dash.Start(ctx); err != nil {
		slog.Error("dashboard server error", "error", err)
		os.Exit(1)
	}

	slog.Info("EAS listener stopped")
}

// chunkReader adapts a stream.Reader's Chunks() channel to an io.Reader so
// it can be fed directly to ffmpeg's stdin via internal/decode.Decoder.Run.
// It blocks for the next chunk or ctx cancellation, matching how
// original_source/src/audio.rs treats a reconnecting HTTP body as one
// continuous decode input for the lifetime of the stream task.
type chunkReader struct {
	ctx context.Context
	ch  <-chan []byte
}

func (r *chunkReader) Read(p []byte) (int, error) {
	select {
	case chunk, ok := <-r.ch:
		if !ok {
			return 0, io.EOF
		}
		return copy(p, chunk), nil
	case <-r.ctx.Done():
		return 0, io.EOF
	}
}

// decodeRestartDelay separates one decode failure from the next restart
// attempt, so a persistently-corrupt source backs off instead of spinning
// the ffmpeg subprocess in a tight loop.
const decodeRestartDelay = 2 * time.Second

// runStreamPipeline wires one configured stream source through the full
// chain: HTTP pull (internal/stream) -> ffmpeg decode/resample
// (internal/decode) -> SAME demodulation (internal/same) plus recording
// PCM fan-in (internal/recording), dispatching detected bursts to the
// Alert Manager and EndOfMessage signals to the broadcaster, exactly the
// shape original_source/src/audio.rs's per-stream task runs. The reader
// (internal/stream) reconnects on its own; this loop mirrors that by
// restarting the decode stage itself whenever it exits on a non-context
// error, per spec §4.2/§7: a decode/probe failure exits the decoder, but
// the source must keep decoding indefinitely rather than dying for good.
func runStreamPipeline(
	ctx context.Context,
	label, url string,
	client *http.Client,
	hub *monitor.Hub,
	mgr *alertmgr.Manager,
	recorder *recording.Coordinator,
	eomBroadcast *eom.Broadcaster,
) {
	reader := stream.New(label, url, client, hub)
	go reader.Run(ctx)

	chunks := reader.Chunks()

	for ctx.Err() == nil {
		decoder := decode.New("")
		receiver := same.NewReceiver(decode.TargetSampleRate)
		input := &chunkReader{ctx: ctx, ch: chunks}

		err := decoder.Run(ctx, input, func(chunk []float32) {
			recorder.Push(label, chunk)

			for _, msg := range receiver.Feed(chunk) {
				switch msg.Kind {
				case same.KindStartOfMessage:
					fields, ok := same.ParseHeaderFields(msg.Header)
					if !ok {
						slog.Warn("decode: received malformed SAME header", "source", label, "header", msg.Header)
						continue
					}
					mgr.HandleStartOfMessage(ctx, alertmgr.StartOfMessageEvent{
						RawHeader:   msg.Header,
						SourceLabel: label,
						Fields:      fields,
					})
				case same.KindEndOfMessage:
					eomBroadcast.Publish()
				}
			}
		})

		if ctx.Err() != nil {
			return
		}
		if err != nil {
			hub.Error(label, err.Error())
			slog.Error("decode: pipeline exited, restarting decoder", "source", label, "error", err)
		}

		select {
		case <-time.After(decodeRestartDelay):
		case <-ctx.Done():
			return
		}
	}
}
