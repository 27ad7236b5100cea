// Package relay implements the relay muxer/streamer collaborator: given a
// finished recording, it builds an audio bundle (intro + silence +
// recording + silence + outro, whichever segments are configured) with
// one ffmpeg invocation, then streams the bundle to the configured
// Icecast relay destination with a second ffmpeg invocation. This is a
// direct translation of original_source/src/relay.rs's two-pass ffmpeg
// pipeline, generalizing internal/ffmpeg.Encoder's subprocess idiom to a
// filter_complex build step.
package relay

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/wx-endec/eas-listener/internal/filter"
)

const silenceSeconds = "1"

// Config carries the relay collaborator's static configuration, bound to
// the fields SPEC_FULL.md §6 (EXPANSION) names.
type Config struct {
	Enabled     bool
	DestURL     string
	IntroPath   string
	OutroPath   string
	FilterRules []filter.Rule
	TempDir     string
}

// Muxer builds and streams a relay bundle.
type Muxer struct {
	cfg Config
}

// New constructs a Muxer. It mirrors RelayState::new's validation: a
// Muxer with Enabled set but no DestURL is a configuration error.
func New(cfg Config) (*Muxer, error) {
	if cfg.Enabled && cfg.DestURL == "" {
		return nil, fmt.Errorf("relay: enabled but no destination URL configured")
	}
	return &Muxer{cfg: cfg}, nil
}

// Start consults the filter rules for eventCode; on ActionIgnore or
// ActionLog it returns immediately without relaying. On ActionRelay it
// builds the bundle and streams it, returning any ffmpeg failure as an
// error for the caller to log non-fatally per SPEC_FULL.md §7.
func (m *Muxer) Start(ctx context.Context, eventCode, recordingPath, sourceLabel string) error {
	if !m.cfg.Enabled {
		return nil
	}

	rule := filter.Match(m.cfg.FilterRules, eventCode)
	switch rule.Action {
	case filter.ActionIgnore, filter.ActionLog:
		slog.Info("relay: skipped by filter", "event_code", eventCode, "filter", rule.Name, "action", rule.Action)
		return nil
	}

	bundlePath, err := m.buildBundle(ctx, recordingPath)
	if err != nil {
		return fmt.Errorf("relay: build bundle: %w", err)
	}
	defer os.Remove(bundlePath)

	if err := m.stream(ctx, bundlePath, eventCode, sourceLabel); err != nil {
		return fmt.Errorf("relay: stream bundle: %w", err)
	}
	return nil
}

// buildBundle runs the first ffmpeg invocation: concatenates
// intro?/silence/recording/silence/outro? into a single OGG Vorbis file
// via filter_complex, matching relay.rs's segment assembly.
func (m *Muxer) buildBundle(ctx context.Context, recordingPath string) (string, error) {
	var inputs []string
	if m.cfg.IntroPath != "" {
		inputs = append(inputs, m.cfg.IntroPath)
	}
	inputs = append(inputs, silenceSourceArg(), recordingPath, silenceSourceArg())
	if m.cfg.OutroPath != "" {
		inputs = append(inputs, m.cfg.OutroPath)
	}

	outPath := filepath.Join(m.tempDir(), uuid.NewString()+"-bundle.ogg")

	args := []string{"-y"}
	for _, in := range inputs {
		if in == silenceSourceArg() {
			args = append(args, "-f", "lavfi", "-t", silenceSeconds, "-i", "anullsrc=channel_layout=mono:sample_rate=48000")
		} else {
			args = append(args, "-i", in)
		}
	}

	var filterParts string
	for i := range inputs {
		filterParts += fmt.Sprintf("[%d:a]aresample=48000,aformat=sample_fmts=fltp:channel_layouts=mono,asetpts=N/SR/TB[a%d];", i, i)
	}
	var concatInputs string
	for i := range inputs {
		concatInputs += fmt.Sprintf("[a%d]", i)
	}
	filterComplex := fmt.Sprintf("%s%sconcat=n=%d:v=0:a=1[out]", filterParts, concatInputs, len(inputs))

	args = append(args,
		"-filter_complex", filterComplex,
		"-map", "[out]",
		"-c:a", "libvorbis",
		"-b:a", "128k",
		outPath,
	)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%w: %s", err, stderr.String())
	}
	return outPath, nil
}

// stream runs the second ffmpeg invocation: streams the finished bundle
// to the configured Icecast relay URL in real time.
func (m *Muxer) stream(ctx context.Context, bundlePath, eventCode, sourceLabel string) error {
	args := []string{
		"-re",
		"-i", bundlePath,
		"-c:a", "copy",
		"-f", "ogg",
		"-metadata", "title=" + eventCode,
		"-metadata", "artist=" + sourceLabel,
		"-content_type", "application/ogg",
		m.cfg.DestURL,
	}
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %s", err, stderr.String())
	}
	return nil
}

func (m *Muxer) tempDir() string {
	if m.cfg.TempDir != "" {
		return m.cfg.TempDir
	}
	return os.TempDir()
}

// silenceSourceArg is a sentinel string identifying the synthetic lavfi
// silence segments in buildBundle's input list; it is never a real path.
func silenceSourceArg() string { return "\x00anullsrc" }
