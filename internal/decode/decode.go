// Package decode wraps ffmpeg as the Audio Decoder's codec stage,
// generalizing internal/ffmpeg.Encoder's subprocess-wrapping idiom from
// encode to decode: instead of shelling out to produce an MP3/OGG stream
// from a file, it shells out to turn an arbitrary compressed audio stream
// (read from an io.Reader fed by the Stream Reader) into raw f32le PCM,
// recovers the source's native sample rate and channel count from
// ffmpeg's stderr banner, downmixes to mono, and resamples to the
// pipeline's target rate in fixed 2048-sample chunks, matching
// original_source/src/audio.rs's process_stream shape.
package decode

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os/exec"
	"regexp"
	"strconv"

	"github.com/wx-endec/eas-listener/internal/resample"
)

const (
	// TargetSampleRate is the rate every decoded stream is resampled to
	// before reaching the SAME receiver and the recording coordinator.
	TargetSampleRate = 48000
	// ChunkSamples is the fixed chunk size the decoder delivers PCM in.
	ChunkSamples = 2048

	bytesPerSample = 4 // f32le
)

var bannerRate = regexp.MustCompile(`Audio: .*?(\d+) Hz, (mono|stereo|(\d+) channels)`)

// Decoder turns a compressed audio byte stream into mono float32 PCM at
// TargetSampleRate, delivered ChunkSamples samples at a time via onChunk.
type Decoder struct {
	formatHint string // ffmpeg demuxer hint, e.g. "mp3"; empty lets ffmpeg probe
}

// New constructs a Decoder. contentType is the stream's HTTP Content-Type,
// used only to pick an explicit demuxer hint when ffmpeg's own probing
// would be ambiguous (mirrors audio.rs's MP3 content-type special case).
func New(contentType string) *Decoder {
	hint := ""
	if bytes.Contains([]byte(contentType), []byte("audio/mpeg")) {
		hint = "mp3"
	}
	return &Decoder{formatHint: hint}
}

// Run starts ffmpeg, pipes input into its stdin, and invokes onChunk with
// successive ChunkSamples-length mono PCM windows at TargetSampleRate
// until input is exhausted or ctx is cancelled.
func (d *Decoder) Run(ctx context.Context, input io.Reader, onChunk func([]float32)) error {
	args := []string{"-hide_banner", "-loglevel", "info"}
	if d.formatHint != "" {
		args = append(args, "-f", d.formatHint)
	}
	args = append(args,
		"-i", "pipe:0",
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"pipe:1",
	)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stdin = input

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("decode: stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("decode: stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("decode: start ffmpeg: %w", err)
	}

	banner := make(chan nativeFormat, 1)
	go scanStderrBanner(stderr, banner)

	nf, ok := waitForFormat(ctx, banner)
	if !ok {
		_ = cmd.Process.Kill()
		return fmt.Errorf("decode: could not determine native format from ffmpeg banner")
	}

	pipeErr := d.pump(stdout, nf, onChunk)
	waitErr := cmd.Wait()

	if pipeErr != nil && ctx.Err() == nil {
		return fmt.Errorf("decode: pcm pump: %w", pipeErr)
	}
	if waitErr != nil && ctx.Err() == nil {
		return fmt.Errorf("decode: ffmpeg exited: %w", waitErr)
	}
	return nil
}

type nativeFormat struct {
	rate     int
	channels int
}

func waitForFormat(ctx context.Context, banner <-chan nativeFormat) (nativeFormat, bool) {
	select {
	case nf := <-banner:
		return nf, true
	case <-ctx.Done():
		return nativeFormat{}, false
	}
}

func scanStderrBanner(stderr io.Reader, out chan<- nativeFormat) {
	scanner := bufio.NewScanner(stderr)
	sent := false
	for scanner.Scan() {
		line := scanner.Text()
		slog.Debug("decode: ffmpeg", "line", line)
		if sent {
			continue
		}
		m := bannerRate.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		rate, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		channels := 2
		switch m[2] {
		case "mono":
			channels = 1
		case "stereo":
			channels = 2
		default:
			if n, err := strconv.Atoi(m[3]); err == nil {
				channels = n
			}
		}
		out <- nativeFormat{rate: rate, channels: channels}
		sent = true
	}
	if !sent {
		// ffmpeg exited or closed stderr without a recognizable banner line;
		// fall back to a conservative default so Run doesn't hang forever.
		out <- nativeFormat{rate: TargetSampleRate, channels: 1}
	}
}

func (d *Decoder) pump(stdout io.Reader, nf nativeFormat, onChunk func([]float32)) error {
	resampler := resample.New(nf.rate, TargetSampleRate)
	if nf.rate == TargetSampleRate {
		resampler = nil
	}

	frameBytes := nf.channels * bytesPerSample
	buf := make([]byte, frameBytes*4096)
	var pending []float32

	flush := func(mono []float32) {
		pending = append(pending, mono...)
		for len(pending) >= ChunkSamples {
			chunk := make([]float32, ChunkSamples)
			copy(chunk, pending[:ChunkSamples])
			pending = pending[ChunkSamples:]
			onChunk(chunk)
		}
	}

	for {
		n, err := io.ReadFull(stdout, buf)
		if n > 0 {
			mono := downmix(buf[:n], nf.channels)
			if resampler != nil {
				mono = resampler.Process(mono)
			}
			flush(mono)
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// downmix converts interleaved little-endian f32 frames of channels
// channels into a mono arithmetic-mean signal, matching audio.rs's
// downmixing of decoded frames before feeding the SAME detector.
func downmix(raw []byte, channels int) []float32 {
	frameBytes := channels * bytesPerSample
	n := len(raw) / frameBytes
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		var sum float64
		base := i * frameBytes
		for c := 0; c < channels; c++ {
			bits := binary.LittleEndian.Uint32(raw[base+c*bytesPerSample:])
			sum += float64(math.Float32frombits(bits))
		}
		out[i] = float32(sum / float64(channels))
	}
	return out
}
