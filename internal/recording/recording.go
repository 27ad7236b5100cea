// Package recording implements the Recording Coordinator: the
// mutex-guarded singleton "current recording" slot that bridges PCM
// fan-in from whichever Audio Decoder is recording to a single ffmpeg
// encoder subprocess, generalizing internal/ffmpeg.Encoder's
// subprocess-wrapping idiom from a file-input encode to a streaming,
// channel-fed encode.
package recording

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os/exec"
	"sync"
)

const pcmQueueCapacity = 512

// Slot is the active recording's shared state: a bounded PCM sender any
// decoder matching SourceStream may push into, the destination path, and
// the source label pinning which decoder owns it.
type Slot struct {
	pcm          chan []float32
	OutputPath   string
	SourceStream string

	done chan struct{} // closed when the encoder goroutine has exited
	err  error
}

// Push writes a PCM chunk into the slot if label matches the slot's
// SourceStream, dropping the chunk (try-send) if the encoder is behind.
// Decoders whose label doesn't match the slot silently drop frames, per
// the spec's source-stickiness invariant.
func (s *Slot) Push(label string, chunk []float32) {
	if s == nil || label != s.SourceStream {
		return
	}
	select {
	case s.pcm <- chunk:
	default:
	}
}

// Coordinator enforces at-most-one Slot process-wide.
type Coordinator struct {
	mu   sync.Mutex
	slot *Slot

	bitrate    string
	sampleRate string
	channels   string
}

// NewCoordinator builds a Coordinator whose ffmpeg encoder uses the given
// OGG Vorbis bitrate/sample-rate/channel settings.
func NewCoordinator(bitrate, sampleRate, channels string) *Coordinator {
	return &Coordinator{bitrate: bitrate, sampleRate: sampleRate, channels: channels}
}

// StartIfEmpty starts a new recording for (sourceLabel, outputPath) if no
// recording is currently in progress, returning true if it did. If a
// recording is already active, it returns false and leaves the existing
// one untouched (at-most-one semantics: the earlier alert wins).
func (c *Coordinator) StartIfEmpty(ctx context.Context, sourceLabel, outputPath string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.slot != nil {
		return false
	}

	slot := &Slot{
		pcm:          make(chan []float32, pcmQueueCapacity),
		OutputPath:   outputPath,
		SourceStream: sourceLabel,
		done:         make(chan struct{}),
	}
	c.slot = slot

	go c.runEncoder(ctx, slot)
	return true
}

// Push routes a PCM chunk from a decoder labeled label to the current
// slot, if any, and if the label matches. Safe to call whether or not a
// recording is active.
func (c *Coordinator) Push(label string, chunk []float32) {
	c.mu.Lock()
	slot := c.slot
	c.mu.Unlock()
	slot.Push(label, chunk)
}

// Stop takes the current slot (if any), closes its PCM channel to signal
// EOF to the encoder, waits for the encoder to finish flushing, and
// returns the finished recording's path and source label. ok is false if
// no recording was active (a later task stole or never started one).
func (c *Coordinator) Stop() (outputPath, sourceLabel string, ok bool) {
	c.mu.Lock()
	slot := c.slot
	c.slot = nil
	c.mu.Unlock()

	if slot == nil {
		return "", "", false
	}

	close(slot.pcm)
	<-slot.done

	if slot.err != nil {
		slog.Warn("recording: encoder finished with error", "output", slot.OutputPath, "error", slot.err)
	}
	return slot.OutputPath, slot.SourceStream, true
}

func (c *Coordinator) runEncoder(ctx context.Context, slot *Slot) {
	defer close(slot.done)

	args := []string{
		"-y",
		"-f", "f32le",
		"-ar", c.sampleRate,
		"-ac", c.channels,
		"-i", "pipe:0",
		"-c:a", "libvorbis",
		"-b:a", c.bitrate,
		slot.OutputPath,
	}
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		slot.err = fmt.Errorf("recording: stdin pipe: %w", err)
		return
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		slot.err = fmt.Errorf("recording: stderr pipe: %w", err)
		return
	}

	if err := cmd.Start(); err != nil {
		slot.err = fmt.Errorf("recording: start ffmpeg: %w", err)
		return
	}

	go func() {
		buf := make([]byte, 1024)
		for {
			n, err := stderr.Read(buf)
			if n > 0 {
				slog.Debug("recording: ffmpeg", "output", string(buf[:n]))
			}
			if err != nil {
				return
			}
		}
	}()

	writeErr := pumpPCM(stdin, slot.pcm)
	stdin.Close()

	waitErr := cmd.Wait()
	if writeErr != nil {
		slot.err = writeErr
	} else if waitErr != nil {
		slot.err = fmt.Errorf("recording: ffmpeg exited: %w", waitErr)
	}
}

func pumpPCM(w io.Writer, pcm <-chan []float32) error {
	buf := make([]byte, 4)
	for chunk := range pcm {
		for _, sample := range chunk {
			binary.LittleEndian.PutUint32(buf, math.Float32bits(sample))
			if _, err := w.Write(buf); err != nil {
				return err
			}
		}
	}
	return nil
}
