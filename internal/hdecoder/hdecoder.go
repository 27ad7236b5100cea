// Package hdecoder shells out to the external header-decoder program the
// Alert Manager uses to enrich a raw SAME header into human-readable
// event text, following the subprocess idiom internal/ffmpeg.Encoder
// uses for ffmpeg: build args, capture stderr for diagnostics, decode
// stdout on success. original_source/src/alerts.rs shells out to a
// bundled "decoder.py"; here the decoder binary's path is configurable
// and its contract is JSON on stdout rather than the original's parsed
// text, since that's the interop surface a real Go deployment of this
// system would pick.
package hdecoder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/wx-endec/eas-listener/internal/eas"
)

// Decoder invokes an external "decoder --msg <raw_header>" process and
// parses its JSON stdout into eas.Data.
type Decoder struct {
	path string
}

// New constructs a Decoder that runs the executable at path.
func New(path string) *Decoder {
	return &Decoder{path: path}
}

// Decode runs the decoder subprocess against rawHeader. On failure it
// returns an error carrying the subprocess's stderr, and callers fall
// back to same.ParseHeaderFields per SPEC_FULL.md's decoder-failure
// downgrade path.
func (d *Decoder) Decode(ctx context.Context, rawHeader string) (eas.Data, error) {
	cmd := exec.CommandContext(ctx, d.path, "--msg", rawHeader)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return eas.Data{}, fmt.Errorf("hdecoder: %w: %s", err, stderr.String())
	}

	var data eas.Data
	if err := json.Unmarshal(stdout.Bytes(), &data); err != nil {
		return eas.Data{}, fmt.Errorf("hdecoder: decoding stdout: %w", err)
	}
	return data, nil
}
