package same

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wx-endec/eas-listener/internal/same/testgen"
)

const testSampleRate = 48000

func feedInChunks(r *Receiver, pcm []float32, chunkSize int) []Message {
	var out []Message
	for len(pcm) > 0 {
		n := chunkSize
		if n > len(pcm) {
			n = len(pcm)
		}
		out = append(out, r.Feed(pcm[:n])...)
		pcm = pcm[n:]
	}
	return out
}

func TestReceiver_DecodesSingleBurstHeader(t *testing.T) {
	header := "ZCZC-WXR-TOR-048151+0030-2130415-KXYZ/NWS-"
	pcm := testgen.Burst(header, testSampleRate)
	pcm = append(pcm, testgen.Silence(0.5, testSampleRate)...)

	r := NewReceiver(testSampleRate)
	msgs := feedInChunks(r, pcm, 2048)

	require.Len(t, msgs, 1)
	assert.Equal(t, KindStartOfMessage, msgs[0].Kind)
	assert.Equal(t, header, msgs[0].Header)
}

func TestReceiver_DecodesEndOfMessage(t *testing.T) {
	pcm := testgen.Burst("NNNN", testSampleRate)
	pcm = append(pcm, testgen.Silence(0.5, testSampleRate)...)

	r := NewReceiver(testSampleRate)
	msgs := feedInChunks(r, pcm, 2048)

	require.Len(t, msgs, 1)
	assert.Equal(t, KindEndOfMessage, msgs[0].Kind)
}

func TestReceiver_RepeatedBurstsDedupToSingleMessage(t *testing.T) {
	header := "ZCZC-WXR-SVR-048151+0030-2130415-KXYZ/NWS-"
	pcm := testgen.RepeatedBursts(header, testSampleRate)

	r := NewReceiver(testSampleRate)
	msgs := feedInChunks(r, pcm, 2048)

	require.Len(t, msgs, 1)
	assert.Equal(t, header, msgs[0].Header)
}

func TestReceiver_ChunkBoundaryDoesNotLoseSamples(t *testing.T) {
	header := "ZCZC-WXR-TOA-048151+0030-2130415-KXYZ/NWS-"
	pcm := testgen.Burst(header, testSampleRate)
	pcm = append(pcm, testgen.Silence(0.5, testSampleRate)...)

	// Feed exactly 2047 samples, then the remainder one at a time for a
	// stretch, then the rest as a single chunk. The receiver must not lose
	// bit-window alignment across arbitrary chunk boundaries.
	r := NewReceiver(testSampleRate)
	var msgs []Message
	msgs = append(msgs, r.Feed(pcm[:2047])...)
	for i := 2047; i < 2047+16; i++ {
		msgs = append(msgs, r.Feed(pcm[i:i+1])...)
	}
	msgs = append(msgs, r.Feed(pcm[2047+16:])...)

	require.Len(t, msgs, 1)
	assert.Equal(t, header, msgs[0].Header)
}

func TestReceiver_IgnoresNonSameNoise(t *testing.T) {
	noise := make([]float32, testSampleRate)
	for i := range noise {
		noise[i] = 0
	}

	r := NewReceiver(testSampleRate)
	msgs := r.Feed(noise)
	assert.Empty(t, msgs)
}

func TestParseHeaderFields(t *testing.T) {
	fields, ok := ParseHeaderFields("ZCZC-WXR-TOR-048151-048153+0030-2130415-KXYZ/NWS-")
	require.True(t, ok)
	assert.Equal(t, "WXR", fields.Originator)
	assert.Equal(t, "TOR", fields.EventCode)
	assert.Equal(t, []string{"048151", "048153"}, fields.FIPS)
	assert.Equal(t, "048151, 048153", fields.Locations)
	assert.Equal(t, 30*60_000_000_000.0, float64(fields.ValidDuration))
}

func TestParseHeaderFields_RejectsMalformed(t *testing.T) {
	_, ok := ParseHeaderFields("NNNN")
	assert.False(t, ok)

	_, ok = ParseHeaderFields("ZCZC-WXR-TOR")
	assert.False(t, ok)
}
