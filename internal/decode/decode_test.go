package decode

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func f32Bytes(v float32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
	return buf
}

func TestDownmix_Mono_PassesThrough(t *testing.T) {
	raw := append(f32Bytes(0.5), f32Bytes(-0.25)...)
	got := downmix(raw, 1)
	assert.Equal(t, []float32{0.5, -0.25}, got)
}

func TestDownmix_Stereo_Averages(t *testing.T) {
	var raw []byte
	raw = append(raw, f32Bytes(1.0)...)
	raw = append(raw, f32Bytes(-1.0)...)
	got := downmix(raw, 2)
	assert.InDelta(t, 0.0, got[0], 1e-6)
}

func TestNew_PicksMP3HintFromContentType(t *testing.T) {
	d := New("audio/mpeg; charset=utf-8")
	assert.Equal(t, "mp3", d.formatHint)

	d2 := New("application/ogg")
	assert.Equal(t, "", d2.formatHint)
}

func TestBannerRate_ParsesStereoAndMono(t *testing.T) {
	m := bannerRate.FindStringSubmatch("Stream #0:0: Audio: mp3, 44100 Hz, stereo, fltp, 128 kb/s")
	assert.Equal(t, "44100", m[1])
	assert.Equal(t, "stereo", m[2])

	m2 := bannerRate.FindStringSubmatch("Stream #0:0: Audio: vorbis, 48000 Hz, mono, fltp")
	assert.Equal(t, "48000", m2[1])
	assert.Equal(t, "mono", m2[2])
}
