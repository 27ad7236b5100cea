package resample

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResampler_UpsamplesToExpectedLength(t *testing.T) {
	const inRate = 44100
	const outRate = 48000

	in := make([]float32, inRate) // 1 second of input
	for i := range in {
		in[i] = float32(math.Sin(2 * math.Pi * 440 * float64(i) / inRate))
	}

	r := New(inRate, outRate)
	out := r.Process(in)

	// Allow generous tolerance: the resampler streams and the tail stays
	// buffered as history, so one call never yields the full ratio'd length.
	ratio := float64(outRate) / float64(inRate)
	expected := float64(len(in)) * ratio
	assert.InDelta(t, expected, float64(len(out)), expected*0.05)
}

func TestResampler_PreservesToneFrequency(t *testing.T) {
	const inRate = 22050
	const outRate = 48000
	const freq = 1000.0

	in := make([]float32, inRate*2)
	for i := range in {
		in[i] = float32(math.Sin(2 * math.Pi * freq * float64(i) / inRate))
	}

	r := New(inRate, outRate)
	out := r.Process(in)
	assert.NotEmpty(t, out)

	// Input and output both span the same two seconds, so the zero-crossing
	// count of the resampled signal should match the input's, confirming the
	// dominant frequency survived resampling rather than being aliased away.
	countCrossings := func(x []float32) int {
		n := 0
		for i := 1; i < len(x); i++ {
			if (x[i-1] < 0) != (x[i] < 0) {
				n++
			}
		}
		return n
	}
	crossings := countCrossings(out)
	assert.Greater(t, crossings, 0)
	assert.InEpsilon(t, float64(countCrossings(in)), float64(crossings), 0.05)
}

func TestResampler_StreamingAcrossCallsStaysContinuous(t *testing.T) {
	const rate = 48000
	r := New(rate, rate)

	chunk := make([]float32, 2048)
	for i := range chunk {
		chunk[i] = float32(math.Sin(2 * math.Pi * 300 * float64(i) / rate))
	}

	total := 0
	for i := 0; i < 5; i++ {
		out := r.Process(chunk)
		total += len(out)
	}
	assert.Greater(t, total, 0)
	// At a 1:1 ratio no sample is lost or duplicated at the call boundaries.
	assert.Equal(t, 5*len(chunk), total)
}
