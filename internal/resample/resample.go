// Package resample implements a fixed-ratio sinc resampler for the Audio
// Decoder pipeline. It is a direct translation of the parameters
// original_source/src/audio.rs configures for rubato::SincFixedIn (sinc
// length 256, cutoff 0.95, oversampling 256, Blackman-Harris window) — no
// library in the example pack exposes a verified equivalent Go API, so
// this is hand-written rather than imported; see DESIGN.md.
package resample

import "math"

const (
	sincLength  = 256
	cutoff      = 0.95
	oversample  = 256
	halfSinc    = sincLength / 2
)

// Resampler converts mono PCM from one fixed input rate to a fixed output
// rate using a windowed-sinc interpolation kernel table, matching the
// rubato::SincFixedIn configuration audio.rs builds lazily per connection.
type Resampler struct {
	ratio   float64 // outputRate / inputRate
	table   []float64
	history []float64 // trailing samples carried across Process calls
	pos     float64    // fractional input-sample position of the next output sample
}

// New builds a Resampler converting inputRate Hz mono PCM to outputRate Hz.
func New(inputRate, outputRate int) *Resampler {
	r := &Resampler{
		ratio:   float64(outputRate) / float64(inputRate),
		table:   buildSincTable(),
		history: make([]float64, sincLength),
	}
	return r
}

// Process resamples in and returns the produced output samples. Samples
// needed from the next call (the interpolation kernel's tail) are retained
// internally, mirroring rubato's internal buffering so callers can simply
// stream successive decoded chunks through Process.
func (r *Resampler) Process(in []float32) []float32 {
	buf := make([]float64, 0, len(r.history)+len(in))
	buf = append(buf, r.history...)
	for _, s := range in {
		buf = append(buf, float64(s))
	}

	var out []float32
	// Leave halfSinc samples at the tail unconsumed so the kernel always has
	// a symmetric window available; they become next call's history.
	limit := float64(len(buf) - halfSinc)
	step := 1.0 / r.ratio

	if r.pos < halfSinc {
		r.pos = halfSinc
	}
	for r.pos < limit {
		out = append(out, float32(r.interpolate(buf, r.pos)))
		r.pos += step
	}

	consumed := 0
	if len(buf) > sincLength {
		consumed = len(buf) - sincLength
		r.pos -= float64(consumed)
	}
	r.history = append(r.history[:0], buf[consumed:]...)

	return out
}

func (r *Resampler) interpolate(buf []float64, center float64) float64 {
	base := int(math.Floor(center))
	frac := center - float64(base)

	var acc float64
	for tap := -halfSinc + 1; tap <= halfSinc; tap++ {
		idx := base + tap
		if idx < 0 || idx >= len(buf) {
			continue
		}
		x := float64(tap) - frac
		acc += buf[idx] * sincKernel(x, r.table)
	}
	return acc
}

// sincKernel evaluates the windowed sinc function at offset x using the
// oversampled lookup table built by buildSincTable, matching rubato's
// precomputed-table interpolation strategy.
func sincKernel(x float64, table []float64) float64 {
	ax := math.Abs(x)
	if ax >= halfSinc {
		return 0
	}
	idx := ax * oversample
	i0 := int(idx)
	i1 := i0 + 1
	frac := idx - float64(i0)
	if i1 >= len(table) {
		i1 = len(table) - 1
	}
	return table[i0]*(1-frac) + table[i1]*frac
}

// buildSincTable precomputes the windowed-sinc kernel over [0, halfSinc)
// at oversample resolution, using a Blackman-Harris window as configured
// for rubato's WindowFunction::BlackmanHarris2.
func buildSincTable() []float64 {
	n := halfSinc * oversample
	table := make([]float64, n+1)
	for i := 0; i <= n; i++ {
		x := float64(i) / float64(oversample)
		table[i] = sinc(x*cutoff) * cutoff * blackmanHarris(x, halfSinc)
	}
	return table
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	px := math.Pi * x
	return math.Sin(px) / px
}

// blackmanHarris evaluates the 4-term Blackman-Harris window at x over a
// half-window of width halfWidth, matching the two-sided symmetric window
// rubato applies to the sinc kernel.
func blackmanHarris(x, halfWidth float64) float64 {
	const (
		a0 = 0.35875
		a1 = 0.48829
		a2 = 0.14128
		a3 = 0.01168
	)
	// Map x in [0, halfWidth) to the right half of a window spanning
	// [-halfWidth, halfWidth).
	n := x + halfWidth
	total := 2 * halfWidth
	theta := 2 * math.Pi * n / total
	return a0 - a1*math.Cos(theta) + a2*math.Cos(2*theta) - a3*math.Cos(3*theta)
}
