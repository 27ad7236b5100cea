// Package testgen synthesizes SAME AFSK bursts for use in tests. It is a
// direct port of original_source/src/header.rs's tone generator: the same
// mark/space frequencies, bit duration, preamble byte and burst repeat
// count, run here in the encode direction so internal/same's receiver can
// be exercised end-to-end without real-world audio fixtures.
package testgen

import "math"

const (
	markFreq       = 2083.3
	spaceFreq      = 1562.5
	bitDurationSec = 0.00192
	preambleByte   = 0xD5
	preambleCount  = 16
	burstCount     = 3
)

// byteToBitsMSBFirst returns b's bits, most significant first — the order
// header.rs uses for the preamble byte.
func byteToBitsMSBFirst(b byte) [8]int {
	var bits [8]int
	for i := 0; i < 8; i++ {
		bits[i] = int((b >> uint(7-i)) & 1)
	}
	return bits
}

// byteToBitsLSBFirst returns b's bits, least significant first — the order
// header.rs uses for payload characters.
func byteToBitsLSBFirst(b byte) [8]int {
	var bits [8]int
	for i := 0; i < 8; i++ {
		bits[i] = int((b >> uint(i)) & 1)
	}
	return bits
}

// BuildBits returns the full transmission bit sequence for one burst of
// header: preambleCount repeats of the preamble byte (MSB-first) followed
// by header's characters (LSB-first), matching build_same_bits in
// header.rs.
func BuildBits(header string) []int {
	var bits []int
	for i := 0; i < preambleCount; i++ {
		b := byteToBitsMSBFirst(preambleByte)
		bits = append(bits, b[:]...)
	}
	for _, ch := range []byte(header) {
		b := byteToBitsLSBFirst(ch)
		bits = append(bits, b[:]...)
	}
	return bits
}

// ToneCycle renders bits as mark/space PCM at sampleRate, one bit value
// (1=mark, 0=space) mapped to one bit-duration-length tone, matching
// make_tone_cycle in header.rs.
func ToneCycle(bits []int, sampleRate int) []float32 {
	samplesPerBit := int(float64(sampleRate) * bitDurationSec)
	out := make([]float32, 0, samplesPerBit*len(bits))
	for _, bit := range bits {
		freq := spaceFreq
		if bit == 1 {
			freq = markFreq
		}
		for n := 0; n < samplesPerBit; n++ {
			t := float64(n) / float64(sampleRate)
			out = append(out, float32(math.Sin(2*math.Pi*freq*t)))
		}
	}
	return out
}

// Silence returns seconds worth of zero-valued PCM at sampleRate.
func Silence(seconds float64, sampleRate int) []float32 {
	return make([]float32, int(seconds*float64(sampleRate)))
}

// Burst renders a single preamble+header tone burst at sampleRate.
func Burst(header string, sampleRate int) []float32 {
	return ToneCycle(BuildBits(header), sampleRate)
}

// RepeatedBursts renders the standard burstCount repeated transmission of
// header, each burst separated by a second of silence, matching
// header.rs's overall generation shape.
func RepeatedBursts(header string, sampleRate int) []float32 {
	var out []float32
	for i := 0; i < burstCount; i++ {
		out = append(out, Burst(header, sampleRate)...)
		out = append(out, Silence(1, sampleRate)...)
	}
	return out
}
