package audio

import (
	"math"
)

// toneAmplitude keeps the beep below full scale.
const toneAmplitude = 0.3

// sine is an endless 16-bit little-endian stereo sine wave.
type sine struct {
	freq float64
	rate int
	pos  int64
}

func newSine(freq float64, rate int) *sine {
	return &sine{freq: freq, rate: rate}
}

func (s *sine) Read(p []byte) (int, error) {
	n := len(p) / 4 * 4
	for i := 0; i < n; i += 4 {
		phase := 2 * math.Pi * s.freq * float64(s.pos) / float64(s.rate)
		v := int16(math.Sin(phase) * toneAmplitude * math.MaxInt16)
		s.pos++
		p[i+0] = byte(v)
		p[i+1] = byte(v >> 8)
		p[i+2] = byte(v)
		p[i+3] = byte(v >> 8)
	}
	return n, nil
}
