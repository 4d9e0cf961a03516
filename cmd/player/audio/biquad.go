package audio

import (
	"math"

	"github.com/gopxl/beep/v2"

	"github.com/gigurra/tunes/cmd/player/engine"
)

// biquad is a second-order IIR filter from the Audio EQ Cookbook. The gain is
// read from the band filter on every Stream call, so changes apply on the
// next buffer without rebuilding the chain.
type biquad struct {
	s      beep.Streamer
	filter *engine.EqualizerBandFilter
	sr     float64

	// Per-channel filter state
	x1, x2 [2]float64
	y1, y2 [2]float64

	lastGain           float64
	inited             bool
	b0, b1, b2, a1, a2 float64
}

func newBiquad(s beep.Streamer, filter *engine.EqualizerBandFilter, sr beep.SampleRate) *biquad {
	return &biquad{s: s, filter: filter, sr: float64(sr)}
}

func (b *biquad) calcCoeffs(dB float64) {
	if b.inited && dB == b.lastGain {
		return
	}
	b.lastGain = dB
	b.inited = true

	a := math.Pow(10, dB/40)
	w0 := 2 * math.Pi * b.filter.Frequency / b.sr
	cosW0 := math.Cos(w0)
	sinW0 := math.Sin(w0)

	var b0, b1, b2, a0, a1, a2 float64
	switch b.filter.Type {
	case engine.LowShelf, engine.HighShelf:
		// Shelf slope S = 1
		alpha := sinW0 / 2 * math.Sqrt2
		sqrtA2 := 2 * math.Sqrt(a) * alpha
		if b.filter.Type == engine.LowShelf {
			b0 = a * ((a + 1) - (a-1)*cosW0 + sqrtA2)
			b1 = 2 * a * ((a - 1) - (a+1)*cosW0)
			b2 = a * ((a + 1) - (a-1)*cosW0 - sqrtA2)
			a0 = (a + 1) + (a-1)*cosW0 + sqrtA2
			a1 = -2 * ((a - 1) + (a+1)*cosW0)
			a2 = (a + 1) + (a-1)*cosW0 - sqrtA2
		} else {
			b0 = a * ((a + 1) + (a-1)*cosW0 + sqrtA2)
			b1 = -2 * a * ((a - 1) + (a+1)*cosW0)
			b2 = a * ((a + 1) + (a-1)*cosW0 - sqrtA2)
			a0 = (a + 1) - (a-1)*cosW0 + sqrtA2
			a1 = 2 * ((a - 1) - (a+1)*cosW0)
			a2 = (a + 1) - (a-1)*cosW0 - sqrtA2
		}
	default:
		alpha := sinW0 / (2 * b.filter.Q)
		b0 = 1 + alpha*a
		b1 = -2 * cosW0
		b2 = 1 - alpha*a
		a0 = 1 + alpha/a
		a1 = -2 * cosW0
		a2 = 1 - alpha/a
	}

	b.b0 = b0 / a0
	b.b1 = b1 / a0
	b.b2 = b2 / a0
	b.a1 = a1 / a0
	b.a2 = a2 / a0
}

func (b *biquad) Stream(samples [][2]float64) (int, bool) {
	n, ok := b.s.Stream(samples)
	dB := b.filter.Gain()

	if dB == 0 {
		// Unity: pass through but keep the history warm
		for i := range n {
			for ch := range 2 {
				x := samples[i][ch]
				b.x2[ch], b.x1[ch] = b.x1[ch], x
				b.y2[ch], b.y1[ch] = b.y1[ch], x
			}
		}
		return n, ok
	}

	b.calcCoeffs(dB)
	for i := range n {
		for ch := range 2 {
			x := samples[i][ch]
			y := b.b0*x + b.b1*b.x1[ch] + b.b2*b.x2[ch] - b.a1*b.y1[ch] - b.a2*b.y2[ch]
			b.x2[ch] = b.x1[ch]
			b.x1[ch] = x
			b.y2[ch] = b.y1[ch]
			b.y1[ch] = y
			samples[i][ch] = y
		}
	}
	return n, ok
}

func (b *biquad) Err() error { return b.s.Err() }
