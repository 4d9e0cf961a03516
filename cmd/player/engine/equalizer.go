package engine

import (
	"fmt"
	"math"
	"strings"
	"sync/atomic"
)

// NumBands is the fixed number of equalizer bands.
const NumBands = 5

// FilterType is the response shape of a band filter.
type FilterType int

const (
	LowShelf FilterType = iota
	Peaking
	HighShelf
)

func (t FilterType) String() string {
	switch t {
	case LowShelf:
		return "lowshelf"
	case Peaking:
		return "peaking"
	case HighShelf:
		return "highshelf"
	default:
		return fmt.Sprintf("filter(%d)", int(t))
	}
}

// Band describes one slot of the equalizer layout.
type Band struct {
	Label     string
	Type      FilterType
	Frequency float64 // Hz
	Q         float64
}

// Bands is the fixed equalizer layout, in signal chain order.
var Bands = [NumBands]Band{
	{Label: "Bass", Type: LowShelf, Frequency: 60, Q: 1},
	{Label: "Low Mid", Type: Peaking, Frequency: 250, Q: 1},
	{Label: "Mid", Type: Peaking, Frequency: 1000, Q: 1},
	{Label: "High Mid", Type: Peaking, Frequency: 4000, Q: 1},
	{Label: "Treble", Type: HighShelf, Frequency: 16000, Q: 1},
}

// FrequencyLabel formats the band frequency as "60 Hz" or "16 kHz".
func (b Band) FrequencyLabel() string {
	if b.Frequency >= 1000 {
		return fmt.Sprintf("%g kHz", b.Frequency/1000)
	}
	return fmt.Sprintf("%g Hz", b.Frequency)
}

// EqualizerBandFilter is the live parameter set of one filter node. Gain is
// read by the audio goroutine on every buffer, so it is stored atomically.
type EqualizerBandFilter struct {
	Type      FilterType
	Frequency float64
	Q         float64
	gain      atomic.Uint64
}

// NewBandFilter creates a filter for band with the given initial gain in dB.
func NewBandFilter(band Band, gain float64) *EqualizerBandFilter {
	f := &EqualizerBandFilter{Type: band.Type, Frequency: band.Frequency, Q: band.Q}
	f.SetGain(gain)
	return f
}

// Gain returns the gain in dB.
func (f *EqualizerBandFilter) Gain() float64 {
	return math.Float64frombits(f.gain.Load())
}

// SetGain sets the gain in dB. No range is enforced here.
func (f *EqualizerBandFilter) SetGain(db float64) {
	f.gain.Store(math.Float64bits(db))
}

// Equalizer is the constructed signal chain: a processing context and the
// band filters wired through it.
type Equalizer struct {
	ctx     ProcessingContext
	filters [NumBands]*EqualizerBandFilter
}

// buildEqualizer opens a processing context on device and wires the five band
// filters in series, seeding each filter from gains.
func buildEqualizer(device Device, gains [NumBands]float64) (*Equalizer, error) {
	ctx, err := device.OpenContext()
	if err != nil {
		return nil, fmt.Errorf("open processing context: %w", err)
	}

	eq := &Equalizer{ctx: ctx}
	chain := make([]*EqualizerBandFilter, NumBands)
	for i, band := range Bands {
		eq.filters[i] = NewBandFilter(band, gains[i])
		chain[i] = eq.filters[i]
	}

	if err := ctx.Connect(chain); err != nil {
		_ = ctx.Close()
		return nil, fmt.Errorf("connect equalizer chain: %w", err)
	}
	return eq, nil
}

// Preset is a named set of band gains.
type Preset struct {
	Name  string
	Gains [NumBands]float64
}

// Presets are the built-in equalizer presets.
var Presets = []Preset{
	{Name: "Flat", Gains: [NumBands]float64{0, 0, 0, 0, 0}},
	{Name: "Bass Boost", Gains: [NumBands]float64{6, 4, 0, 0, 0}},
	{Name: "Treble Boost", Gains: [NumBands]float64{0, 0, 0, 4, 6}},
	{Name: "Rock", Gains: [NumBands]float64{4, 2, -1, 3, 4}},
	{Name: "Pop", Gains: [NumBands]float64{-1, 2, 4, 2, -1}},
	{Name: "Jazz", Gains: [NumBands]float64{3, 0, 2, 3, 4}},
	{Name: "Electronic", Gains: [NumBands]float64{5, 3, 0, 2, 4}},
	{Name: "Classical", Gains: [NumBands]float64{0, 0, 0, 2, 3}},
}

// PresetByName looks up a preset ignoring case, spaces, dashes and underscores,
// so "bass-boost" finds "Bass Boost".
func PresetByName(name string) (Preset, error) {
	key := normalizePresetName(name)
	for _, p := range Presets {
		if normalizePresetName(p.Name) == key {
			return p, nil
		}
	}
	return Preset{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
}

func normalizePresetName(s string) string {
	return strings.NewReplacer(" ", "", "-", "", "_", "").Replace(strings.ToLower(s))
}
