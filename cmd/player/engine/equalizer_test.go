package engine

import (
	"errors"
	"math/rand"
	"testing"
)

func TestPresetByName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Flat", "Flat"},
		{"rock", "Rock"},
		{"bass-boost", "Bass Boost"},
		{"TREBLE_BOOST", "Treble Boost"},
		{"electronic", "Electronic"},
	}

	for _, tt := range tests {
		p, err := PresetByName(tt.input)
		if err != nil {
			t.Errorf("PresetByName(%q) returned error: %v", tt.input, err)
			continue
		}
		if p.Name != tt.want {
			t.Errorf("PresetByName(%q) = %q, want %q", tt.input, p.Name, tt.want)
		}
	}

	if _, err := PresetByName("dubstep"); !errors.Is(err, ErrUnknownPreset) {
		t.Errorf("PresetByName(dubstep) error = %v, want ErrUnknownPreset", err)
	}
}

func TestBandFrequencyLabel(t *testing.T) {
	want := []string{"60 Hz", "250 Hz", "1 kHz", "4 kHz", "16 kHz"}
	for i, band := range Bands {
		if got := band.FrequencyLabel(); got != want[i] {
			t.Errorf("Bands[%d].FrequencyLabel() = %q, want %q", i, got, want[i])
		}
	}
}

func TestBandFilterGain(t *testing.T) {
	f := NewBandFilter(Bands[2], 3)
	if f.Gain() != 3 {
		t.Errorf("Gain() = %v, want 3", f.Gain())
	}
	f.SetGain(-24)
	if f.Gain() != -24 {
		t.Errorf("Gain() = %v, want -24 (no clamping)", f.Gain())
	}
}

func TestRepeatModeNext(t *testing.T) {
	tests := []struct {
		mode RepeatMode
		want RepeatMode
	}{
		{RepeatOff, RepeatAll},
		{RepeatAll, RepeatOne},
		{RepeatOne, RepeatOff},
		{RepeatMode("bogus"), RepeatOff},
	}
	for _, tt := range tests {
		if got := tt.mode.Next(); got != tt.want {
			t.Errorf("%q.Next() = %q, want %q", tt.mode, got, tt.want)
		}
	}

	mode := RepeatAll
	for i := 0; i < 3; i++ {
		mode = mode.Next()
	}
	if mode != RepeatAll {
		t.Errorf("three cycles from all ended at %q", mode)
	}
}

func TestParseRepeatMode(t *testing.T) {
	for _, s := range []string{"off", "all", "one"} {
		mode, err := ParseRepeatMode(s)
		if err != nil || string(mode) != s {
			t.Errorf("ParseRepeatMode(%q) = %q, %v", s, mode, err)
		}
	}
	if _, err := ParseRepeatMode("twice"); !errors.Is(err, ErrInvalidRepeatMode) {
		t.Errorf("ParseRepeatMode(twice) error = %v, want ErrInvalidRepeatMode", err)
	}
}

func TestShuffleTracks_LeavesInputUntouched(t *testing.T) {
	in := []Track{trackA, trackB, trackC}
	out := shuffleTracks(rand.New(rand.NewSource(7)), in)

	if in[0].ID != "a" || in[1].ID != "b" || in[2].ID != "c" {
		t.Errorf("input reordered to %v", trackIDs(in))
	}
	if !sameMultiset(in, out) {
		t.Errorf("shuffle output %v is not a permutation", trackIDs(out))
	}
	if shuffleTracks(rand.New(rand.NewSource(7)), nil) != nil {
		t.Error("shuffling nil should return nil")
	}
}

func TestShuffleTracks_Uniform(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	in := []Track{trackA, trackB, trackC}
	counts := map[string]int{}

	const rounds = 6000
	for i := 0; i < rounds; i++ {
		out := shuffleTracks(r, in)
		counts[out[0].ID+out[1].ID+out[2].ID]++
	}

	if len(counts) != 6 {
		t.Fatalf("saw %d permutations, want 6", len(counts))
	}
	for perm, n := range counts {
		// expected 1000 each
		if n < 850 || n > 1150 {
			t.Errorf("permutation %s seen %d times, want about %d", perm, n, rounds/6)
		}
	}
}
