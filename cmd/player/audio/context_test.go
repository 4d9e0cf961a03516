package audio

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/gigurra/tunes/cmd/player/engine"
)

func testFilters(gains ...float64) []*engine.EqualizerBandFilter {
	filters := make([]*engine.EqualizerBandFilter, engine.NumBands)
	for i, band := range engine.Bands {
		var g float64
		if i < len(gains) {
			g = gains[i]
		}
		filters[i] = engine.NewBandFilter(band, g)
	}
	return filters
}

func TestProcessingContext_PassThroughUntilConnected(t *testing.T) {
	c := newProcessingContext(DefaultSampleRate, constant(0.1), &sync.Mutex{})

	if got := settle(c)[0]; got != 0.1 {
		t.Fatalf("unconnected output = %v, want 0.1", got)
	}

	if err := c.Connect(testFilters(6)); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	want := 0.1 * math.Pow(10, 6.0/20)
	if got := settle(c)[0]; math.Abs(got-want) > 1e-3 {
		t.Errorf("connected output = %.5f, want %.5f", got, want)
	}

	if err := c.Connect(testFilters()); !errors.Is(err, errAlreadyConnected) {
		t.Errorf("second Connect error = %v, want errAlreadyConnected", err)
	}
}

func TestProcessingContext_SuspendSilences(t *testing.T) {
	c := newProcessingContext(DefaultSampleRate, constant(0.1), &sync.Mutex{})

	c.suspend()
	if !c.Suspended() {
		t.Fatal("Suspended() = false after suspend")
	}
	if got := settle(c)[0]; got != 0 {
		t.Errorf("suspended output = %v, want 0", got)
	}

	if err := c.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if got := settle(c)[0]; got != 0.1 {
		t.Errorf("resumed output = %v, want 0.1", got)
	}
}

func TestProcessingContext_Close(t *testing.T) {
	c := newProcessingContext(DefaultSampleRate, constant(0.1), &sync.Mutex{})
	if err := c.Connect(testFilters(12)); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := settle(c)[0]; got != 0.1 {
		t.Errorf("output after Close = %v, want unfiltered 0.1", got)
	}
	if err := c.Resume(); !errors.Is(err, ErrClosed) {
		t.Errorf("Resume after Close = %v, want ErrClosed", err)
	}
	c.suspend()
	if c.Suspended() {
		t.Error("closed context became suspended")
	}
}
