package audio

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"

	"github.com/gigurra/tunes/cmd/player/engine"
)

var errAlreadyConnected = errors.New("equalizer chain already connected")

// processingContext sits between the media source and the output. Until
// Connect is called it passes the source through unchanged; afterwards the
// source runs through the band filters in order. While suspended the source
// keeps advancing but nothing reaches the output.
type processingContext struct {
	sr     beep.SampleRate
	locker sync.Locker // guards chain against the audio goroutine

	source    beep.Streamer
	chain     beep.Streamer
	suspended atomic.Bool
	closed    atomic.Bool
}

var _ engine.ProcessingContext = (*processingContext)(nil)

func newProcessingContext(sr beep.SampleRate, source beep.Streamer, locker sync.Locker) *processingContext {
	return &processingContext{sr: sr, source: source, locker: locker}
}

func (c *processingContext) Connect(filters []*engine.EqualizerBandFilter) error {
	if c.closed.Load() {
		return ErrClosed
	}

	c.locker.Lock()
	defer c.locker.Unlock()

	if c.chain != nil {
		return errAlreadyConnected
	}
	s := c.source
	for _, f := range filters {
		s = newBiquad(s, f, c.sr)
	}
	c.chain = s
	return nil
}

func (c *processingContext) Resume() error {
	if c.closed.Load() {
		return ErrClosed
	}
	c.suspended.Store(false)
	return nil
}

func (c *processingContext) suspend() {
	if !c.closed.Load() {
		c.suspended.Store(true)
	}
}

func (c *processingContext) Suspended() bool {
	return c.suspended.Load()
}

// Close disconnects the filters. The source keeps playing unfiltered.
func (c *processingContext) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.locker.Lock()
	c.chain = nil
	c.locker.Unlock()
	c.suspended.Store(false)
	return nil
}

// Stream is called with the locker held.
func (c *processingContext) Stream(samples [][2]float64) (int, bool) {
	s := c.source
	if c.chain != nil {
		s = c.chain
	}
	n, ok := s.Stream(samples)
	if c.suspended.Load() {
		clear(samples[:n])
	}
	return n, ok
}

func (c *processingContext) Err() error {
	return c.source.Err()
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
