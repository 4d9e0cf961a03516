//go:build (linux && cgo) || windows || darwin

package audio

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"

	"github.com/gigurra/tunes/cmd/player/engine"
)

// Available indicates whether audio output is supported in this build.
const Available = true

// Device plays audio through the system speaker using beep.
//
//	[Decode] -> [Resample] -> [Band filters] -> [Volume] -> [Ctrl] -> [Speaker]
//
// Locks are always taken in the order d.mu, then the speaker lock.
type Device struct {
	mu sync.Mutex

	sr     beep.SampleRate
	client *http.Client
	logger *slog.Logger

	source     *switchSource
	procCtx    *processingContext
	ctxOpened  bool
	volume     *effects.Volume
	ctrl       *beep.Ctrl
	level      float64
	muted      bool
	playing    atomic.Bool
	generation atomic.Uint64

	dispatch  *dispatcher
	stopTick  chan struct{}
	closeOnce sync.Once
	closed    bool
}

var _ engine.Device = (*Device)(nil)

// New initializes the speaker and starts the output pipeline, paused.
func New(opts ...Option) (*Device, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if err := speaker.Init(o.sampleRate, o.sampleRate.N(time.Second/10)); err != nil {
		return nil, fmt.Errorf("init speaker: %w", err)
	}

	d := &Device{
		sr:       o.sampleRate,
		client:   o.client,
		logger:   o.logger,
		level:    1,
		dispatch: newDispatcher(),
		stopTick: make(chan struct{}),
	}
	d.ctrl = &beep.Ctrl{Paused: true}
	d.source = newSwitchSource(d.sr, pauseOnEnded(d.ctrl, d.onEnded))
	d.procCtx = newProcessingContext(d.sr, d.source, speakerLocker{})
	d.volume = &effects.Volume{Streamer: d.procCtx, Base: 2}
	d.ctrl.Streamer = d.volume

	speaker.Play(d.ctrl)
	go d.tick(o.tickInterval)
	return d, nil
}

// Load replaces the current source with src and leaves the device paused.
// Reading and decoding happen before d.mu is taken, so a slow download does
// not block the other methods. A load that lands after a newer generation
// fails with ErrSuperseded.
func (d *Device) Load(src string, generation uint64) error {
	data, ext, err := readSource(context.Background(), d.client, src)
	if err != nil {
		return fmt.Errorf("load %s: %w", src, err)
	}
	stream, format, err := decode(data, ext)
	if err != nil {
		return fmt.Errorf("load %s: %w", src, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		_ = stream.Close()
		return ErrClosed
	}
	if generation < d.generation.Load() {
		_ = stream.Close()
		return ErrSuperseded
	}

	d.playing.Store(false)
	d.generation.Store(generation)

	speaker.Lock()
	d.ctrl.Paused = true
	old := d.source.swap(stream, format, generation)
	length := d.source.length()
	speaker.Unlock()

	if old != nil {
		_ = old.Close()
	}
	d.logger.Debug("loaded source", "src", src, "duration", length, "generation", generation)
	d.dispatch.emit(engine.Event{Kind: engine.EventLoadedMetadata, Generation: generation, Duration: length})
	return nil
}

// Play starts or resumes the loaded source. A source that has ended starts
// over from the beginning.
func (d *Device) Play() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}

	speaker.Lock()
	if !d.source.loaded() {
		speaker.Unlock()
		return ErrNoSource
	}
	if d.source.ended {
		if err := d.source.seek(0); err != nil {
			speaker.Unlock()
			return fmt.Errorf("rewind: %w", err)
		}
	}
	d.ctrl.Paused = false
	speaker.Unlock()

	d.playing.Store(true)
	d.dispatch.emit(engine.Event{Kind: engine.EventPlaying, Generation: d.generation.Load()})
	return nil
}

// Pause stops output and suspends the processing context.
func (d *Device) Pause() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}

	speaker.Lock()
	d.ctrl.Paused = true
	speaker.Unlock()
	if d.ctxOpened {
		d.procCtx.suspend()
	}

	if d.playing.Swap(false) {
		d.dispatch.emit(engine.Event{Kind: engine.EventPaused, Generation: d.generation.Load()})
	}
}

// Seek moves the playback position. Out of range values are clamped.
func (d *Device) Seek(seconds float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}

	speaker.Lock()
	err := d.source.seek(seconds)
	pos := d.source.position()
	speaker.Unlock()

	gen := d.generation.Load()
	if err != nil {
		d.dispatch.emit(engine.Event{Kind: engine.EventError, Generation: gen, Err: fmt.Errorf("seek: %w", err)})
		return
	}
	d.dispatch.emit(engine.Event{Kind: engine.EventTimeUpdate, Generation: gen, Time: pos})
}

// SetVolume sets the linear output level in [0, 1].
func (d *Device) SetVolume(volume float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.level = max(0, min(volume, 1))
	d.applyVolumeLocked()
}

func (d *Device) SetMuted(muted bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.muted = muted
	d.applyVolumeLocked()
}

func (d *Device) applyVolumeLocked() {
	speaker.Lock()
	defer speaker.Unlock()
	d.volume.Silent = d.muted || d.level == 0
	if d.level > 0 {
		d.volume.Volume = math.Log2(d.level)
	}
}

func (d *Device) OnEvent(handler func(engine.Event)) {
	d.dispatch.setHandler(handler)
}

// OpenContext returns the processing context. Only one can be open at a
// time; a closed context may be opened again.
func (d *Device) OpenContext() (engine.ProcessingContext, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrClosed
	}
	if d.ctxOpened && !d.procCtx.closed.Load() {
		return nil, ErrContextOpen
	}
	d.procCtx.closed.Store(false)
	d.ctxOpened = true
	return d.procCtx, nil
}

// Close stops playback and releases the speaker.
func (d *Device) Close() error {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.stopTick)

		speaker.Lock()
		d.ctrl.Paused = true
		old := d.source.swap(nil, beep.Format{}, 0)
		speaker.Unlock()
		speaker.Clear()
		d.mu.Unlock()

		if old != nil {
			_ = old.Close()
		}
		d.dispatch.stop()
	})
	return nil
}

// onEnded runs on the audio goroutine with the speaker lock held, after the
// output has been paused.
func (d *Device) onEnded(generation uint64) {
	d.playing.Store(false)
	d.dispatch.emit(engine.Event{Kind: engine.EventEnded, Generation: generation})
}

func (d *Device) tick(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stopTick:
			return
		case <-ticker.C:
		}

		if !d.playing.Load() {
			continue
		}
		speaker.Lock()
		pos := d.source.position()
		gen := d.source.generation
		speaker.Unlock()
		d.dispatch.emit(engine.Event{Kind: engine.EventTimeUpdate, Generation: gen, Time: pos})
	}
}

// speakerLocker adapts the global speaker lock to sync.Locker.
type speakerLocker struct{}

func (speakerLocker) Lock()   { speaker.Lock() }
func (speakerLocker) Unlock() { speaker.Unlock() }
