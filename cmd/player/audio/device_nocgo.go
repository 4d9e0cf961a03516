//go:build !((linux && cgo) || windows || darwin)

package audio

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gopxl/beep/v2"

	"github.com/gigurra/tunes/cmd/player/engine"
)

// Available indicates whether audio output is supported in this build.
// Audio requires CGO for native sound libraries on Linux.
const Available = false

// Device is a silent stand-in for builds without cgo. It decodes sources to
// report their length and answers commands with the matching events, but
// never produces sound and never reaches the end of a track.
type Device struct {
	mu sync.Mutex

	client *http.Client
	logger *slog.Logger

	source     *switchSource
	procCtx    *processingContext
	ctxOpened  bool
	generation uint64
	playing    bool
	closed     bool

	dispatch  *dispatcher
	closeOnce sync.Once
}

var _ engine.Device = (*Device)(nil)

// New creates the silent device.
func New(opts ...Option) (*Device, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	d := &Device{
		client:   o.client,
		logger:   o.logger,
		dispatch: newDispatcher(),
	}
	d.source = newSwitchSource(o.sampleRate, nil)
	d.procCtx = newProcessingContext(o.sampleRate, d.source, &sync.Mutex{})
	return d, nil
}

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

	if old := d.source.swap(stream, format, generation); old != nil {
		_ = old.Close()
	}
	d.generation = generation
	d.playing = false
	d.logger.Debug("loaded source without audio output", "src", src)
	d.dispatch.emit(engine.Event{Kind: engine.EventLoadedMetadata, Generation: generation, Duration: d.source.length()})
	return nil
}

func (d *Device) Play() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if !d.source.loaded() {
		return ErrNoSource
	}
	d.playing = true
	d.dispatch.emit(engine.Event{Kind: engine.EventPlaying, Generation: d.generation})
	return nil
}

func (d *Device) Pause() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.playing {
		d.playing = false
		d.dispatch.emit(engine.Event{Kind: engine.EventPaused, Generation: d.generation})
	}
}

func (d *Device) Seek(seconds float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.source.seek(seconds); err != nil {
		d.dispatch.emit(engine.Event{Kind: engine.EventError, Generation: d.generation, Err: err})
		return
	}
	d.dispatch.emit(engine.Event{Kind: engine.EventTimeUpdate, Generation: d.generation, Time: d.source.position()})
}

func (d *Device) SetVolume(float64) {}

func (d *Device) SetMuted(bool) {}

func (d *Device) OnEvent(handler func(engine.Event)) {
	d.dispatch.setHandler(handler)
}

func (d *Device) OpenContext() (engine.ProcessingContext, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ctxOpened && !d.procCtx.closed.Load() {
		return nil, ErrContextOpen
	}
	d.procCtx.closed.Store(false)
	d.ctxOpened = true
	return d.procCtx, nil
}

func (d *Device) Close() error {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		old := d.source.swap(nil, beep.Format{}, 0)
		d.mu.Unlock()
		if old != nil {
			_ = old.Close()
		}
		d.dispatch.stop()
	})
	return nil
}
