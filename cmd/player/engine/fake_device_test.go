package engine

import (
	"errors"
	"sync"
)

// fakeDevice records commands and lets tests emit device events.
type fakeDevice struct {
	mu sync.Mutex

	handler    func(Event)
	loaded     []string
	generation uint64
	plays      int
	pauses     int
	seeks      []float64
	volume     float64
	muted      bool
	playErr    error
	loadErr    error
	openErr    error
	contexts   int
	ctx        *fakeContext
	closed     bool

	// beforeLoad runs at the start of Load without d.mu, like a download.
	beforeLoad func(src string)
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{}
}

func (d *fakeDevice) Load(src string, generation uint64) error {
	d.mu.Lock()
	hook := d.beforeLoad
	d.mu.Unlock()
	if hook != nil {
		hook(src)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.loadErr != nil {
		return d.loadErr
	}
	if generation < d.generation {
		return errors.New("superseded")
	}
	d.loaded = append(d.loaded, src)
	d.generation = generation
	return nil
}

func (d *fakeDevice) Play() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.plays++
	return d.playErr
}

func (d *fakeDevice) Pause() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pauses++
}

func (d *fakeDevice) Seek(seconds float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seeks = append(d.seeks, seconds)
}

func (d *fakeDevice) SetVolume(volume float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.volume = volume
}

func (d *fakeDevice) SetMuted(muted bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.muted = muted
}

func (d *fakeDevice) OnEvent(handler func(Event)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handler = handler
}

func (d *fakeDevice) OpenContext() (ProcessingContext, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.openErr != nil {
		return nil, d.openErr
	}
	d.contexts++
	d.ctx = &fakeContext{}
	return d.ctx, nil
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// emit delivers ev for the most recently loaded source.
func (d *fakeDevice) emit(ev Event) {
	d.mu.Lock()
	ev.Generation = d.generation
	h := d.handler
	d.mu.Unlock()
	h(ev)
}

// emitStale delivers ev tagged with an explicit generation.
func (d *fakeDevice) emitStale(ev Event, generation uint64) {
	d.mu.Lock()
	ev.Generation = generation
	h := d.handler
	d.mu.Unlock()
	h(ev)
}

func (d *fakeDevice) currentGeneration() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.generation
}

func (d *fakeDevice) lastSeek() (float64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.seeks) == 0 {
		return 0, false
	}
	return d.seeks[len(d.seeks)-1], true
}

type fakeContext struct {
	connects  int
	filters   []*EqualizerBandFilter
	suspended bool
	resumes   int
	closed    bool
}

func (c *fakeContext) Connect(filters []*EqualizerBandFilter) error {
	if c.connects > 0 {
		return errors.New("already connected")
	}
	c.connects++
	c.filters = filters
	return nil
}

func (c *fakeContext) Resume() error {
	c.resumes++
	c.suspended = false
	return nil
}

func (c *fakeContext) Suspended() bool { return c.suspended }

func (c *fakeContext) Close() error {
	c.closed = true
	return nil
}
