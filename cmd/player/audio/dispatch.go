package audio

import (
	"sync"

	"github.com/gigurra/tunes/cmd/player/engine"
)

// dispatcher delivers device events in order from a single goroutine. emit
// never blocks, so it is safe to call from the audio goroutine while the
// speaker lock is held.
type dispatcher struct {
	mu      sync.Mutex
	queue   []engine.Event
	handler func(engine.Event)

	wake chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

func newDispatcher() *dispatcher {
	d := &dispatcher{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

func (d *dispatcher) setHandler(handler func(engine.Event)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handler = handler
}

func (d *dispatcher) emit(ev engine.Event) {
	d.mu.Lock()
	d.queue = append(d.queue, ev)
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *dispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case <-d.wake:
		case <-d.done:
			return
		}

		d.mu.Lock()
		events := d.queue
		d.queue = nil
		handler := d.handler
		d.mu.Unlock()

		if handler == nil {
			continue
		}
		for _, ev := range events {
			handler(ev)
		}
	}
}

// stop waits for the event being handled, if any, and drops the rest.
func (d *dispatcher) stop() {
	close(d.done)
	d.wg.Wait()
}
