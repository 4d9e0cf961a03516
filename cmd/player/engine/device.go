package engine

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRepeatMode = errors.New("invalid repeat mode: must be off, all or one")
	ErrUnknownPreset     = errors.New("unknown equalizer preset")
)

// EventKind identifies an asynchronous notification from the output device.
type EventKind int

const (
	EventTimeUpdate EventKind = iota
	EventLoadedMetadata
	EventEnded
	EventPlaying
	EventPaused
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventTimeUpdate:
		return "timeupdate"
	case EventLoadedMetadata:
		return "loadedmetadata"
	case EventEnded:
		return "ended"
	case EventPlaying:
		return "playing"
	case EventPaused:
		return "paused"
	case EventError:
		return "error"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is emitted by a Device. Generation is the value passed to the Load
// call of the source the event belongs to.
type Event struct {
	Kind       EventKind
	Generation uint64
	Time       float64 // EventTimeUpdate: position in seconds
	Duration   float64 // EventLoadedMetadata: length in seconds
	Err        error   // EventError
}

// Device is the single audio output the controller drives. Commands are
// fire-and-forget; feedback arrives as events on the registered handler.
// Handlers may be invoked from any goroutine but never concurrently.
type Device interface {
	// Load replaces the current source. Events caused by this source carry
	// generation. Load may be called concurrently; a load that finishes after
	// one with a newer generation must not replace it.
	Load(src string, generation uint64) error
	Play() error
	Pause()
	Seek(seconds float64)
	SetVolume(volume float64)
	SetMuted(muted bool)
	OnEvent(handler func(Event))
	// OpenContext creates the processing context bound to the device's media source.
	OpenContext() (ProcessingContext, error)
	Close() error
}

// ProcessingContext routes the device's media source through a filter chain.
type ProcessingContext interface {
	// Connect wires source -> filters[0] -> ... -> filters[n-1] -> destination.
	Connect(filters []*EqualizerBandFilter) error
	Resume() error
	Suspended() bool
	Close() error
}
