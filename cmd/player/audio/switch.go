package audio

import (
	"github.com/gopxl/beep/v2"
)

// switchSource is the persistent media source of the pipeline. Load swaps
// the decoded stream underneath it. A stream that runs dry reports ended
// exactly once and then outputs silence until Seek or a new stream re-arms it.
//
// All methods must be called with the speaker lock held (Stream already is).
type switchSource struct {
	sr beep.SampleRate

	stream     beep.StreamSeekCloser // native rate, used for position and seeking
	out        beep.Streamer         // stream resampled to sr
	format     beep.Format
	generation uint64
	ended      bool

	onEnded func(generation uint64)
}

func newSwitchSource(sr beep.SampleRate, onEnded func(generation uint64)) *switchSource {
	return &switchSource{sr: sr, onEnded: onEnded}
}

// swap installs stream and returns the previous one for the caller to close
// outside the speaker lock.
func (s *switchSource) swap(stream beep.StreamSeekCloser, format beep.Format, generation uint64) beep.StreamSeekCloser {
	old := s.stream
	s.stream = stream
	s.format = format
	s.generation = generation
	s.ended = false
	s.rewire()
	return old
}

// rewire rebuilds the resampler so no samples from before a swap or seek
// are left buffered in it.
func (s *switchSource) rewire() {
	if s.stream == nil {
		s.out = nil
		return
	}
	s.out = s.stream
	if s.format.SampleRate != s.sr {
		s.out = beep.Resample(4, s.format.SampleRate, s.sr, s.stream)
	}
}

func (s *switchSource) loaded() bool {
	return s.stream != nil
}

// position returns the playback position in seconds.
func (s *switchSource) position() float64 {
	if s.stream == nil {
		return 0
	}
	return s.format.SampleRate.D(s.stream.Position()).Seconds()
}

// length returns the stream length in seconds.
func (s *switchSource) length() float64 {
	if s.stream == nil {
		return 0
	}
	return s.format.SampleRate.D(s.stream.Len()).Seconds()
}

// seek moves to seconds, clamped to the stream, and re-arms the ended report.
func (s *switchSource) seek(seconds float64) error {
	if s.stream == nil {
		return nil
	}
	n := s.format.SampleRate.N(secondsToDuration(seconds))
	n = max(0, min(n, s.stream.Len()))
	if err := s.stream.Seek(n); err != nil {
		return err
	}
	s.rewire()
	s.ended = false
	return nil
}

func (s *switchSource) Stream(samples [][2]float64) (int, bool) {
	if s.out == nil || s.ended {
		clear(samples)
		return len(samples), true
	}

	n, ok := s.out.Stream(samples)
	if n < len(samples) || !ok {
		clear(samples[n:])
		s.ended = true
		if s.onEnded != nil {
			s.onEnded(s.generation)
		}
	}
	return len(samples), true
}

func (s *switchSource) Err() error {
	if s.out == nil {
		return nil
	}
	return s.out.Err()
}

// pauseOnEnded pauses ctrl before passing the ended report on. A source that
// ran dry then stays silent when a seek re-arms it, until Play unpauses.
// Called with the speaker lock held, like every switchSource callback.
func pauseOnEnded(ctrl *beep.Ctrl, next func(generation uint64)) func(generation uint64) {
	return func(generation uint64) {
		ctrl.Paused = true
		if next != nil {
			next(generation)
		}
	}
}
