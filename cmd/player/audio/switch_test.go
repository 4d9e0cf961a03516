package audio

import (
	"testing"

	"github.com/gopxl/beep/v2"
)

// buffered returns a seekable stream of n samples with value v.
func buffered(n int, v float64) beep.StreamSeekCloser {
	format := beep.Format{SampleRate: DefaultSampleRate, NumChannels: 2, Precision: 2}
	buf := beep.NewBuffer(format)
	samples := make([][2]float64, n)
	for i := range samples {
		samples[i] = [2]float64{v, v}
	}
	buf.Append(beep.StreamerFunc(func(out [][2]float64) (int, bool) {
		if len(samples) == 0 {
			return 0, false
		}
		c := copy(out, samples)
		samples = samples[c:]
		return c, true
	}))
	return nopSeekCloser{buf.Streamer(0, buf.Len())}
}

type nopSeekCloser struct {
	beep.StreamSeeker
}

func (nopSeekCloser) Close() error { return nil }

var testFormat = beep.Format{SampleRate: DefaultSampleRate, NumChannels: 2, Precision: 2}

func TestSwitchSource_SilentWithoutStream(t *testing.T) {
	s := newSwitchSource(DefaultSampleRate, nil)
	buf := [][2]float64{{1, 1}, {1, 1}}

	n, ok := s.Stream(buf)

	if n != 2 || !ok {
		t.Errorf("Stream = %d, %v; want 2, true", n, ok)
	}
	if buf[0] != [2]float64{} || buf[1] != [2]float64{} {
		t.Errorf("buf = %v, want silence", buf)
	}
}

func TestSwitchSource_EndedReportedOnce(t *testing.T) {
	var ended []uint64
	s := newSwitchSource(DefaultSampleRate, func(gen uint64) { ended = append(ended, gen) })
	s.swap(buffered(100, 0.5), testFormat, 7)

	buf := make([][2]float64, 64)
	for range 5 {
		n, ok := s.Stream(buf)
		if n != len(buf) || !ok {
			t.Fatalf("Stream = %d, %v; the source never drains", n, ok)
		}
	}

	if len(ended) != 1 || ended[0] != 7 {
		t.Fatalf("ended = %v, want [7]", ended)
	}
	if buf[0] != [2]float64{} {
		t.Errorf("after end buf[0] = %v, want silence", buf[0])
	}

	// Seeking re-arms the report
	if err := s.seek(0); err != nil {
		t.Fatalf("seek: %v", err)
	}
	for range 5 {
		s.Stream(buf)
	}
	if len(ended) != 2 {
		t.Errorf("ended = %v after seek and drain, want two reports", ended)
	}
}

func TestSwitchSource_SeekClampsAndReportsPosition(t *testing.T) {
	s := newSwitchSource(DefaultSampleRate, nil)
	s.swap(buffered(int(DefaultSampleRate)*2, 0.1), testFormat, 1)

	if got := s.length(); got != 2 {
		t.Errorf("length = %v, want 2", got)
	}

	tests := []struct {
		seek float64
		want float64
	}{
		{1, 1},
		{-3, 0},
		{10, 2},
	}
	for _, tt := range tests {
		if err := s.seek(tt.seek); err != nil {
			t.Fatalf("seek(%v): %v", tt.seek, err)
		}
		if got := s.position(); got != tt.want {
			t.Errorf("seek(%v): position = %v, want %v", tt.seek, got, tt.want)
		}
	}
}

func TestSwitchSource_SwapReturnsPrevious(t *testing.T) {
	s := newSwitchSource(DefaultSampleRate, nil)
	first := buffered(10, 0)

	if old := s.swap(first, testFormat, 1); old != nil {
		t.Errorf("first swap returned %v, want nil", old)
	}
	if old := s.swap(buffered(10, 0), testFormat, 2); old != first {
		t.Error("second swap did not return the first stream")
	}
	if s.swap(nil, beep.Format{}, 0); s.loaded() {
		t.Error("loaded() = true after swapping in nil")
	}
}

func TestSwitchSource_EndedOutputStaysPausedAfterSeek(t *testing.T) {
	var ended []uint64
	ctrl := &beep.Ctrl{}
	s := newSwitchSource(DefaultSampleRate, pauseOnEnded(ctrl, func(gen uint64) { ended = append(ended, gen) }))
	ctrl.Streamer = s
	s.swap(buffered(100, 0.5), testFormat, 3)

	buf := make([][2]float64, 64)
	for range 3 {
		ctrl.Stream(buf)
	}
	if len(ended) != 1 || !ctrl.Paused {
		t.Fatalf("ended = %v, paused = %v; want one report and a paused output", ended, ctrl.Paused)
	}

	if err := s.seek(0.0001); err != nil {
		t.Fatalf("seek: %v", err)
	}
	ctrl.Stream(buf)
	if buf[0] != [2]float64{} {
		t.Errorf("after seek buf[0] = %v, want silence until play", buf[0])
	}

	// Play unpauses and the re-armed source is audible again.
	ctrl.Paused = false
	ctrl.Stream(buf)
	if buf[0] != [2]float64{0.5, 0.5} {
		t.Errorf("after play buf[0] = %v, want [0.5 0.5]", buf[0])
	}
}
