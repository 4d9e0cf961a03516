package notify

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/gigurra/tunes/cmd/player/engine"
)

type sent struct{ title, message string }

func newTestNotifier(cooldown time.Duration, fail bool) (*Notifier, *[]sent, *time.Time) {
	var log []sent
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	n := New(func(title, message string) error {
		if fail {
			return errors.New("no notification daemon")
		}
		log = append(log, sent{title, message})
		return nil
	}, cooldown, slog.New(slog.NewTextHandler(io.Discard, nil)))
	n.now = func() time.Time { return clock }
	return n, &log, &clock
}

func playing(id, title, artist string) engine.State {
	return engine.State{CurrentTrack: &engine.Track{ID: id, Title: title, Artist: artist}, IsPlaying: true}
}

func TestObserve_NotifiesOnTrackChange(t *testing.T) {
	n, log, _ := newTestNotifier(0, false)

	if !n.Observe(playing("a", "Song", "Band")) {
		t.Fatal("first track not notified")
	}
	if n.Observe(playing("a", "Song", "Band")) {
		t.Error("same track notified twice")
	}
	if !n.Observe(playing("b", "Other", "")) {
		t.Error("second track not notified")
	}

	want := []sent{{"Now playing", "Song\nBand"}, {"Now playing", "Other"}}
	if len(*log) != 2 || (*log)[0] != want[0] || (*log)[1] != want[1] {
		t.Errorf("sent = %v, want %v", *log, want)
	}
}

func TestObserve_IgnoresPausedAndEmpty(t *testing.T) {
	n, log, _ := newTestNotifier(0, false)

	n.Observe(engine.State{})
	paused := playing("a", "Song", "Band")
	paused.IsPlaying = false
	n.Observe(paused)

	if len(*log) != 0 {
		t.Errorf("sent = %v, want nothing", *log)
	}
}

func TestObserve_Cooldown(t *testing.T) {
	n, log, clock := newTestNotifier(5*time.Second, false)

	n.Observe(playing("a", "A", ""))
	*clock = clock.Add(2 * time.Second)
	if n.Observe(playing("b", "B", "")) {
		t.Error("notified within cooldown")
	}
	*clock = clock.Add(4 * time.Second)
	if !n.Observe(playing("c", "C", "")) {
		t.Error("not notified after cooldown")
	}
	if len(*log) != 2 {
		t.Errorf("sent %d notifications, want 2", len(*log))
	}
}

func TestObserve_SendFailure(t *testing.T) {
	n, _, _ := newTestNotifier(0, true)

	if n.Observe(playing("a", "A", "")) {
		t.Error("Observe reported success for a failed send")
	}
}
