package library

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gigurra/tunes/cmd/player/engine"
)

// settleDelay is how long a new file must go without writes before it is
// imported.
var settleDelay = 500 * time.Millisecond

// Watcher reports audio files dropped into a directory.
type Watcher struct {
	dir     string
	watcher *fsnotify.Watcher
	logger  *slog.Logger
}

// NewWatcher starts watching dir. Call Run to receive tracks.
func NewWatcher(dir string, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	return &Watcher{dir: dir, watcher: watcher, logger: logger}, nil
}

// Run calls onAdd for every audio file created in the directory once it has
// settled, until ctx is done. Files moved in count as created. It closes the
// watcher before returning.
func (w *Watcher) Run(ctx context.Context, onAdd func(engine.Track)) error {
	defer func() { _ = w.watcher.Close() }()

	s := newSettler(settleDelay)
	defer s.stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !IsAudio(event.Name) {
				continue
			}
			switch {
			// fsnotify reports the old name on Rename; the new name arrives as Create.
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				s.cancel(event.Name)
			case event.Has(fsnotify.Create):
				s.touch(ctx, event.Name)
			case event.Has(fsnotify.Write) && s.pending(event.Name):
				s.touch(ctx, event.Name)
			}

		case ev := <-s.ready:
			if !s.done(ev) {
				continue
			}
			track, err := TrackFromFile(ev.name)
			if err != nil {
				w.logger.Warn("failed to import file", "path", ev.name, "error", err)
				continue
			}
			w.logger.Info("imported file", "path", ev.name, "title", track.Title)
			onAdd(track)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "dir", w.dir, "error", err)
		}
	}
}

// settler waits for files to go quiet. Every touch replaces the file's timer
// and bumps its sequence number, so a timer that fired before the touch is
// recognized as stale by done.
type settler struct {
	delay time.Duration
	ready chan settled
	files map[string]*settling
	seq   uint64
}

type settling struct {
	seq   uint64
	timer *time.Timer
}

type settled struct {
	name string
	seq  uint64
}

func newSettler(delay time.Duration) *settler {
	return &settler{delay: delay, ready: make(chan settled), files: make(map[string]*settling)}
}

func (s *settler) touch(ctx context.Context, name string) {
	if f, ok := s.files[name]; ok {
		f.timer.Stop()
	}
	s.seq++
	ev := settled{name: name, seq: s.seq}
	s.files[name] = &settling{seq: ev.seq, timer: time.AfterFunc(s.delay, func() {
		select {
		case s.ready <- ev:
		case <-ctx.Done():
		}
	})}
}

func (s *settler) pending(name string) bool {
	_, ok := s.files[name]
	return ok
}

func (s *settler) cancel(name string) {
	if f, ok := s.files[name]; ok {
		f.timer.Stop()
		delete(s.files, name)
	}
}

// done reports whether ev is the latest timer for a file still pending, and
// forgets the file if so.
func (s *settler) done(ev settled) bool {
	f, ok := s.files[ev.name]
	if !ok || f.seq != ev.seq {
		return false
	}
	delete(s.files, ev.name)
	return true
}

func (s *settler) stop() {
	for name, f := range s.files {
		f.timer.Stop()
		delete(s.files, name)
	}
}
