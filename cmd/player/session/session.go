// Package session assembles a running player from command line options and
// the config file: tracks, audio device, controller and the optional library
// watcher and notifier.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/gigurra/tunes/cmd/common"
	"github.com/gigurra/tunes/cmd/config"
	"github.com/gigurra/tunes/cmd/player/audio"
	"github.com/gigurra/tunes/cmd/player/engine"
	"github.com/gigurra/tunes/cmd/player/library"
	"github.com/gigurra/tunes/cmd/player/lyrics"
	"github.com/gigurra/tunes/cmd/player/notify"
)

var ErrNoTracks = errors.New("no tracks found")

var newDevice = func(logger *slog.Logger) (engine.Device, error) {
	if !audio.Available {
		logger.Warn("built without audio output, playback will be silent")
	}
	return audio.New(audio.WithLogger(logger))
}

// Options are the command line choices. Unset pointers fall back to config.
type Options struct {
	Paths    []string
	Playlist string
	Shuffle  bool
	Repeat   *string
	Volume   *float64
	Preset   *string
	Start    int // index into the unshuffled tracks
	Watch    bool
	Notify   bool
}

// Session is a configured controller plus the resources behind it.
type Session struct {
	Controller *engine.Controller
	Lyrics     *lyrics.Overrides
	Tracks     []engine.Track
	Name       string // playlist name, if one was loaded

	opts     Options
	cfg      *config.Config
	watch    []string
	notify   bool
	logger   *slog.Logger
	wg       sync.WaitGroup
	cancel   context.CancelFunc
	notifier notify.Sender
}

// Open resolves the tracks and opens the audio device. Nothing plays until
// Start is called.
func Open(ctx context.Context, opts Options, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	s := &Session{
		Lyrics:   lyrics.NewOverrides(),
		opts:     opts,
		cfg:      cfg,
		notify:   opts.Notify || cfg.Notifications.Enabled,
		logger:   logger,
		notifier: notify.Desktop,
	}

	if err := s.collect(ctx, opts); err != nil {
		return nil, err
	}

	ctrlOpts, err := s.controllerOptions(opts)
	if err != nil {
		return nil, err
	}

	device, err := newDevice(logger)
	if err != nil {
		return nil, fmt.Errorf("open audio device: %w", err)
	}
	s.Controller = engine.New(device, ctrlOpts...)
	return s, nil
}

func (s *Session) collect(ctx context.Context, opts Options) error {
	paths := opts.Paths
	if len(paths) == 0 && opts.Playlist == "" {
		paths = s.cfg.Library.Dirs
	}

	if opts.Playlist != "" {
		pl, err := library.LoadPlaylist(opts.Playlist)
		if err != nil {
			return err
		}
		s.Name = pl.Name
		s.Tracks = append(s.Tracks, pl.Tracks...)
	}

	tracks, err := library.Collect(ctx, paths, common.ImportDir())
	if err != nil {
		return err
	}
	s.Tracks = append(s.Tracks, tracks...)
	if len(s.Tracks) == 0 {
		return ErrNoTracks
	}

	if opts.Watch || s.cfg.Library.Watch {
		for _, p := range paths {
			if info, err := os.Stat(p); err == nil && info.IsDir() {
				s.watch = append(s.watch, p)
			}
		}
	}
	return nil
}

func (s *Session) controllerOptions(opts Options) ([]engine.Option, error) {
	pc := *s.cfg.Player
	if opts.Preset != nil {
		pc.Preset = *opts.Preset
	}
	gains, err := pc.Equalizer()
	if err != nil {
		return nil, err
	}

	repeat := pc.Repeat
	if opts.Repeat != nil {
		repeat = *opts.Repeat
	}
	mode, err := engine.ParseRepeatMode(repeat)
	if err != nil {
		return nil, fmt.Errorf("repeat %q: %w", repeat, err)
	}

	volume := *pc.Volume
	if opts.Volume != nil {
		volume = *opts.Volume
	}

	return []engine.Option{
		engine.WithLogger(s.logger),
		engine.WithVolume(max(0, min(volume, 1))),
		engine.WithRepeatMode(mode),
		engine.WithEqualizerGains(gains),
	}, nil
}

// Start queues the tracks, playing from the start index, and launches the
// watcher and notifier. They stop when ctx is done or Close is called.
func (s *Session) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	if s.opts.Shuffle {
		s.Controller.ToggleShuffle()
	}
	s.Controller.SetPlaylist(s.Tracks, max(0, min(s.opts.Start, len(s.Tracks)-1)))

	for _, dir := range s.watch {
		w, err := library.NewWatcher(dir, s.logger)
		if err != nil {
			s.logger.Warn("library watch disabled", "dir", dir, "error", err)
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			err := w.Run(ctx, func(t engine.Track) {
				s.logger.Info("new track in library", "title", t.Title, "path", t.AudioURL)
				s.Controller.Enqueue(t)
			})
			if err != nil {
				s.logger.Warn("library watch stopped", "dir", dir, "error", err)
			}
		}()
	}

	if s.notify {
		states, cancel := s.Controller.Subscribe()
		n := notify.New(s.notifier, time.Duration(s.cfg.Notifications.CooldownSeconds)*time.Second, s.logger)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer cancel()
			n.Run(ctx, states)
		}()
	}
}

// Finished returns a channel closed once the queue has played out: playback
// stopped on the last track of the queue with repeat off.
func (s *Session) Finished(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	states, cancel := s.Controller.Subscribe()
	go func() {
		defer close(done)
		defer cancel()
		wasPlaying := false
		for {
			select {
			case <-ctx.Done():
				return
			case st, ok := <-states:
				if !ok || (wasPlaying && queueFinished(st)) {
					return
				}
				wasPlaying = st.IsPlaying
			}
		}
	}()
	return done
}

func queueFinished(st engine.State) bool {
	return !st.IsPlaying &&
		st.RepeatMode == engine.RepeatOff &&
		st.CurrentTrack != nil &&
		st.QueueIndex() == len(st.Queue)-1
}

// Close stops background tasks and releases the controller and device.
func (s *Session) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	err := s.Controller.Close()
	s.wg.Wait()
	return err
}
