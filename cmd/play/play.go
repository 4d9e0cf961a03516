package play

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/gigurra/tunes/cmd/common"
	"github.com/gigurra/tunes/cmd/config"
	"github.com/gigurra/tunes/cmd/player/session"
	"github.com/gigurra/tunes/cmd/player/tui"
)

type Params struct {
	Paths    []string              `pos:"true" optional:"true" help:"Audio files, directories or archives to play. Defaults to the library dirs in the config file."`
	Playlist string                `help:"YAML playlist file to play before any paths." optional:"true"`
	Shuffle  bool                  `short:"s" help:"Start with shuffle on." optional:"true"`
	Repeat   boa.Optional[string]  `short:"r" help:"Repeat mode: off, all or one."`
	Volume   boa.Optional[float64] `short:"v" help:"Initial volume between 0 and 1."`
	Preset   boa.Optional[string]  `help:"Equalizer preset, e.g. rock or bass-boost."`
	Start    int                   `help:"Index of the track to start with." default:"0"`
	Headless bool                  `help:"Play without the terminal UI until the queue ends." optional:"true"`
	Notify   bool                  `help:"Show a desktop notification when a track starts." optional:"true"`
	Watch    bool                  `short:"w" help:"Queue audio files added to the given directories while playing." optional:"true"`
	Verbose  bool                  `help:"Log debug output." optional:"true"`
}

func Cmd() *cobra.Command {
	return boa.CmdT[Params]{
		Use:   "play [paths...]",
		Short: "Play music in the terminal",
		Long: `Play audio files, directories and archives with a terminal UI.

Supported formats: mp3, wav, flac, ogg. Archives (zip, tar.*, 7z, rar) are
extracted into the cache directory first. Lyrics are read from .lrc files next
to the audio files.

Examples:
  tunes play ~/Music
  tunes play --shuffle --repeat all album.zip
  tunes play --playlist roadtrip.yaml --preset bass-boost
  tunes play --headless song.mp3`,
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *Params, cmd *cobra.Command, args []string) {
			if err := run(cmd.Context(), params); err != nil {
				fmt.Fprintf(os.Stderr, "play: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}

func run(ctx context.Context, params *Params) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	interactive := !params.Headless && term.IsTerminal(int(os.Stdout.Fd()))

	logger, closeLog, err := newLogger(interactive, params.Verbose)
	if err != nil {
		return err
	}
	defer closeLog()

	s, err := session.Open(ctx, session.Options{
		Paths:    params.Paths,
		Playlist: params.Playlist,
		Shuffle:  params.Shuffle,
		Repeat:   params.Repeat.Value(),
		Volume:   params.Volume.Value(),
		Preset:   params.Preset.Value(),
		Start:    params.Start,
		Watch:    params.Watch,
		Notify:   params.Notify,
	}, logger)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	s.Start(ctx)

	if interactive {
		return tui.Run(s.Controller, s.Lyrics)
	}

	fmt.Printf("Playing %d tracks (%s). Press Ctrl+C to stop.\n", len(s.Tracks), common.PlaylistDuration(s.Tracks))
	select {
	case <-ctx.Done():
	case <-s.Finished(ctx):
	}
	return nil
}

// newLogger writes to stderr, or to the log file while the UI owns the
// terminal.
func newLogger(interactive, verbose bool) (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	var out io.Writer = os.Stderr
	closeFn := func() {}
	if interactive {
		path := config.LogPath()
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = f
		closeFn = func() { _ = f.Close() }
	}

	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger, closeFn, nil
}
