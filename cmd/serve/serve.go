package serve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/gigurra/tunes/cmd/common"
	"github.com/gigurra/tunes/cmd/player/remote"
	"github.com/gigurra/tunes/cmd/player/session"
)

var clipboardWriteAll = clipboard.WriteAll

type Params struct {
	Paths    []string              `pos:"true" optional:"true" help:"Audio files, directories or archives to play. Defaults to the library dirs in the config file."`
	Playlist string                `help:"YAML playlist file to play before any paths." optional:"true"`
	Port     int                   `short:"p" help:"Port to listen on." default:"8490"`
	Host     string                `help:"Host interface to bind to." default:"localhost"`
	Shuffle  bool                  `short:"s" help:"Start with shuffle on." optional:"true"`
	Repeat   boa.Optional[string]  `short:"r" help:"Repeat mode: off, all or one."`
	Volume   boa.Optional[float64] `short:"v" help:"Initial volume between 0 and 1."`
	Preset   boa.Optional[string]  `help:"Equalizer preset, e.g. rock or bass-boost."`
	Paused   bool                  `help:"Load the queue without starting playback." optional:"true"`
	Notify   bool                  `help:"Show a desktop notification when a track starts." optional:"true"`
	Watch    bool                  `short:"w" help:"Queue audio files added to the given directories while serving." optional:"true"`
	QR       bool                  `long:"qr" help:"Print a QR code of the remote URL for phones." optional:"true"`
	Copy     bool                  `short:"c" help:"Copy the remote URL to the clipboard." optional:"true"`

	ReadTimeoutMillis int64 `help:"Maximum duration for reading the entire request, including the body (ms)." default:"5000"`
	IdleTimeoutMillis int64 `help:"Maximum amount of time to wait for the next request when keep-alives are enabled (ms)." default:"120000"`
	MaxHeaderBytes    int   `help:"Maximum number of bytes the server will read parsing the request header's keys and values." default:"1048576"` // 1MB
}

func Cmd() *cobra.Command {
	return boa.CmdT[Params]{
		Use:   "serve [paths...]",
		Short: "Play music controlled from a browser",
		Long: `Play music on this machine and control it from any browser.

Serves a small web remote plus a JSON API:
  GET  /api/state                      current state
  POST /api/{play,pause,toggle,next,previous,shuffle,repeat,mute}
  POST /api/seek    {"time": 42}
  POST /api/volume  {"volume": 0.5}
  POST /api/eq      {"band": 0, "gain": 6}
  POST /api/preset  {"name": "rock"}
  POST /api/queue   {"index": 3}
  GET|PUT|DELETE /api/lyrics
  GET  /ws                             state stream (websocket)

Bind to 0.0.0.0 and use --qr to open the remote from a phone on the same network.`,
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *Params, cmd *cobra.Command, args []string) {
			if err := Run(cmd.Context(), params); err != nil {
				_, _ = fmt.Fprintf(os.Stderr, "serve: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}

func Run(ctx context.Context, params *Params) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	s, err := session.Open(ctx, session.Options{
		Paths:    params.Paths,
		Playlist: params.Playlist,
		Shuffle:  params.Shuffle,
		Repeat:   params.Repeat.Value(),
		Volume:   params.Volume.Value(),
		Preset:   params.Preset.Value(),
		Watch:    params.Watch,
		Notify:   params.Notify,
	}, logger)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	s.Start(ctx)
	if params.Paused {
		s.Controller.Pause()
	}

	addr := net.JoinHostPort(params.Host, strconv.Itoa(params.Port))
	server := &http.Server{
		Addr:           addr,
		Handler:        remote.NewServer(s.Controller, s.Lyrics, logger),
		ReadTimeout:    time.Duration(params.ReadTimeoutMillis) * time.Millisecond,
		IdleTimeout:    time.Duration(params.IdleTimeoutMillis) * time.Millisecond,
		MaxHeaderBytes: params.MaxHeaderBytes,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	url := remoteURL(params.Host, listener.Addr().(*net.TCPAddr).Port)
	announce(os.Stdout, url, len(s.Tracks), params)

	// Handle graceful shutdown
	serverErr := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-serverErr:
		return err
	}
}

func announce(w io.Writer, url string, tracks int, params *Params) {
	fmt.Fprintf(w, "Serving %d tracks at %s\n", tracks, url)
	if params.Copy {
		if err := clipboardWriteAll(url); err != nil {
			fmt.Fprintf(w, "  could not copy to clipboard: %v\n", err)
		} else {
			fmt.Fprintln(w, "  url copied to clipboard")
		}
	}
	if params.QR {
		if err := printQR(w, url); err != nil {
			fmt.Fprintf(w, "  could not render qr code: %v\n", err)
		}
	}
	fmt.Fprintln(w, "Press Ctrl+C to stop the server")
}

// remoteURL picks the address a browser should use. Wildcard binds are
// replaced by the first LAN address so the url works from other devices.
func remoteURL(host string, port int) string {
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
		if ips := localIPStrings(); len(ips) > 0 {
			host = ips[0]
		}
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(port))
}

// localIPStrings returns all non-loopback IPv4 addresses as strings
func localIPStrings() []string {
	var result []string
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return result
	}
	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() && ipnet.IP.To4() != nil {
			result = append(result, ipnet.IP.String())
		}
	}
	return result
}
