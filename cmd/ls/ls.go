package ls

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/gigurra/tunes/cmd/common"
	"github.com/gigurra/tunes/cmd/config"
	"github.com/gigurra/tunes/cmd/player/engine"
	"github.com/gigurra/tunes/cmd/player/library"
)

type Params struct {
	Paths    []string `pos:"true" optional:"true" help:"Audio files, directories or archives to list. Defaults to the library dirs in the config file."`
	Playlist string   `help:"YAML playlist file to list instead of paths." optional:"true"`
	Sort     string   `help:"Sort order." default:"path" alts:"path,title,artist,album,duration"`
	Reverse  bool     `short:"r" help:"Reverse the sort order." optional:"true"`
	JSON     bool     `help:"Print tracks as JSON." optional:"true"`
}

func Cmd() *cobra.Command {
	return boa.CmdT[Params]{
		Use:         "ls [paths...]",
		Short:       "List tracks in the library",
		Long:        "List the tracks found in files, directories, archives or a playlist, with their durations and whether lyrics are available.",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *Params, cmd *cobra.Command, args []string) {
			os.Exit(Run(cmd.Context(), params, os.Stdout, os.Stderr))
		},
	}.ToCobra()
}

func Run(ctx context.Context, params *Params, stdout, stderr io.Writer) int {
	if ctx == nil {
		ctx = context.Background()
	}

	tracks, err := load(ctx, params)
	if err != nil {
		fmt.Fprintf(stderr, "ls: %v\n", err)
		return 1
	}
	sortTracks(tracks, params.Sort, params.Reverse)

	if params.JSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(lo.Ternary(tracks == nil, []engine.Track{}, tracks)); err != nil {
			fmt.Fprintf(stderr, "ls: %v\n", err)
			return 1
		}
		return 0
	}

	renderTable(stdout, tracks, terminalWidth(stdout))
	return 0
}

func load(ctx context.Context, params *Params) ([]engine.Track, error) {
	if params.Playlist != "" {
		pl, err := library.LoadPlaylist(params.Playlist)
		if err != nil {
			return nil, err
		}
		return pl.Tracks, nil
	}

	paths := params.Paths
	if len(paths) == 0 {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		paths = cfg.Library.Dirs
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no paths given and no library dirs configured in %s", config.ConfigPath())
	}
	return library.Collect(ctx, paths, common.ImportDir())
}

func sortTracks(tracks []engine.Track, by string, reverse bool) {
	var key func(a, b engine.Track) int
	switch by {
	case "title":
		key = func(a, b engine.Track) int { return cmp.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title)) }
	case "artist":
		key = func(a, b engine.Track) int { return cmp.Compare(strings.ToLower(a.Artist), strings.ToLower(b.Artist)) }
	case "album":
		key = func(a, b engine.Track) int { return cmp.Compare(strings.ToLower(a.Album), strings.ToLower(b.Album)) }
	case "duration":
		key = func(a, b engine.Track) int { return cmp.Compare(a.Duration, b.Duration) }
	}
	if key != nil {
		slices.SortStableFunc(tracks, key)
	}
	if reverse {
		slices.Reverse(tracks)
	}
}

func terminalWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			return width
		}
	}
	return 0
}

// renderTable prints one row per track. A width of 0 disables row limiting.
func renderTable(w io.Writer, tracks []engine.Track, width int) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	if width > 0 {
		t.SetAllowedRowLength(width)
	}

	t.AppendHeader(table.Row{"#", "Title", "Artist", "Album", "Duration", "Lyrics"})
	for i, tr := range tracks {
		t.AppendRow(table.Row{
			i + 1,
			tr.Title,
			tr.Artist,
			tr.Album,
			common.FormatDuration(tr.Duration),
			lo.Ternary(len(tr.Lyrics) > 0, "yes", ""),
		})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d tracks", len(tracks)), "", "", common.PlaylistDuration(tracks), ""})
	t.Render()
}
