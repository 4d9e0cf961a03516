package eq

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/gigurra/tunes/cmd/common"
	"github.com/gigurra/tunes/cmd/config"
	"github.com/gigurra/tunes/cmd/player/engine"
)

// maxGain bounds the gains accepted on the command line, matching the player's sliders.
const maxGain = 12.0

var errConflict = errors.New("--set, --gains and --reset are mutually exclusive")

type Params struct {
	Set   boa.Optional[string] `help:"Save a preset as the default equalizer, e.g. rock or bass-boost."`
	Gains boa.Optional[string] `help:"Save explicit band gains in dB as the default, comma separated from bass to treble."`
	Reset bool                 `help:"Reset the default equalizer to flat." optional:"true"`
}

func Cmd() *cobra.Command {
	return boa.CmdT[Params]{
		Use:   "eq",
		Short: "Show and configure the equalizer",
		Long: `Show the equalizer bands, the built-in presets and the configured default.

Examples:
  tunes eq
  tunes eq --set jazz
  tunes eq --gains 4,2,0,1,3
  tunes eq --reset`,
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *Params, cmd *cobra.Command, args []string) {
			os.Exit(Run(params, os.Stdout, os.Stderr))
		},
	}.ToCobra()
}

// change is the requested edit to the default equalizer. At most one field is set.
type change struct {
	preset *string
	gains  *string
	reset  bool
}

func Run(params *Params, stdout, stderr io.Writer) int {
	return run(change{preset: params.Set.Value(), gains: params.Gains.Value(), reset: params.Reset}, stdout, stderr)
}

func run(req change, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "eq: %v\n", err)
		return 1
	}

	changed, err := apply(cfg.Player, req)
	if err != nil {
		fmt.Fprintf(stderr, "eq: %v\n", err)
		return 1
	}
	if changed {
		if err := config.Save(cfg); err != nil {
			fmt.Fprintf(stderr, "eq: save config: %v\n", err)
			return 1
		}
	}

	current, err := cfg.Player.Equalizer()
	if err != nil {
		fmt.Fprintf(stderr, "eq: %v\n", err)
		return 1
	}
	renderBands(stdout, current)
	fmt.Fprintln(stdout)
	renderPresets(stdout, current)
	if changed {
		fmt.Fprintf(stdout, "\nSaved to %s\n", config.ConfigPath())
	}
	return 0
}

// apply updates the player config from the flags and reports whether
// anything needs saving.
func apply(pc *config.PlayerConfig, req change) (bool, error) {
	if lo.Count([]bool{req.preset != nil, req.gains != nil, req.reset}, true) > 1 {
		return false, errConflict
	}

	switch {
	case req.preset != nil:
		p, err := engine.PresetByName(*req.preset)
		if err != nil {
			return false, err
		}
		pc.Preset = p.Name
		pc.Gains = nil
	case req.gains != nil:
		gains, err := parseGains(*req.gains)
		if err != nil {
			return false, err
		}
		pc.Preset = ""
		pc.Gains = gains[:]
	case req.reset:
		pc.Preset = ""
		pc.Gains = nil
	default:
		return false, nil
	}
	return true, nil
}

func parseGains(s string) ([engine.NumBands]float64, error) {
	var gains [engine.NumBands]float64
	parts := strings.Split(s, ",")
	if len(parts) != engine.NumBands {
		return gains, fmt.Errorf("expected %d gains, got %d", engine.NumBands, len(parts))
	}
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return gains, fmt.Errorf("gain %d: %w", i+1, err)
		}
		if v < -maxGain || v > maxGain {
			return gains, fmt.Errorf("gain %d: %g dB is outside ±%g dB", i+1, v, maxGain)
		}
		gains[i] = v
	}
	return gains, nil
}

func formatGain(db float64) string {
	return fmt.Sprintf("%+.1f dB", db)
}

func renderBands(w io.Writer, current [engine.NumBands]float64) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Bands")
	t.AppendHeader(table.Row{"#", "Band", "Frequency", "Filter", "Q", "Gain"})
	for i, b := range engine.Bands {
		t.AppendRow(table.Row{i, b.Label, b.FrequencyLabel(), b.Type, b.Q, formatGain(current[i])})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})
	t.Render()
}

func renderPresets(w io.Writer, current [engine.NumBands]float64) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Presets")

	header := table.Row{"", "Preset"}
	for _, b := range engine.Bands {
		header = append(header, b.Label)
	}
	t.AppendHeader(header)

	for _, p := range engine.Presets {
		row := table.Row{lo.Ternary(p.Gains == current, "*", ""), p.Name}
		for _, g := range p.Gains {
			row = append(row, fmt.Sprintf("%+g", g))
		}
		t.AppendRow(row)
	}
	t.Render()
}
