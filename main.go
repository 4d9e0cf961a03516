package main

import (
	"runtime/debug"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/spf13/cobra"

	"github.com/gigurra/tunes/cmd/eq"
	"github.com/gigurra/tunes/cmd/ls"
	"github.com/gigurra/tunes/cmd/play"
	"github.com/gigurra/tunes/cmd/serve"
)

func main() {
	boa.CmdT[boa.NoParams]{
		Use:     "tunes",
		Short:   "Terminal music player",
		Version: appVersion(),
		SubCmds: []*cobra.Command{
			play.Cmd(),
			serve.Cmd(),
			ls.Cmd(),
			eq.Cmd(),
		},
	}.Run()
}

func appVersion() string {
	bi, hasBuilInfo := debug.ReadBuildInfo()
	if !hasBuilInfo {
		return "unknown-(no build info)"
	}

	versionString := bi.Main.Version
	if versionString == "" {
		versionString = "unknown-(no version)"
	}

	return versionString
}
