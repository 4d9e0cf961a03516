// Package common holds helpers shared by the tunes subcommands: flag
// naming, cache locations and time formatting.
package common

import "github.com/GiGurra/boa/pkg/boa"

// DefaultParamEnricher derives kebab-case flag names and short flags from
// Params struct fields.
func DefaultParamEnricher() boa.ParamEnricher {
	return boa.ParamEnricherCombine(
		boa.ParamEnricherBool,
		boa.ParamEnricherName,
		boa.ParamEnricherShort,
	)
}
