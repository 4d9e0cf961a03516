package common

import (
	"fmt"
	"math"

	"github.com/samber/lo"

	"github.com/gigurra/tunes/cmd/player/engine"
)

func validSeconds(seconds float64) bool {
	return !math.IsNaN(seconds) && !math.IsInf(seconds, 0) && seconds >= 0
}

// FormatTime renders seconds as m:ss. Minutes are not wrapped into hours.
func FormatTime(seconds float64) string {
	if !validSeconds(seconds) {
		return "0:00"
	}
	total := int(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// FormatDuration renders seconds as h:mm:ss, or m:ss below an hour.
func FormatDuration(seconds float64) string {
	if !validSeconds(seconds) {
		return "0:00"
	}
	total := int(seconds)
	hours, mins, secs := total/3600, (total%3600)/60, total%60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, mins, secs)
	}
	return fmt.Sprintf("%d:%02d", mins, secs)
}

// PlaylistDuration sums the track lengths as "X h Y min" or "Y min".
func PlaylistDuration(tracks []engine.Track) string {
	total := lo.SumBy(tracks, func(t engine.Track) float64 { return t.Duration })
	if !validSeconds(total) {
		total = 0
	}
	secs := int(total)
	hours, mins := secs/3600, (secs%3600)/60
	if hours > 0 {
		return fmt.Sprintf("%d h %d min", hours, mins)
	}
	return fmt.Sprintf("%d min", mins)
}
