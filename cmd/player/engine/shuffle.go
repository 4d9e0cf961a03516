package engine

import (
	"math/rand"
)

// shuffleTracks returns a uniformly shuffled copy of tracks (Fisher–Yates).
// The input slice is left untouched.
func shuffleTracks(r *rand.Rand, tracks []Track) []Track {
	shuffled := cloneTracks(tracks)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled
}

func cloneTracks(tracks []Track) []Track {
	if tracks == nil {
		return nil
	}
	out := make([]Track, len(tracks))
	copy(out, tracks)
	return out
}
