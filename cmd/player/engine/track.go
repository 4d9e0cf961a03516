package engine

import (
	"time"
)

// Track is a playable audio item. Tracks are treated as immutable values.
type Track struct {
	ID       string      `json:"id"`
	Title    string      `json:"title"`
	Artist   string      `json:"artist"`
	Album    string      `json:"album"`
	Duration float64     `json:"duration"` // seconds, authoritative once metadata loads
	CoverURL string      `json:"coverUrl,omitempty"`
	AudioURL string      `json:"audioUrl"`
	Lyrics   []LyricLine `json:"lyrics,omitempty"`
}

// LyricLine is a single timed lyric.
type LyricLine struct {
	Time float64 `json:"time"` // seconds
	Text string  `json:"text"`
}

// Playlist is a named, ordered collection of tracks.
type Playlist struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CoverURL    string    `json:"coverUrl,omitempty"`
	Tracks      []Track   `json:"tracks"`
	CreatedAt   time.Time `json:"createdAt"`
}

// RepeatMode governs end-of-queue and end-of-track behavior.
type RepeatMode string

const (
	RepeatOff RepeatMode = "off"
	RepeatAll RepeatMode = "all"
	RepeatOne RepeatMode = "one"
)

var repeatCycle = []RepeatMode{RepeatOff, RepeatAll, RepeatOne}

// Next returns the mode that follows m in the cycle off -> all -> one -> off.
// Unknown modes become off.
func (m RepeatMode) Next() RepeatMode {
	idx := -1
	for i, mode := range repeatCycle {
		if mode == m {
			idx = i
			break
		}
	}
	return repeatCycle[(idx+1)%len(repeatCycle)]
}

// ParseRepeatMode parses "off", "all" or "one".
func ParseRepeatMode(s string) (RepeatMode, error) {
	for _, mode := range repeatCycle {
		if string(mode) == s {
			return mode, nil
		}
	}
	return RepeatOff, ErrInvalidRepeatMode
}

// State is a published snapshot of the playback session.
type State struct {
	CurrentTrack   *Track            `json:"currentTrack"`
	IsPlaying      bool              `json:"isPlaying"`
	CurrentTime    float64           `json:"currentTime"`
	Duration       float64           `json:"duration"`
	Volume         float64           `json:"volume"`
	IsMuted        bool              `json:"isMuted"`
	IsShuffled     bool              `json:"isShuffled"`
	RepeatMode     RepeatMode        `json:"repeatMode"`
	Queue          []Track           `json:"queue"`
	OriginalQueue  []Track           `json:"originalQueue"`
	EqualizerGains [NumBands]float64 `json:"equalizerGains"`
}

// QueueIndex returns the position of the current track in the queue, or -1.
func (s State) QueueIndex() int {
	if s.CurrentTrack == nil {
		return -1
	}
	return indexByID(s.Queue, s.CurrentTrack.ID)
}

// indexByID returns the first index whose track has the given id, or -1.
// Duplicate ids can exist across collections; the first match wins.
func indexByID(tracks []Track, id string) int {
	for i, t := range tracks {
		if t.ID == id {
			return i
		}
	}
	return -1
}
