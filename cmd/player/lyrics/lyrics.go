// Package lyrics parses timed lyrics and tracks the line being sung.
package lyrics

import (
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/samber/lo"

	"github.com/gigurra/tunes/cmd/player/engine"
)

// PlainLineInterval is the spacing given to lines of untimed lyrics.
const PlainLineInterval = 4.0

var lrcLine = regexp.MustCompile(`^\[(\d{1,2}):(\d{2})(?:\.(\d{1,3}))?\]\s*(.*)$`)

// Parse reads lyrics in LRC format ("[mm:ss.xx] text"). Text without any
// timestamps becomes one line every PlainLineInterval seconds.
func Parse(text string) []engine.LyricLine {
	lines := lo.Filter(strings.Split(text, "\n"), func(l string, _ int) bool {
		return strings.TrimSpace(l) != ""
	})

	var timed []engine.LyricLine
	isLRC := false
	for _, line := range lines {
		m := lrcLine.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		isLRC = true
		if body := strings.TrimSpace(m[4]); body != "" {
			timed = append(timed, engine.LyricLine{Time: timestamp(m[1], m[2], m[3]), Text: body})
		}
	}
	if isLRC && len(timed) > 0 {
		return timed
	}

	return lo.Map(lines, func(l string, i int) engine.LyricLine {
		return engine.LyricLine{Time: float64(i) * PlainLineInterval, Text: strings.TrimSpace(l)}
	})
}

func timestamp(mm, ss, frac string) float64 {
	m, _ := strconv.Atoi(mm)
	s, _ := strconv.Atoi(ss)
	t := float64(m*60 + s)
	if frac != "" {
		f, _ := strconv.Atoi(frac)
		t += float64(f) / pow10(len(frac))
	}
	return t
}

func pow10(n int) float64 {
	p := 1.0
	for range n {
		p *= 10
	}
	return p
}

// ActiveIndex returns the index of the last line starting at or before
// currentTime, or -1 before the first line.
func ActiveIndex(lines []engine.LyricLine, currentTime float64) int {
	active := -1
	for i, l := range lines {
		if currentTime >= l.Time {
			active = i
		}
	}
	return active
}

// Load reads and parses a lyrics file.
func Load(path string) ([]engine.LyricLine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(string(data)), nil
}

// Overrides holds lyrics supplied by the user, keyed by track id. They take
// precedence over the lyrics a track was loaded with.
type Overrides struct {
	mu   sync.RWMutex
	byID map[string][]engine.LyricLine
}

func NewOverrides() *Overrides {
	return &Overrides{byID: make(map[string][]engine.LyricLine)}
}

func (o *Overrides) Set(trackID string, lines []engine.LyricLine) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.byID[trackID] = lines
}

func (o *Overrides) Get(trackID string) ([]engine.LyricLine, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	lines, ok := o.byID[trackID]
	return lines, ok
}

func (o *Overrides) Clear(trackID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.byID, trackID)
}

// For returns the override for track if there is one, else its own lyrics.
func (o *Overrides) For(track engine.Track) []engine.LyricLine {
	if lines, ok := o.Get(track.ID); ok {
		return lines
	}
	return track.Lyrics
}
