package library

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/gigurra/tunes/cmd/player/audio"
	"github.com/gigurra/tunes/cmd/player/engine"
	"github.com/gigurra/tunes/cmd/player/lyrics"
)

// playlistFile is the on-disk YAML form of a playlist:
//
//	name: Road trip
//	description: Songs for the drive
//	cover: cover.jpg
//	tracks:
//	  - path: music/Artist - Song.mp3
//	  - path: https://example.com/stream.mp3
//	    title: Stream
//	    duration: 215
//	    lyrics_file: stream.lrc
type playlistFile struct {
	Name        string          `yaml:"name"`
	Description string          `yaml:"description"`
	Cover       string          `yaml:"cover"`
	Tracks      []playlistEntry `yaml:"tracks"`
}

type playlistEntry struct {
	Path       string  `yaml:"path"`
	Title      string  `yaml:"title"`
	Artist     string  `yaml:"artist"`
	Album      string  `yaml:"album"`
	Duration   float64 `yaml:"duration"`
	Cover      string  `yaml:"cover"`
	Lyrics     string  `yaml:"lyrics"`
	LyricsFile string  `yaml:"lyrics_file"`
}

// LoadPlaylist reads a YAML playlist. Relative paths are resolved against the
// playlist's directory; URLs are kept as they are.
func LoadPlaylist(path string) (engine.Playlist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return engine.Playlist{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return engine.Playlist{}, err
	}

	var pf playlistFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return engine.Playlist{}, fmt.Errorf("parse playlist %s: %w", path, err)
	}
	if len(pf.Tracks) == 0 {
		return engine.Playlist{}, fmt.Errorf("%s: %w", path, ErrEmptyPlaylist)
	}

	base := filepath.Dir(path)
	name := pf.Name
	if name == "" {
		name = filepath.Base(path)
	}

	playlist := engine.Playlist{
		ID:          "playlist-" + uuid.NewString(),
		Name:        name,
		Description: pf.Description,
		CoverURL:    resolve(base, pf.Cover),
		CreatedAt:   info.ModTime(),
	}
	for i, e := range pf.Tracks {
		if e.Path == "" {
			return engine.Playlist{}, fmt.Errorf("%s: track %d has no path", path, i+1)
		}
		track, err := entryTrack(base, e)
		if err != nil {
			return engine.Playlist{}, fmt.Errorf("%s: track %d: %w", path, i+1, err)
		}
		if track.CoverURL == "" {
			track.CoverURL = playlist.CoverURL
		}
		playlist.Tracks = append(playlist.Tracks, track)
	}
	return playlist, nil
}

func entryTrack(base string, e playlistEntry) (engine.Track, error) {
	src := resolve(base, e.Path)
	artist, title := ParseFilename(src)

	track := engine.Track{
		ID:       "local-" + uuid.NewString(),
		Title:    lo.CoalesceOrEmpty(e.Title, title),
		Artist:   lo.CoalesceOrEmpty(e.Artist, artist),
		Album:    lo.CoalesceOrEmpty(e.Album, LocalAlbum),
		Duration: e.Duration,
		CoverURL: resolve(base, e.Cover),
		AudioURL: src,
	}

	if track.Duration == 0 && !isURL(src) {
		track.Duration, _ = audio.Probe(src)
	}

	switch {
	case e.Lyrics != "":
		track.Lyrics = lyrics.Parse(e.Lyrics)
	case e.LyricsFile != "":
		lines, err := lyrics.Load(resolve(base, e.LyricsFile))
		if err != nil {
			return engine.Track{}, fmt.Errorf("lyrics: %w", err)
		}
		track.Lyrics = lines
	}
	return track, nil
}

func resolve(base, p string) string {
	if p == "" || isURL(p) || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

func isURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https" || u.Scheme == "file")
}
