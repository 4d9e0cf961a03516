// Package library turns audio files on disk into playable tracks.
package library

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/gigurra/tunes/cmd/player/audio"
	"github.com/gigurra/tunes/cmd/player/engine"
	"github.com/gigurra/tunes/cmd/player/lyrics"
)

const (
	UnknownArtist = "Unknown Artist"
	LocalAlbum    = "Local Library"
)

var (
	ErrNotAudio      = errors.New("not an audio file")
	ErrEmptyPlaylist = errors.New("playlist has no tracks")
)

// AudioExtensions are the file types picked up when scanning. Not all of
// them can be decoded; see audio.Decodable.
var AudioExtensions = []string{".mp3", ".wav", ".ogg", ".m4a", ".flac", ".aac", ".wma"}

var coverNames = []string{"cover.jpg", "cover.png", "folder.jpg", "folder.png"}

// IsAudio reports whether path has one of the AudioExtensions.
func IsAudio(path string) bool {
	return lo.Contains(AudioExtensions, strings.ToLower(filepath.Ext(path)))
}

// ParseFilename splits "Artist - Title.ext" into its parts. Names without the
// separator keep the whole base name as title and get UnknownArtist.
func ParseFilename(path string) (artist, title string) {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))

	parts := strings.Split(name, " - ")
	if len(parts) < 2 {
		return UnknownArtist, name
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(strings.Join(parts[1:], " - "))
}

// TrackFromFile builds a track for the audio file at path. The duration is 0
// when the file cannot be decoded. A sibling .lrc file supplies lyrics.
func TrackFromFile(path string) (engine.Track, error) {
	if !IsAudio(path) {
		return engine.Track{}, fmt.Errorf("%w: %s", ErrNotAudio, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return engine.Track{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return engine.Track{}, err
	}
	if info.IsDir() {
		return engine.Track{}, fmt.Errorf("%w: %s is a directory", ErrNotAudio, path)
	}

	artist, title := ParseFilename(abs)
	duration, _ := audio.Probe(abs)

	track := engine.Track{
		ID:       "local-" + uuid.NewString(),
		Title:    title,
		Artist:   artist,
		Album:    LocalAlbum,
		Duration: duration,
		CoverURL: findCover(filepath.Dir(abs)),
		AudioURL: abs,
	}
	if lines, err := lyrics.Load(strings.TrimSuffix(abs, filepath.Ext(abs)) + ".lrc"); err == nil {
		track.Lyrics = lines
	}
	return track, nil
}

func findCover(dir string) string {
	name, ok := lo.Find(coverNames, func(n string) bool {
		_, err := os.Stat(filepath.Join(dir, n))
		return err == nil
	})
	if !ok {
		return ""
	}
	return filepath.Join(dir, name)
}

// Scan walks dir and returns a track for every audio file, ordered by path.
func Scan(ctx context.Context, dir string) ([]engine.Track, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if IsAudio(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	sort.Strings(paths)
	tracks := make([]engine.Track, 0, len(paths))
	for _, p := range paths {
		track, err := TrackFromFile(p)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}
	return tracks, nil
}

// Collect resolves a mix of files, directories and archives into tracks, in
// argument order. Archives are extracted into extractDir.
func Collect(ctx context.Context, paths []string, extractDir string) ([]engine.Track, error) {
	var tracks []engine.Track
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}

		switch {
		case info.IsDir():
			found, err := Scan(ctx, p)
			if err != nil {
				return nil, err
			}
			tracks = append(tracks, found...)
		case IsArchive(p):
			files, err := ImportArchive(ctx, p, filepath.Join(extractDir, strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))))
			if err != nil {
				return nil, err
			}
			for _, f := range files {
				track, err := TrackFromFile(f)
				if err != nil {
					return nil, err
				}
				tracks = append(tracks, track)
			}
		default:
			track, err := TrackFromFile(p)
			if err != nil {
				return nil, err
			}
			tracks = append(tracks, track)
		}
	}
	return tracks, nil
}
