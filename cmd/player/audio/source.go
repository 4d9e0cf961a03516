package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrNoSource          = errors.New("no source loaded")
	ErrContextOpen       = errors.New("processing context already open")
	ErrClosed            = errors.New("audio device closed")
	ErrSuperseded        = errors.New("superseded by a newer source")
)

// fetchTimeout bounds downloading a remote source.
const fetchTimeout = 30 * time.Second

type decodeFunc func(data []byte) (beep.StreamSeekCloser, beep.Format, error)

var decoders = map[string]decodeFunc{
	".mp3": func(data []byte) (beep.StreamSeekCloser, beep.Format, error) {
		return mp3.Decode(nopCloser{bytes.NewReader(data)})
	},
	".wav": func(data []byte) (beep.StreamSeekCloser, beep.Format, error) {
		return wav.Decode(bytes.NewReader(data))
	},
	".flac": func(data []byte) (beep.StreamSeekCloser, beep.Format, error) {
		return flac.Decode(bytes.NewReader(data))
	},
	".ogg": func(data []byte) (beep.StreamSeekCloser, beep.Format, error) {
		return vorbis.Decode(nopCloser{bytes.NewReader(data)})
	},
}

// Decodable reports whether files with extension ext can be played.
func Decodable(ext string) bool {
	_, ok := decoders[strings.ToLower(ext)]
	return ok
}

// Probe returns the length in seconds of the audio file at p.
func Probe(p string) (float64, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return 0, err
	}
	stream, format, err := decode(data, filepath.Ext(p))
	if err != nil {
		return 0, err
	}
	defer stream.Close()
	return format.SampleRate.D(stream.Len()).Seconds(), nil
}

func decode(data []byte, ext string) (beep.StreamSeekCloser, beep.Format, error) {
	dec, ok := decoders[strings.ToLower(ext)]
	if !ok {
		return nil, beep.Format{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	stream, format, err := dec(data)
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("decode %s: %w", ext, err)
	}
	return stream, format, nil
}

// readSource loads src fully into memory. src is a local path, a file:// URL
// or an http(s):// URL. The returned extension selects the decoder.
func readSource(ctx context.Context, client *http.Client, src string) ([]byte, string, error) {
	u, err := url.Parse(src)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// Plain path (a single letter scheme is a Windows drive)
		data, err := os.ReadFile(src)
		return data, filepath.Ext(src), err
	}

	switch u.Scheme {
	case "file":
		data, err := os.ReadFile(u.Path)
		return data, filepath.Ext(u.Path), err
	case "http", "https":
		data, err := fetch(ctx, client, u.String())
		return data, path.Ext(u.Path), err
	default:
		return nil, "", fmt.Errorf("unsupported source scheme %q", u.Scheme)
	}
}

func fetch(ctx context.Context, client *http.Client, rawURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: %s", rawURL, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// nopCloser lets an in-memory reader stand in for a file.
type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error { return nil }
