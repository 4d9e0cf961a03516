// Package remote exposes a player over HTTP: a small JSON command API plus a
// websocket that streams state snapshots.
package remote

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/samber/lo"

	"github.com/gigurra/tunes/cmd/player/engine"
	"github.com/gigurra/tunes/cmd/player/lyrics"
)

// Player is the part of the engine controller the server drives.
type Player interface {
	State() engine.State
	Subscribe() (<-chan engine.State, func())

	Play()
	Pause()
	TogglePlay()
	PlayNext()
	PlayPrevious()
	ToggleShuffle()
	CycleRepeatMode()
	ToggleMute()
	Seek(seconds float64)
	SetVolume(volume float64)
	UpdateEqualizerBand(index int, gain float64)
	ApplyPreset(p engine.Preset)
	PlayTrack(track engine.Track)
}

const (
	maxBodyBytes   = 4096
	maxLyricsBytes = 256 << 10
)

var (
	errForeignOrigin = errors.New("cross-origin requests are not allowed")
	errNotJSON       = errors.New("content type must be application/json")
)

var upgrader = websocket.Upgrader{
	CheckOrigin: sameOrigin,
}

type server struct {
	player Player
	lyrics *lyrics.Overrides
	logger *slog.Logger

	simple map[string]func()
}

// NewServer returns the handler serving the web page, the command API and
// the state websocket. Lyrics uploaded through the API are stored in
// overrides, which may be shared with other views of the same player.
func NewServer(player Player, overrides *lyrics.Overrides, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if overrides == nil {
		overrides = lyrics.NewOverrides()
	}
	s := &server{
		player: player,
		lyrics: overrides,
		logger: logger,
	}
	s.simple = map[string]func(){
		"play":     player.Play,
		"pause":    player.Pause,
		"toggle":   player.TogglePlay,
		"next":     player.PlayNext,
		"previous": player.PlayPrevious,
		"shuffle":  player.ToggleShuffle,
		"repeat":   player.CycleRepeatMode,
		"mute":     player.ToggleMute,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", handleIndex)
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /api/presets", handlePresets)
	mux.HandleFunc("POST /api/seek", s.handleSeek)
	mux.HandleFunc("POST /api/volume", s.handleVolume)
	mux.HandleFunc("POST /api/eq", s.handleEqualizer)
	mux.HandleFunc("POST /api/preset", s.handlePreset)
	mux.HandleFunc("POST /api/queue", s.handleQueue)
	mux.HandleFunc("GET /api/lyrics", s.handleGetLyrics)
	mux.HandleFunc("PUT /api/lyrics", s.handlePutLyrics)
	mux.HandleFunc("DELETE /api/lyrics", s.handleDeleteLyrics)
	mux.HandleFunc("POST /api/{command}", s.handleCommand)
	mux.HandleFunc("GET /ws", s.handleWS)
	return s.logRequests(rejectForeignOrigins(mux))
}

// sameOrigin accepts requests without an Origin header, such as curl and
// scripts, and browser requests from pages served by this host.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// rejectForeignOrigins keeps other sites open in the user's browser from
// driving the player.
func rejectForeignOrigins(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !sameOrigin(r) {
			writeError(w, http.StatusForbidden, errForeignOrigin)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexHTML))
}

func (s *server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.player.State())
}

type presetJSON struct {
	Name  string                   `json:"name"`
	Gains [engine.NumBands]float64 `json:"gains"`
}

func handlePresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, lo.Map(engine.Presets, func(p engine.Preset, _ int) presetJSON {
		return presetJSON{Name: p.Name, Gains: p.Gains}
	}))
}

func (s *server) handleCommand(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("command")
	if !s.run(name) {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown command %q", name))
		return
	}
	writeJSON(w, http.StatusOK, s.player.State())
}

// run executes a command that takes no arguments.
func (s *server) run(name string) bool {
	fn, ok := s.simple[name]
	if !ok {
		return false
	}
	fn()
	return true
}

func (s *server) handleSeek(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Time *float64 `json:"time"`
	}
	if !readJSON(w, r, &body) {
		return
	}
	if body.Time == nil {
		writeError(w, http.StatusBadRequest, errors.New("missing field \"time\""))
		return
	}
	s.player.Seek(*body.Time)
	writeJSON(w, http.StatusOK, s.player.State())
}

func (s *server) handleVolume(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Volume *float64 `json:"volume"`
	}
	if !readJSON(w, r, &body) {
		return
	}
	if body.Volume == nil {
		writeError(w, http.StatusBadRequest, errors.New("missing field \"volume\""))
		return
	}
	s.player.SetVolume(*body.Volume)
	writeJSON(w, http.StatusOK, s.player.State())
}

func (s *server) handleEqualizer(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Band *int     `json:"band"`
		Gain *float64 `json:"gain"`
	}
	if !readJSON(w, r, &body) {
		return
	}
	if body.Band == nil || body.Gain == nil {
		writeError(w, http.StatusBadRequest, errors.New("fields \"band\" and \"gain\" are required"))
		return
	}
	if *body.Band < 0 || *body.Band >= engine.NumBands {
		writeError(w, http.StatusBadRequest, fmt.Errorf("band %d out of range", *body.Band))
		return
	}
	s.player.UpdateEqualizerBand(*body.Band, *body.Gain)
	writeJSON(w, http.StatusOK, s.player.State())
}

func (s *server) handlePreset(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if !readJSON(w, r, &body) {
		return
	}
	p, err := engine.PresetByName(body.Name)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.player.ApplyPreset(p)
	writeJSON(w, http.StatusOK, s.player.State())
}

// handleQueue plays the track at a position of the queue in play order. The
// queue itself is left as it is, shuffled or not.
func (s *server) handleQueue(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Index *int `json:"index"`
	}
	if !readJSON(w, r, &body) {
		return
	}
	queue := s.player.State().Queue
	if body.Index == nil || *body.Index < 0 || *body.Index >= len(queue) {
		writeError(w, http.StatusBadRequest, fmt.Errorf("index out of range [0, %d)", len(queue)))
		return
	}
	s.player.PlayTrack(queue[*body.Index])
	writeJSON(w, http.StatusOK, s.player.State())
}

type lyricsJSON struct {
	TrackID string             `json:"trackId"`
	Lines   []engine.LyricLine `json:"lines"`
	Active  int                `json:"active"`
}

func (s *server) handleGetLyrics(w http.ResponseWriter, r *http.Request) {
	st := s.player.State()
	if st.CurrentTrack == nil {
		writeJSON(w, http.StatusOK, lyricsJSON{Lines: []engine.LyricLine{}, Active: -1})
		return
	}
	lines := s.lyrics.For(*st.CurrentTrack)
	writeJSON(w, http.StatusOK, lyricsJSON{
		TrackID: st.CurrentTrack.ID,
		Lines:   lo.Ternary(lines == nil, []engine.LyricLine{}, lines),
		Active:  lyrics.ActiveIndex(lines, st.CurrentTime),
	})
}

// handlePutLyrics replaces the lyrics of the current track with the LRC or
// plain text in the body.
func (s *server) handlePutLyrics(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	if !readJSONLimit(w, r, &body, maxLyricsBytes) {
		return
	}
	st := s.player.State()
	if st.CurrentTrack == nil {
		writeError(w, http.StatusConflict, errors.New("no current track"))
		return
	}
	lines := lyrics.Parse(body.Text)
	s.lyrics.Set(st.CurrentTrack.ID, lines)
	writeJSON(w, http.StatusOK, lyricsJSON{
		TrackID: st.CurrentTrack.ID,
		Lines:   lines,
		Active:  lyrics.ActiveIndex(lines, st.CurrentTime),
	})
}

func (s *server) handleDeleteLyrics(w http.ResponseWriter, r *http.Request) {
	st := s.player.State()
	if st.CurrentTrack != nil {
		s.lyrics.Clear(st.CurrentTrack.ID)
	}
	w.WriteHeader(http.StatusNoContent)
}

type wsCommand struct {
	Command string `json:"command"`
}

// handleWS pushes every published snapshot, starting with the current one. Clients
// may send {"command": "..."} for the argument-free commands.
func (s *server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	states, cancel := s.player.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var cmd wsCommand
			if err := conn.ReadJSON(&cmd); err != nil {
				return
			}
			if !s.run(cmd.Command) {
				s.logger.Debug("ignoring unknown websocket command", "command", cmd.Command)
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case st, ok := <-states:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(st); err != nil {
				s.logger.Debug("websocket write failed", "error", err)
				return
			}
		}
	}
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	return readJSONLimit(w, r, v, maxBodyBytes)
}

func readJSONLimit(w http.ResponseWriter, r *http.Request, v any, limit int64) bool {
	if mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err != nil || mt != "application/json" {
		writeError(w, http.StatusUnsupportedMediaType, errNotJSON)
		return false
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("malformed body: %w", err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		s.logger.Debug("request", "status", rw.status, "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrade through the wrapper.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijacking not supported")
	}
	rw.status = http.StatusSwitchingProtocols
	return h.Hijack()
}
