package remote

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gigurra/tunes/cmd/player/engine"
	"github.com/gigurra/tunes/cmd/player/lyrics"
)

type fakePlayer struct {
	mu     sync.Mutex
	calls  []string
	state  engine.State
	seek   float64
	volume float64
	band   int
	gain   float64
	preset string
	played engine.Track

	subs chan engine.State
}

func newFakePlayer() *fakePlayer {
	return &fakePlayer{
		state: engine.State{
			Volume:     0.7,
			RepeatMode: engine.RepeatOff,
			Queue: []engine.Track{
				{ID: "b", Title: "B"},
				{ID: "a", Title: "A"},
			},
			OriginalQueue: []engine.Track{
				{ID: "a", Title: "A"},
				{ID: "b", Title: "B"},
			},
			IsShuffled: true,
		},
		subs: make(chan engine.State, 4),
	}
}

func (f *fakePlayer) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakePlayer) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakePlayer) State() engine.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Subscribe hands out the shared channel primed with the current state.
func (f *fakePlayer) Subscribe() (<-chan engine.State, func()) {
	f.subs <- f.State()
	return f.subs, func() {}
}

func (f *fakePlayer) Play()            { f.record("play") }
func (f *fakePlayer) Pause()           { f.record("pause") }
func (f *fakePlayer) TogglePlay()      { f.record("toggle") }
func (f *fakePlayer) PlayNext()        { f.record("next") }
func (f *fakePlayer) PlayPrevious()    { f.record("previous") }
func (f *fakePlayer) ToggleShuffle()   { f.record("shuffle") }
func (f *fakePlayer) CycleRepeatMode() { f.record("repeat") }
func (f *fakePlayer) ToggleMute()      { f.record("mute") }

func (f *fakePlayer) set(name string, fn func()) {
	f.record(name)
	f.mu.Lock()
	defer f.mu.Unlock()
	fn()
}

// read runs fn with the fake locked.
func (f *fakePlayer) read(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn()
}

func (f *fakePlayer) Seek(seconds float64) {
	f.set("seek", func() { f.seek = seconds })
}

func (f *fakePlayer) SetVolume(volume float64) {
	f.set("volume", func() { f.volume = volume })
}

func (f *fakePlayer) UpdateEqualizerBand(index int, gain float64) {
	f.set("eq", func() { f.band, f.gain = index, gain })
}

func (f *fakePlayer) ApplyPreset(p engine.Preset) {
	f.set("preset", func() { f.preset = p.Name })
}

func (f *fakePlayer) PlayTrack(track engine.Track) {
	f.set("queue", func() { f.played = track })
}

func newTestServer(t *testing.T) (*fakePlayer, *httptest.Server) {
	t.Helper()
	p := newFakePlayer()
	srv := httptest.NewServer(NewServer(p, lyrics.NewOverrides(), slog.New(slog.NewTextHandler(io.Discard, nil))))
	t.Cleanup(srv.Close)
	return p, srv
}

func post(t *testing.T, srv *httptest.Server, path, body string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode %s response: %v", path, err)
	}
	return resp.StatusCode, out
}

func TestState(t *testing.T) {
	_, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/state")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var st engine.State
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatal(err)
	}
	if st.Volume != 0.7 || st.RepeatMode != engine.RepeatOff || len(st.OriginalQueue) != 2 {
		t.Errorf("unexpected state %+v", st)
	}
}

func TestSimpleCommands(t *testing.T) {
	for _, cmd := range []string{"play", "pause", "toggle", "next", "previous", "shuffle", "repeat", "mute"} {
		t.Run(cmd, func(t *testing.T) {
			p, srv := newTestServer(t)
			status, _ := post(t, srv, "/api/"+cmd, "")
			if status != http.StatusOK {
				t.Fatalf("status = %d", status)
			}
			if calls := p.Calls(); len(calls) != 1 || calls[0] != cmd {
				t.Errorf("calls = %v, want [%s]", calls, cmd)
			}
		})
	}
}

func TestUnknownCommand(t *testing.T) {
	p, srv := newTestServer(t)
	status, body := post(t, srv, "/api/explode", "")
	if status != http.StatusNotFound {
		t.Errorf("status = %d, want 404", status)
	}
	if body["error"] == nil {
		t.Error("expected error field")
	}
	if len(p.Calls()) != 0 {
		t.Errorf("calls = %v", p.Calls())
	}
}

func TestArgumentCommands(t *testing.T) {
	p, srv := newTestServer(t)

	for _, req := range []struct{ path, body string }{
		{"/api/seek", `{"time": 42.5}`},
		{"/api/volume", `{"volume": 0.3}`},
		{"/api/eq", `{"band": 2, "gain": -4}`},
		{"/api/preset", `{"name": "bass-boost"}`},
		{"/api/queue", `{"index": 1}`},
	} {
		if status, body := post(t, srv, req.path, req.body); status != http.StatusOK {
			t.Errorf("%s: status %d, body %v", req.path, status, body)
		}
	}

	p.read(func() {
		if p.seek != 42.5 {
			t.Errorf("seek = %v, want 42.5", p.seek)
		}
		if p.volume != 0.3 {
			t.Errorf("volume = %v, want 0.3", p.volume)
		}
		if p.band != 2 || p.gain != -4 {
			t.Errorf("eq = band %d gain %v, want band 2 gain -4", p.band, p.gain)
		}
		if p.preset != "Bass Boost" {
			t.Errorf("preset = %q, want Bass Boost", p.preset)
		}
		// Index 1 of the shuffled play order, not of the original order.
		if p.played.ID != "a" {
			t.Errorf("queue played %q, want a", p.played.ID)
		}
	})
}

func TestBadRequests(t *testing.T) {
	tests := []struct {
		path string
		body string
	}{
		{"/api/seek", `not json`},
		{"/api/seek", `{}`},
		{"/api/volume", `{"volume": "loud"}`},
		{"/api/eq", `{"band": 1}`},
		{"/api/eq", `{"band": 5, "gain": 1}`},
		{"/api/eq", `{"band": -1, "gain": 1}`},
		{"/api/preset", `{"name": "polka"}`},
		{"/api/queue", `{"index": 2}`},
		{"/api/queue", `{"index": -1}`},
		{"/api/queue", `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.path+" "+tt.body, func(t *testing.T) {
			p, srv := newTestServer(t)
			status, body := post(t, srv, tt.path, tt.body)
			if status != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", status)
			}
			if _, ok := body["error"].(string); !ok {
				t.Errorf("body = %v, want error field", body)
			}
			if len(p.Calls()) != 0 {
				t.Errorf("player was called: %v", p.Calls())
			}
		})
	}
}

func TestLyricsOverride(t *testing.T) {
	p, srv := newTestServer(t)
	track := engine.Track{ID: "a", Title: "A", Lyrics: []engine.LyricLine{{Time: 0, Text: "original"}}}
	p.read(func() {
		p.state.CurrentTrack = &track
		p.state.CurrentTime = 11
	})

	getLyrics := func() lyricsJSON {
		t.Helper()
		resp, err := http.Get(srv.URL + "/api/lyrics")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		var out lyricsJSON
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatal(err)
		}
		return out
	}

	if got := getLyrics(); len(got.Lines) != 1 || got.Lines[0].Text != "original" {
		t.Fatalf("before override: %+v", got)
	}

	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/api/lyrics",
		strings.NewReader(`{"text": "[00:05.00]first\n[00:10.00]second\n[00:20.00]third"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT status = %d", resp.StatusCode)
	}

	got := getLyrics()
	if len(got.Lines) != 3 || got.Active != 1 || got.TrackID != "a" {
		t.Errorf("after override: %+v", got)
	}

	req, _ = http.NewRequest(http.MethodDelete, srv.URL+"/api/lyrics", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := getLyrics(); len(got.Lines) != 1 {
		t.Errorf("after delete: %+v", got)
	}
}

func TestLyricsWithoutTrack(t *testing.T) {
	_, srv := newTestServer(t)
	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/api/lyrics", strings.NewReader(`{"text": "hello"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409", resp.StatusCode)
	}
}

func TestPresets(t *testing.T) {
	_, srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/api/presets")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var presets []presetJSON
	if err := json.NewDecoder(resp.Body).Decode(&presets); err != nil {
		t.Fatal(err)
	}
	if len(presets) != len(engine.Presets) {
		t.Fatalf("got %d presets, want %d", len(presets), len(engine.Presets))
	}
	if presets[0].Name != "Flat" {
		t.Errorf("first preset = %q", presets[0].Name)
	}
}

func TestIndexPage(t *testing.T) {
	_, srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}
}

func TestWebsocketStreamsState(t *testing.T) {
	p, srv := newTestServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var initial engine.State
	if err := conn.ReadJSON(&initial); err != nil {
		t.Fatalf("read initial: %v", err)
	}
	if initial.Volume != 0.7 {
		t.Errorf("initial volume = %v", initial.Volume)
	}

	p.subs <- engine.State{Volume: 0.2, IsPlaying: true}
	var pushed engine.State
	if err := conn.ReadJSON(&pushed); err != nil {
		t.Fatalf("read pushed: %v", err)
	}
	if pushed.Volume != 0.2 || !pushed.IsPlaying {
		t.Errorf("pushed = %+v", pushed)
	}

	if err := conn.WriteJSON(wsCommand{Command: "next"}); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if calls := p.Calls(); len(calls) == 1 && calls[0] == "next" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("calls = %v, want [next]", p.Calls())
}

// nullDevice accepts every command and never reports back.
type nullDevice struct{}

func (nullDevice) Load(string, uint64) error  { return nil }
func (nullDevice) Play() error                { return nil }
func (nullDevice) Pause()                     {}
func (nullDevice) Seek(float64)               {}
func (nullDevice) SetVolume(float64)          {}
func (nullDevice) SetMuted(bool)              {}
func (nullDevice) OnEvent(func(engine.Event)) {}
func (nullDevice) Close() error               { return nil }
func (nullDevice) OpenContext() (engine.ProcessingContext, error) {
	return nil, errors.New("no processing context")
}

func trackIDs(tracks []engine.Track) string {
	ids := make([]string, len(tracks))
	for i, t := range tracks {
		ids[i] = t.ID
	}
	return strings.Join(ids, "")
}

func TestQueueJumpKeepsShuffledOrder(t *testing.T) {
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctrl := engine.New(nullDevice{}, engine.WithRand(rand.New(rand.NewSource(3))), engine.WithLogger(quiet))
	defer ctrl.Close()

	var tracks []engine.Track
	for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
		tracks = append(tracks, engine.Track{ID: id, Title: strings.ToUpper(id), AudioURL: id + ".mp3"})
	}
	ctrl.ToggleShuffle()
	ctrl.SetPlaylist(tracks, 0)
	before := ctrl.State().Queue

	srv := httptest.NewServer(NewServer(ctrl, nil, quiet))
	defer srv.Close()

	if status, body := post(t, srv, "/api/queue", `{"index": 2}`); status != http.StatusOK {
		t.Fatalf("status %d, body %v", status, body)
	}

	st := ctrl.State()
	if got, want := trackIDs(st.Queue), trackIDs(before); got != want {
		t.Errorf("queue changed from %s to %s", want, got)
	}
	if st.CurrentTrack == nil || st.CurrentTrack.ID != before[2].ID {
		t.Errorf("current = %v, want %s", st.CurrentTrack, before[2].ID)
	}
	if !st.IsShuffled {
		t.Error("shuffle turned off")
	}
}

func TestForeignOriginRejected(t *testing.T) {
	p, srv := newTestServer(t)

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/next", nil)
	req.Header.Set("Origin", "https://evil.example")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", resp.StatusCode)
	}
	if len(p.Calls()) != 0 {
		t.Errorf("player was called: %v", p.Calls())
	}

	// The bundled page posts with its own origin.
	req, _ = http.NewRequest(http.MethodPost, srv.URL+"/api/next", nil)
	req.Header.Set("Origin", srv.URL)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("same origin status = %d, want 200", resp.StatusCode)
	}

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, wsResp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example"}})
	if err == nil {
		t.Fatal("websocket from a foreign origin was accepted")
	}
	if wsResp == nil || wsResp.StatusCode != http.StatusForbidden {
		t.Errorf("websocket response = %v, want 403", wsResp)
	}
}

func TestBodyMustBeJSON(t *testing.T) {
	p, srv := newTestServer(t)
	resp, err := http.Post(srv.URL+"/api/volume", "text/plain", strings.NewReader(`{"volume": 0}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Errorf("status = %d, want 415", resp.StatusCode)
	}
	if len(p.Calls()) != 0 {
		t.Errorf("player was called: %v", p.Calls())
	}
}
