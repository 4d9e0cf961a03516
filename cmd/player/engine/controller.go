package engine

import (
	"log/slog"
	"math/rand"
	"sync"
	"time"
)

const (
	defaultVolume = 0.7

	// restartThreshold is how far into a track "previous" restarts it instead
	// of stepping back.
	restartThreshold = 3.0
)

// Controller owns the playback session: current track, transport state, the
// queue and the equalizer chain. All operations are safe for concurrent use;
// they and the device event handler are serialized on one mutex.
type Controller struct {
	mu sync.Mutex

	device Device
	logger *slog.Logger
	rng    *rand.Rand

	// Session state
	currentTrack  *Track
	isPlaying     bool
	currentTime   float64
	duration      float64
	volume        float64
	isMuted       bool
	isShuffled    bool
	repeatMode    RepeatMode
	queue         []Track
	originalQueue []Track
	gains         [NumBands]float64

	generation  uint64     // Incremented by every PlayTrack, used to ignore stale device events
	eq          *Equalizer // nil until the first PlayTrack
	loading     bool       // The device is loading the current track
	startOnLoad bool       // Play once the load finishes, cleared by Pause
	pendingLoad *Track     // Requested under c.mu, loaded by unlock

	subscribers map[int]chan State
	nextSubID   int
	closed      bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger used for device failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRand sets the random source used for shuffling.
func WithRand(r *rand.Rand) Option {
	return func(c *Controller) {
		if r != nil {
			c.rng = r
		}
	}
}

// WithVolume sets the initial volume.
func WithVolume(volume float64) Option {
	return func(c *Controller) { c.volume = volume }
}

// WithRepeatMode sets the initial repeat mode.
func WithRepeatMode(mode RepeatMode) Option {
	return func(c *Controller) { c.repeatMode = mode }
}

// WithEqualizerGains sets the initial band gains, applied once the chain is built.
func WithEqualizerGains(gains [NumBands]float64) Option {
	return func(c *Controller) { c.gains = gains }
}

// New creates a controller driving device.
func New(device Device, opts ...Option) *Controller {
	c := &Controller{
		device:      device,
		logger:      slog.Default(),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		volume:      defaultVolume,
		repeatMode:  RepeatOff,
		subscribers: make(map[int]chan State),
	}
	for _, opt := range opts {
		opt(c)
	}

	device.SetVolume(c.volume)
	device.OnEvent(c.handleEvent)
	return c
}

// PlayTrack loads track and starts playing it, whether or not it is queued.
func (c *Controller) PlayTrack(track Track) {
	c.mu.Lock()
	defer c.unlock()

	c.playTrackLocked(track)
	c.publishLocked()
}

// playTrackLocked must be called with c.mu held, and the caller must release
// it with unlock, which performs the load.
func (c *Controller) playTrackLocked(track Track) {
	c.generation++
	t := track
	c.currentTrack = &t
	c.currentTime = 0
	c.duration = track.Duration

	c.ensureEqualizerLocked()

	c.loading = true
	c.startOnLoad = true
	c.pendingLoad = &t
}

// unlock releases c.mu and then loads the track requested while it was held,
// if any.
func (c *Controller) unlock() {
	track, generation := c.pendingLoad, c.generation
	c.pendingLoad = nil
	c.mu.Unlock()

	if track != nil {
		c.load(*track, generation)
	}
}

// load calls Device.Load without c.mu held; reading a URL may block for the
// whole HTTP timeout. The result is dropped when another track has been
// started in the meantime.
func (c *Controller) load(track Track, generation uint64) {
	err := c.device.Load(track.AudioURL, generation)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || generation != c.generation {
		return
	}

	c.loading = false
	if err != nil {
		c.logger.Error("failed to load track", "track", track.ID, "src", track.AudioURL, "error", err)
		c.isPlaying = false
	} else if c.startOnLoad {
		c.startLocked()
	}
	c.publishLocked()
}

// ensureEqualizerLocked builds the equalizer chain on first use. A failed
// build is logged and retried by the next PlayTrack.
func (c *Controller) ensureEqualizerLocked() {
	if c.eq != nil {
		return
	}
	eq, err := buildEqualizer(c.device, c.gains)
	if err != nil {
		c.logger.Error("failed to build equalizer", "error", err)
		return
	}
	c.eq = eq
}

// startLocked resumes a suspended processing context and asks the device to
// play. A rejection leaves isPlaying false.
func (c *Controller) startLocked() {
	if c.eq != nil && c.eq.ctx.Suspended() {
		if err := c.eq.ctx.Resume(); err != nil {
			c.logger.Warn("failed to resume processing context", "error", err)
		}
	}
	if err := c.device.Play(); err != nil {
		c.logger.Warn("device rejected playback", "error", err)
		c.isPlaying = false
		return
	}
	c.isPlaying = true
}

// Play resumes the current track. It is a no-op when nothing is loaded.
func (c *Controller) Play() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.playLocked() {
		c.publishLocked()
	}
}

func (c *Controller) playLocked() bool {
	if c.currentTrack == nil {
		return false
	}
	if c.loading {
		c.startOnLoad = true
		return true
	}
	c.startLocked()
	return true
}

// Pause suspends playback.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pauseLocked()
	c.publishLocked()
}

func (c *Controller) pauseLocked() {
	c.device.Pause()
	c.isPlaying = false
	c.startOnLoad = false
}

// TogglePlay pauses when playing and plays otherwise.
func (c *Controller) TogglePlay() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isPlaying {
		c.pauseLocked()
	} else if !c.playLocked() {
		return
	}
	c.publishLocked()
}

// Seek moves the playback position to seconds. The value is passed to the
// device as is; the published time is updated without waiting for the device.
func (c *Controller) Seek(seconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seekLocked(seconds)
	c.publishLocked()
}

func (c *Controller) seekLocked(seconds float64) {
	c.device.Seek(seconds)
	c.currentTime = seconds
}

// SetVolume sets the output volume in [0, 1]. A positive volume unmutes.
func (c *Controller) SetVolume(volume float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.device.SetVolume(volume)
	c.volume = volume
	if volume > 0 && c.isMuted {
		c.isMuted = false
		c.device.SetMuted(false)
	}
	c.publishLocked()
}

// ToggleMute flips the mute flag. The stored volume is kept.
func (c *Controller) ToggleMute() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.isMuted = !c.isMuted
	c.device.SetMuted(c.isMuted)
	c.publishLocked()
}

// ToggleShuffle flips shuffle mode. Enabling shuffles the current queue;
// disabling restores the original order exactly.
func (c *Controller) ToggleShuffle() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isShuffled {
		c.queue = cloneTracks(c.originalQueue)
	} else {
		c.queue = shuffleTracks(c.rng, c.queue)
	}
	c.isShuffled = !c.isShuffled
	c.publishLocked()
}

// CycleRepeatMode advances off -> all -> one -> off.
func (c *Controller) CycleRepeatMode() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.repeatMode = c.repeatMode.Next()
	c.publishLocked()
}

// PlayNext plays the track after the current one in the queue. At the end of
// the queue it wraps only when repeating all.
func (c *Controller) PlayNext() {
	c.mu.Lock()
	defer c.unlock()

	if c.playNextLocked() {
		c.publishLocked()
	}
}

// playNextLocked reports whether a new track was started.
func (c *Controller) playNextLocked() bool {
	if c.currentTrack == nil || len(c.queue) == 0 {
		return false
	}

	next := indexByID(c.queue, c.currentTrack.ID) + 1
	if next >= len(c.queue) {
		if c.repeatMode != RepeatAll {
			return false
		}
		next = 0
	}

	c.playTrackLocked(c.queue[next])
	return true
}

// PlayPrevious restarts the current track when more than three seconds have
// elapsed, otherwise steps back in the queue.
func (c *Controller) PlayPrevious() {
	c.mu.Lock()
	defer c.unlock()

	if c.currentTrack == nil || len(c.queue) == 0 {
		return
	}

	if c.currentTime > restartThreshold {
		c.seekLocked(0)
		c.publishLocked()
		return
	}

	prev := indexByID(c.queue, c.currentTrack.ID) - 1
	if prev < 0 {
		if c.repeatMode != RepeatAll {
			c.seekLocked(0)
			c.publishLocked()
			return
		}
		prev = len(c.queue) - 1
	}

	c.playTrackLocked(c.queue[prev])
	c.publishLocked()
}

// SetPlaylist replaces the queue with tracks and plays tracks[startIndex] if
// it exists. With shuffle on, the queue is a shuffled copy.
func (c *Controller) SetPlaylist(tracks []Track, startIndex int) {
	c.mu.Lock()
	defer c.unlock()

	c.originalQueue = cloneTracks(tracks)
	if c.isShuffled {
		c.queue = shuffleTracks(c.rng, tracks)
	} else {
		c.queue = cloneTracks(tracks)
	}

	if startIndex >= 0 && startIndex < len(tracks) {
		c.playTrackLocked(tracks[startIndex])
	}
	c.publishLocked()
}

// Enqueue appends tracks to the end of both queue orders without touching
// playback. Shuffled queues are not reshuffled.
func (c *Controller) Enqueue(tracks ...Track) {
	if len(tracks) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.originalQueue = append(c.originalQueue, tracks...)
	c.queue = append(c.queue, tracks...)
	c.publishLocked()
}

// UpdateEqualizerBand sets the gain of band index in dB. Before the chain
// exists the value is only remembered and applied at construction.
func (c *Controller) UpdateEqualizerBand(index int, gain float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.updateBandLocked(index, gain) {
		c.publishLocked()
	}
}

func (c *Controller) updateBandLocked(index int, gain float64) bool {
	if index < 0 || index >= NumBands {
		return false
	}
	c.gains[index] = gain
	if c.eq != nil {
		c.eq.filters[index].SetGain(gain)
	}
	return true
}

// ApplyPreset sets every band from p.
func (c *Controller) ApplyPreset(p Preset) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, gain := range p.Gains {
		c.updateBandLocked(i, gain)
	}
	c.publishLocked()
}

// handleEvent reacts to device notifications. Events for a source that has
// since been replaced are dropped.
func (c *Controller) handleEvent(ev Event) {
	c.mu.Lock()
	defer c.unlock()

	if c.closed || ev.Generation != c.generation {
		return
	}

	switch ev.Kind {
	case EventTimeUpdate:
		c.currentTime = ev.Time
	case EventLoadedMetadata:
		c.duration = ev.Duration
	case EventPlaying:
		c.isPlaying = true
	case EventPaused:
		c.isPlaying = false
	case EventError:
		c.logger.Error("playback error", "track", c.trackIDLocked(), "error", ev.Err)
		c.isPlaying = false
	case EventEnded:
		c.handleTrackEndLocked()
	default:
		return
	}
	c.publishLocked()
}

// handleTrackEndLocked applies the repeat policy when a track finishes on its own.
func (c *Controller) handleTrackEndLocked() {
	c.isPlaying = false
	if c.repeatMode == RepeatOne {
		c.seekLocked(0)
		c.startLocked()
		return
	}
	c.playNextLocked()
}

func (c *Controller) trackIDLocked() string {
	if c.currentTrack == nil {
		return ""
	}
	return c.currentTrack.ID
}

// State returns a snapshot of the session.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() State {
	s := State{
		IsPlaying:      c.isPlaying,
		CurrentTime:    c.currentTime,
		Duration:       c.duration,
		Volume:         c.volume,
		IsMuted:        c.isMuted,
		IsShuffled:     c.isShuffled,
		RepeatMode:     c.repeatMode,
		Queue:          cloneTracks(c.queue),
		OriginalQueue:  cloneTracks(c.originalQueue),
		EqualizerGains: c.gains,
	}
	if c.currentTrack != nil {
		t := *c.currentTrack
		s.CurrentTrack = &t
	}
	return s
}

// EqualizerReady reports whether the equalizer chain has been constructed.
func (c *Controller) EqualizerReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eq != nil
}

// Subscribe returns a channel receiving a snapshot after every state change,
// and a function that ends the subscription. A slow reader only sees the
// latest snapshot.
func (c *Controller) Subscribe() (<-chan State, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan State, 1)
	if c.closed {
		close(ch)
		return ch, func() {}
	}

	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = ch
	ch <- c.snapshotLocked()

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subscribers[id]; ok {
			delete(c.subscribers, id)
			close(sub)
		}
	}
}

// publishLocked must be called with c.mu held.
func (c *Controller) publishLocked() {
	if len(c.subscribers) == 0 {
		return
	}
	s := c.snapshotLocked()
	for _, ch := range c.subscribers {
		select {
		case ch <- s:
		default:
			// Replace the pending snapshot with the newer one
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- s:
			default:
			}
		}
	}
}

// Close ends all subscriptions and releases the device.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	for id, ch := range c.subscribers {
		delete(c.subscribers, id)
		close(ch)
	}
	eq := c.eq
	c.mu.Unlock()

	if eq != nil {
		_ = eq.ctx.Close()
	}
	return c.device.Close()
}
