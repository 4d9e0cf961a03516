package audio

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gopxl/beep/v2"
)

// DefaultSampleRate is the speaker rate every source is resampled to.
const DefaultSampleRate = beep.SampleRate(44100)

type options struct {
	sampleRate   beep.SampleRate
	client       *http.Client
	logger       *slog.Logger
	tickInterval time.Duration
}

func defaultOptions() options {
	return options{
		sampleRate:   DefaultSampleRate,
		client:       http.DefaultClient,
		logger:       slog.Default(),
		tickInterval: 250 * time.Millisecond,
	}
}

// Option configures a Device.
type Option func(*options)

func WithSampleRate(sr beep.SampleRate) Option {
	return func(o *options) { o.sampleRate = sr }
}

// WithHTTPClient sets the client used to download http(s) sources.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		if client != nil {
			o.client = client
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithTickInterval sets how often time updates are emitted while playing.
func WithTickInterval(d time.Duration) Option {
	return func(o *options) { o.tickInterval = d }
}
