// Package notify shows a desktop notification when a new track starts.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gen2brain/beeep"

	"github.com/gigurra/tunes/cmd/player/engine"
)

const appName = "tunes"

// Sender delivers one notification.
type Sender func(title, message string) error

// Desktop sends through the OS notification service.
func Desktop(title, message string) error {
	return beeep.Notify(title, message, "")
}

// Notifier turns state snapshots into "now playing" notifications. Track
// changes within the cooldown of the previous notification are skipped.
type Notifier struct {
	send     Sender
	cooldown time.Duration
	logger   *slog.Logger
	now      func() time.Time

	lastID   string
	lastSent time.Time
}

func New(send Sender, cooldown time.Duration, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	beeep.AppName = appName
	return &Notifier{send: send, cooldown: cooldown, logger: logger, now: time.Now}
}

// Observe handles one snapshot and reports whether a notification was sent.
func (n *Notifier) Observe(s engine.State) bool {
	if s.CurrentTrack == nil || !s.IsPlaying || s.CurrentTrack.ID == n.lastID {
		return false
	}
	n.lastID = s.CurrentTrack.ID

	now := n.now()
	if !n.lastSent.IsZero() && now.Sub(n.lastSent) < n.cooldown {
		return false
	}

	t := s.CurrentTrack
	message := t.Title
	if t.Artist != "" {
		message = fmt.Sprintf("%s\n%s", t.Title, t.Artist)
	}
	if err := n.send("Now playing", message); err != nil {
		n.logger.Warn("failed to send notification", "error", err)
		return false
	}
	n.lastSent = now
	return true
}

// Run observes states until ctx is done or the channel closes.
func (n *Notifier) Run(ctx context.Context, states <-chan engine.State) {
	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-states:
			if !ok {
				return
			}
			n.Observe(s)
		}
	}
}
