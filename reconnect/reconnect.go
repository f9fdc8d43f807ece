// Package reconnect implements the reconnection coordinator: when a
// caller hands it a lost device id (the session does so after a
// capture task's permanent failure), it polls enumeration until the
// device id reappears, and hands control back to the caller to
// re-open the backend and respawn the capture task. Backoff is
// exponential with a base, factor, cap, and a bounded attempt count,
// with distinct terminal semantics per track kind.
package reconnect

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/Michael-A-Kuykendall/capturecore/backend"
	"github.com/Michael-A-Kuykendall/capturecore/captureerr"
	"github.com/Michael-A-Kuykendall/capturecore/internal/logging"
)

// TrackKind distinguishes the two terminal-failure policies: a video
// track failure is terminal for the whole session, an audio track
// failure is not.
type TrackKind int

const (
	TrackVideo TrackKind = iota
	TrackAudio
)

// Backoff describes the exponential backoff schedule.
type Backoff struct {
	Initial     time.Duration
	Factor      float64
	Cap         time.Duration
	MaxAttempts int // 0 means unlimited
}

// DefaultBackoff matches spec: 100ms base, factor 2, 2s cap, 3 attempts.
func DefaultBackoff() Backoff {
	return Backoff{Initial: 100 * time.Millisecond, Factor: 2, Cap: 2 * time.Second, MaxAttempts: 3}
}

// next returns the delay before attempt n (1-indexed).
func (b Backoff) next(attempt int) time.Duration {
	d := float64(b.Initial)
	for i := 1; i < attempt; i++ {
		d *= b.Factor
	}
	if dur := time.Duration(d); dur < b.Cap {
		return dur
	}
	return b.Cap
}

type enumerator interface {
	Enumerate() ([]backend.DeviceInfo, error)
}

// Outcome is returned by Coordinate when reconnection ends, one way or
// the other.
type Outcome struct {
	Recovered bool
	Device    backend.DeviceInfo
	Attempts  int
	// Err is set when Recovered is false: captureerr.KindCaptureFailed
	// wrapping context for a video track (session-terminal), or
	// captureerr.KindAudioFailed for an audio track (non-terminal).
	Err error
}

// Coordinator runs the poll-and-backoff loop for a single track.
type Coordinator struct {
	enum    enumerator
	backoff Backoff
}

// New creates a Coordinator against the given enumerator.
func New(enum enumerator, backoff Backoff) *Coordinator {
	return &Coordinator{enum: enum, backoff: backoff}
}

// Coordinate polls for deviceID's reappearance with exponential
// backoff, up to backoff.MaxAttempts (0 = unbounded, bounded only by
// ctx). It returns as soon as the device is found available again, or
// once attempts are exhausted.
func (c *Coordinator) Coordinate(ctx context.Context, deviceID string, kind TrackKind) Outcome {
	log := logging.Get()
	attempt := 0

	for {
		attempt++

		devices, err := c.enum.Enumerate()
		if err == nil {
			for _, d := range devices {
				if d.ID == deviceID && d.IsAvailable {
					log.Info("device reconnected", "device", deviceID, "attempts", attempt)
					return Outcome{Recovered: true, Device: d, Attempts: attempt}
				}
			}
		}

		if c.backoff.MaxAttempts > 0 && attempt >= c.backoff.MaxAttempts {
			return c.exhausted(deviceID, kind, attempt)
		}

		delay := c.backoff.next(attempt)
		log.Warn("device still unavailable, backing off", "device", deviceID, "attempt", attempt, "delay", delay)

		select {
		case <-ctx.Done():
			return c.exhausted(deviceID, kind, attempt)
		case <-time.After(delay):
		}
	}
}

func (c *Coordinator) exhausted(deviceID string, kind TrackKind, attempts int) Outcome {
	// errors.Errorf carries a stack trace through to whatever logs the
	// daemon-side failure; captureerr.Wrap keeps the Kind callers switch on.
	cause := errors.Errorf("exhausted %d reconnect attempts for %s", attempts, deviceID)

	var err error
	if kind == TrackVideo {
		err = captureerr.Wrap(captureerr.KindCaptureFailed, "video device "+deviceID+" did not reconnect, session failing", cause)
	} else {
		err = captureerr.Wrap(captureerr.KindAudioFailed, "audio device "+deviceID+" did not reconnect, continuing video-only", cause)
	}
	return Outcome{Recovered: false, Attempts: attempts, Err: err}
}

// IsTerminal reports whether a failed Outcome should end the whole
// session (video) or just disable one track (audio).
func (o Outcome) IsTerminal() bool {
	return !o.Recovered && captureerr.Is(o.Err, captureerr.KindCaptureFailed)
}
