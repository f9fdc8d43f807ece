// Package avsync implements the A/V drift policy applied at mux-time
// interleaving: audio and video share a single PTS clock
// (clock.PTSClock) so drift should stay small by construction, but
// scheduling jitter between the two capture tasks still needs a
// bounded check before a pair reaches the muxer. The soft/hard budget
// split and "never block video" posture are grounded on
// rustyguts-bken's sync-monitor logging pattern, adapted from a
// warn-and-continue log line into an explicit discontinuity marker the
// muxer can act on.
package avsync

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Michael-A-Kuykendall/capturecore/internal/logging"
)

const (
	// SoftDriftBudgetMS is the drift, in milliseconds, below which no
	// action is taken.
	SoftDriftBudgetMS = 40
	// HardDriftLimitMS is the drift, in milliseconds, beyond which a
	// discontinuity marker is raised.
	HardDriftLimitMS = 100
)

// EarlyAudioPolicy controls what happens to audio packets whose PTS
// precedes the first video PTS observed by the policy.
type EarlyAudioPolicy int

const (
	// DropEarlyAudio discards packets that arrive before the first
	// video PTS.
	DropEarlyAudio EarlyAudioPolicy = iota
	// PadEarlyAudio retains packets but flags them so the caller can
	// insert silence padding ahead of them instead.
	PadEarlyAudio
)

// Decision is the per-packet verdict the policy returns when handed a
// candidate audio PTS.
type Decision struct {
	// Keep is false when the packet should be dropped outright
	// (DropEarlyAudio, packet precedes first video PTS).
	Keep bool
	// Discontinuity is true when this packet's arrival pushed drift
	// past HardDriftLimitMS; the muxer should emit a timestamp
	// discontinuity marker alongside it.
	Discontinuity bool
	// DriftMS is the observed |audio_pts - video_pts| in milliseconds
	// at the moment this decision was made.
	DriftMS int64
	// Early is true when the packet precedes the first video PTS and
	// was kept under PadEarlyAudio.
	Early bool
}

// Policy tracks the most recent video PTS and the first video PTS seen,
// and evaluates each audio packet's PTS against them. A Policy is safe
// for concurrent use; in a session the recorder goroutine feeds it both
// video and audio PTS values.
type Policy struct {
	mu            sync.Mutex
	firstVideoSet bool
	firstVideoPTS uint64
	lastVideoPTS  atomic.Uint64
	earlyPolicy   EarlyAudioPolicy

	hardBreaches atomic.Uint64
}

// New creates a Policy with the given early-audio handling mode.
func New(earlyPolicy EarlyAudioPolicy) *Policy {
	return &Policy{earlyPolicy: earlyPolicy}
}

// ObserveVideo records a video sample's PTS (in the clock's native
// tick units, which this package treats as nanoseconds per
// clock.PTSClock's contract). Video is never blocked or rejected by
// this policy; ObserveVideo cannot fail.
func (p *Policy) ObserveVideo(pts uint64) {
	p.mu.Lock()
	if !p.firstVideoSet {
		p.firstVideoSet = true
		p.firstVideoPTS = pts
	}
	p.mu.Unlock()
	p.lastVideoPTS.Store(pts)
}

// EvaluateAudio decides whether an audio packet at the given PTS should
// be kept, and whether its drift against the last observed video PTS
// breached the hard limit.
func (p *Policy) EvaluateAudio(pts uint64) Decision {
	p.mu.Lock()
	firstSet := p.firstVideoSet
	firstPTS := p.firstVideoPTS
	p.mu.Unlock()

	if firstSet && pts < firstPTS {
		if p.earlyPolicy == DropEarlyAudio {
			return Decision{Keep: false}
		}
		return Decision{Keep: true, Early: true}
	}

	last := p.lastVideoPTS.Load()
	driftNS := int64(pts) - int64(last)
	if driftNS < 0 {
		driftNS = -driftNS
	}
	driftMS := driftNS / int64(1_000_000)

	d := Decision{Keep: true, DriftMS: driftMS}
	if driftMS > HardDriftLimitMS {
		d.Discontinuity = true
		p.hardBreaches.Add(1)
		logging.Get().Warn("a/v drift exceeded hard limit",
			slog.Int64("drift_ms", driftMS), slog.Int64("hard_limit_ms", HardDriftLimitMS))
	}
	return d
}

// HardBreachCount returns how many audio packets have triggered a
// discontinuity marker since the policy was created.
func (p *Policy) HardBreachCount() uint64 { return p.hardBreaches.Load() }
