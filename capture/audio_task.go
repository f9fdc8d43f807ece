package capture

import (
	"sync"
	"time"

	"github.com/Michael-A-Kuykendall/capturecore/backend"
	"github.com/Michael-A-Kuykendall/capturecore/captureerr"
	"github.com/Michael-A-Kuykendall/capturecore/clock"
	"github.com/Michael-A-Kuykendall/capturecore/internal/logging"
	"github.com/Michael-A-Kuykendall/capturecore/queue"
)

// AudioTask pulls packets from a single opened audio backend handle and
// delivers them to a bounded queue. Its shape mirrors VideoTask; audio
// failures are never terminal for a session on their own (that policy
// lives in the reconnection coordinator, not here).
type AudioTask struct {
	deviceID string
	be       backend.Audio
	handle   backend.Handle
	clock    *clock.PTSClock
	queue    *queue.Queue[*backend.AudioPacket]

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}

	Failure error
}

// NewAudioTask creates a task that has not yet started running Run.
func NewAudioTask(deviceID string, be backend.Audio, handle backend.Handle, clk *clock.PTSClock, q *queue.Queue[*backend.AudioPacket]) *AudioTask {
	return &AudioTask{
		deviceID: deviceID,
		be:       be,
		handle:   handle,
		clock:    clk,
		queue:    q,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Run executes the capture loop. It returns when Stop is called or
// when the backend reports a permanent failure; call this as a
// goroutine.
func (t *AudioTask) Run() {
	defer close(t.doneCh)
	log := logging.Get()

	for {
		select {
		case <-t.stopCh:
			return
		default:
		}

		packet, err := t.be.NextPacket(t.handle, backendPollTimeout)
		if err != nil {
			if captureerr.Is(err, captureerr.KindCaptureTimeout) {
				continue
			}
			log.Warn("audio capture task failing permanently", "device", t.deviceID, "error", err)
			t.Failure = captureerr.Wrap(captureerr.KindAudioFailed, "audio capture failed for "+t.deviceID, err)
			return
		}

		seq := t.queue.NextSeq()
		packet.Seq = seq
		packet.PTS = t.clock.Now()
		t.queue.PushSeq(seq, packet)
	}
}

// Stop signals the capture loop to exit. Safe to call multiple times
// and from any goroutine.
func (t *AudioTask) Stop() {
	t.stopOnce.Do(func() { close(t.stopCh) })
}

// Join waits for the task to exit, up to deadline. Returns
// captureerr.KindCloseTimedOut if the deadline elapses first.
func (t *AudioTask) Join(deadline time.Duration) error {
	select {
	case <-t.doneCh:
		return nil
	case <-time.After(deadline):
		return captureerr.New(captureerr.KindCloseTimedOut, "audio capture task for "+t.deviceID+" did not join in time")
	}
}

// Done reports the task's completion channel.
func (t *AudioTask) Done() <-chan struct{} { return t.doneCh }
