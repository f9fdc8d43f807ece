// Package capture implements the per-device capture tasks: one
// goroutine per active video or audio device, pulling raw data from a
// backend handle with a short internal timeout, stamping PTS from the
// session's shared clock at delivery time, and pushing into a bounded
// delivery queue. Shutdown is ordered: stop the producer first, then
// join the goroutine.
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

// backendPollTimeout is the short internal timeout capture tasks use
// when polling a backend, bounding how long a stop signal can go
// unobserved.
const backendPollTimeout = 100 * time.Millisecond

// VideoTask pulls frames from a single opened video backend handle and
// delivers them to a bounded queue.
type VideoTask struct {
	deviceID string
	be       backend.Video
	handle   backend.Handle
	clock    *clock.PTSClock
	queue    *queue.Queue[*backend.Frame]

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}

	// Failure carries the permanent error that ended the task, if any.
	// It is written at most once before doneCh closes and is safe to
	// read only after <-doneCh.
	Failure error
}

// NewVideoTask creates a task that has not yet started running Run.
func NewVideoTask(deviceID string, be backend.Video, handle backend.Handle, clk *clock.PTSClock, q *queue.Queue[*backend.Frame]) *VideoTask {
	return &VideoTask{
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
func (t *VideoTask) Run() {
	defer close(t.doneCh)
	log := logging.Get()

	for {
		select {
		case <-t.stopCh:
			return
		default:
		}

		frame, err := t.be.NextFrame(t.handle, backendPollTimeout)
		if err != nil {
			if captureerr.Is(err, captureerr.KindCaptureTimeout) {
				continue
			}
			log.Warn("video capture task failing permanently", "device", t.deviceID, "error", err)
			t.Failure = captureerr.Wrap(captureerr.KindCaptureFailed, "video capture failed for "+t.deviceID, err)
			return
		}

		seq := t.queue.NextSeq()
		frame.Seq = seq
		frame.PTS = t.clock.Now()
		t.queue.PushSeq(seq, frame)
	}
}

// Stop signals the capture loop to exit. Safe to call multiple times
// and from any goroutine.
func (t *VideoTask) Stop() {
	t.stopOnce.Do(func() { close(t.stopCh) })
}

// Join waits for the task to exit, up to deadline. Returns
// captureerr.KindCloseTimedOut if the deadline elapses first.
func (t *VideoTask) Join(deadline time.Duration) error {
	select {
	case <-t.doneCh:
		return nil
	case <-time.After(deadline):
		return captureerr.New(captureerr.KindCloseTimedOut, "video capture task for "+t.deviceID+" did not join in time")
	}
}

// Done reports the task's completion channel, for callers that want to
// select on it directly alongside other signals.
func (t *VideoTask) Done() <-chan struct{} { return t.doneCh }
