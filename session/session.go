// Package session implements the headless capture session lifecycle:
// a state machine coordinating one or more devices, the shared PTS
// clock, bounded delivery queues, capture tasks, the optional device
// monitor and reconnection coordinator, and (if recording is
// configured) the encoder/muxer pipeline. It is the orchestration
// layer every other package in this module feeds.
//
// Transitions are idempotent and return explicit errors rather than
// panicking or silently no-opping: AlreadyStarted, AlreadyStopped,
// AlreadyClosed, InvalidTransition. Close is bounded by a join
// deadline so a hung capture goroutine cannot hang the caller.
package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Michael-A-Kuykendall/capturecore/avsync"
	"github.com/Michael-A-Kuykendall/capturecore/backend"
	"github.com/Michael-A-Kuykendall/capturecore/capture"
	"github.com/Michael-A-Kuykendall/capturecore/captureerr"
	"github.com/Michael-A-Kuykendall/capturecore/clock"
	"github.com/Michael-A-Kuykendall/capturecore/devicemon"
	"github.com/Michael-A-Kuykendall/capturecore/internal/logging"
	"github.com/Michael-A-Kuykendall/capturecore/queue"
	"github.com/Michael-A-Kuykendall/capturecore/reconnect"
)

// State is one of a session's five lifecycle states.
// Transitions are explicit and one-way; Closed is terminal.
type State int

const (
	Created State = iota
	Opened
	Started
	Stopped
	Closed
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Opened:
		return "opened"
	case Started:
		return "started"
	case Stopped:
		return "stopped"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// DefaultCaptureJoinDeadline is the join deadline for a single capture
// task's Stop/Join during Stop().
const DefaultCaptureJoinDeadline = 500 * time.Millisecond

// DefaultCloseDeadline bounds the whole Close() sequence.
const DefaultCloseDeadline = 2 * time.Second

// CaptureConfig configures Open. VideoBackend/AudioBackend let callers
// (tests, or a higher-level adapter) inject a specific backend
// instance; when nil, Open selects one from the device id's prefix
// ("mock_" / "mock_audio" for the deterministic backend, "portaudio_"
// for the real audio backend, otherwise the platform video stub).
type CaptureConfig struct {
	VideoDeviceID string
	VideoFormat   backend.VideoFormat
	VideoBackend  backend.Video

	// AudioDeviceID empty means no audio track at all. A non-empty id
	// that fails to open does NOT fail Open: the session starts
	// video-only and NextAudio immediately returns AudioFailed.
	AudioDeviceID string
	AudioFormat   backend.AudioFormat
	AudioBackend  backend.Audio

	QueueVideoCapacity int
	QueueVideoPolicy   queue.Policy
	QueueAudioCapacity int
	QueueAudioPolicy   queue.Policy

	EnableDeviceMonitor bool
	MonitorInterval     time.Duration
	ReconnectBackoff    reconnect.Backoff

	Recording *RecordingConfig

	CaptureJoinDeadline time.Duration
	CloseDeadline       time.Duration
}

func (c *CaptureConfig) fillDefaults() {
	if c.QueueVideoCapacity <= 0 {
		c.QueueVideoCapacity = 8
	}
	if c.QueueAudioCapacity <= 0 {
		c.QueueAudioCapacity = 64
	}
	if c.MonitorInterval <= 0 {
		c.MonitorInterval = devicemon.DefaultPollInterval
	}
	if c.ReconnectBackoff == (reconnect.Backoff{}) {
		c.ReconnectBackoff = reconnect.DefaultBackoff()
	}
	if c.CaptureJoinDeadline <= 0 {
		c.CaptureJoinDeadline = DefaultCaptureJoinDeadline
	}
	if c.CloseDeadline <= 0 {
		c.CloseDeadline = DefaultCloseDeadline
	}
}

// Stats is returned by Session.Stats: a snapshot of delivery and
// failure counters.
type Stats struct {
	DropCountVideo     uint64
	DropCountAudio     uint64
	FramesDelivered    uint64
	AudioDelivered     uint64
	VideoFailed        bool
	AudioFailed        bool
	ReconnectAttemptsV int
	ReconnectAttemptsA int
}

// Session is a lifetime-bounded capture context owning devices, the
// shared clock, delivery queues, capture tasks, and (optionally) a
// recorder. Send-safe but not sync-safe: NextFrame/NextAudio are meant
// to be called from a single consumer goroutine. Lifecycle methods
// (Start/Stop/Close/SetControl/Stats) are safe for concurrent use.
type Session struct {
	id  uuid.UUID
	cfg CaptureConfig

	mu    sync.Mutex
	state State

	clk *clock.PTSClock

	videoBackend backend.Video
	videoHandle  backend.Handle
	videoQueue   *queue.Queue[*backend.Frame]
	videoTask    *capture.VideoTask
	videoFailed  error
	videoAttempts int

	hasAudio     bool
	audioBackend backend.Audio
	audioHandle  backend.Handle
	audioQueue   *queue.Queue[*backend.AudioPacket]
	audioTask    *capture.AudioTask
	audioFailed  error
	audioAttempts int

	monitor       *devicemon.Monitor
	reconnectCtx  context.Context
	reconnectStop context.CancelFunc
	reconnectWG   sync.WaitGroup

	avPolicy *avsync.Policy
	rec      *recorder

	framesDelivered atomic.Uint64
	audioDelivered  atomic.Uint64
}

// Open validates the requested formats, reserves the video backend
// handle (and, best-effort, the audio handle), and returns a Session in
// the Opened state. Open allocates no capture goroutines; Start is what
// spawns threads.
func Open(cfg CaptureConfig) (*Session, error) {
	cfg.fillDefaults()

	if cfg.VideoDeviceID == "" {
		return nil, captureerr.New(captureerr.KindFormatNegotiationFailed, "a video device id is required to open a session")
	}

	vb := cfg.VideoBackend
	if vb == nil {
		vb = selectVideoBackend(cfg.VideoDeviceID)
	}
	vh, err := vb.Open(cfg.VideoDeviceID, cfg.VideoFormat)
	if err != nil {
		return nil, err
	}

	s := &Session{
		id:           uuid.New(),
		cfg:          cfg,
		state:        Opened,
		videoBackend: vb,
		videoHandle:  vh,
		videoQueue:   queue.New[*backend.Frame](cfg.QueueVideoCapacity, cfg.QueueVideoPolicy),
		avPolicy:     avsync.New(avsync.DropEarlyAudio),
	}

	if cfg.AudioDeviceID != "" {
		ab := cfg.AudioBackend
		if ab == nil {
			ab = selectAudioBackend(cfg.AudioDeviceID)
		}
		s.audioBackend = ab
		s.audioQueue = queue.New[*backend.AudioPacket](cfg.QueueAudioCapacity, cfg.QueueAudioPolicy)

		ah, err := ab.Open(cfg.AudioDeviceID, cfg.AudioFormat)
		if err != nil {
			s.audioFailed = captureerr.Wrap(captureerr.KindAudioFailed, "audio device unavailable at open", err)
		} else {
			s.audioHandle = ah
			s.hasAudio = true
		}
	}

	return s, nil
}

// ID returns the session's process-unique identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// State reports the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start spawns the PTS clock, capture tasks, the device monitor (if
// enabled), the reconnection supervisor, and (if configured) the
// recording pipeline.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case Closed:
		return captureerr.New(captureerr.KindSessionClosed, "session is closed")
	case Started:
		return captureerr.New(captureerr.KindAlreadyStarted, "session already started")
	case Stopped:
		return captureerr.New(captureerr.KindInvalidTransition, "cannot start a stopped session")
	}

	s.clk = clock.New()

	if err := s.videoBackend.Start(s.videoHandle); err != nil {
		return err
	}
	s.videoTask = capture.NewVideoTask(s.cfg.VideoDeviceID, s.videoBackend, s.videoHandle, s.clk, s.videoQueue)
	go s.videoTask.Run()

	if s.hasAudio {
		if err := s.audioBackend.Start(s.audioHandle); err != nil {
			s.audioFailed = captureerr.Wrap(captureerr.KindAudioFailed, "audio backend failed to start", err)
			s.hasAudio = false
		} else {
			s.audioTask = capture.NewAudioTask(s.cfg.AudioDeviceID, s.audioBackend, s.audioHandle, s.clk, s.audioQueue)
			go s.audioTask.Run()
		}
	}

	s.reconnectCtx, s.reconnectStop = context.WithCancel(context.Background())
	s.reconnectWG.Add(1)
	go s.superviseVideo()
	if s.hasAudio {
		s.reconnectWG.Add(1)
		go s.superviseAudio()
	}

	if s.cfg.EnableDeviceMonitor {
		s.monitor = devicemon.New(&combinedEnumerator{video: s.videoBackend, audio: s.audioBackend}, s.cfg.MonitorInterval, 64)
		go s.monitor.Run()
	}

	if s.cfg.Recording != nil {
		rec, err := newRecorder(s)
		if err != nil {
			return err
		}
		s.rec = rec
		go s.rec.run()
	}

	s.state = Started
	return nil
}

// Stop signals every capture task and the device monitor to exit,
// closes the delivery queues, stops the backends, and (if recording)
// flushes and finalizes the muxer. The queues are closed, not drained:
// items still buffered stay poppable through NextFrame/NextAudio, and a
// recorder finalizes the muxer with the samples it has already written,
// without encoding what is still queued.
func (s *Session) Stop() error {
	s.mu.Lock()
	switch s.state {
	case Closed:
		s.mu.Unlock()
		return captureerr.New(captureerr.KindSessionClosed, "session is closed")
	case Stopped:
		s.mu.Unlock()
		return captureerr.New(captureerr.KindAlreadyStopped, "session already stopped")
	case Created, Opened:
		s.mu.Unlock()
		return captureerr.New(captureerr.KindInvalidTransition, "session was never started")
	}
	s.mu.Unlock()

	s.stopWorkers()

	s.mu.Lock()
	s.state = Stopped
	s.mu.Unlock()
	return nil
}

// stopWorkers signals and joins every spawned goroutine. It is called
// by both Stop and Close (Close calls it only if the session is still
// Started) and is safe to call at most once per Start.
func (s *Session) stopWorkers() {
	if s.reconnectStop != nil {
		s.reconnectStop()
	}
	if s.monitor != nil {
		s.monitor.Stop()
	}

	s.videoTask.Stop()
	if s.videoTask.Join(s.cfg.CaptureJoinDeadline) != nil {
		logging.Get().Warn("video capture task did not join within deadline", "device", s.cfg.VideoDeviceID)
	}
	if s.hasAudio && s.audioTask != nil {
		s.audioTask.Stop()
		if s.audioTask.Join(s.cfg.CaptureJoinDeadline) != nil {
			logging.Get().Warn("audio capture task did not join within deadline", "device", s.cfg.AudioDeviceID)
		}
	}

	s.reconnectWG.Wait()

	_ = s.videoBackend.Stop(s.videoHandle)
	if s.hasAudio {
		_ = s.audioBackend.Stop(s.audioHandle)
	}

	s.videoQueue.Close()
	if s.audioQueue != nil {
		s.audioQueue.Close()
	}

	if s.rec != nil {
		s.rec.stop()
	}
}

// Close consumes the session: if it is still Started, Stop's sequence
// runs first. close() is idempotent on Closed (returns AlreadyClosed on
// a second call) and bounded by cfg.CloseDeadline; a slow worker makes
// it return CloseTimedOut rather than hang.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.state == Closed {
		s.mu.Unlock()
		return captureerr.New(captureerr.KindAlreadyClosed, "session already closed")
	}
	state := s.state
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if state == Started {
			s.stopWorkers()
		}
		_ = s.videoBackend.Close(s.videoHandle)
		if s.hasAudio {
			_ = s.audioBackend.Close(s.audioHandle)
		}
	}()

	var closeErr error
	select {
	case <-done:
	case <-time.After(s.cfg.CloseDeadline):
		closeErr = captureerr.New(captureerr.KindCloseTimedOut, "session close exceeded its bounded deadline, some workers may be detached")
	}

	s.mu.Lock()
	s.state = Closed
	s.mu.Unlock()
	return closeErr
}

// NextFrame pops the next delivered video frame, honoring timeout the
// same way queue.Pop does (0 polls non-blocking). It returns (nil, nil)
// on a timeout with no frame available, and a non-nil error for
// session-closed or permanent video failure.
func (s *Session) NextFrame(timeout time.Duration) (*backend.Frame, error) {
	s.mu.Lock()
	state := s.state
	failed := s.videoFailed
	s.mu.Unlock()

	if state == Closed {
		return nil, captureerr.New(captureerr.KindSessionClosed, "session is closed")
	}

	f, err := s.videoQueue.Pop(timeout)
	switch {
	case err == nil:
		s.framesDelivered.Add(1)
		return f, nil
	case err == queue.ErrTimeout:
		return nil, nil
	default: // queue.ErrClosed
		if failed != nil {
			return nil, failed
		}
		return nil, captureerr.New(captureerr.KindSessionClosed, "video delivery queue closed")
	}
}

// NextAudio mirrors NextFrame for the audio track. If the session has
// no audio device, or audio has permanently failed (at open or during
// capture, including reconnection exhaustion), it always returns
// AudioFailed. Video delivery is unaffected.
func (s *Session) NextAudio(timeout time.Duration) (*backend.AudioPacket, error) {
	s.mu.Lock()
	hasAudio := s.hasAudio
	failed := s.audioFailed
	s.mu.Unlock()

	if failed != nil {
		return nil, failed
	}
	if !hasAudio || s.audioQueue == nil {
		return nil, captureerr.New(captureerr.KindAudioFailed, "session has no audio track")
	}

	p, err := s.audioQueue.Pop(timeout)
	switch {
	case err == nil:
		s.audioDelivered.Add(1)
		return p, nil
	case err == queue.ErrTimeout:
		return nil, nil
	default:
		s.mu.Lock()
		failed = s.audioFailed
		s.mu.Unlock()
		if failed != nil {
			return nil, failed
		}
		return nil, captureerr.New(captureerr.KindAudioFailed, "audio delivery queue closed")
	}
}

// SetControl routes a control-value change to whichever backend owns
// deviceID.
func (s *Session) SetControl(deviceID, controlID string, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if deviceID == s.cfg.VideoDeviceID {
		return s.videoBackend.SetControl(s.videoHandle, controlID, value)
	}
	if s.hasAudio && deviceID == s.cfg.AudioDeviceID {
		return s.audioBackend.SetControl(s.audioHandle, controlID, value)
	}
	return captureerr.New(captureerr.KindDeviceNotFound, "no open device with id "+deviceID)
}

// Stats returns a snapshot of delivery and failure counters.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		DropCountVideo:     s.videoQueue.DropCount(),
		DropCountAudio:     audioDropCount(s.audioQueue),
		FramesDelivered:    s.framesDelivered.Load(),
		AudioDelivered:     s.audioDelivered.Load(),
		VideoFailed:        s.videoFailed != nil,
		AudioFailed:        s.audioFailed != nil,
		ReconnectAttemptsV: s.videoAttempts,
		ReconnectAttemptsA: s.audioAttempts,
	}
}

func audioDropCount(q *queue.Queue[*backend.AudioPacket]) uint64 {
	if q == nil {
		return 0
	}
	return q.DropCount()
}

// RecentDeviceEvents returns the device monitor's ring buffer of
// recent hot-plug events, or nil if the monitor was not enabled.
func (s *Session) RecentDeviceEvents() []devicemon.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.monitor == nil {
		return nil
	}
	return s.monitor.Recent()
}

// EnumerateVideo lists currently known video devices of the mock and
// platform backends together, without an open session (used by the
// CLI's `devices` command).
func EnumerateVideo() ([]backend.DeviceInfo, error) {
	devs, err := backend.NewMockVideo().Enumerate()
	if err != nil {
		return nil, err
	}
	real, err := backend.NewPlatformVideo().Enumerate()
	if err != nil {
		return devs, nil
	}
	return append(devs, real...), nil
}

// EnumerateAudio lists currently known audio devices across the mock
// and portaudio backends.
func EnumerateAudio() ([]backend.DeviceInfo, error) {
	devs, err := backend.NewMockAudio(false).Enumerate()
	if err != nil {
		return nil, err
	}
	real, err := backend.NewPortaudioAudio().Enumerate()
	if err != nil {
		return devs, nil
	}
	return append(devs, real...), nil
}

type combinedEnumerator struct {
	video backend.Video
	audio backend.Audio
}

func (c *combinedEnumerator) Enumerate() ([]backend.DeviceInfo, error) {
	var out []backend.DeviceInfo
	if c.video != nil {
		if v, err := c.video.Enumerate(); err == nil {
			out = append(out, v...)
		}
	}
	if c.audio != nil {
		if a, err := c.audio.Enumerate(); err == nil {
			out = append(out, a...)
		}
	}
	return out, nil
}
