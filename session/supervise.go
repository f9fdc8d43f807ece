package session

import (
	"github.com/Michael-A-Kuykendall/capturecore/capture"
	"github.com/Michael-A-Kuykendall/capturecore/internal/logging"
	"github.com/Michael-A-Kuykendall/capturecore/reconnect"
)

// superviseVideo watches the running video capture task for a
// permanent failure and drives the reconnection coordinator. A video
// track that exhausts reconnection is session-terminal: Stats/NextFrame
// report the failure, but the session itself is left in the Started
// state for the caller to Stop/Close explicitly.
func (s *Session) superviseVideo() {
	defer s.reconnectWG.Done()

	select {
	case <-s.videoTask.Done():
	case <-s.reconnectCtx.Done():
		return
	}

	s.mu.Lock()
	task := s.videoTask
	s.mu.Unlock()
	if task == nil || task.Failure == nil {
		return
	}

	log := logging.Get()
	log.Warn("video capture task failed, attempting reconnection", "device", s.cfg.VideoDeviceID, "err", task.Failure)

	coord := reconnect.New(s.videoBackend, s.cfg.ReconnectBackoff)
	outcome := coord.Coordinate(s.reconnectCtx, s.cfg.VideoDeviceID, reconnect.TrackVideo)

	s.mu.Lock()
	s.videoAttempts = outcome.Attempts
	s.mu.Unlock()

	if !outcome.Recovered {
		s.mu.Lock()
		s.videoFailed = outcome.Err
		s.mu.Unlock()
		s.videoQueue.Close()
		log.Error("video track failed permanently, session requires explicit close", "device", s.cfg.VideoDeviceID)
		return
	}

	if err := s.reopenVideo(); err != nil {
		s.mu.Lock()
		s.videoFailed = err
		s.mu.Unlock()
		s.videoQueue.Close()
		return
	}

	s.reconnectWG.Add(1)
	go s.superviseVideo()
}

// superviseAudio mirrors superviseVideo for the non-terminal audio
// track: on exhaustion it marks audioFailed and leaves video capture
// running untouched.
func (s *Session) superviseAudio() {
	defer s.reconnectWG.Done()

	select {
	case <-s.audioTask.Done():
	case <-s.reconnectCtx.Done():
		return
	}

	s.mu.Lock()
	task := s.audioTask
	s.mu.Unlock()
	if task == nil || task.Failure == nil {
		return
	}

	log := logging.Get()
	log.Warn("audio capture task failed, attempting reconnection", "device", s.cfg.AudioDeviceID, "err", task.Failure)

	coord := reconnect.New(s.audioBackend, s.cfg.ReconnectBackoff)
	outcome := coord.Coordinate(s.reconnectCtx, s.cfg.AudioDeviceID, reconnect.TrackAudio)

	s.mu.Lock()
	s.audioAttempts = outcome.Attempts
	s.mu.Unlock()

	if !outcome.Recovered {
		s.mu.Lock()
		s.audioFailed = outcome.Err
		s.hasAudio = false
		s.mu.Unlock()
		if s.audioQueue != nil {
			s.audioQueue.Close()
		}
		log.Warn("audio track failed permanently, continuing video-only", "device", s.cfg.AudioDeviceID)
		return
	}

	if err := s.reopenAudio(); err != nil {
		s.mu.Lock()
		s.audioFailed = err
		s.hasAudio = false
		s.mu.Unlock()
		if s.audioQueue != nil {
			s.audioQueue.Close()
		}
		return
	}

	s.reconnectWG.Add(1)
	go s.superviseAudio()
}

func (s *Session) reopenVideo() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, err := s.videoBackend.Open(s.cfg.VideoDeviceID, s.cfg.VideoFormat)
	if err != nil {
		return err
	}
	if err := s.videoBackend.Start(h); err != nil {
		return err
	}
	s.videoHandle = h
	s.videoTask = capture.NewVideoTask(s.cfg.VideoDeviceID, s.videoBackend, s.videoHandle, s.clk, s.videoQueue)
	go s.videoTask.Run()
	return nil
}

func (s *Session) reopenAudio() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, err := s.audioBackend.Open(s.cfg.AudioDeviceID, s.cfg.AudioFormat)
	if err != nil {
		return err
	}
	if err := s.audioBackend.Start(h); err != nil {
		return err
	}
	s.audioHandle = h
	s.audioTask = capture.NewAudioTask(s.cfg.AudioDeviceID, s.audioBackend, s.audioHandle, s.clk, s.audioQueue)
	go s.audioTask.Run()
	return nil
}
