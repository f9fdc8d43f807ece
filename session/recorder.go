package session

import (
	"os"
	"sync"
	"time"

	"github.com/Michael-A-Kuykendall/capturecore/captureerr"
	"github.com/Michael-A-Kuykendall/capturecore/encoder"
	"github.com/Michael-A-Kuykendall/capturecore/internal/logging"
	"github.com/Michael-A-Kuykendall/capturecore/muxer"
)

// RecordingConfig configures the recorder pipeline layered on top of a
// session's raw delivery queues: an encoder per track feeding the
// selected muxer mode. It wraps muxer.RecordingConfig with the
// encoder-side knobs (keyframe interval, Opus tuning) that belong to
// this core rather than to the container writer.
type RecordingConfig struct {
	Muxer         muxer.RecordingConfig
	KeyframeEvery int // default 30 (one IDR per second at 30fps)
	OpusOptions   encoder.OpusEncoderOptions
}

func (c *RecordingConfig) keyframeEvery() int {
	if c.KeyframeEvery <= 0 {
		return 30
	}
	return c.KeyframeEvery
}

// recorder drains a session's video/audio queues through encoders into
// a Muxer, writing to the configured output file. It runs on its own
// goroutine for the life of the session; Stop() join it with the same
// bounded-deadline shape as a capture task.
type recorder struct {
	session *Session
	cfg     *RecordingConfig

	file *os.File
	mux  muxer.Muxer

	videoEnc *encoder.H264Encoder
	audioEnc encoder.AudioEncoder

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}

	stats muxer.Stats
	err   error
}

func newRecorder(s *Session) (*recorder, error) {
	cfg := s.cfg.Recording

	f, err := os.Create(cfg.Muxer.OutputPath)
	if err != nil {
		return nil, captureerr.Wrap(captureerr.KindIOError, "creating recording output file", err)
	}

	mux, err := muxer.New(f, cfg.Muxer)
	if err != nil {
		f.Close()
		return nil, err
	}

	r := &recorder{
		session:  s,
		cfg:      cfg,
		file:     f,
		mux:      mux,
		videoEnc: encoder.NewH264Encoder(encoder.NewMockH264Core(), cfg.keyframeEvery()),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}

	if cfg.Muxer.Audio != nil {
		switch cfg.Muxer.Audio.Codec {
		case "opus":
			opts := cfg.OpusOptions
			if opts == (encoder.OpusEncoderOptions{}) {
				opts = encoder.DefaultOpusEncoderOptions()
			}
			enc, err := encoder.NewOpusEncoder(cfg.Muxer.Audio.SampleRate, cfg.Muxer.Audio.Channels, opts)
			if err != nil {
				f.Close()
				return nil, err
			}
			r.audioEnc = enc
		default:
			f.Close()
			return nil, captureerr.New(captureerr.KindUnsupportedCodec, "recording audio codec "+cfg.Muxer.Audio.Codec+" has no encoder in this build")
		}
	}

	return r, nil
}

func (r *recorder) run() {
	defer close(r.doneCh)
	log := logging.Get()

	for {
		select {
		case <-r.stopCh:
			r.finish()
			return
		default:
		}

		frame, err := r.session.videoQueue.Pop(50 * time.Millisecond)
		if err == nil && frame != nil {
			r.session.avPolicy.ObserveVideo(frame.PTS)
			unit, encErr := r.videoEnc.Encode(frame)
			if encErr != nil {
				log.Error("video encode failed", "err", encErr)
			} else if writeErr := r.mux.WriteVideo(secsOf(unit.PTS), unit.Data, unit.IsKeyframe); writeErr != nil {
				r.err = writeErr
				log.Error("muxer rejected video sample", "err", writeErr)
			}
		}

		if r.audioEnc != nil && r.session.audioQueue != nil {
			pkt, err := r.session.audioQueue.Pop(0)
			if err == nil && pkt != nil {
				decision := r.session.avPolicy.EvaluateAudio(pkt.PTS)
				if !decision.Keep {
					continue
				}
				unit, encErr := r.audioEnc.Encode(pkt)
				if encErr != nil {
					// A packet the Opus encoder rejects: drop the sample and
					// keep recording rather than aborting it.
					continue
				}
				if writeErr := r.mux.WriteAudio(secsOf(unit.PTS), unit.Data); writeErr != nil {
					log.Warn("muxer rejected audio sample", "err", writeErr)
				}
			}
		}

		select {
		case <-r.stopCh:
			r.finish()
			return
		default:
		}
	}
}

func (r *recorder) finish() {
	_ = r.videoEnc.Close()
	if r.audioEnc != nil {
		_ = r.audioEnc.Close()
	}
	stats, err := r.mux.Finish()
	if err != nil {
		r.err = err
	}
	r.stats = stats
	_ = r.file.Close()
}

func (r *recorder) stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	select {
	case <-r.doneCh:
	case <-time.After(2 * time.Second):
		logging.Get().Warn("recorder did not finish within deadline")
	}
}

func secsOf(ticks uint64) float64 {
	return float64(ticks) / 1e9
}
