package muxer

import (
	"io"
	"math"
	"sync"

	"github.com/bluenviron/mediacommon/v2/pkg/formats/fmp4"
	"github.com/bluenviron/mediacommon/v2/pkg/formats/fmp4/seekablebuffer"
	"github.com/bluenviron/mediacommon/v2/pkg/formats/mp4"

	"github.com/Michael-A-Kuykendall/capturecore/captureerr"
	"github.com/Michael-A-Kuykendall/capturecore/internal/h264nal"
)

// FragmentedMuxer implements the fMP4 mode: an initialization segment
// (ftyp+moov with empty tracks) followed by moof+mdat media segments,
// each self-contained for seeking. Segments are buffered until the
// configured target duration elapses, built directly on mediacommon's
// fmp4/mp4 packages rather than re-deriving box layout by hand (the
// conventional IsobmffMuxer does that for the modes mediacommon
// doesn't cover).
//
// Only H.264 video and Opus audio are supported: AAC's mp4.CodecMPEG4Audio
// sample entry needs a full AudioSpecificConfig this core has no real
// AAC encoder to derive (encoder.AACEncoder is a stub), so a fragmented
// recording configured with AAC audio fails at construction instead of
// emitting an init segment that never gets real samples.
type FragmentedMuxer struct {
	mu        sync.Mutex
	w         io.Writer
	cfg       RecordingConfig
	finalized bool

	avcConv *h264nal.AnnexBToAVCConverter

	videoInit   bool
	videoCodec  *mp4.CodecH264
	audioCodec  mp4.Codec
	sequenceNum uint32

	segTicks int64 // segment duration in video-timescale ticks

	pendingVideo      []*fmp4.Sample
	pendingVideoStart int64
	haveVideoStart    bool
	lastVideoTicks    int64
	videoCount        int

	pendingAudio      []*fmp4.Sample
	pendingAudioStart int64
	haveAudioStart    bool
	lastAudioTicks    int64
	audioCount        int

	haveFirstVideo    bool
	firstVideoPTSSecs float64

	bytesWritten int64
	firstPTSSecs float64
	lastPTSSecs  float64
}

const fmp4VideoTimescale uint32 = 90000

// NewFragmentedMuxer creates a fragmented-MP4 muxer writing to w.
// cfg.Fragmented must be true (the caller selects the mode; this
// constructor does not re-check cfg.FastStart, which is meaningless in
// fragmented mode).
func NewFragmentedMuxer(w io.Writer, cfg RecordingConfig) (*FragmentedMuxer, error) {
	if cfg.Audio != nil && cfg.Audio.Codec == "aac" {
		return nil, captureerr.New(captureerr.KindUnsupportedCodec,
			"fragmented muxer does not support aac without a real encoder-derived AudioSpecificConfig")
	}

	m := &FragmentedMuxer{
		w:           w,
		cfg:         cfg,
		avcConv:     h264nal.NewAnnexBToAVCConverter(),
		sequenceNum: 1,
		segTicks:    int64(cfg.segmentDuration().Seconds() * float64(fmp4VideoTimescale)),
	}
	if cfg.Audio != nil && cfg.Audio.Codec == "opus" {
		m.audioCodec = &mp4.CodecOpus{ChannelCount: cfg.Audio.Channels}
	}
	return m, nil
}

func (m *FragmentedMuxer) writeInitSegment(sps, pps []byte) error {
	m.videoCodec = &mp4.CodecH264{SPS: sps, PPS: pps}

	tracks := []*fmp4.InitTrack{
		{ID: 1, TimeScale: fmp4VideoTimescale, Codec: m.videoCodec},
	}
	if m.audioCodec != nil {
		tracks = append(tracks, &fmp4.InitTrack{ID: 2, TimeScale: uint32(m.cfg.Audio.SampleRate), Codec: m.audioCodec})
	}

	init := &fmp4.Init{Tracks: tracks}
	var buf seekablebuffer.Buffer
	if err := init.Marshal(&buf); err != nil {
		return captureerr.Wrap(captureerr.KindIOError, "marshaling fmp4 init segment", err)
	}
	n, err := m.w.Write(buf.Bytes())
	if err != nil {
		return captureerr.Wrap(captureerr.KindIOError, "writing fmp4 init segment", err)
	}
	m.bytesWritten += int64(n)
	m.videoInit = true
	return nil
}

func (m *FragmentedMuxer) WriteVideo(ptsSecs float64, annexB []byte, isKeyframe bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.finalized {
		return captureerr.New(captureerr.KindAlreadyFinalized, "muxer already finalized")
	}

	ticks := int64(math.Round(ptsSecs * float64(fmp4VideoTimescale)))

	if !m.videoInit {
		if !isKeyframe {
			return captureerr.New(captureerr.KindMissingSPSPPS, "first video sample is not a keyframe")
		}
		sps, pps, ok := extractSPSPPS(annexB)
		if !ok {
			return captureerr.New(captureerr.KindMissingSPSPPS, "first video keyframe carries no SPS/PPS")
		}
		if err := m.writeInitSegment(sps, pps); err != nil {
			return err
		}
		m.haveFirstVideo = true
		m.firstVideoPTSSecs = ptsSecs
		m.firstPTSSecs = ptsSecs
	} else if ticks <= m.lastVideoTicks {
		return captureerr.New(captureerr.KindInvalidTimestamp, "video pts must be strictly increasing")
	}

	avcData, err := m.avcConv.Convert(annexB)
	if err != nil {
		return captureerr.Wrap(captureerr.KindInvalidTimestamp, "annex-b to avcc conversion failed", err)
	}
	if isKeyframe {
		avcData = h264nal.PrependParameterSetsAVCC(avcData, m.videoCodec.SPS, m.videoCodec.PPS)
	}

	if !m.haveVideoStart {
		m.pendingVideoStart = ticks
		m.haveVideoStart = true
	}
	sample := &fmp4.Sample{IsNonSyncSample: !isKeyframe, Payload: avcData}
	if n := len(m.pendingVideo); n > 0 {
		m.pendingVideo[n-1].Duration = uint32(ticks - m.lastVideoTicks)
	}
	m.pendingVideo = append(m.pendingVideo, sample)
	m.lastVideoTicks = ticks
	m.videoCount++
	m.lastPTSSecs = ptsSecs

	if ticks-m.pendingVideoStart >= m.segTicks {
		return m.flushVideoSegment()
	}
	return nil
}

func (m *FragmentedMuxer) WriteAudio(ptsSecs float64, packet []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.finalized {
		return captureerr.New(captureerr.KindAlreadyFinalized, "muxer already finalized")
	}
	if m.cfg.Audio == nil || m.audioCodec == nil {
		return captureerr.New(captureerr.KindInvalidTimestamp, "muxer was not configured with a supported audio track")
	}
	if !m.haveFirstVideo {
		return captureerr.New(captureerr.KindInvalidTimestamp, "audio arrived before the first video sample")
	}
	if ptsSecs < m.firstVideoPTSSecs {
		return captureerr.New(captureerr.KindInvalidTimestamp, "audio pts precedes the first video pts")
	}

	ticks := int64(math.Round(ptsSecs * float64(m.cfg.Audio.SampleRate)))
	if m.audioCount > 0 && ticks < m.lastAudioTicks {
		return captureerr.New(captureerr.KindInvalidTimestamp, "audio pts must be non-decreasing")
	}

	if !m.haveAudioStart {
		m.pendingAudioStart = ticks
		m.haveAudioStart = true
	}
	sample := &fmp4.Sample{IsNonSyncSample: false, Payload: append([]byte{}, packet...)}
	if n := len(m.pendingAudio); n > 0 {
		m.pendingAudio[n-1].Duration = uint32(ticks - m.lastAudioTicks)
	}
	m.pendingAudio = append(m.pendingAudio, sample)
	m.lastAudioTicks = ticks
	m.audioCount++

	segAudioTicks := int64(m.cfg.segmentDuration().Seconds() * float64(m.cfg.Audio.SampleRate))
	if ticks-m.pendingAudioStart >= segAudioTicks {
		return m.flushAudioSegment()
	}
	return nil
}

func (m *FragmentedMuxer) flushVideoSegment() error {
	if len(m.pendingVideo) == 0 {
		return nil
	}
	if last := m.pendingVideo[len(m.pendingVideo)-1]; last.Duration == 0 {
		last.Duration = uint32(fmp4VideoTimescale / 30)
	}

	part := &fmp4.Part{
		SequenceNumber: m.sequenceNum,
		Tracks: []*fmp4.PartTrack{
			{ID: 1, BaseTime: uint64(m.pendingVideoStart), Samples: m.pendingVideo},
		},
	}
	var buf seekablebuffer.Buffer
	if err := part.Marshal(&buf); err != nil {
		return captureerr.Wrap(captureerr.KindIOError, "marshaling video segment", err)
	}
	n, err := m.w.Write(buf.Bytes())
	if err != nil {
		return captureerr.Wrap(captureerr.KindIOError, "writing video segment", err)
	}
	m.bytesWritten += int64(n)
	m.sequenceNum++
	m.pendingVideo = nil
	m.haveVideoStart = false
	return nil
}

func (m *FragmentedMuxer) flushAudioSegment() error {
	if len(m.pendingAudio) == 0 {
		return nil
	}
	if last := m.pendingAudio[len(m.pendingAudio)-1]; last.Duration == 0 {
		last.Duration = uint32(m.cfg.Audio.SampleRate / 50) // 20ms
	}

	part := &fmp4.Part{
		SequenceNumber: m.sequenceNum,
		Tracks: []*fmp4.PartTrack{
			{ID: 2, BaseTime: uint64(m.pendingAudioStart), Samples: m.pendingAudio},
		},
	}
	var buf seekablebuffer.Buffer
	if err := part.Marshal(&buf); err != nil {
		return captureerr.Wrap(captureerr.KindIOError, "marshaling audio segment", err)
	}
	n, err := m.w.Write(buf.Bytes())
	if err != nil {
		return captureerr.Wrap(captureerr.KindIOError, "writing audio segment", err)
	}
	m.bytesWritten += int64(n)
	m.sequenceNum++
	m.pendingAudio = nil
	m.haveAudioStart = false
	return nil
}

func (m *FragmentedMuxer) Finish() (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.finalized {
		return Stats{}, captureerr.New(captureerr.KindAlreadyFinalized, "muxer already finalized")
	}
	m.finalized = true

	if !m.videoInit {
		return Stats{}, captureerr.New(captureerr.KindMissingSPSPPS, "no video samples were written")
	}

	if err := m.flushVideoSegment(); err != nil {
		return Stats{}, err
	}
	if err := m.flushAudioSegment(); err != nil {
		return Stats{}, err
	}

	return Stats{
		VideoFrames:  m.videoCount,
		AudioFrames:  m.audioCount,
		BytesWritten: m.bytesWritten,
		Duration:     durationOf(m.lastPTSSecs - m.firstPTSSecs),
	}, nil
}

var _ Muxer = (*FragmentedMuxer)(nil)
