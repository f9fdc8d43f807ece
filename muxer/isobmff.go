package muxer

import (
	"bytes"
	"io"
	"math"
	"sync"
	"time"

	"github.com/Michael-A-Kuykendall/capturecore/captureerr"
	"github.com/Michael-A-Kuykendall/capturecore/internal/h264nal"
)

const videoTimescale uint32 = 90000

type trackSample struct {
	offset   uint64
	size     uint32
	ptsTicks int64
	isSync   bool
}

// IsobmffMuxer writes a conventional (non-fragmented) MP4: one
// contiguous mdat plus a moov with full stts/stsz/stsc/stco/stss
// sample tables, in either "default" order (mdat then moov) or
// "fast-start" order (moov then mdat). When the destination writer
// also implements io.Seeker, mdat payload bytes are streamed directly
// to it as samples arrive and only the moov (plus, for the default
// mode, a back-patched mdat size) touches memory; otherwise the whole
// mdat is buffered, which is required anyway for fast-start's
// moov-before-mdat reordering.
type IsobmffMuxer struct {
	mu        sync.Mutex
	w         io.Writer
	cfg       RecordingConfig
	finalized bool

	seekable  io.WriteSeeker
	streaming bool
	mdatSizeAt int64 // absolute offset of mdat's 4-byte size field, streaming mode only
	mdatStart  int64 // absolute offset of first mdat payload byte
	writeOff   int64 // running absolute write offset (streaming mode)

	mdatBuf bytes.Buffer // used whenever streaming is false

	avcConv *h264nal.AnnexBToAVCConverter
	sps, pps []byte
	avcc     []byte

	video []trackSample
	audio []trackSample

	haveFirstVideo    bool
	firstVideoPTSSecs float64
	lastVideoTicks    int64
	lastAudioTicks    int64
	haveAudio         bool
}

// NewIsobmffMuxer creates a muxer writing to w in the mode selected by
// cfg.FastStart (cfg.Fragmented must be false; use NewFragmentedMuxer
// for that mode).
func NewIsobmffMuxer(w io.Writer, cfg RecordingConfig) (*IsobmffMuxer, error) {
	m := &IsobmffMuxer{w: w, cfg: cfg, avcConv: h264nal.NewAnnexBToAVCConverter()}

	if _, err := w.Write(ftypBox()); err != nil {
		return nil, captureerr.Wrap(captureerr.KindIOError, "writing ftyp", err)
	}
	m.writeOff = int64(len(ftypBox()))

	if !cfg.FastStart {
		if ws, ok := w.(io.WriteSeeker); ok {
			m.seekable = ws
			m.streaming = true
			m.mdatSizeAt = m.writeOff
			header := make([]byte, 8)
			header[4], header[5], header[6], header[7] = 'm', 'd', 'a', 't'
			if _, err := w.Write(header); err != nil {
				return nil, captureerr.Wrap(captureerr.KindIOError, "writing mdat header", err)
			}
			m.writeOff += 8
			m.mdatStart = m.writeOff
		}
	}

	return m, nil
}

func (m *IsobmffMuxer) appendSample(data []byte) (offset uint64, err error) {
	if m.streaming {
		offset = uint64(m.writeOff)
		n, werr := m.w.Write(data)
		if werr != nil {
			return 0, captureerr.Wrap(captureerr.KindIOError, "writing sample", werr)
		}
		m.writeOff += int64(n)
		return offset, nil
	}
	offset = uint64(m.mdatBuf.Len())
	m.mdatBuf.Write(data)
	return offset, nil
}

func (m *IsobmffMuxer) WriteVideo(ptsSecs float64, annexB []byte, isKeyframe bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.finalized {
		return captureerr.New(captureerr.KindAlreadyFinalized, "muxer already finalized")
	}

	ticks := int64(math.Round(ptsSecs * float64(videoTimescale)))

	if len(m.video) == 0 {
		if !isKeyframe {
			return captureerr.New(captureerr.KindMissingSPSPPS, "first video sample is not a keyframe")
		}
		sps, pps, ok := extractSPSPPS(annexB)
		if !ok {
			return captureerr.New(captureerr.KindMissingSPSPPS, "first video keyframe carries no SPS/PPS")
		}
		m.sps, m.pps = sps, pps
		m.avcc = buildAVCConfigRecord(sps, pps)
		m.haveFirstVideo = true
		m.firstVideoPTSSecs = ptsSecs
	} else if ticks <= m.lastVideoTicks {
		return captureerr.New(captureerr.KindInvalidTimestamp, "video pts must be strictly increasing")
	}

	avcData, err := m.avcConv.Convert(annexB)
	if err != nil {
		return captureerr.Wrap(captureerr.KindInvalidTimestamp, "annex-b to avcc conversion failed", err)
	}

	offset, err := m.appendSample(avcData)
	if err != nil {
		return err
	}

	m.video = append(m.video, trackSample{offset: offset, size: uint32(len(avcData)), ptsTicks: ticks, isSync: isKeyframe})
	m.lastVideoTicks = ticks
	return nil
}

func (m *IsobmffMuxer) WriteAudio(ptsSecs float64, packet []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.finalized {
		return captureerr.New(captureerr.KindAlreadyFinalized, "muxer already finalized")
	}
	if m.cfg.Audio == nil {
		return captureerr.New(captureerr.KindInvalidTimestamp, "muxer was not configured with an audio track")
	}
	if !m.haveFirstVideo {
		return captureerr.New(captureerr.KindInvalidTimestamp, "audio arrived before the first video sample")
	}
	if ptsSecs < m.firstVideoPTSSecs {
		return captureerr.New(captureerr.KindInvalidTimestamp, "audio pts precedes the first video pts")
	}

	ticks := int64(math.Round(ptsSecs * float64(m.cfg.Audio.SampleRate)))
	if m.haveAudio && ticks < m.lastAudioTicks {
		return captureerr.New(captureerr.KindInvalidTimestamp, "audio pts must be non-decreasing")
	}

	offset, err := m.appendSample(packet)
	if err != nil {
		return err
	}

	m.audio = append(m.audio, trackSample{offset: offset, size: uint32(len(packet)), ptsTicks: ticks, isSync: true})
	m.lastAudioTicks = ticks
	m.haveAudio = true
	return nil
}

func (m *IsobmffMuxer) Finish() (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.finalized {
		return Stats{}, captureerr.New(captureerr.KindAlreadyFinalized, "muxer already finalized")
	}
	m.finalized = true

	if len(m.video) == 0 {
		return Stats{}, captureerr.New(captureerr.KindMissingSPSPPS, "no video samples were written")
	}

	videoDurTicks := uint32(0)
	if n := len(m.video); n > 1 {
		videoDurTicks = uint32(m.video[n-1].ptsTicks-m.video[0].ptsTicks) + approxDelta(m.video)
	}
	durationSecs := float64(videoDurTicks) / float64(videoTimescale)
	durationMS := uint32(durationSecs * 1000)

	videoTrak := m.buildVideoTrak(videoDurTicks)
	var traks = [][]byte{videoTrak}
	if m.cfg.Audio != nil && len(m.audio) > 0 {
		audioDurTicks := uint32(0)
		if n := len(m.audio); n > 1 {
			audioDurTicks = uint32(m.audio[n-1].ptsTicks-m.audio[0].ptsTicks) + approxDelta(m.audio)
		}
		traks = append(traks, m.buildAudioTrak(audioDurTicks))
	}

	mvhd := buildMvhd(durationMS, uint32(len(traks)+1))
	moov := buildMoov(mvhd, traks)

	stats := Stats{VideoFrames: len(m.video), AudioFrames: len(m.audio), Duration: durationOf(durationSecs)}

	var err error
	if m.cfg.FastStart {
		stats.BytesWritten, err = m.finishFastStart(moov)
	} else if m.streaming {
		stats.BytesWritten, err = m.finishStreamingDefault(moov)
	} else {
		stats.BytesWritten, err = m.finishBufferedDefault(moov)
	}
	return stats, err
}

func (m *IsobmffMuxer) finishFastStart(moov []byte) (int64, error) {
	n1, err := m.w.Write(moov)
	if err != nil {
		return 0, captureerr.Wrap(captureerr.KindIOError, "writing moov", err)
	}
	mdatPayload := m.mdatBuf.Bytes()
	header := mdatHeader(len(mdatPayload))
	n2, err := m.w.Write(header)
	if err != nil {
		return 0, captureerr.Wrap(captureerr.KindIOError, "writing mdat header", err)
	}
	n3, err := m.w.Write(mdatPayload)
	if err != nil {
		return 0, captureerr.Wrap(captureerr.KindIOError, "writing mdat payload", err)
	}
	return int64(n1 + n2 + n3), nil
}

func (m *IsobmffMuxer) finishBufferedDefault(moov []byte) (int64, error) {
	mdatPayload := m.mdatBuf.Bytes()
	header := mdatHeader(len(mdatPayload))
	n1, err := m.w.Write(header)
	if err != nil {
		return 0, captureerr.Wrap(captureerr.KindIOError, "writing mdat header", err)
	}
	n2, err := m.w.Write(mdatPayload)
	if err != nil {
		return 0, captureerr.Wrap(captureerr.KindIOError, "writing mdat payload", err)
	}
	n3, err := m.w.Write(moov)
	if err != nil {
		return 0, captureerr.Wrap(captureerr.KindIOError, "writing moov", err)
	}
	return int64(n1 + n2 + n3), nil
}

func (m *IsobmffMuxer) finishStreamingDefault(moov []byte) (int64, error) {
	mdatSize := uint32(m.writeOff - m.mdatStart + 8)
	if _, err := m.seekable.Seek(m.mdatSizeAt, io.SeekStart); err != nil {
		return 0, captureerr.Wrap(captureerr.KindIOError, "seeking to patch mdat size", err)
	}
	if _, err := m.seekable.Write(be32(nil, mdatSize)); err != nil {
		return 0, captureerr.Wrap(captureerr.KindIOError, "patching mdat size", err)
	}
	if _, err := m.seekable.Seek(0, io.SeekEnd); err != nil {
		return 0, captureerr.Wrap(captureerr.KindIOError, "seeking to end for moov", err)
	}
	n, err := m.w.Write(moov)
	if err != nil {
		return 0, captureerr.Wrap(captureerr.KindIOError, "writing moov", err)
	}
	return m.writeOff + int64(n), nil
}

func mdatHeader(payloadLen int) []byte {
	h := make([]byte, 0, 8)
	h = be32(h, uint32(8+payloadLen))
	h = append(h, []byte("mdat")...)
	return h
}

// approxDelta estimates a final sample's duration as equal to the
// previous inter-sample delta, since there is no "next" PTS to derive
// it from exactly.
func approxDelta(samples []trackSample) uint32 {
	if len(samples) < 2 {
		return 0
	}
	return uint32(samples[len(samples)-1].ptsTicks - samples[len(samples)-2].ptsTicks)
}

func durationOf(secs float64) time.Duration { return time.Duration(secs * float64(time.Second)) }
