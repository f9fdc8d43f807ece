package encoder

import (
	"sync"

	"github.com/Michael-A-Kuykendall/capturecore/backend"
	"github.com/Michael-A-Kuykendall/capturecore/captureerr"
	"github.com/Michael-A-Kuykendall/capturecore/internal/h264nal"
)

// canned SPS/PPS NAL payloads (without start codes) describing a
// baseline-profile 640x480 stream. Real dimensions never reach the
// decoder in this core — concrete codec math is explicitly out of
// scope — but the bytes are syntactically valid SPS/PPS NAL units so
// the muxer's avcC extraction has something real to parse.
var (
	cannedSPS = []byte{0x67, 0x42, 0x00, 0x1e, 0x96, 0x54, 0x05, 0x01, 0xed, 0x80}
	cannedPPS = []byte{0x68, 0xce, 0x38, 0x80}
)

// H264Encoder wraps a pluggable Core so callers can swap in a real
// encoder later without touching the capture pipeline; the shipped
// Core is a deterministic passthrough/packetizer suited to the mock
// pipeline. Keyframe cadence, SPS/PPS caching, and the
// cache-and-prepend-before-IDR idiom are grounded on
// quando2299-rmcs's CameraCapture NAL handling.
type H264Encoder struct {
	mu            sync.Mutex
	core          H264Core
	keyframeEvery int
	frameIdx      uint64
	sps, pps      []byte
	emittedConfig bool
}

// H264Core is the pluggable, opaque encoder implementation. Core.Encode
// receives a raw frame and returns a single NAL unit payload without a
// start code; H264Encoder adds the start code itself, and on keyframes
// prepends its cached SPS/PPS.
type H264Core interface {
	// Encode returns the NAL payload (no start code) for one frame and
	// whether it represents a keyframe (IDR).
	Encode(frame *backend.Frame) (nal []byte, isKeyframe bool, err error)
	Flush() ([]byte, error)
}

// NewH264Encoder builds an H.264 encoder adapter. keyframeEvery is the
// GOP length in frames: every Nth frame is marked as a keyframe and gets
// SPS/PPS prepended, in addition to whatever core.Encode reports; 0
// disables the forced cadence and relies entirely on the core's own
// keyframe decisions. The core is not told about a forced keyframe, so
// the slice NAL it returned keeps its own nal_unit_type (MockH264Core
// returns a non-IDR slice for every frame after its first).
func NewH264Encoder(core H264Core, keyframeEvery int) *H264Encoder {
	return &H264Encoder{core: core, keyframeEvery: keyframeEvery, sps: cannedSPS, pps: cannedPPS}
}

func (e *H264Encoder) Encode(frame *backend.Frame) (*EncodedVideoUnit, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	nal, isKey, err := e.core.Encode(frame)
	if err != nil {
		return nil, captureerr.Wrap(captureerr.KindEncodeFailed, "h264 core encode failed", err)
	}

	if e.keyframeEvery > 0 && e.frameIdx%uint64(e.keyframeEvery) == 0 {
		isKey = true
	}
	e.frameIdx++

	var out []byte
	containsConfig := false
	if isKey {
		out = append(out, h264nal.StartCode4...)
		out = append(out, e.sps...)
		out = append(out, h264nal.StartCode4...)
		out = append(out, e.pps...)
		containsConfig = true
		e.emittedConfig = true
	}
	out = append(out, h264nal.StartCode4...)
	out = append(out, nal...)

	pts := frame.PTS
	return &EncodedVideoUnit{
		PTS:            pts,
		Data:           out,
		IsKeyframe:     isKey,
		ContainsSPSPPS: containsConfig,
	}, nil
}

func (e *H264Encoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, err := e.core.Flush()
	return err
}

// MockH264Core is the deterministic Core used by the mock capture
// pipeline: every frame becomes a minimal valid slice NAL unit (type 1
// for non-IDR, type 5 for IDR), with the raw mock frame bytes carried
// as the (non-conformant but structurally valid) slice payload.
type MockH264Core struct {
	frameIdx uint64
}

func NewMockH264Core() *MockH264Core { return &MockH264Core{} }

func (c *MockH264Core) Encode(frame *backend.Frame) (nal []byte, isKeyframe bool, err error) {
	isKeyframe = c.frameIdx == 0
	c.frameIdx++

	nalType := byte(h264nal.NALUnitTypeSlice)
	if isKeyframe {
		nalType = byte(h264nal.NALUnitTypeIDR)
	}

	header := (0 << 7) | (3 << 5) | (nalType & 0x1F) // nal_ref_idc=3, forbidden_zero_bit=0
	nal = make([]byte, 0, len(frame.Data)+1)
	nal = append(nal, header)
	nal = append(nal, frame.Data...)
	return nal, isKeyframe, nil
}

func (c *MockH264Core) Flush() ([]byte, error) { return nil, nil }
