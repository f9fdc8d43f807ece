// Package encoder adapts raw Frames/AudioPackets from backend into the
// encoded units the muxer consumes: Annex-B H.264 access units and
// Opus or AAC packets. Encoders are single-producer/single-consumer —
// one capture task feeds one encoder, which the muxer drains in order.
package encoder

import (
	"github.com/Michael-A-Kuykendall/capturecore/backend"
)

// EncodedVideoUnit is one H.264 access unit in Annex-B framing. The
// first unit emitted by an encoder MUST be a keyframe carrying SPS and
// PPS in-band.
type EncodedVideoUnit struct {
	PTS            uint64
	DTS            *uint64
	Data           []byte
	IsKeyframe     bool
	ContainsSPSPPS bool
}

// EncodedAudioUnit is one codec packet: raw Opus (no Ogg framing) or
// an ADTS-stripped AAC access unit.
type EncodedAudioUnit struct {
	PTS  uint64
	Data []byte
}

// VideoEncoder consumes raw video frames and emits Annex-B access
// units. Close flushes any buffered tail.
type VideoEncoder interface {
	Encode(frame *backend.Frame) (*EncodedVideoUnit, error)
	Close() error
}

// AudioEncoder consumes raw audio packets and emits codec packets.
// Close flushes any buffered tail.
type AudioEncoder interface {
	Encode(packet *backend.AudioPacket) (*EncodedAudioUnit, error)
	Close() error
}
