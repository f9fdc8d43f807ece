package encoder

import (
	"gopkg.in/hraban/opus.v2"

	"github.com/Michael-A-Kuykendall/capturecore/backend"
	"github.com/Michael-A-Kuykendall/capturecore/captureerr"
)

const (
	opusMaxPacketBytes = 1275 // RFC 6716 max Opus packet size
	opusFrameDuration  = 20   // ms, fixed, no adaptive framing
)

// OpusEncoderOptions carries the knobs rustyguts-bken's AudioEngine.Start
// applies to its encoder (bitrate, DTX, in-band FEC, packet-loss
// estimate), threaded through so a caller can tune quality vs.
// bandwidth without touching this adapter's internals.
type OpusEncoderOptions struct {
	Bitrate        int
	DTX            bool
	InBandFEC      bool
	PacketLossPerc int
}

// DefaultOpusEncoderOptions gives sane defaults for a recording (not a
// live call) context: FEC and a modest expected-loss percentage only
// matter over a network, but DTX still saves space on long silent
// stretches.
func DefaultOpusEncoderOptions() OpusEncoderOptions {
	return OpusEncoderOptions{Bitrate: 64000, DTX: true, InBandFEC: false, PacketLossPerc: 0}
}

// OpusEncoder adapts gopkg.in/hraban/opus.v2 to the AudioEncoder
// contract. It operates fixed at 48kHz with 20ms frames and does no
// hidden resampling, so NewOpusEncoder rejects any other input sample
// rate.
type OpusEncoder struct {
	enc        *opus.Encoder
	sampleRate int
	channels   int
	frameSize  int // samples per channel per 20ms frame
}

// NewOpusEncoder creates an Opus encoder for the given channel count.
// sampleRate must be 48000; the spec requires failing at session-open
// rather than silently resampling.
func NewOpusEncoder(sampleRate, channels int, opts OpusEncoderOptions) (*OpusEncoder, error) {
	if sampleRate != 48000 {
		return nil, captureerr.New(captureerr.KindFormatNegotiationFailed,
			"opus encoder requires 48kHz input, no resampling is performed")
	}

	enc, err := opus.NewEncoder(sampleRate, channels, opus.AppAudio)
	if err != nil {
		return nil, captureerr.Wrap(captureerr.KindEncodeFailed, "creating opus encoder", err)
	}
	if err := enc.SetBitrate(opts.Bitrate); err != nil {
		return nil, captureerr.Wrap(captureerr.KindEncodeFailed, "setting opus bitrate", err)
	}
	if err := enc.SetDTX(opts.DTX); err != nil {
		return nil, captureerr.Wrap(captureerr.KindEncodeFailed, "setting opus dtx", err)
	}
	if err := enc.SetInBandFEC(opts.InBandFEC); err != nil {
		return nil, captureerr.Wrap(captureerr.KindEncodeFailed, "setting opus fec", err)
	}
	if err := enc.SetPacketLossPerc(opts.PacketLossPerc); err != nil {
		return nil, captureerr.Wrap(captureerr.KindEncodeFailed, "setting opus packet loss", err)
	}

	return &OpusEncoder{
		enc:        enc,
		sampleRate: sampleRate,
		channels:   channels,
		frameSize:  sampleRate * opusFrameDuration / 1000,
	}, nil
}

// Encode accepts one 20ms PCM packet (s16le, interleaved) and returns
// the raw Opus packet (no Ogg framing).
func (o *OpusEncoder) Encode(packet *backend.AudioPacket) (*EncodedAudioUnit, error) {
	pcm := bytesToInt16(packet.Data)
	wantSamples := o.frameSize * o.channels
	if len(pcm) != wantSamples {
		return nil, captureerr.New(captureerr.KindEncodeFailed,
			"opus encoder requires fixed 20ms frames")
	}

	out := make([]byte, opusMaxPacketBytes)
	n, err := o.enc.Encode(pcm, out)
	if err != nil {
		return nil, captureerr.Wrap(captureerr.KindEncodeFailed, "opus encode failed", err)
	}

	return &EncodedAudioUnit{PTS: packet.PTS, Data: out[:n]}, nil
}

// Close flushes any tail. The opus.v2 binding has no internal buffer
// to drain (it encodes one frame per call), so this is a no-op kept
// for interface symmetry with the H.264 adapter.
func (o *OpusEncoder) Close() error { return nil }

func bytesToInt16(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(b[2*i]) | int16(b[2*i+1])<<8
	}
	return out
}
