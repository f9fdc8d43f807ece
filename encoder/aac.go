package encoder

import (
	"github.com/Michael-A-Kuykendall/capturecore/backend"
	"github.com/Michael-A-Kuykendall/capturecore/captureerr"
)

// AACEncoder satisfies the AudioEncoder contract but has no real
// implementation: AAC encoding is treated as an opaque external
// concern. Encode always returns captureerr.KindUnsupportedCodec. The
// session recorder does not construct it: a recording configured with
// Audio.Codec = "aac" is rejected with KindUnsupportedCodec when
// Session.Start builds the recorder.
type AACEncoder struct{}

// NewAACEncoder returns the AAC stub adapter.
func NewAACEncoder() *AACEncoder { return &AACEncoder{} }

func (a *AACEncoder) Encode(packet *backend.AudioPacket) (*EncodedAudioUnit, error) {
	return nil, captureerr.New(captureerr.KindUnsupportedCodec, "AAC encoding is not implemented in this build")
}

func (a *AACEncoder) Close() error { return nil }
