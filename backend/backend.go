// Package backend declares the opaque device-handle abstraction that
// capture tasks drive: open a format, start/stop the stream, pull
// frames or packets with a short internal timeout, and enumerate
// available devices. The capability set is closed over three variants
// — video, audio, and mock — dispatched by tagged interface rather
// than open-ended plugin discovery, so the full set of implementations
// is auditable at compile time.
package backend

import (
	"time"

	"github.com/Michael-A-Kuykendall/capturecore/captureerr"
)

// Kind distinguishes a device's media type.
type Kind int

const (
	KindVideo Kind = iota
	KindAudio
)

func (k Kind) String() string {
	if k == KindAudio {
		return "audio"
	}
	return "video"
}

// PixelFormat names a raw video pixel layout.
type PixelFormat string

const (
	PixelFormatI420 PixelFormat = "i420"
	PixelFormatNV12 PixelFormat = "nv12"
)

// SampleFormat names a raw audio sample layout.
type SampleFormat string

const (
	SampleFormatS16LE SampleFormat = "s16le"
	SampleFormatF32LE SampleFormat = "f32le"
)

// VideoFormat is negotiated at session open and immutable for the
// session's lifetime.
type VideoFormat struct {
	Width       int
	Height      int
	FPS         float64
	PixelFormat PixelFormat
}

// AudioFormat is negotiated at session open and immutable for the
// session's lifetime.
type AudioFormat struct {
	SampleRate   int
	Channels     int
	SampleFormat SampleFormat
}

// CapabilitySet describes the formats and controls a device advertises.
type CapabilitySet struct {
	VideoFormats []VideoFormat
	AudioFormats []AudioFormat
	Controls     []ControlInfo
}

// ControlInfo describes one adjustable device control (exposure, gain,
// volume, ...).
type ControlInfo struct {
	ID      string
	Name    string
	Min     float64
	Max     float64
	Step    float64
	Default float64
	Current float64
}

// DeviceInfo is a snapshot produced by enumeration. id is stable within
// a process run but is never persisted across runs.
type DeviceInfo struct {
	ID           string
	Name         string
	Description  string
	IsAvailable  bool
	Capabilities CapabilitySet
	Kind         Kind
}

// Frame is one decoded raw video image pulled from a backend. Seq is
// monotonic per session; PTS is assigned by the capture task from the
// shared clock, not by the backend.
type Frame struct {
	Seq         uint64
	PTS         uint64
	Width       int
	Height      int
	PixelFormat PixelFormat
	Data        []byte
}

// Size returns the payload length.
func (f *Frame) Size() int { return len(f.Data) }

// AudioPacket is one raw PCM buffer pulled from a backend.
type AudioPacket struct {
	Seq        uint64
	PTS        uint64
	SampleRate int
	Channels   int
	Data       []byte
}

// Handle is an opaque, backend-owned device resource. Its lifecycle is
// bound to the session that opened it; Close releases any underlying
// OS resource.
type Handle interface {
	Close() error
}

// Video is the capability set a video backend variant implements.
// NextFrame must honor an internal short timeout (on the order of
// 100ms) so a capture task polling it can observe a stop signal
// between calls; a timeout is reported as a *captureerr.Error with
// Kind captureerr.KindCaptureTimeout, which callers must not surface
// past the capture task.
type Video interface {
	Open(deviceID string, format VideoFormat) (Handle, error)
	Start(h Handle) error
	Stop(h Handle) error
	NextFrame(h Handle, timeout time.Duration) (*Frame, error)
	Close(h Handle) error
	Enumerate() ([]DeviceInfo, error)
	SetControl(h Handle, controlID string, value float64) error
}

// Audio is the capability set an audio backend variant implements.
type Audio interface {
	Open(deviceID string, format AudioFormat) (Handle, error)
	Start(h Handle) error
	Stop(h Handle) error
	NextPacket(h Handle, timeout time.Duration) (*AudioPacket, error)
	Close(h Handle) error
	Enumerate() ([]DeviceInfo, error)
	SetControl(h Handle, controlID string, value float64) error
}

// ErrTimeout classifies a transient no-frame/no-packet result from a
// backend poll. Capture tasks retry on this kind; it must never be
// returned to a SessionHandle caller.
func ErrTimeout(deviceID string) error {
	return captureerr.New(captureerr.KindCaptureTimeout, "no data available for "+deviceID)
}

// ErrUnsupportedPlatform is returned by real backend variants that
// have no implementation on the current build's platform.
func ErrUnsupportedPlatform(what string) error {
	return captureerr.New(captureerr.KindUnsupportedPlatform, what+" is not implemented on this platform")
}
