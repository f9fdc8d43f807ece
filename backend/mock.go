package backend

import (
	"math"
	"sync"
	"time"

	"github.com/Michael-A-Kuykendall/capturecore/captureerr"
)

// MockVideo is a deterministic, hardware-free video backend. Session
// configuration selects it by the "mock_" device-id prefix. Frame
// payloads are a seeded pseudo-random fill rather than a real
// checkerboard raster — the requirement this satisfies is byte-for-byte
// reproducibility across runs for a fixed seed and seq, not visual
// fidelity, since nothing in this core ever decodes the pixels.
type MockVideo struct {
	mu      sync.Mutex
	devices map[string]*mockDeviceState
}

// MockAudio is MockVideo's audio counterpart: deterministic PCM
// silence or a fixed tone, selected the same way.
type MockAudio struct {
	mu      sync.Mutex
	devices map[string]*mockDeviceState
	tone    bool
}

type mockDeviceState struct {
	available bool
}

// NewMockVideo creates a mock video backend with two synthetic
// devices, mock_0 and mock_1, both initially available.
func NewMockVideo() *MockVideo {
	return &MockVideo{devices: map[string]*mockDeviceState{
		"mock_0": {available: true},
		"mock_1": {available: true},
	}}
}

// NewMockAudio creates a mock audio backend with one synthetic device,
// mock_audio_0. tone selects a fixed sine-derived tone instead of
// silence.
func NewMockAudio(tone bool) *MockAudio {
	return &MockAudio{
		devices: map[string]*mockDeviceState{"mock_audio_0": {available: true}},
		tone:    tone,
	}
}

// SimulateDisconnect marks a mock device unavailable, as if unplugged.
// The next NextFrame/NextPacket call against an open handle for that
// device returns a permanent captureerr.KindCaptureFailed, and
// Enumerate stops listing it as available — exercising the
// reconnection coordinator without real hardware.
func (m *MockVideo) SimulateDisconnect(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.devices[id]; ok {
		d.available = false
	}
}

// SimulateReconnect reverses SimulateDisconnect.
func (m *MockVideo) SimulateReconnect(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.devices[id]; ok {
		d.available = true
	}
}

func (m *MockVideo) isAvailable(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.devices[id]
	return ok && d.available
}

// Enumerate lists the synthetic video devices and their current
// availability.
func (m *MockVideo) Enumerate() ([]DeviceInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	infos := make([]DeviceInfo, 0, len(m.devices))
	for id, d := range m.devices {
		infos = append(infos, DeviceInfo{
			ID:          id,
			Name:        "Mock Camera " + id,
			Description: "deterministic synthetic video source",
			IsAvailable: d.available,
			Kind:        KindVideo,
			Capabilities: CapabilitySet{
				VideoFormats: []VideoFormat{
					{Width: 640, Height: 480, FPS: 30, PixelFormat: PixelFormatI420},
					{Width: 320, Height: 240, FPS: 30, PixelFormat: PixelFormatI420},
				},
				Controls: []ControlInfo{
					{ID: "brightness", Name: "Brightness", Min: 0, Max: 100, Step: 1, Default: 50, Current: 50},
				},
			},
		})
	}
	return infos, nil
}

type mockVideoHandle struct {
	id       string
	format   VideoFormat
	seq      uint64
	interval time.Duration
	mu       sync.Mutex
}

func (h *mockVideoHandle) Close() error { return nil }

// Open reserves a mock video handle for the given device id and
// format, failing with captureerr.KindDeviceNotFound if the id is
// unknown or currently marked unavailable.
func (m *MockVideo) Open(id string, format VideoFormat) (Handle, error) {
	if !m.isAvailable(id) {
		return nil, captureerr.New(captureerr.KindDeviceNotFound, "mock video device "+id+" not found or unavailable")
	}
	interval := time.Second
	if format.FPS > 0 {
		interval = time.Duration(float64(time.Second) / format.FPS)
	}
	return &mockVideoHandle{id: id, format: format, interval: interval}, nil
}

func (m *MockVideo) Start(h Handle) error { return nil }
func (m *MockVideo) Stop(h Handle) error  { return nil }
func (m *MockVideo) Close(h Handle) error { return h.Close() }

func (m *MockVideo) SetControl(h Handle, controlID string, value float64) error {
	if controlID != "brightness" {
		return captureerr.New(captureerr.KindUnsupportedControl, "control "+controlID+" not supported by mock video")
	}
	return nil
}

// NextFrame paces delivery at the handle's negotiated fps, returning a
// captureerr.KindCaptureTimeout when that pacing interval exceeds the
// caller's timeout (so stop signals get observed promptly), and a
// captureerr.KindCaptureFailed once the device has been marked
// unavailable via SimulateDisconnect.
func (m *MockVideo) NextFrame(hh Handle, timeout time.Duration) (*Frame, error) {
	h, ok := hh.(*mockVideoHandle)
	if !ok {
		return nil, captureerr.New(captureerr.KindDeviceNotFound, "handle is not a mock video handle")
	}

	if !m.isAvailable(h.id) {
		return nil, captureerr.New(captureerr.KindCaptureFailed, "mock video device "+h.id+" disconnected")
	}

	wait := h.interval
	timedOut := false
	if timeout > 0 && timeout < wait {
		wait = timeout
		timedOut = true
	}
	time.Sleep(wait)

	if timedOut {
		return nil, ErrTimeout(h.id)
	}
	if !m.isAvailable(h.id) {
		return nil, captureerr.New(captureerr.KindCaptureFailed, "mock video device "+h.id+" disconnected")
	}

	h.mu.Lock()
	seq := h.seq
	h.seq++
	h.mu.Unlock()

	data := deterministicFill(seedFor(h.id), seq, h.format.Width*h.format.Height*3/2)
	return &Frame{
		Seq:         seq,
		Width:       h.format.Width,
		Height:      h.format.Height,
		PixelFormat: h.format.PixelFormat,
		Data:        data,
	}, nil
}

type mockAudioHandle struct {
	id          string
	format      AudioFormat
	seq         uint64
	frameDur    time.Duration
	samplesPerF int
	mu          sync.Mutex
}

func (h *mockAudioHandle) Close() error { return nil }

func (m *MockAudio) Enumerate() ([]DeviceInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	infos := make([]DeviceInfo, 0, len(m.devices))
	for id, d := range m.devices {
		infos = append(infos, DeviceInfo{
			ID:          id,
			Name:        "Mock Microphone " + id,
			Description: "deterministic synthetic audio source",
			IsAvailable: d.available,
			Kind:        KindAudio,
			Capabilities: CapabilitySet{
				AudioFormats: []AudioFormat{
					{SampleRate: 48000, Channels: 2, SampleFormat: SampleFormatS16LE},
					{SampleRate: 48000, Channels: 1, SampleFormat: SampleFormatS16LE},
				},
			},
		})
	}
	return infos, nil
}

func (m *MockAudio) isAvailable(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.devices[id]
	return ok && d.available
}

// SimulateDisconnect mirrors MockVideo.SimulateDisconnect for the
// audio side.
func (m *MockAudio) SimulateDisconnect(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.devices[id]; ok {
		d.available = false
	}
}

// SimulateReconnect reverses SimulateDisconnect.
func (m *MockAudio) SimulateReconnect(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.devices[id]; ok {
		d.available = true
	}
}

// Open reserves a mock audio handle for the given device id and
// format.
func (m *MockAudio) Open(id string, format AudioFormat) (Handle, error) {
	if !m.isAvailable(id) {
		return nil, captureerr.New(captureerr.KindDeviceNotFound, "mock audio device "+id+" not found or unavailable")
	}
	const frameDur = 20 * time.Millisecond
	samplesPerFrame := int(float64(format.SampleRate) * frameDur.Seconds())
	return &mockAudioHandle{id: id, format: format, frameDur: frameDur, samplesPerF: samplesPerFrame}, nil
}

func (m *MockAudio) Start(h Handle) error { return nil }
func (m *MockAudio) Stop(h Handle) error  { return nil }
func (m *MockAudio) Close(h Handle) error { return h.Close() }

func (m *MockAudio) SetControl(h Handle, controlID string, value float64) error {
	if controlID != "gain" {
		return captureerr.New(captureerr.KindUnsupportedControl, "control "+controlID+" not supported by mock audio")
	}
	return nil
}

// NextPacket mirrors MockVideo.NextFrame's pacing and disconnect
// semantics for fixed-duration (20ms) PCM frames.
func (m *MockAudio) NextPacket(hh Handle, timeout time.Duration) (*AudioPacket, error) {
	h, ok := hh.(*mockAudioHandle)
	if !ok {
		return nil, captureerr.New(captureerr.KindDeviceNotFound, "handle is not a mock audio handle")
	}

	if !m.isAvailable(h.id) {
		return nil, captureerr.New(captureerr.KindCaptureFailed, "mock audio device "+h.id+" disconnected")
	}

	wait := h.frameDur
	timedOut := false
	if timeout > 0 && timeout < wait {
		wait = timeout
		timedOut = true
	}
	time.Sleep(wait)

	if timedOut {
		return nil, ErrTimeout(h.id)
	}
	if !m.isAvailable(h.id) {
		return nil, captureerr.New(captureerr.KindCaptureFailed, "mock audio device "+h.id+" disconnected")
	}

	h.mu.Lock()
	seq := h.seq
	h.seq++
	h.mu.Unlock()

	bytesPerSample := 2 // s16le
	size := h.samplesPerF * h.format.Channels * bytesPerSample
	data := make([]byte, size) // silence unless tone is set
	if m.tone {
		// 440Hz sine, same sample on every channel, phase continuous
		// across packets since the sample index is derived from seq.
		for i := 0; i < h.samplesPerF; i++ {
			n := seq*uint64(h.samplesPerF) + uint64(i)
			s := int16(8000 * math.Sin(2*math.Pi*440*float64(n)/float64(h.format.SampleRate)))
			for c := 0; c < h.format.Channels; c++ {
				off := (i*h.format.Channels + c) * bytesPerSample
				data[off] = byte(s)
				data[off+1] = byte(uint16(s) >> 8)
			}
		}
	}

	return &AudioPacket{
		Seq:        seq,
		SampleRate: h.format.SampleRate,
		Channels:   h.format.Channels,
		Data:       data,
	}, nil
}

// seedFor derives a per-device seed so two distinct mock device ids
// never coincidentally produce identical payloads.
func seedFor(id string) uint64 {
	var h uint64 = 1469598103934665603 // FNV offset basis
	for i := 0; i < len(id); i++ {
		h ^= uint64(id[i])
		h *= 1099511628211 // FNV prime
	}
	return h
}

// deterministicFill produces a reproducible byte slice of length size
// from seed and seq: same inputs always produce the same bytes, which
// is the only property the mock backend's "same seed, byte-identical
// output" requirement depends on.
func deterministicFill(seed, seq uint64, size int) []byte {
	if size < 0 {
		size = 0
	}
	data := make([]byte, size)
	state := seed ^ (seq*2654435761 + 0x9E3779B97F4A7C15)
	for i := range data {
		state = state*6364136223846793005 + 1442695040888963407
		data[i] = byte(state >> 56)
	}
	return data
}
