package backend

import (
	"time"

	"github.com/Michael-A-Kuykendall/capturecore/internal/logging"
)

// PlatformVideo declares the real camera backend interface the spec
// names as "abstracted behind a backend trait" — V4L2 on Linux,
// AVFoundation on macOS, MediaFoundation on Windows. None of those
// syscalls are in scope for this core; PlatformVideo exists so the
// backend.Video interface has a second, non-mock implementer that
// callers can select against, and every capability uniformly reports
// captureerr.KindUnsupportedPlatform. The Mock backend is what
// exercises every testable property in this module without real
// hardware.
type PlatformVideo struct{}

// NewPlatformVideo returns the platform camera backend stub.
func NewPlatformVideo() *PlatformVideo { return &PlatformVideo{} }

// Enumerate never reports any devices: there is no syscall layer
// behind it. It still stamps the host fingerprint into the log so a
// "zero cameras found" report is distinguishable from a VM with no
// passthrough versus a genuine absence of hardware.
func (p *PlatformVideo) Enumerate() ([]DeviceInfo, error) {
	logging.Get().Debug("platform camera enumeration unimplemented", "host", hostLabel(), "host_type", hostDeviceType())
	return nil, nil
}

func (p *PlatformVideo) Open(deviceID string, format VideoFormat) (Handle, error) {
	return nil, ErrUnsupportedPlatform("camera capture")
}

func (p *PlatformVideo) Start(h Handle) error {
	return ErrUnsupportedPlatform("camera capture")
}

func (p *PlatformVideo) Stop(h Handle) error {
	return ErrUnsupportedPlatform("camera capture")
}

func (p *PlatformVideo) NextFrame(h Handle, timeout time.Duration) (*Frame, error) {
	return nil, ErrUnsupportedPlatform("camera capture")
}

func (p *PlatformVideo) Close(h Handle) error {
	return nil
}

func (p *PlatformVideo) SetControl(h Handle, controlID string, value float64) error {
	return ErrUnsupportedPlatform("camera controls")
}
