package session

import (
	"strings"

	"github.com/Michael-A-Kuykendall/capturecore/backend"
)

// selectVideoBackend picks a backend implementation from a device id's
// prefix convention, a string dispatch rather than a factory registry.
func selectVideoBackend(deviceID string) backend.Video {
	if strings.HasPrefix(deviceID, "mock_") {
		return backend.NewMockVideo()
	}
	return backend.NewPlatformVideo()
}

func selectAudioBackend(deviceID string) backend.Audio {
	if strings.HasPrefix(deviceID, "mock_") {
		return backend.NewMockAudio(false)
	}
	if strings.HasPrefix(deviceID, "portaudio") {
		return backend.NewPortaudioAudio()
	}
	return backend.NewPortaudioAudio()
}
