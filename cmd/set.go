package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Michael-A-Kuykendall/capturecore/backend"
)

// SetOptions holds the flags for the set command.
type SetOptions struct {
	DeviceID  string
	ControlID string
	Value     string
}

// NewSetCommand adjusts a single device control outside of a capture
// session: open the device just long enough to apply the new value,
// then close it again.
func NewSetCommand() *cobra.Command {
	opts := &SetOptions{}

	cmd := &cobra.Command{
		Use:   "set <device-id> <control-id> <value>",
		Short: "Set a device control to a value",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.DeviceID, opts.ControlID, opts.Value = args[0], args[1], args[2]
			return runSet(opts)
		},
	}

	return cmd
}

func runSet(opts *SetOptions) error {
	value, err := strconv.ParseFloat(opts.Value, 64)
	if err != nil {
		return fmt.Errorf("invalid control value %q: %w", opts.Value, err)
	}

	dev, err := findDevice(opts.DeviceID)
	if err != nil {
		return err
	}

	if dev.Kind == backend.KindAudio {
		ab := selectAudioBackendForCLI(opts.DeviceID)
		h, err := ab.Open(opts.DeviceID, backend.AudioFormat{SampleRate: 48000, Channels: 1, SampleFormat: backend.SampleFormatS16LE})
		if err != nil {
			return err
		}
		defer ab.Close(h)
		if err := ab.SetControl(h, opts.ControlID, value); err != nil {
			return err
		}
	} else {
		vb := selectVideoBackendForCLI(opts.DeviceID)
		h, err := vb.Open(opts.DeviceID, backend.VideoFormat{Width: 640, Height: 480, FPS: 30, PixelFormat: backend.PixelFormatI420})
		if err != nil {
			return err
		}
		defer vb.Close(h)
		if err := vb.SetControl(h, opts.ControlID, value); err != nil {
			return err
		}
	}

	fmt.Printf("%s.%s = %s\n", opts.DeviceID, opts.ControlID, opts.Value)
	return nil
}

func selectVideoBackendForCLI(deviceID string) backend.Video {
	if strings.HasPrefix(deviceID, "mock") {
		return backend.NewMockVideo()
	}
	return backend.NewPlatformVideo()
}

func selectAudioBackendForCLI(deviceID string) backend.Audio {
	if strings.HasPrefix(deviceID, "mock") {
		return backend.NewMockAudio(false)
	}
	return backend.NewPortaudioAudio()
}
