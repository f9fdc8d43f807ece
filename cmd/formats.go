package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Michael-A-Kuykendall/capturecore/backend"
	"github.com/Michael-A-Kuykendall/capturecore/captureerr"
	"github.com/Michael-A-Kuykendall/capturecore/session"
)

// FormatsOptions holds the flags for the formats command.
type FormatsOptions struct {
	DeviceID     string
	OutputFormat string
}

// NewFormatsCommand lists the formats a single device advertises.
func NewFormatsCommand() *cobra.Command {
	opts := &FormatsOptions{}

	cmd := &cobra.Command{
		Use:   "formats <device-id>",
		Short: "List the video or audio formats a device supports",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.DeviceID = args[0]
			return runFormats(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.OutputFormat, "output", "o", "text", "output format: json or text")
	_ = cmd.RegisterFlagCompletionFunc("output", outputFormatCompletion)

	return cmd
}

func findDevice(id string) (backend.DeviceInfo, error) {
	video, err := session.EnumerateVideo()
	if err != nil {
		return backend.DeviceInfo{}, err
	}
	for _, d := range video {
		if d.ID == id {
			return d, nil
		}
	}

	audio, err := session.EnumerateAudio()
	if err != nil {
		return backend.DeviceInfo{}, err
	}
	for _, d := range audio {
		if d.ID == id {
			return d, nil
		}
	}

	return backend.DeviceInfo{}, captureerr.New(captureerr.KindDeviceNotFound, "no device with id "+id)
}

func runFormats(opts *FormatsOptions) error {
	dev, err := findDevice(opts.DeviceID)
	if err != nil {
		return err
	}

	if opts.OutputFormat == "json" {
		return printJSON(dev.Capabilities)
	}

	if dev.Kind == backend.KindVideo {
		rows := make([][]string, 0, len(dev.Capabilities.VideoFormats))
		for _, f := range dev.Capabilities.VideoFormats {
			rows = append(rows, []string{
				strconv.Itoa(f.Width), strconv.Itoa(f.Height),
				strconv.FormatFloat(f.FPS, 'g', -1, 64), string(f.PixelFormat),
			})
		}
		renderTable([]string{"WIDTH", "HEIGHT", "FPS", "PIXEL FORMAT"}, rows)
	} else {
		rows := make([][]string, 0, len(dev.Capabilities.AudioFormats))
		for _, f := range dev.Capabilities.AudioFormats {
			rows = append(rows, []string{
				strconv.Itoa(f.SampleRate), strconv.Itoa(f.Channels), string(f.SampleFormat),
			})
		}
		renderTable([]string{"SAMPLE RATE", "CHANNELS", "SAMPLE FORMAT"}, rows)
	}
	fmt.Println()
	return nil
}
