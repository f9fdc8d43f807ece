package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Michael-A-Kuykendall/capturecore/backend"
	"github.com/Michael-A-Kuykendall/capturecore/session"
)

// DevicesOptions holds the flags for the devices command.
type DevicesOptions struct {
	OutputFormat string
	Kind         string // "video", "audio", or "" for both
}

// NewDevicesCommand lists capture devices known to the configured
// backends.
func NewDevicesCommand() *cobra.Command {
	opts := &DevicesOptions{}

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List available video and audio capture devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDevices(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.OutputFormat, "output", "o", "text", "output format: json or text")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "filter by device kind: video or audio")
	_ = cmd.RegisterFlagCompletionFunc("output", outputFormatCompletion)
	_ = cmd.RegisterFlagCompletionFunc("kind", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"video", "audio"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runDevices(opts *DevicesOptions) error {
	var devices []backend.DeviceInfo

	if opts.Kind != "audio" {
		v, err := session.EnumerateVideo()
		if err != nil {
			return err
		}
		devices = append(devices, v...)
	}
	if opts.Kind != "video" {
		a, err := session.EnumerateAudio()
		if err != nil {
			return err
		}
		devices = append(devices, a...)
	}

	if opts.OutputFormat == "json" {
		return printJSON(devices)
	}

	rows := make([][]string, 0, len(devices))
	for _, d := range devices {
		rows = append(rows, []string{d.ID, d.Name, d.Kind.String(), strconv.FormatBool(d.IsAvailable)})
	}
	renderTable([]string{"ID", "NAME", "KIND", "AVAILABLE"}, rows)
	fmt.Println()
	return nil
}
