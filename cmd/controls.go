package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// ControlsOptions holds the flags for the controls command.
type ControlsOptions struct {
	DeviceID     string
	OutputFormat string
}

// NewControlsCommand lists the adjustable controls a device advertises
// (exposure, gain, volume, ...).
func NewControlsCommand() *cobra.Command {
	opts := &ControlsOptions{}

	cmd := &cobra.Command{
		Use:   "controls <device-id>",
		Short: "List the adjustable controls a device exposes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.DeviceID = args[0]
			return runControls(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.OutputFormat, "output", "o", "text", "output format: json or text")
	_ = cmd.RegisterFlagCompletionFunc("output", outputFormatCompletion)

	return cmd
}

func runControls(opts *ControlsOptions) error {
	dev, err := findDevice(opts.DeviceID)
	if err != nil {
		return err
	}

	if opts.OutputFormat == "json" {
		return printJSON(dev.Capabilities.Controls)
	}

	rows := make([][]string, 0, len(dev.Capabilities.Controls))
	for _, c := range dev.Capabilities.Controls {
		rows = append(rows, []string{
			c.ID, c.Name,
			formatFloat(c.Min), formatFloat(c.Max), formatFloat(c.Step), formatFloat(c.Current),
		})
	}
	renderTable([]string{"ID", "NAME", "MIN", "MAX", "STEP", "CURRENT"}, rows)
	fmt.Println()
	return nil
}
