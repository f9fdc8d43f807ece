package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags; it defaults to "dev" for
// local builds.
var Version = "dev"

// VersionOptions holds the flags for the version command.
type VersionOptions struct {
	OutputFormat string
}

// NewVersionCommand reports the build version.
func NewVersionCommand() *cobra.Command {
	opts := &VersionOptions{}

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the capturecore version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersion(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.OutputFormat, "output", "o", "text", "output format: json or text")
	_ = cmd.RegisterFlagCompletionFunc("output", outputFormatCompletion)

	return cmd
}

func runVersion(opts *VersionOptions) error {
	if opts.OutputFormat == "json" {
		return printJSON(map[string]string{"version": Version})
	}
	fmt.Println("capturecore " + Version)
	return nil
}
