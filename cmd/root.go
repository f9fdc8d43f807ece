// Package cmd implements the capturecore command-line surface: device
// enumeration, control adjustment, headless preview capture, and
// file recording, all driven through the session package. Each
// subcommand follows the same shape: a NewXxxCommand() *cobra.Command
// constructor, an Options struct holding its flags, and a RunE that
// delegates to a package-level runXxx function.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Michael-A-Kuykendall/capturecore/internal/logging"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "capturecore",
	Short: "Camera and audio capture/recording engine",
	Long:  "capturecore drives camera and microphone capture sessions, optionally recording them to MP4, from the command line.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(verbose)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command; the generated binary's main calls this
// directly.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug-level logging")

	rootCmd.AddCommand(NewDevicesCommand())
	rootCmd.AddCommand(NewFormatsCommand())
	rootCmd.AddCommand(NewControlsCommand())
	rootCmd.AddCommand(NewSetCommand())
	rootCmd.AddCommand(NewCaptureCommand())
	rootCmd.AddCommand(NewRecordCommand())
	rootCmd.AddCommand(NewVersionCommand())
}

func outputFormatCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return []string{"json", "text"}, cobra.ShellCompDirectiveNoFileComp
}
