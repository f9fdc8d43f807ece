package cmd

import "github.com/fatih/color"

var (
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
)

func printSuccess(format string, args ...interface{}) {
	successColor.Printf(format+"\n", args...)
}

func printWarn(format string, args ...interface{}) {
	warnColor.Printf(format+"\n", args...)
}
