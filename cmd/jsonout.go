package cmd

import (
	"encoding/json"
	"os"
)

// printJSON writes v to stdout as indented JSON, for the --output json
// convention shared by every subcommand.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
