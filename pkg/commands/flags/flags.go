// Package flags provides the flags shared by faucetctl commands.
//
// Command specific flags are defined next to the command.
package flags

import (
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// DefaultConfigPath is the config file read when --config is not given.
const DefaultConfigPath = "faucet.yml"

// MustString returns the string value, ignoring the error.
// Safe to use with registered flags where GetString cannot fail.
func MustString(s string, _ error) string { return s }

// MustBool returns the bool value, ignoring the error.
// Safe to use with registered flags where GetBool cannot fail.
func MustBool(b bool, _ error) bool { return b }

// Config adds the persistent --config/-c flag naming the config file. A missing file is not an
// error; the config is then read from the environment.
func Config(cmd *cobra.Command) {
	cmd.PersistentFlags().StringP("config", "c", DefaultConfigPath, "Config file path")
}

// Wait adds the --wait/-w flag. When set, a transaction command waits for the outcome of the
// transaction it broadcast.
func Wait(cmd *cobra.Command) {
	cmd.Flags().BoolP("wait", "w", false, "Wait for the transaction outcome")
}

// PeekConfig returns the --config value in args without parsing the command line. Other flags
// and positional arguments are ignored, so it can run before the command tree is built.
func PeekConfig(args []string) string {
	fs := pflag.NewFlagSet("peek", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}
	path := fs.StringP("config", "c", DefaultConfigPath, "")

	if err := fs.Parse(args); err != nil {
		return DefaultConfigPath
	}

	return *path
}
