package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kingrea/signroll/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Dir     string // base directory holding .signroll/
	Verbose bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the signroll CLI. Running it
// without a subcommand opens the signature form.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}
	sign := &SignOptions{}

	cmd := &cobra.Command{
		Use:   "signroll",
		Short: "signroll - collect one signature per participant",
		Long: `A terminal signature form backed by a shared slot database.

Every participant on the roster signs once. Several signroll instances may
run against the same .signroll directory; each one sees the others' writes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.Dir == "" {
				cwd, err := os.Getwd()
				if err != nil {
					return WrapExitError(ExitCommandError, "resolve working directory", err)
				}
				opts.Dir = config.Home(cwd)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSign(cmd, opts, sign)
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&opts.Dir, "dir", "", "base directory (default: $SIGNROLL_HOME or the working directory)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.Flags().BoolVar(&sign.Memory, "memory", false, "keep signatures in memory only")

	// Add subcommands
	cmd.AddCommand(NewSignCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func verbosef(cmd *cobra.Command, opts *RootOptions, format string, args ...any) {
	if !opts.Verbose {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), format+"\n", args...)
}
