package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// StatusOptions holds flags for the status command.
type StatusOptions struct {
	Format string // "json" | "text"
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatusOptions{}

	cmd := &cobra.Command{
		Use:           "status",
		Short:         "Show who has not signed yet",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return runStatus(cmd, rootOpts, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	return cmd
}

func runStatus(cmd *cobra.Command, rootOpts *RootOptions, opts *StatusOptions) error {
	rt, err := openRuntime(rootOpts, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	status := rt.status(ctx)
	out := cmd.OutOrStdout()

	if opts.Format == "json" {
		return json.NewEncoder(out).Encode(status)
	}

	total := rt.store.Roster().Len()
	fmt.Fprintf(out, "Revision: %d\n", status.Revision)
	if status.Complete {
		fmt.Fprintln(out, "All signatures have been collected!")
		return nil
	}
	fmt.Fprintf(out, "Signed: %d of %d\n", total-len(status.Unsigned), total)
	fmt.Fprintln(out, "Unsigned:")
	for _, name := range status.Unsigned {
		fmt.Fprintf(out, "  - %s\n", name)
	}
	return nil
}
