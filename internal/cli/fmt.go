package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/siftgo/sift/filter"
)

// NewFmtCommand creates the fmt command: criteria in, normalized criteria
// out. Shorthand forms are expanded, so "name:bob" prints as "name:eq(bob)".
func NewFmtCommand(opts *RootOptions) *cobra.Command {
	var sortExpr string

	cmd := &cobra.Command{
		Use:   "fmt <criteria>",
		Short: "Normalize criteria to canonical grammar form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{
				Format:    opts.Format,
				Writer:    cmd.OutOrStdout(),
				ErrWriter: cmd.ErrOrStderr(),
				Verbose:   opts.Verbose,
			}

			filters, err := filter.ParseList(args[0])
			if err != nil {
				formatter.Error(err.Error())
				return WrapExitError(ExitFailure, "parse criteria", err)
			}
			normalized := filter.FormatList(filters)

			if sortExpr == "" {
				return formatter.Success(normalized)
			}
			sorts, err := filter.ParseSort(sortExpr)
			if err != nil {
				formatter.Error(err.Error())
				return WrapExitError(ExitFailure, "parse sort", err)
			}
			if opts.Format == "json" {
				return formatter.Success(map[string]string{
					"filters": normalized,
					"sorts":   filter.FormatSort(sorts),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), normalized)
			fmt.Fprintln(cmd.OutOrStdout(), filter.FormatSort(sorts))
			return nil
		},
	}

	cmd.Flags().StringVar(&sortExpr, "sort", "", "sort keys to normalize alongside the criteria")
	return cmd
}
