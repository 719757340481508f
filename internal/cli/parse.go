package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/siftgo/sift/filter"
)

type parseResult struct {
	Filters    []filter.Node `json:"filters"`
	Sorts      []filter.Sort `json:"sorts,omitempty"`
	Normalized string        `json:"normalized"`
}

// NewParseCommand creates the parse command: criteria in, syntax tree out.
func NewParseCommand(opts *RootOptions) *cobra.Command {
	var sortExpr string

	cmd := &cobra.Command{
		Use:   "parse <criteria>",
		Short: "Parse criteria and print the syntax tree",
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
			sorts, err := filter.ParseSort(sortExpr)
			if err != nil {
				formatter.Error(err.Error())
				return WrapExitError(ExitFailure, "parse sort", err)
			}

			result := parseResult{
				Filters:    filters,
				Sorts:      sorts,
				Normalized: filter.FormatList(filters),
			}
			if opts.Format == "json" {
				return formatter.Success(result)
			}
			tree, err := json.MarshalIndent(result.Filters, "", "  ")
			if err != nil {
				return WrapExitError(ExitCommandError, "encode tree", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.Normalized)
			fmt.Fprintln(cmd.OutOrStdout(), string(tree))
			return nil
		},
	}

	cmd.Flags().StringVar(&sortExpr, "sort", "", "sort keys, e.g. name:desc,age")
	return cmd
}
