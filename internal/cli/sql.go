package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/siftgo/sift/filter"
	"github.com/siftgo/sift/querysql"
)

type sqlResult struct {
	Query  string `json:"query"`
	Params []any  `json:"params"`
}

// NewSQLCommand creates the sql command: criteria in, parameterized SELECT
// out. Without a record type the compiler runs untyped, passing values as
// text and leaning on SQLite column affinity.
func NewSQLCommand(opts *RootOptions) *cobra.Command {
	var (
		table    string
		sortExpr string
		castPath string
	)

	cmd := &cobra.Command{
		Use:   "sql <criteria>",
		Short: "Compile criteria to a parameterized SQLite statement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{
				Format:    opts.Format,
				Writer:    cmd.OutOrStdout(),
				ErrWriter: cmd.ErrOrStderr(),
				Verbose:   opts.Verbose,
			}

			filters, sorts, err := parseCriteria(args[0], sortExpr)
			if err != nil {
				formatter.Error(err.Error())
				return WrapExitError(ExitFailure, "parse criteria", err)
			}
			filters, sorts, err = applyCast(castPath, filters, sorts)
			if err != nil {
				formatter.Error(err.Error())
				return WrapExitError(ExitFailure, "apply cast config", err)
			}

			compiler := &querysql.Compiler{}
			query, params, err := compiler.Select(table, filters, sorts)
			if err != nil {
				formatter.Error(err.Error())
				return WrapExitError(ExitFailure, "compile criteria", err)
			}

			if opts.Format == "json" {
				if params == nil {
					params = []any{}
				}
				return formatter.Success(sqlResult{Query: query, Params: params})
			}
			fmt.Fprintln(cmd.OutOrStdout(), query)
			for _, p := range params {
				fmt.Fprintf(cmd.OutOrStdout(), "  ? = %v\n", p)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&table, "table", "", "table to select from (required)")
	cmd.Flags().StringVar(&sortExpr, "sort", "", "sort keys, e.g. name:desc,age")
	cmd.Flags().StringVar(&castPath, "cast", "", "cast config file (.cue, .yaml)")
	cmd.MarkFlagRequired("table")
	return cmd
}

func parseCriteria(filterExpr, sortExpr string) ([]filter.Node, []filter.Sort, error) {
	filters, err := filter.ParseList(filterExpr)
	if err != nil {
		return nil, nil, err
	}
	sorts, err := filter.ParseSort(sortExpr)
	if err != nil {
		return nil, nil, err
	}
	return filters, sorts, nil
}
