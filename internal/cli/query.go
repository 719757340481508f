package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/siftgo/sift/querysql"
)

// NewQueryCommand creates the query command: run criteria against a table
// in a SQLite database and print the matching rows.
func NewQueryCommand(opts *RootOptions) *cobra.Command {
	var (
		dbPath    string
		table     string
		sortExpr  string
		castPath  string
		countOnly bool
	)

	cmd := &cobra.Command{
		Use:   "query <criteria>",
		Short: "Run criteria against a SQLite table",
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

			db, err := querysql.Open(dbPath)
			if err != nil {
				formatter.Error(err.Error())
				return WrapExitError(ExitCommandError, "open database", err)
			}
			defer db.Close()

			compiler := &querysql.Compiler{}
			ctx := cmd.Context()

			if countOnly {
				n, err := db.Count(ctx, compiler, table, filters)
				if err != nil {
					formatter.Error(err.Error())
					return WrapExitError(ExitCommandError, "count rows", err)
				}
				return formatter.Success(n)
			}

			rows, err := db.Select(ctx, compiler, table, filters, sorts)
			if err != nil {
				formatter.Error(err.Error())
				return WrapExitError(ExitCommandError, "query rows", err)
			}
			defer rows.Close()

			columns, err := rows.Columns()
			if err != nil {
				return WrapExitError(ExitCommandError, "read columns", err)
			}

			var results []map[string]any
			for rows.Next() {
				values := make([]any, len(columns))
				ptrs := make([]any, len(columns))
				for i := range values {
					ptrs[i] = &values[i]
				}
				if err := rows.Scan(ptrs...); err != nil {
					return WrapExitError(ExitCommandError, "scan row", err)
				}
				row := make(map[string]any, len(columns))
				for i, col := range columns {
					if b, ok := values[i].([]byte); ok {
						values[i] = string(b)
					}
					row[col] = values[i]
				}
				results = append(results, row)
			}
			if err := rows.Err(); err != nil {
				return WrapExitError(ExitCommandError, "iterate rows", err)
			}
			formatter.VerboseLog("%d rows matched", len(results))

			if opts.Format == "json" {
				if results == nil {
					results = []map[string]any{}
				}
				return formatter.Success(results)
			}
			for _, row := range results {
				line, err := json.Marshal(row)
				if err != nil {
					return WrapExitError(ExitCommandError, "encode row", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(line))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (required)")
	cmd.Flags().StringVar(&table, "table", "", "table to query (required)")
	cmd.Flags().StringVar(&sortExpr, "sort", "", "sort keys, e.g. name:desc,age")
	cmd.Flags().StringVar(&castPath, "cast", "", "cast config file (.cue, .yaml)")
	cmd.Flags().BoolVar(&countOnly, "count", false, "print only the number of matching rows")
	cmd.MarkFlagRequired("db")
	cmd.MarkFlagRequired("table")
	return cmd
}
