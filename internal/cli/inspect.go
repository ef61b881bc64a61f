package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/flowforge/internal/transform"
)

func newSuggestCmd() *cobra.Command {
	var input, column string
	var columnCutoff, dataCutoff float64

	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Suggest fixes for misspelled headers and values",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := readTable(cmd, input)
			if err != nil {
				return err
			}
			if column != "" && !t.HasColumn(column) {
				return fmt.Errorf("column '%s' not found in %s", column, input)
			}
			engine := transform.NewEngine(transform.WithTypoConfig(transform.TypoConfig{
				ColumnCutoff: columnCutoff,
				DataCutoff:   dataCutoff,
			}))
			return printJSON(cmd.OutOrStdout(), engine.SuggestTypos(t, column))
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "input CSV file")
	cmd.Flags().StringVarP(&column, "column", "c", "", "also check the values of this column")
	cmd.Flags().Float64Var(&columnCutoff, "column-cutoff", 0.6, "minimum header similarity (0-1)")
	cmd.Flags().Float64Var(&dataCutoff, "data-cutoff", 0.8, "minimum value similarity (0-1)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func newSummaryCmd() *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print row, column, null and size statistics as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := readTable(cmd, input)
			if err != nil {
				return err
			}
			summary, err := transform.Summarize(t)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), summary)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "input CSV file")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}
