package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/flowforge/internal/table"
	"github.com/JonMunkholm/flowforge/internal/transform"
)

func newApplyCmd() *cobra.Command {
	var input, recipePath, output string
	var keepGoing bool

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Replay a YAML recipe on a CSV file",
		Example: `  flowforge apply --input orders.csv --recipe clean.yaml --output orders_clean.csv
  flowforge apply --input orders.csv --recipe clean.yaml --continue > out.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(recipePath)
			if err != nil {
				return err
			}
			recipe, err := transform.ParseRecipe(data)
			if err != nil {
				return fmt.Errorf("%s: %w", recipePath, err)
			}
			t, err := readTable(cmd, input)
			if err != nil {
				return err
			}

			engine := transform.NewEngine(transform.WithSink(transform.NewSlogSink(slog.Default().With("input", input))))
			result, outcomes := engine.Replay(t, recipe, keepGoing)

			report := cmd.ErrOrStderr()
			failed := 0
			for i, out := range outcomes {
				status := "ok"
				switch {
				case !out.Succeeded:
					status = "failed"
					failed++
				case out.Partial:
					status = "partial"
				}
				fmt.Fprintf(report, "step %d/%d [%s] %s\n", i+1, len(recipe.Steps), status, out.Message)
			}
			if failed > 0 && !keepGoing {
				return fmt.Errorf("step %d failed", len(outcomes))
			}

			if err := writeOutput(cmd.OutOrStdout(), output, func(w io.Writer) error {
				return table.WriteCSV(w, result)
			}); err != nil {
				return err
			}
			fmt.Fprintf(report, "%d steps applied, %d failed; %d rows × %d columns\n",
				len(outcomes)-failed, failed, result.NumRows(), result.NumCols())
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "input CSV file")
	cmd.Flags().StringVarP(&recipePath, "recipe", "r", "", "YAML recipe file")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output CSV file (default stdout)")
	cmd.Flags().BoolVar(&keepGoing, "continue", false, "keep applying steps after a failure")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("recipe")
	return cmd
}
