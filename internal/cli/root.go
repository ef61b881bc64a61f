// Package cli implements the flowforge command line: recipe replay, typo
// suggestions, summaries and sample data generation over CSV and JSON files.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/flowforge/internal/logging"
	"github.com/JonMunkholm/flowforge/internal/table"
)

// NewRootCmd builds the command tree. Log flags default to LOG_LEVEL and
// LOG_FORMAT.
func NewRootCmd() *cobra.Command {
	var logLevel, logFormat string

	root := &cobra.Command{
		Use:           "flowforge",
		Short:         "Clean and reshape tabular data",
		Long:          "FlowForge applies recorded transformation recipes to CSV files, suggests typo fixes and generates sample datasets.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch logFormat {
			case "text", "json":
			default:
				return fmt.Errorf("invalid --log-format %q (want text or json)", logFormat)
			}
			slog.SetDefault(logging.New(cmd.ErrOrStderr(), logLevel, logFormat))
			return nil
		},
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", envOr("LOG_LEVEL", "warn"), "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&logFormat, "log-format", envOr("LOG_FORMAT", "text"), "log format: text or json")
	root.PersistentFlags().String("delimiter", ",", "CSV input delimiter: a single character, or comma, semicolon, tab or pipe")

	root.AddCommand(
		newApplyCmd(),
		newSuggestCmd(),
		newSummaryCmd(),
		newSamplesCmd(),
	)
	return root
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// readTable loads a CSV file, or a JSON file when path ends in .json. CSV
// input honours the --delimiter flag.
func readTable(cmd *cobra.Command, path string) (*table.Table, error) {
	delim, _ := cmd.Flags().GetString("delimiter")
	comma, err := table.ParseDelimiter(delim)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var t *table.Table
	if strings.EqualFold(filepath.Ext(path), ".json") {
		t, err = table.ReadJSON(f)
	} else {
		t, _, err = table.ReadCSVWith(f, table.CSVOptions{Comma: comma})
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return t, nil
}

// writeOutput writes to path, or to w when path is empty or "-".
func writeOutput(w io.Writer, path string, write func(io.Writer) error) error {
	if path == "" || path == "-" {
		return write(w)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
