package main

import (
	"github.com/spf13/cobra"

	"github.com/rpe-analytics/quarterlies-cli/internal/merger"
	"github.com/rpe-analytics/quarterlies-cli/internal/store"
)

var mergeXLSX bool

var mergeCmd = &cobra.Command{
	Use:   "merge <dir>",
	Short: "Merge all quarterly JSON records in a directory into one table",
	Long:  "Consolidates every record file in <dir> into a sorted table and writes it back to the same directory as CSV and parquet.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rs, err := store.OpenDirStore(args[0])
		if err != nil {
			return err
		}

		result, err := merger.MergeAndSave(cmd.Context(), rs, mergeXLSX || cfg.Merge.XLSX)
		if err != nil {
			return err
		}

		return printJSON(result)
	},
}

func init() {
	mergeCmd.Flags().BoolVar(&mergeXLSX, "xlsx", false, "also save the table as a spreadsheet")
	rootCmd.AddCommand(mergeCmd)
}
