package main

import (
	"github.com/spf13/cobra"

	"github.com/rpe-analytics/quarterlies-cli/internal/extractor"
	"github.com/rpe-analytics/quarterlies-cli/internal/store"
)

var extractDir string

var extractCmd = &cobra.Command{
	Use:   "extract <company>",
	Short: "Extract financial data from every PDF in a directory",
	Long:  "Runs the structured-extraction collaborator over all PDFs in --dir (default: ./<company>). The directory must contain reports for the named company only.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		company := args[0]

		dir := extractDir
		if dir == "" {
			dir = company
		}

		collab, closeCollab, err := initCollaborator(ctx)
		if err != nil {
			return err
		}
		defer closeCollab() //nolint:errcheck

		rs, err := store.NewDirStore(cfg.Extract.OutputDir, company)
		if err != nil {
			return err
		}

		summary, err := extractor.New(collab, cfg.Extract.Concurrency).Run(ctx, dir, rs)
		if err != nil {
			return err
		}

		return printJSON(summary)
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractDir, "dir", "", "directory of PDFs to process (default: ./<company>)")
	rootCmd.AddCommand(extractCmd)
}
