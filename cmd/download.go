package main

import (
	"github.com/spf13/cobra"

	"github.com/rpe-analytics/quarterlies-cli/internal/manifest"
)

var downloadOutDir string

var downloadCmd = &cobra.Command{
	Use:   "download <company>",
	Short: "Download all report PDFs listed in urls_<company>.json",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		company := args[0]

		m, err := manifest.Load(manifest.PathFor(company))
		if err != nil {
			return err
		}

		outDir := downloadOutDir
		if outDir == "" {
			outDir = company
		}

		summary, err := newDownloader().DownloadBatch(cmd.Context(), m.Results, outDir)
		if err != nil {
			return err
		}

		return printJSON(summary)
	},
}

func init() {
	downloadCmd.Flags().StringVar(&downloadOutDir, "out", "", "output directory (default: ./<company>)")
	rootCmd.AddCommand(downloadCmd)
}
