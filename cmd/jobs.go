package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rpe-analytics/quarterlies-cli/internal/model"
	"github.com/rpe-analytics/quarterlies-cli/internal/store"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect pipeline job history",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		js, err := initJobStore(ctx)
		if err != nil {
			return err
		}
		defer js.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		company, _ := cmd.Flags().GetString("company")
		limit, _ := cmd.Flags().GetInt("limit")

		list, err := js.ListJobs(ctx, store.JobFilter{
			Status:  model.JobStatus(status),
			Company: company,
			Limit:   limit,
		})
		if err != nil {
			return err
		}

		if len(list) == 0 {
			fmt.Fprintln(os.Stderr, "No jobs found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tCOMPANY\tSTATUS\tCREATED")
		for _, j := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				j.ID, j.Name, j.Company, j.Status, j.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	},
}

var jobsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one job, including its result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		js, err := initJobStore(ctx)
		if err != nil {
			return err
		}
		defer js.Close() //nolint:errcheck

		job, err := js.GetJob(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(job)
	},
}

func init() {
	jobsListCmd.Flags().String("status", "", "filter by status")
	jobsListCmd.Flags().String("company", "", "filter by company")
	jobsListCmd.Flags().Int("limit", 50, "max jobs to list")

	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsShowCmd)
	rootCmd.AddCommand(jobsCmd)
}
