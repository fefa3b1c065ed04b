package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zph/glup/pkg/apply"
	"github.com/zph/glup/pkg/reconcile"
)

var reportList bool

var reportCmd = &cobra.Command{
	Use:   "report [run-id]",
	Short: "Show recorded runs",
	Long: `Show the report of a recorded run of --cluster. Without a run ID the most
recent run is shown; --list prints a one-line summary of every run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := storageDir()
		if err != nil {
			return err
		}
		store := apply.NewReportStore(dir)
		out := cmd.OutOrStdout()

		if reportList {
			reports, err := store.List(flags.cluster)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tSTARTED\tOPERATION\tMODE\tRESULTS\tFAILED")
			for _, r := range reports {
				mode := "apply"
				if r.DryRun {
					mode = "dry-run"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\n", r.ID, r.StartedAt.Format("2006-01-02 15:04:05"),
					r.Operation, mode, len(r.Results), r.Counts()[reconcile.StatusFailed])
			}
			return w.Flush()
		}

		if len(args) == 1 {
			reports, err := store.List(flags.cluster)
			if err != nil {
				return err
			}
			for _, r := range reports {
				if r.ID == args[0] {
					return apply.Render(out, r, flags.format)
				}
			}
			return fmt.Errorf("run %s not found for cluster %s", args[0], flags.cluster)
		}

		latest, err := store.Latest(flags.cluster)
		if err != nil {
			return err
		}
		return apply.Render(out, latest, flags.format)
	},
}

func init() {
	reportCmd.Flags().BoolVar(&reportList, "list", false, "List every recorded run")
}
