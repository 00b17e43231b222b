package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/alvesdmateus/auto-deployer/internal/state"
)

var tasksLimit int

var tasksCmd = &cobra.Command{
	Use:   "tasks <target-id>",
	Short: "Show the most recent deploy jobs of a target",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		logs, err := a.repo.ListTaskLogs(cmd.Context(), args[0], tasksLimit)
		if err != nil {
			return fmt.Errorf("failed to list tasks: %w", err)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "JOB\tPACKAGE\tVERSION\tEXIT\tFINISHED\tDURATION\tERROR")
		for _, l := range logs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				l.JobID, l.PackageID, l.Version, l.ExitCode,
				l.FinishedAt.Format(time.RFC3339),
				l.FinishedAt.Sub(l.StartedAt).Round(time.Millisecond),
				l.Error)
		}
		return w.Flush()
	},
}

func init() {
	tasksCmd.Flags().IntVar(&tasksLimit, "limit", state.DefaultTaskLogLimit, "maximum number of jobs to show")
}
