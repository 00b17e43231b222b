package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alvesdmateus/auto-deployer/internal/state"
	"github.com/alvesdmateus/auto-deployer/pkg/models"
)

var listAll bool

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "Manage deployment targets",
}

var targetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List deployment targets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		var targets []models.DeploymentTarget
		if listAll {
			targets, err = a.repo.ListTargets(cmd.Context())
		} else {
			targets, err = a.repo.ListEligibleTargets(cmd.Context())
		}
		if err != nil {
			return fmt.Errorf("failed to list targets: %w", err)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tPACKAGE\tENABLED\tAUTO\tPRERELEASE\tURL")
		for _, t := range targets {
			fmt.Fprintf(w, "%s\t%s\t%t\t%t\t%t\t%s\n",
				t.ID, t.PackageID, t.Enabled, t.AutoDeployEnabled, t.AllowPrerelease, t.URL)
		}
		return w.Flush()
	},
}

var targetsSeedCmd = &cobra.Command{
	Use:   "seed <file>",
	Short: "Create or update targets from a YAML seed file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		// Seed treats a missing file as a no-op; an explicit argument must exist
		if _, err := state.LoadSeedFile(args[0]); err != nil {
			return err
		}

		n, err := state.Seed(cmd.Context(), a.repo, args[0], a.cfg.Seed.Timeout)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d targets from %s\n", n, args[0])
		return nil
	},
}

var targetsDeleteCmd = &cobra.Command{
	Use:   "delete <target-id>",
	Short: "Delete a deployment target",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.repo.DeleteTarget(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to delete target %s: %w", args[0], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
		return nil
	},
}

func init() {
	targetsListCmd.Flags().BoolVar(&listAll, "all", false, "include targets that are disabled or not auto-deployed")

	targetsCmd.AddCommand(targetsListCmd)
	targetsCmd.AddCommand(targetsSeedCmd)
	targetsCmd.AddCommand(targetsDeleteCmd)
}
