package commands

import (
	"context"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alvesdmateus/auto-deployer/internal/orchestrator"
	"github.com/alvesdmateus/auto-deployer/pkg/models"
)

var versionsCmd = &cobra.Command{
	Use:   "versions <target-id>",
	Short: "Show the deployed version of a target and what the poller would pick",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := context.WithTimeout(commandContext(cmd), a.cfg.AutoDeploy.DefaultTimeout+a.cfg.AutoDeploy.MetadataTimeout)
		defer cancel()

		target, err := a.repo.GetTarget(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to load target %s: %w", args[0], err)
		}

		available, err := a.newFeed().ListAvailableVersions(ctx, target.PackageID)
		if err != nil {
			return err
		}
		sort.Slice(available, func(i, j int) bool {
			return available[i].Version.LT(available[j].Version)
		})

		out := cmd.OutOrStdout()
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "PACKAGE\tVERSION\tPRERELEASE")
		for _, pv := range available {
			fmt.Fprintf(w, "%s\t%s\t%t\n", pv.PackageID, pv.NormalizedVersion(), pv.IsPrerelease())
		}
		if err := w.Flush(); err != nil {
			return err
		}

		if !target.HasURL() {
			fmt.Fprintf(out, "\n%s has no URL, deployed version unknown\n", target.ID)
			return nil
		}

		deployed, err := a.newMetadata().GetDeployedVersion(ctx, *target)
		if err != nil {
			return err
		}
		if !deployed.Known() {
			fmt.Fprintf(out, "\n%s did not report a deployed version\n", target.ID)
			return nil
		}

		fmt.Fprintf(out, "\ndeployed: %s %s\n", deployed.PackageID, models.NormalizeVersion(*deployed.Version))
		if upgrade, ok := orchestrator.SelectUpgrade(available, target.PackageID, *deployed.Version, target.AllowPrerelease); ok {
			fmt.Fprintf(out, "upgrade:  %s\n", upgrade)
		} else {
			fmt.Fprintln(out, "upgrade:  none")
		}
		return nil
	},
}
