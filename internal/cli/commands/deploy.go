package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alvesdmateus/auto-deployer/internal/deployer"
	"github.com/alvesdmateus/auto-deployer/pkg/models"
)

var (
	deployPackage    string
	deployShowOutput bool
)

var deployCmd = &cobra.Command{
	Use:   "deploy <target-id> <version>",
	Short: "Deploy a package version to a target now, bypassing the poll loop",
	Long: `Deploy runs the external deployer once, in the foreground, for the given
target. Any version may be requested, including downgrades and prereleases.
The result is recorded in the target's task log.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.connectSecrets(false); err != nil {
			return err
		}

		target, err := a.repo.GetTarget(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to load target %s: %w", args[0], err)
		}

		packageID := deployPackage
		if packageID == "" {
			packageID = target.PackageID
		}
		pv, err := models.NewPackageVersion(packageID, args[1])
		if err != nil {
			return err
		}

		job := models.NewDeploymentJob(target.ID, pv)
		a.logger.Info().
			Str("job_id", job.ID.String()).
			Str("target_id", target.ID).
			Str("package", pv.String()).
			Msg("Running deploy job")

		result, execErr := a.newExecutor().Execute(ctx, job)

		// Record with a fresh context so a cancelled run still lands in the task log
		tracker := deployer.NewTracker(a.repo, a.metrics, a.logger)
		if err := tracker.Record(context.WithoutCancel(ctx), result); err != nil {
			a.logger.Error().Err(err).Msg("Failed to record deploy result")
		}

		out := cmd.OutOrStdout()
		if deployShowOutput && result.Output != "" {
			fmt.Fprintln(out, result.Output)
		}
		fmt.Fprintf(out, "%s %s -> %s: %s (%s)\n",
			job.ID, pv, target.ID, result.ExitCode, result.Duration().Round(time.Millisecond))

		if execErr != nil {
			return fmt.Errorf("deploy failed: %w", execErr)
		}
		return nil
	},
}

func init() {
	deployCmd.Flags().StringVar(&deployPackage, "package", "", "package id (default the target's package)")
	deployCmd.Flags().BoolVar(&deployShowOutput, "output", false, "print the deployer output")
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
