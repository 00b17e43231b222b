package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/alvesdmateus/auto-deployer/internal/deployer"
)

var secretsCmd = &cobra.Command{
	Use:   "secrets",
	Short: "Manage per-target publish credentials in the secret store",
	Long: `Publish credentials are read by the deployer when a target has neither
inline publish settings nor a publish settings file. Known keys:
  ` + deployer.SecretKeyUsername + `
  ` + deployer.SecretKeyPassword + `
  ` + deployer.SecretKeyPublishURL + `
  ` + deployer.SecretKeyMSDeploySite,
}

var secretsSetCmd = &cobra.Command{
	Use:   "set <target-id> <key> <value>",
	Short: "Set a secret for a target",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.connectSecrets(true); err != nil {
			return err
		}
		if err := a.secrets.SetSecret(cmd.Context(), args[0], args[1], args[2]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "set %s for %s\n", args[1], args[0])
		return nil
	},
}

var secretsDeleteCmd = &cobra.Command{
	Use:   "delete <target-id> <key>",
	Short: "Delete a secret of a target",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.connectSecrets(true); err != nil {
			return err
		}
		if err := a.secrets.DeleteSecret(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s for %s\n", args[1], args[0])
		return nil
	},
}

var secretsListCmd = &cobra.Command{
	Use:   "list <target-id>",
	Short: "List the secret keys stored for a target",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.connectSecrets(true); err != nil {
			return err
		}
		keys, err := a.secrets.Keys(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintln(cmd.OutOrStdout(), k)
		}
		return nil
	},
}

func init() {
	secretsCmd.AddCommand(secretsSetCmd)
	secretsCmd.AddCommand(secretsDeleteCmd)
	secretsCmd.AddCommand(secretsListCmd)
}
