package cmd

import (
	"github.com/spf13/cobra"
)

var permissionsCmd = &cobra.Command{
	Use:   "permissions <app id or store URL>",
	Short: "Print the permissions of an app grouped by category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lang, country, err := storeLocale()
		if err != nil {
			return err
		}
		client, err := newPlayClient()
		if err != nil {
			return err
		}

		perms, err := client.Permissions(cmd.Context(), args[0], lang, country)
		if err != nil {
			return err
		}
		return printJSON(cmd, perms)
	},
}

func init() {
	rootCmd.AddCommand(permissionsCmd)
}
