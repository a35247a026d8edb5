package cmd

import (
	"github.com/spf13/cobra"
	"github.com/sw33tLie/playscope/pkg/play"
)

var appCmd = &cobra.Command{
	Use:   "app <app id or store URL>",
	Short: "Print the details of an app",
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

		rec, err := client.App(cmd.Context(), args[0], lang, country)
		if err != nil {
			return err
		}

		if brief, _ := cmd.Flags().GetBool("brief"); brief {
			info, err := play.DecodeApp(rec)
			if err != nil {
				return err
			}
			return printJSON(cmd, info)
		}
		return printJSON(cmd, rec)
	},
}

func init() {
	rootCmd.AddCommand(appCmd)
	appCmd.Flags().Bool("brief", false, "Only print the most used fields")
}
