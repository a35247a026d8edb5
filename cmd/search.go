package cmd

import (
	"strings"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the store for apps",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lang, country, err := storeLocale()
		if err != nil {
			return err
		}
		n, _ := cmd.Flags().GetInt("number")
		client, err := newPlayClient()
		if err != nil {
			return err
		}

		results, err := client.Search(cmd.Context(), strings.Join(args, " "), n, lang, country)
		if err != nil {
			return err
		}
		return printJSON(cmd, results)
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntP("number", "n", 30, "Maximum number of results")
}
