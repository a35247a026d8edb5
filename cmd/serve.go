package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/sw33tLie/playscope/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the tracked apps, stored reviews and live lookups over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		listenAddr, _ := cmd.Flags().GetString("listen")

		client, err := newPlayClient()
		if err != nil {
			return err
		}
		db, _, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		srv := server.New(db, client, viper.GetString("serve.username"), viper.GetString("serve.password"))
		return srv.Start(listenAddr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", ":8080", "HTTP listen address")
	serveCmd.Flags().String("username", "", "Basic auth username (overrides serve.username)")
	serveCmd.Flags().String("password", "", "Basic auth password (overrides serve.password)")
	viper.BindPFlag("serve.username", serveCmd.Flags().Lookup("username"))
	viper.BindPFlag("serve.password", serveCmd.Flags().Lookup("password"))
}
