package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/sw33tLie/playscope/internal/utils"
	"github.com/sw33tLie/playscope/pkg/play"
	"github.com/sw33tLie/playscope/pkg/storage"
)

// dbCmd represents the db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Interact with the playscope database",
}

var trackCmd = &cobra.Command{
	Use:   "track <app id or store URL>...",
	Short: "Add apps to the watchlist using the current --lang and --country",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lang, country, err := storeLocale()
		if err != nil {
			return err
		}
		db, release, err := openLockedDB()
		if err != nil {
			return err
		}
		defer release()

		for _, a := range args {
			appID := play.NormalizeAppID(a)
			if appID == "" {
				return fmt.Errorf("invalid app id: %q", a)
			}
			if err := db.TrackApp(cmd.Context(), appID, lang, country); err != nil {
				return err
			}
			fmt.Printf("Tracking %s (%s-%s)\n", appID, lang, country)
		}
		return nil
	},
}

var untrackCmd = &cobra.Command{
	Use:   "untrack <app id or store URL>...",
	Short: "Remove apps and their stored reviews from the watchlist",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, release, err := openLockedDB()
		if err != nil {
			return err
		}
		defer release()

		for _, a := range args {
			appID := play.NormalizeAppID(a)
			if err := db.UntrackApp(cmd.Context(), appID); err != nil {
				if errors.Is(err, storage.ErrNotTracked) {
					utils.Log.Warnf("%s is not tracked", appID)
					continue
				}
				return err
			}
			fmt.Printf("Untracked %s\n", appID)
		}
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked apps",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, _, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		apps, err := db.ListApps(cmd.Context())
		if err != nil {
			return err
		}
		if len(apps) == 0 {
			fmt.Println("No tracked apps. Add one with 'playscope db track <app id>'.")
			return nil
		}

		t := newTable()
		t.AppendHeader(table.Row{"App", "Locale", "Title", "Developer", "Score", "Version", "Refreshed"})
		for _, a := range apps {
			refreshed := "never"
			if !a.RefreshedAt.IsZero() {
				refreshed = a.RefreshedAt.Format("2006-01-02 15:04")
			}
			developer := a.Developer
			if a.DeveloperDomain != "" {
				developer += " (" + a.DeveloperDomain + ")"
			}
			t.AppendRow(table.Row{a.AppID, a.Lang + "-" + a.Country, a.Title, developer, fmt.Sprintf("%.2f", a.Score), a.Version, refreshed})
		}
		t.Render()
		return nil
	},
}

// shellCmd represents the shell command
var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive shell to the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, err := utils.GetAbsDBPath(viper.GetString("db.path"))
		if err != nil {
			return err
		}
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return fmt.Errorf("database file not found: %s", dbPath)
		}

		// Check if sqlite3 is in PATH
		sqlitePath, err := exec.LookPath("sqlite3")
		if err != nil {
			return fmt.Errorf("sqlite3 command not found in your PATH. Please install it to use the db shell")
		}

		// Print schema first
		fmt.Println("--> Database schema:")
		schemaCmd := exec.Command(sqlitePath, dbPath, ".schema")
		schemaCmd.Stdout = os.Stdout
		schemaCmd.Stderr = os.Stderr
		if err := schemaCmd.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: couldn't retrieve schema: %v\n", err)
		}
		fmt.Println("\n--> Starting interactive shell... (Ctrl+D to exit)")

		c := exec.Command(sqlitePath, dbPath)
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr

		return c.Run()
	},
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(trackCmd)
	dbCmd.AddCommand(untrackCmd)
	dbCmd.AddCommand(listCmd)
	dbCmd.AddCommand(shellCmd)
}
