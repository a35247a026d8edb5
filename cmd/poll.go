package cmd

import (
	"fmt"
	"sync"

	"github.com/spf13/cobra"
	"github.com/sw33tLie/playscope/internal/utils"
	"github.com/sw33tLie/playscope/pkg/polling"
	"github.com/sw33tLie/playscope/pkg/storage"
)

// pollCmd implements: playscope poll
// Refreshes every tracked app and prints the reviews that were added or
// changed since the last poll.
var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Poll tracked apps and print new or changed reviews",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			return fmt.Errorf("unknown command: '%s'. See 'playscope poll --help'", args[0])
		}

		concurrency, _ := cmd.Flags().GetInt("concurrency")
		count, _ := cmd.Flags().GetInt("count")
		skipDetails, _ := cmd.Flags().GetBool("skip-details")

		client, err := newPlayClient()
		if err != nil {
			return err
		}
		db, release, err := openLockedDB()
		if err != nil {
			return err
		}
		defer release()

		var printMu sync.Mutex
		res, err := polling.Poll(cmd.Context(), polling.Config{
			Fetcher:     client,
			DB:          db,
			Concurrency: concurrency,
			ReviewCount: count,
			SkipDetails: skipDetails,
			Log:         utils.Log,
			OnAppDone: func(appID string, changes []storage.Change, isFirstRun bool) {
				printMu.Lock()
				defer printMu.Unlock()
				if isFirstRun {
					fmt.Printf("✨ First poll for %s, stored %d reviews\n", appID, len(changes))
					return
				}
				printChanges(changes)
			},
		})
		if err != nil {
			return err
		}

		for _, e := range res.Errors {
			utils.Log.Errorf("%v", e)
		}
		utils.Log.Infof("Polled %d apps, %d changes, %d errors", len(res.PolledAppIDs), len(res.Changes), len(res.Errors))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pollCmd)
	pollCmd.Flags().Int("concurrency", 5, "Number of apps polled at the same time")
	pollCmd.Flags().Int("count", 100, "Number of newest reviews fetched per app")
	pollCmd.Flags().Bool("skip-details", false, "Only poll reviews, keep the stored app details")
}

func printChanges(changes []storage.Change) {
	for _, c := range changes {
		var emoji string
		switch c.ChangeType {
		case "added":
			emoji = "🆕"
		case "updated":
			emoji = "🔄"
		}
		fmt.Printf("%s  %s  %s  %d★\n", emoji, c.AppID, c.ReviewID, c.Score)
	}
}
