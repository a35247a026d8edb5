package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/sw33tLie/playscope/internal/utils"
	"github.com/sw33tLie/playscope/pkg/play"
)

// reviewsPage is what a single page request prints: the reviews plus the
// token to pass to --token for the next page.
type reviewsPage struct {
	Reviews any                     `json:"reviews"`
	Token   *play.ContinuationToken `json:"token"`
}

var reviewsCmd = &cobra.Command{
	Use:   "reviews <app id or store URL>",
	Short: "Print the reviews of an app",
	Long: `Print the reviews of an app.

Without --all a page of --count reviews is printed together with a continuation
token. Pass that token back with --token '<json>' to fetch the next page.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lang, country, err := storeLocale()
		if err != nil {
			return err
		}
		sortName, _ := cmd.Flags().GetString("sort")
		sort, err := play.ParseSort(sortName)
		if err != nil {
			return err
		}
		deviceName, _ := cmd.Flags().GetString("device")
		device, err := play.ParseDevice(deviceName)
		if err != nil {
			return err
		}
		score, _ := cmd.Flags().GetInt("score")
		all, _ := cmd.Flags().GetBool("all")

		client, err := newPlayClient()
		if err != nil {
			return err
		}

		if all {
			sleep, _ := cmd.Flags().GetDuration("sleep")
			maxPages, _ := cmd.Flags().GetInt("max-pages")
			recs, err := client.ReviewsAll(cmd.Context(), args[0], play.ReviewsAllOptions{
				Lang:        lang,
				Country:     country,
				Sort:        sort,
				ScoreFilter: score,
				Device:      device,
				Sleep:       sleep,
				MaxPages:    maxPages,
			})
			if err != nil {
				utils.Log.Warnf("Interrupted after %d reviews: %v", len(recs), err)
			}
			if perr := printJSON(cmd, recs); perr != nil {
				return perr
			}
			return err
		}

		opts := play.ReviewsOptions{
			Lang:        lang,
			Country:     country,
			Sort:        sort,
			ScoreFilter: score,
			Device:      device,
		}
		opts.Count, _ = cmd.Flags().GetInt("count")
		if raw, _ := cmd.Flags().GetString("token"); raw != "" {
			var tok play.ContinuationToken
			if err := json.Unmarshal([]byte(raw), &tok); err != nil {
				return fmt.Errorf("invalid --token: %w", err)
			}
			opts.Token = &tok
		}

		recs, tok, err := client.Reviews(cmd.Context(), args[0], opts)
		if err != nil {
			return err
		}
		return printJSON(cmd, reviewsPage{Reviews: recs, Token: tok})
	},
}

func init() {
	rootCmd.AddCommand(reviewsCmd)
	reviewsCmd.Flags().Int("count", play.DefaultReviewCount, "Number of reviews to fetch")
	reviewsCmd.Flags().Bool("all", false, "Fetch every page of reviews")
	reviewsCmd.Flags().String("sort", "newest", "Review order: relevant, newest or rating")
	reviewsCmd.Flags().Int("score", 0, "Only reviews with this many stars (1-5, 0 for all)")
	reviewsCmd.Flags().String("device", "", "Only reviews written on: mobile, tablet, chromebook or tv")
	reviewsCmd.Flags().Duration("sleep", 0, "Pause between pages with --all")
	reviewsCmd.Flags().Int("max-pages", 0, "Stop --all after this many pages (0 = no limit)")
	reviewsCmd.Flags().String("token", "", "Continuation token (JSON) printed by a previous call")
}
