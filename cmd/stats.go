package cmd

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Prints review statistics for the tracked apps.",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, _, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats(cmd.Context())
		if err != nil {
			return err
		}

		if len(stats) == 0 {
			fmt.Println("No data in the database to generate stats.")
			return nil
		}

		t := newTable()
		t.AppendHeader(table.Row{"App", "Title", "Reviews", "Avg score", "Latest"})

		var total int
		for _, s := range stats {
			latest := "-"
			if !s.LastReviewAt.IsZero() {
				latest = s.LastReviewAt.Format("2006-01-02")
			}
			t.AppendRow(table.Row{s.AppID, s.Title, s.ReviewCount, fmt.Sprintf("%.2f", s.AverageScore), latest})
			total += s.ReviewCount
		}

		t.AppendFooter(table.Row{"Total", "", total, "", ""})
		t.Render()
		return nil
	},
}

func init() {
	dbCmd.AddCommand(statsCmd)
}
