package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/sw33tLie/playscope/pkg/play"
	"github.com/sw33tLie/playscope/pkg/whttp"
)

func main() {
	// Usage: go run *.go -app "com.spotify.music" -reviews 20

	appFlag := flag.String("app", "", "App id or store URL")
	reviewsFlag := flag.Int("reviews", 10, "Number of newest reviews to print")
	langFlag := flag.String("lang", "en", "Store language")
	countryFlag := flag.String("country", "us", "Store country")

	// Parse the command-line flags
	flag.Parse()

	if *appFlag == "" {
		fmt.Println("App id is required. Please provide it using -app flag.")
		return
	}

	transport, err := whttp.NewClient(whttp.Config{})
	if err != nil {
		fmt.Println(err)
		return
	}
	client := play.NewClient(transport)
	ctx := context.Background()

	rec, err := client.App(ctx, *appFlag, *langFlag, *countryFlag)
	if err != nil {
		fmt.Println(err)
		return
	}
	info, err := play.DecodeApp(rec)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("%s by %s: %.1f stars from %d ratings\n", info.Title, info.Developer, info.Score, info.Ratings)

	recs, _, err := client.Reviews(ctx, info.AppID, play.ReviewsOptions{
		Lang:    *langFlag,
		Country: *countryFlag,
		Sort:    play.Newest,
		Count:   *reviewsFlag,
	})
	if err != nil {
		fmt.Println(err)
		return
	}
	reviews, err := play.DecodeReviews(recs)
	if err != nil {
		fmt.Println(err)
		return
	}
	for _, r := range reviews {
		fmt.Println(r.At.Format("2006-01-02"), r.Score, r.Content)
	}
}
