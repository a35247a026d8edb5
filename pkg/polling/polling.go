package polling

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sw33tLie/playscope/pkg/extract"
	"github.com/sw33tLie/playscope/pkg/play"
	"github.com/sw33tLie/playscope/pkg/storage"
)

// Logger abstracts logging so callers can use logrus, stdlib log, or any
// other logger that satisfies this interface.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// nopLogger silently discards all messages.
type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Debugf(string, ...interface{}) {}

// Fetcher is the part of *play.Client a poll needs.
type Fetcher interface {
	App(ctx context.Context, appID, lang, country string) (extract.Record, error)
	Reviews(ctx context.Context, appID string, opts play.ReviewsOptions) ([]extract.Record, *play.ContinuationToken, error)
}

// Config holds everything Poll needs.
type Config struct {
	Fetcher     Fetcher
	DB          *storage.DB
	Concurrency int // defaults to 5 if <= 0
	// ReviewCount is how many of the newest reviews each app fetches
	// (defaults to play.MaxPageSize).
	ReviewCount int
	// SkipDetails leaves the detail snapshot alone and only polls reviews.
	SkipDetails bool
	Log         Logger // optional; nil = no logging

	// OnAppDone is called per-app after upsert+log (from worker goroutines).
	// Enables CLI to stream-print changes as they happen. Nil = no callback.
	OnAppDone func(appID string, changes []storage.Change, isFirstRun bool)
}

// Result holds the outcome of one poll.
type Result struct {
	PolledAppIDs []string
	Changes      []storage.Change // all per-app changes accumulated
	Errors       []error          // non-fatal errors
}

// Poll refreshes every tracked app concurrently: detail snapshot first, then
// the newest reviews, upserted and logged. An app that fails is reported in
// Result.Errors and does not stop the others. DB is required.
func Poll(ctx context.Context, cfg Config) (*Result, error) {
	log := cfg.Log
	if log == nil {
		log = nopLogger{}
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}
	if cfg.ReviewCount <= 0 {
		cfg.ReviewCount = play.MaxPageSize
	}

	apps, err := cfg.DB.ListApps(ctx)
	if err != nil {
		return nil, err
	}
	result := &Result{}
	if len(apps) == 0 {
		log.Infof("No tracked apps, nothing to poll")
		return result, nil
	}

	appChan := make(chan storage.TrackedApp, len(apps))

	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for app := range appChan {
				if ctx.Err() != nil {
					return
				}
				changes, isFirstRun, err := pollOneApp(ctx, cfg, app, log)
				if err != nil {
					mu.Lock()
					result.Errors = append(result.Errors, err)
					mu.Unlock()
					continue
				}

				mu.Lock()
				result.PolledAppIDs = append(result.PolledAppIDs, app.AppID)
				result.Changes = append(result.Changes, changes...)
				mu.Unlock()

				if cfg.OnAppDone != nil {
					cfg.OnAppDone(app.AppID, changes, isFirstRun)
				}
			}
		}()
	}

	for _, a := range apps {
		appChan <- a
	}
	close(appChan)
	wg.Wait()

	return result, ctx.Err()
}

// pollOneApp refreshes one app. The first poll of an app populates its
// reviews without logging them as changes.
func pollOneApp(ctx context.Context, cfg Config, app storage.TrackedApp, log Logger) ([]storage.Change, bool, error) {
	if !cfg.SkipDetails {
		if err := refreshSnapshot(ctx, cfg, app); err != nil {
			log.Warnf("Failed to refresh details of %s: %v", app.AppID, err)
			return nil, false, err
		}
	}

	stored, err := cfg.DB.CountReviews(ctx, app.AppID)
	if err != nil {
		return nil, false, err
	}
	isFirstRun := stored == 0

	recs, _, err := cfg.Fetcher.Reviews(ctx, app.AppID, play.ReviewsOptions{
		Lang:    app.Lang,
		Country: app.Country,
		Sort:    play.Newest,
		Count:   cfg.ReviewCount,
	})
	if err != nil {
		return nil, false, fmt.Errorf("reviews of %s: %w", app.AppID, err)
	}
	reviews, err := play.DecodeReviews(recs)
	if err != nil {
		return nil, false, err
	}
	log.Debugf("Fetched %d reviews for %s", len(reviews), app.AppID)

	changes, err := cfg.DB.UpsertReviews(ctx, app.AppID, toStored(app.AppID, reviews))
	if err != nil {
		log.Warnf("Database error for app %s: %v", app.AppID, err)
		return nil, false, err
	}

	if !isFirstRun {
		if err := cfg.DB.LogChanges(ctx, changes); err != nil {
			log.Warnf("Could not log changes for app %s: %v", app.AppID, err)
		}
	}
	return changes, isFirstRun, nil
}

func refreshSnapshot(ctx context.Context, cfg Config, app storage.TrackedApp) error {
	rec, err := cfg.Fetcher.App(ctx, app.AppID, app.Lang, app.Country)
	if err != nil {
		return err
	}
	info, err := play.DecodeApp(rec)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", app.AppID, err)
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return cfg.DB.UpdateAppSnapshot(ctx, storage.AppSnapshot{
		AppID:            app.AppID,
		Title:            info.Title,
		Developer:        info.Developer,
		DeveloperWebsite: info.DeveloperWebsite,
		Genre:            info.Genre,
		Score:            info.Score,
		Ratings:          info.Ratings,
		Installs:         info.Installs,
		Version:          info.Version,
		Raw:              raw,
	})
}

func toStored(appID string, reviews []play.Review) []storage.Review {
	out := make([]storage.Review, 0, len(reviews))
	for _, r := range reviews {
		out = append(out, storage.Review{
			ReviewID:     r.ReviewID,
			AppID:        appID,
			UserName:     r.UserName,
			Score:        r.Score,
			Content:      r.Content,
			ThumbsUp:     r.ThumbsUpCount,
			AppVersion:   r.AppVersion,
			At:           r.At,
			ReplyContent: r.ReplyContent,
			RepliedAt:    r.RepliedAt,
		})
	}
	return out
}
