package polling

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sw33tLie/playscope/pkg/extract"
	"github.com/sw33tLie/playscope/pkg/play"
	"github.com/sw33tLie/playscope/pkg/storage"
)

type fakeFetcher struct {
	mu      sync.Mutex
	reviews map[string][]extract.Record
	failApp map[string]bool
	opts    []play.ReviewsOptions
}

func (f *fakeFetcher) App(_ context.Context, appID, lang, country string) (extract.Record, error) {
	if f.failApp[appID] {
		return nil, errors.New("boom")
	}
	return extract.Record{
		"appId":            appID,
		"title":            "Title of " + appID,
		"developer":        "Studio",
		"developerWebsite": "https://www.studio.example.com/",
		"score":            4.5,
		"ratings":          int64(321),
		"installs":         "1,000+",
		"version":          "2.0",
	}, nil
}

func (f *fakeFetcher) Reviews(_ context.Context, appID string, opts play.ReviewsOptions) ([]extract.Record, *play.ContinuationToken, error) {
	f.mu.Lock()
	f.opts = append(f.opts, opts)
	recs := f.reviews[appID]
	f.mu.Unlock()
	return recs, &play.ContinuationToken{}, nil
}

func reviewRecord(id string, score int, content string) extract.Record {
	return extract.Record{
		"reviewId": id,
		"userName": "user",
		"content":  content,
		"score":    int64(score),
		"at":       time.Unix(1700000000, 0).UTC(),
	}
}

func openDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "poll.sqlite"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPollFirstRunThenChanges(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	for _, id := range []string{"com.a", "com.b"} {
		if err := db.TrackApp(ctx, id, "en", "us"); err != nil {
			t.Fatalf("TrackApp: %v", err)
		}
	}

	f := &fakeFetcher{reviews: map[string][]extract.Record{
		"com.a": {reviewRecord("a1", 5, "nice")},
		"com.b": {reviewRecord("b1", 1, "broken")},
	}}

	var mu sync.Mutex
	firstRuns := map[string]bool{}
	cfg := Config{
		Fetcher:     f,
		DB:          db,
		Concurrency: 2,
		ReviewCount: 40,
		OnAppDone: func(appID string, changes []storage.Change, isFirstRun bool) {
			mu.Lock()
			firstRuns[appID] = isFirstRun
			mu.Unlock()
		},
	}

	res, err := Poll(ctx, cfg)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	sort.Strings(res.PolledAppIDs)
	if diff := cmp.Diff([]string{"com.a", "com.b"}, res.PolledAppIDs); diff != "" {
		t.Fatalf("polled apps mismatch (-want +got):\n%s", diff)
	}
	if !firstRuns["com.a"] || !firstRuns["com.b"] {
		t.Fatalf("expected first run for both apps, got %v", firstRuns)
	}
	for _, o := range f.opts {
		if o.Sort != play.Newest || o.Count != 40 || o.Lang != "en" || o.Country != "us" {
			t.Fatalf("unexpected review options %+v", o)
		}
	}
	if logged, _ := db.ListRecentChanges(ctx, 10); len(logged) != 0 {
		t.Fatalf("first run should not log changes, got %+v", logged)
	}

	app, raw, err := db.GetApp(ctx, "com.a")
	if err != nil {
		t.Fatalf("GetApp: %v", err)
	}
	if app.Title != "Title of com.a" || app.DeveloperDomain != "example.com" || app.Ratings != 321 {
		t.Fatalf("unexpected snapshot %+v", app)
	}
	if len(raw) == 0 {
		t.Fatalf("expected raw snapshot to be stored")
	}

	f.reviews["com.a"] = []extract.Record{reviewRecord("a1", 5, "nice"), reviewRecord("a2", 2, "meh")}
	res, err = Poll(ctx, cfg)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(res.Changes) != 1 || res.Changes[0].ReviewID != "a2" || res.Changes[0].ChangeType != "added" {
		t.Fatalf("expected a2 added, got %+v", res.Changes)
	}
	if firstRuns["com.a"] {
		t.Fatalf("second poll should not be a first run")
	}
	logged, err := db.ListRecentChanges(ctx, 10)
	if err != nil {
		t.Fatalf("ListRecentChanges: %v", err)
	}
	if len(logged) != 1 || logged[0].AppID != "com.a" {
		t.Fatalf("expected one logged change, got %+v", logged)
	}
}

func TestPollCollectsPerAppErrors(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	for _, id := range []string{"com.ok", "com.bad"} {
		if err := db.TrackApp(ctx, id, "en", "us"); err != nil {
			t.Fatalf("TrackApp: %v", err)
		}
	}
	f := &fakeFetcher{
		reviews: map[string][]extract.Record{"com.ok": {reviewRecord("r", 4, "ok")}},
		failApp: map[string]bool{"com.bad": true},
	}

	res, err := Poll(ctx, Config{Fetcher: f, DB: db})
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if diff := cmp.Diff([]string{"com.ok"}, res.PolledAppIDs); diff != "" {
		t.Fatalf("polled apps mismatch (-want +got):\n%s", diff)
	}
	if len(res.Errors) != 1 {
		t.Fatalf("expected one error, got %v", res.Errors)
	}
}

func TestPollSkipDetails(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	if err := db.TrackApp(ctx, "com.bad", "en", "us"); err != nil {
		t.Fatalf("TrackApp: %v", err)
	}
	f := &fakeFetcher{
		reviews: map[string][]extract.Record{"com.bad": {reviewRecord("r", 4, "ok")}},
		failApp: map[string]bool{"com.bad": true},
	}
	res, err := Poll(ctx, Config{Fetcher: f, DB: db, SkipDetails: true})
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(res.Errors) != 0 || len(res.PolledAppIDs) != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if n, _ := db.CountReviews(ctx, "com.bad"); n != 1 {
		t.Fatalf("expected 1 stored review, got %d", n)
	}
}

func TestPollNoApps(t *testing.T) {
	res, err := Poll(context.Background(), Config{Fetcher: &fakeFetcher{}, DB: openDB(t)})
	if err != nil || len(res.PolledAppIDs) != 0 {
		t.Fatalf("expected empty result, got %+v %v", res, err)
	}
}
