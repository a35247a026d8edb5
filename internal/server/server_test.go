package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sw33tLie/playscope/pkg/extract"
	"github.com/sw33tLie/playscope/pkg/play"
	"github.com/sw33tLie/playscope/pkg/storage"
	"github.com/sw33tLie/playscope/pkg/whttp"
)

type fakeStore struct {
	searches []string
}

func (f *fakeStore) App(_ context.Context, appID, lang, country string) (extract.Record, error) {
	if appID == "com.missing" {
		return nil, &whttp.NotFoundError{URL: "https://play.google.com/store/apps/details?id=" + appID}
	}
	if appID == "com.down" {
		return nil, &whttp.HTTPError{URL: "u", StatusCode: 500}
	}
	return extract.Record{"appId": appID, "title": "Live " + appID, "lang": lang}, nil
}

func (f *fakeStore) Search(_ context.Context, query string, n int, lang, country string) ([]extract.Record, error) {
	f.searches = append(f.searches, fmt.Sprintf("%s/%d", query, n))
	return []extract.Record{{"appId": "com.hit"}}, nil
}

func (f *fakeStore) Permissions(_ context.Context, appID, lang, country string) (map[string][]string, error) {
	if appID == "" {
		return nil, play.ErrInvalidArgument
	}
	return map[string][]string{"Storage": {"read", "write"}}, nil
}

func newTestServer(t *testing.T, user, pass string) (*httptest.Server, *storage.DB, *fakeStore) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "api.sqlite"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	store := &fakeStore{}
	ts := httptest.NewServer(New(db, store, user, pass).Handler())
	t.Cleanup(ts.Close)
	return ts, db, store
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestTrackListAndUntrack(t *testing.T) {
	ts, db, _ := newTestServer(t, "", "")

	resp := do(t, http.MethodPost, ts.URL+"/api/apps/track", `{"app_id":"https://play.google.com/store/apps/details?id=com.a&hl=en"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("track: status %d", resp.StatusCode)
	}
	resp = do(t, http.MethodPost, ts.URL+"/api/apps/track", `{"app_id":"com.b","lang":"xx-!!"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad locale to be rejected, got %d", resp.StatusCode)
	}

	resp = do(t, http.MethodGet, ts.URL+"/api/apps", "")
	var apps []storage.TrackedApp
	if err := json.NewDecoder(resp.Body).Decode(&apps); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(apps) != 1 || apps[0].AppID != "com.a" || apps[0].Lang != "en" || apps[0].Country != "us" {
		t.Fatalf("unexpected apps %+v", apps)
	}

	if _, err := db.UpsertReviews(context.Background(), "com.a", []storage.Review{
		{ReviewID: "r1", Score: 2, Content: "slow", At: time.Unix(1700000000, 0)},
		{ReviewID: "r2", Score: 5, Content: "fast", At: time.Unix(1700000100, 0)},
	}); err != nil {
		t.Fatalf("UpsertReviews: %v", err)
	}
	resp = do(t, http.MethodGet, ts.URL+"/api/reviews?app=com.a&max_score=3", "")
	var reviews []storage.Review
	if err := json.NewDecoder(resp.Body).Decode(&reviews); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(reviews) != 1 || reviews[0].ReviewID != "r1" {
		t.Fatalf("unexpected reviews %+v", reviews)
	}

	resp = do(t, http.MethodDelete, ts.URL+"/api/apps/track", `{"app_id":"com.a"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("untrack: status %d", resp.StatusCode)
	}
	resp = do(t, http.MethodDelete, ts.URL+"/api/apps/track", `{"app_id":"com.a"}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for an untracked app, got %d", resp.StatusCode)
	}
}

func TestLiveLookups(t *testing.T) {
	ts, _, store := newTestServer(t, "", "")

	resp := do(t, http.MethodGet, ts.URL+"/api/app/com.a?lang=it", "")
	var rec map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec["title"] != "Live com.a" || rec["lang"] != "it" {
		t.Fatalf("unexpected record %v", rec)
	}

	if resp := do(t, http.MethodGet, ts.URL+"/api/app/com.missing", ""); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if resp := do(t, http.MethodGet, ts.URL+"/api/app/com.down", ""); resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}

	if resp := do(t, http.MethodGet, ts.URL+"/api/search", ""); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without q, got %d", resp.StatusCode)
	}
	do(t, http.MethodGet, ts.URL+"/api/search?q=notes", "")
	do(t, http.MethodGet, ts.URL+"/api/search?q=notes&n=5", "")
	if diff := cmp.Diff([]string{"notes/30", "notes/5"}, store.searches); diff != "" {
		t.Fatalf("search calls mismatch (-want +got):\n%s", diff)
	}

	resp = do(t, http.MethodGet, ts.URL+"/api/permissions/com.a", "")
	var perms map[string][]string
	if err := json.NewDecoder(resp.Body).Decode(&perms); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff(map[string][]string{"Storage": {"read", "write"}}, perms); diff != "" {
		t.Fatalf("permissions mismatch (-want +got):\n%s", diff)
	}
}

func TestBasicAuth(t *testing.T) {
	ts, _, _ := newTestServer(t, "admin", "secret")

	if resp := do(t, http.MethodGet, ts.URL+"/api/stats", ""); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/stats", nil)
	req.SetBasicAuth("admin", "secret")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
