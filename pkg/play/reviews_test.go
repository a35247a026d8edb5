package play

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sw33tLie/playscope/pkg/whttp"
	"github.com/tidwall/gjson"
)

func TestReviewsSplitsCountIntoPages(t *testing.T) {
	var reqs []reviewRequest
	f := &fakeTransport{}
	f.postFn = func(n int, call postCall) (string, error) {
		req := parseReviewRequest(t, call.Body)
		reqs = append(reqs, req)
		return rpcResponse(reviewsRPC, reviewPage(t, fmt.Sprintf("p%d", n), req.Count, fmt.Sprintf("tok-%d", n))), nil
	}
	c, _ := newTestClient(f)

	recs, tok, err := c.Reviews(context.Background(), "com.example.app", ReviewsOptions{Count: 250})
	if err != nil {
		t.Fatalf("Reviews: %v", err)
	}

	if len(f.posts) != 3 {
		t.Fatalf("expected 3 page fetches, got %d", len(f.posts))
	}
	var counts []int
	var tokens []string
	for _, r := range reqs {
		counts = append(counts, r.Count)
		tokens = append(tokens, r.Token)
		if r.AppID != "com.example.app" || r.Sort != int(Newest) {
			t.Fatalf("unexpected request %+v", r)
		}
		if r.Score.Type != gjson.Null || r.Device.Type != gjson.Null {
			t.Fatalf("expected null filters, got score=%s device=%s", r.Score.Raw, r.Device.Raw)
		}
	}
	if diff := cmp.Diff([]int{100, 100, 50}, counts); diff != "" {
		t.Fatalf("unexpected page sizes (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"", "tok-1", "tok-2"}, tokens); diff != "" {
		t.Fatalf("unexpected tokens sent (-want +got):\n%s", diff)
	}
	if len(recs) != 250 {
		t.Fatalf("expected 250 reviews, got %d", len(recs))
	}
	want := &ContinuationToken{Token: "tok-3", Lang: "en", Country: "us", Sort: Newest, Count: 250}
	if diff := cmp.Diff(want, tok); diff != "" {
		t.Fatalf("unexpected token (-want +got):\n%s", diff)
	}
	for _, call := range f.posts {
		if call.URL != BatchURL("en", "us") {
			t.Fatalf("unexpected URL %s", call.URL)
		}
		if call.Headers["content-type"] != formContent {
			t.Fatalf("unexpected headers %v", call.Headers)
		}
	}
}

func TestReviewsExhaustedTokenMakesNoCalls(t *testing.T) {
	f := &fakeTransport{}
	c, _ := newTestClient(f)

	in := &ContinuationToken{Lang: "en", Country: "us", Sort: Newest, Count: 100}
	recs, tok, err := c.Reviews(context.Background(), "com.example.app", ReviewsOptions{Token: in})
	if err != nil {
		t.Fatalf("Reviews: %v", err)
	}
	if len(recs) != 0 || recs == nil {
		t.Fatalf("expected empty non-nil result, got %v", recs)
	}
	if tok != in {
		t.Fatalf("expected the same token back")
	}
	if len(f.posts)+len(f.gets) != 0 {
		t.Fatalf("expected zero network calls, got %d posts", len(f.posts))
	}
}

func TestReviewsResumeUsesTokenParameters(t *testing.T) {
	var req reviewRequest
	f := &fakeTransport{}
	f.postFn = func(_ int, call postCall) (string, error) {
		req = parseReviewRequest(t, call.Body)
		if call.URL != BatchURL("fr", "ca") {
			t.Fatalf("expected token locale in URL, got %s", call.URL)
		}
		return rpcResponse(reviewsRPC, reviewPage(t, "r", 20, nil)), nil
	}
	c, _ := newTestClient(f)

	in := &ContinuationToken{Token: "resume-me", Lang: "fr", Country: "ca", Sort: Rating, Count: 20, ScoreFilter: 4, Device: Tablet}
	recs, tok, err := c.Reviews(context.Background(), "com.example.app", ReviewsOptions{
		Lang:  "de",
		Count: 500,
		Sort:  MostRelevant,
		Token: in,
	})
	if err != nil {
		t.Fatalf("Reviews: %v", err)
	}
	if req.Token != "resume-me" || req.Sort != int(Rating) || req.Count != 20 {
		t.Fatalf("unexpected request %+v", req)
	}
	if req.Score.Int() != 4 || req.Device.Int() != int64(Tablet) {
		t.Fatalf("expected filters echoed, got score=%s device=%s", req.Score.Raw, req.Device.Raw)
	}
	if len(recs) != 20 || !tok.Exhausted() {
		t.Fatalf("expected 20 reviews and an exhausted token, got %d %+v", len(recs), tok)
	}
	if tok.Lang != "fr" || tok.ScoreFilter != 4 {
		t.Fatalf("expected token parameters preserved, got %+v", tok)
	}
}

func TestReviewsPageFailureReturnsPartialResult(t *testing.T) {
	f := &fakeTransport{}
	f.postFn = func(n int, call postCall) (string, error) {
		if n == 2 {
			return "", &whttp.HTTPError{URL: call.URL, StatusCode: 500}
		}
		return rpcResponse(reviewsRPC, reviewPage(t, "ok", 100, "next")), nil
	}
	c, _ := newTestClient(f)

	recs, tok, err := c.Reviews(context.Background(), "com.example.app", ReviewsOptions{Count: 300})
	if err != nil {
		t.Fatalf("page failure must not surface, got %v", err)
	}
	if len(recs) != 100 {
		t.Fatalf("expected the first page only, got %d", len(recs))
	}
	if !tok.Exhausted() {
		t.Fatalf("expected forced exhaustion, got %+v", tok)
	}
	if len(f.posts) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(f.posts))
	}
}

func TestReviewsMalformedTokenForcesExhaustion(t *testing.T) {
	cases := map[string]any{
		"list token":   []any{"a", "b"},
		"object token": map[string]any{"k": "v"},
		"number token": 42,
	}
	for name, tokValue := range cases {
		f := &fakeTransport{}
		f.postFn = func(_ int, _ postCall) (string, error) {
			return rpcResponse(reviewsRPC, reviewPage(t, "x", 100, tokValue)), nil
		}
		c, _ := newTestClient(f)

		recs, tok, err := c.Reviews(context.Background(), "com.example.app", ReviewsOptions{Count: 1000})
		if err != nil {
			t.Fatalf("%s: Reviews: %v", name, err)
		}
		if len(f.posts) != 1 || len(recs) != 100 || !tok.Exhausted() {
			t.Fatalf("%s: expected one page then exhaustion, got %d calls, %d reviews, token %+v", name, len(f.posts), len(recs), tok)
		}
	}
}

func TestReviewsRepeatedTokenStops(t *testing.T) {
	f := &fakeTransport{}
	f.postFn = func(_ int, _ postCall) (string, error) {
		return rpcResponse(reviewsRPC, reviewPage(t, "loop", 10, "same")), nil
	}
	c, _ := newTestClient(f)

	_, tok, err := c.Reviews(context.Background(), "com.example.app", ReviewsOptions{Count: 1000})
	if err != nil {
		t.Fatalf("Reviews: %v", err)
	}
	if len(f.posts) != 2 || !tok.Exhausted() {
		t.Fatalf("expected to stop after the token repeated, got %d calls", len(f.posts))
	}
}

func TestReviewsEmptyPayload(t *testing.T) {
	f := &fakeTransport{}
	f.postFn = func(_ int, _ postCall) (string, error) {
		return rpcResponse(reviewsRPC, `[]`), nil
	}
	c, _ := newTestClient(f)

	recs, tok, err := c.Reviews(context.Background(), "com.example.app", ReviewsOptions{})
	if err != nil {
		t.Fatalf("Reviews: %v", err)
	}
	if len(recs) != 0 || !tok.Exhausted() || tok.Count != DefaultReviewCount {
		t.Fatalf("unexpected result %v %+v", recs, tok)
	}
}

func TestReviewsInvalidArguments(t *testing.T) {
	c, _ := newTestClient(&fakeTransport{})

	for _, opts := range []ReviewsOptions{{Count: -1}, {ScoreFilter: 6}} {
		if _, _, err := c.Reviews(context.Background(), "com.example.app", opts); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument for %+v, got %v", opts, err)
		}
	}
	if _, _, err := c.Reviews(context.Background(), " ", ReviewsOptions{}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for empty id, got %v", err)
	}
}

func TestReviewFieldsDecode(t *testing.T) {
	f := &fakeTransport{}
	f.postFn = func(_ int, _ postCall) (string, error) {
		return rpcResponse(reviewsRPC, reviewPage(t, "d", 1, nil)), nil
	}
	c, _ := newTestClient(f)

	recs, _, err := c.Reviews(context.Background(), "com.example.app", ReviewsOptions{Count: 1})
	if err != nil {
		t.Fatalf("Reviews: %v", err)
	}
	reviews, err := DecodeReviews(recs)
	if err != nil {
		t.Fatalf("DecodeReviews: %v", err)
	}

	want := []Review{{
		ReviewID:             "d-0",
		UserName:             "user-d-0",
		UserImage:            "https://img/d-0",
		Content:              "content of d-0",
		Score:                1,
		ThumbsUpCount:        3,
		ReviewCreatedVersion: "1.2.3",
		At:                   time.Unix(1700000000, 0).UTC(),
		ReplyContent:         "reply to d-0",
		RepliedAt:            time.Unix(1700000060, 0).UTC(),
		AppVersion:           "1.2.3",
	}}
	if diff := cmp.Diff(want, reviews); diff != "" {
		t.Fatalf("unexpected reviews (-want +got):\n%s", diff)
	}
}

func TestReviewsAllRunsToExhaustion(t *testing.T) {
	f := &fakeTransport{}
	f.postFn = func(n int, call postCall) (string, error) {
		req := parseReviewRequest(t, call.Body)
		if req.Count != MaxPageSize {
			t.Fatalf("expected page size %d, got %d", MaxPageSize, req.Count)
		}
		var next any
		if n < 3 {
			next = fmt.Sprintf("page-%d", n+1)
		}
		return rpcResponse(reviewsRPC, reviewPage(t, fmt.Sprintf("p%d", n), 100, next)), nil
	}
	c, sleeps := newTestClient(f)

	recs, err := c.ReviewsAll(context.Background(), "com.example.app", ReviewsAllOptions{Sleep: 250 * time.Millisecond})
	if err != nil {
		t.Fatalf("ReviewsAll: %v", err)
	}
	if len(recs) != 300 || len(f.posts) != 3 {
		t.Fatalf("expected 300 reviews over 3 calls, got %d over %d", len(recs), len(f.posts))
	}
	if diff := cmp.Diff([]time.Duration{250 * time.Millisecond, 250 * time.Millisecond}, *sleeps); diff != "" {
		t.Fatalf("unexpected sleeps (-want +got):\n%s", diff)
	}
}

func TestReviewsAllMaxPages(t *testing.T) {
	f := &fakeTransport{}
	f.postFn = func(n int, _ postCall) (string, error) {
		return rpcResponse(reviewsRPC, reviewPage(t, "inf", 100, fmt.Sprintf("next-%d", n))), nil
	}
	c, _ := newTestClient(f)

	recs, err := c.ReviewsAll(context.Background(), "com.example.app", ReviewsAllOptions{MaxPages: 4})
	if err != nil {
		t.Fatalf("ReviewsAll: %v", err)
	}
	if len(f.posts) != 4 || len(recs) != 400 {
		t.Fatalf("expected 4 pages, got %d calls and %d reviews", len(f.posts), len(recs))
	}
}

func TestReviewsAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := &fakeTransport{}
	f.postFn = func(n int, _ postCall) (string, error) {
		if n == 2 {
			cancel()
			return "", ctx.Err()
		}
		return rpcResponse(reviewsRPC, reviewPage(t, "c", 100, "more")), nil
	}
	c, _ := newTestClient(f)

	recs, err := c.ReviewsAll(ctx, "com.example.app", ReviewsAllOptions{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(recs) != 100 {
		t.Fatalf("expected the reviews fetched before cancellation, got %d", len(recs))
	}
}
