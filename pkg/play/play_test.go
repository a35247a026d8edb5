package play

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tidwall/gjson"
)

type postCall struct {
	URL     string
	Body    string
	Headers map[string]string
}

// fakeTransport records every call and answers through the configured
// functions.
type fakeTransport struct {
	mu     sync.Mutex
	gets   []string
	posts  []postCall
	getFn  func(url string) (string, error)
	postFn func(n int, call postCall) (string, error)
}

func (f *fakeTransport) Get(_ context.Context, u string) (string, error) {
	f.mu.Lock()
	f.gets = append(f.gets, u)
	f.mu.Unlock()
	if f.getFn == nil {
		return "", errors.New("unexpected GET " + u)
	}
	return f.getFn(u)
}

func (f *fakeTransport) PostForm(_ context.Context, u, body string, headers map[string]string) (string, error) {
	call := postCall{URL: u, Body: body, Headers: headers}
	f.mu.Lock()
	f.posts = append(f.posts, call)
	n := len(f.posts)
	f.mu.Unlock()
	if f.postFn == nil {
		return "", errors.New("unexpected POST " + u)
	}
	return f.postFn(n, call)
}

func newTestClient(f *fakeTransport) (*Client, *[]time.Duration) {
	c := NewClient(f)
	var sleeps []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}
	return c, &sleeps
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

func rpcResponse(rpc, payload string) string {
	return ")]}'\n\n" + `[["wrb.fr","` + rpc + `",` + strconv.Quote(payload) + `,null,null,null,"generic"],["di",12]]`
}

func scriptBlock(key, data string) string {
	return `<script nonce="n">AF_initDataCallback({key: '` + key + `', hash: '2', data:` + data + `, sideChannel: {}});</script>`
}

func htmlPage(blocks ...string) string {
	return "<!doctype html><html><head>" + strings.Join(blocks, "") + "</head><body></body></html>"
}

// reviewRequest decodes the f.req form body of a reviews call.
type reviewRequest struct {
	AppID  string
	Sort   int
	Count  int
	Token  string
	Score  gjson.Result
	Device gjson.Result
}

func parseReviewRequest(t *testing.T, body string) reviewRequest {
	t.Helper()
	raw, err := url.QueryUnescape(strings.TrimPrefix(body, "f.req="))
	if err != nil {
		t.Fatalf("unescape body: %v", err)
	}
	outer := gjson.Parse(raw)
	if got := outer.Get("0.0.0").Str; got != reviewsRPC {
		t.Fatalf("expected rpc %s, got %q", reviewsRPC, got)
	}
	inner := gjson.Parse(outer.Get("0.0.1").Str)
	return reviewRequest{
		AppID:  inner.Get("2.0").Str,
		Sort:   int(inner.Get("1.1").Int()),
		Count:  int(inner.Get("1.2.0").Int()),
		Token:  inner.Get("1.2.2").Str,
		Score:  inner.Get("1.4.1"),
		Device: inner.Get("1.4.8"),
	}
}

func reviewItem(id string, score int, at int64) []any {
	return []any{
		id,
		[]any{"user-" + id, []any{nil, nil, nil, []any{nil, nil, "https://img/" + id}}},
		score,
		nil,
		"content of " + id,
		[]any{at, 0},
		3,
		[]any{nil, "reply to " + id, []any{at + 60}},
		nil,
		nil,
		"1.2.3",
	}
}

// reviewPage builds a page payload with n items and next token tok (nil for
// the last page).
func reviewPage(t *testing.T, prefix string, n int, tok any) string {
	t.Helper()
	items := make([]any, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, reviewItem(fmt.Sprintf("%s-%d", prefix, i), 1+i%5, 1700000000+int64(i)))
	}
	var meta any
	if tok != nil {
		meta = []any{nil, tok}
	}
	return mustJSON(t, []any{items, meta, "trailer"})
}
