package play

import (
	"context"
	"fmt"
	"time"

	"github.com/sw33tLie/playscope/internal/utils"
	"github.com/sw33tLie/playscope/pkg/dataset"
	"github.com/sw33tLie/playscope/pkg/extract"
	"github.com/tidwall/gjson"
)

// MaxPageSize is the most reviews the storefront returns per request.
const MaxPageSize = 100

// DefaultReviewCount is used when ReviewsOptions.Count is zero.
const DefaultReviewCount = 100

// ContinuationToken resumes a review listing. It echoes every request
// parameter so the next page needs nothing else. An empty Token means the
// listing is exhausted.
type ContinuationToken struct {
	Token       string `json:"token"`
	Lang        string `json:"lang"`
	Country     string `json:"country"`
	Sort        Sort   `json:"sort"`
	Count       int    `json:"count"`
	ScoreFilter int    `json:"scoreFilter,omitempty"`
	Device      Device `json:"device,omitempty"`
}

// Exhausted reports whether no further page can be fetched.
func (t *ContinuationToken) Exhausted() bool {
	return t != nil && t.Token == ""
}

type ReviewsOptions struct {
	Lang    string
	Country string
	Sort    Sort
	// Count is the number of reviews wanted across pages.
	Count int
	// ScoreFilter keeps only reviews with this many stars (1-5, 0 for all).
	ScoreFilter int
	Device      Device
	// Token resumes a previous call; its parameters replace the ones above.
	Token *ContinuationToken
}

type ReviewsAllOptions struct {
	Lang        string
	Country     string
	Sort        Sort
	ScoreFilter int
	Device      Device
	// Sleep is the pause between pages.
	Sleep time.Duration
	// MaxPages stops the walk after that many pages (0 = no limit).
	MaxPages int
}

// Reviews fetches up to opts.Count reviews in pages of at most MaxPageSize.
// A failing page ends the listing: the reviews gathered so far are returned
// with an exhausted token and a nil error. The error is reserved for invalid
// arguments.
func (c *Client) Reviews(ctx context.Context, appID string, opts ReviewsOptions) ([]extract.Record, *ContinuationToken, error) {
	appID = NormalizeAppID(appID)
	if appID == "" {
		return nil, nil, fmt.Errorf("%w: empty app id", ErrInvalidArgument)
	}

	tok := opts.Token
	if tok != nil {
		if tok.Exhausted() {
			return []extract.Record{}, tok, nil
		}
	} else {
		if opts.Count < 0 {
			return nil, nil, fmt.Errorf("%w: negative count %d", ErrInvalidArgument, opts.Count)
		}
		if opts.ScoreFilter < 0 || opts.ScoreFilter > 5 {
			return nil, nil, fmt.Errorf("%w: score filter %d out of range", ErrInvalidArgument, opts.ScoreFilter)
		}
		lang, country := locale(opts.Lang, opts.Country)
		sort := opts.Sort
		if sort == 0 {
			sort = Newest
		}
		count := opts.Count
		if count == 0 {
			count = DefaultReviewCount
		}
		tok = &ContinuationToken{
			Lang:        lang,
			Country:     country,
			Sort:        sort,
			Count:       count,
			ScoreFilter: opts.ScoreFilter,
			Device:      opts.Device,
		}
	}

	return c.fetchReviews(ctx, appID, *tok)
}

// fetchReviews runs the page loop for the parameters in p, starting at
// p.Token (empty for the first page).
func (c *Client) fetchReviews(ctx context.Context, appID string, p ContinuationToken) ([]extract.Record, *ContinuationToken, error) {
	url := BatchURL(p.Lang, p.Country)
	result := []extract.Record{}
	token := p.Token

	for want := p.Count; want > 0; want = p.Count - len(result) {
		items, next, err := c.fetchReviewPage(ctx, url, appID, p, min(want, MaxPageSize), token)
		if err != nil {
			utils.Log.Warnf("Reviews page for %s failed, stopping: %v", appID, err)
			token = ""
			break
		}
		for _, item := range items {
			result = append(result, ReviewFields.Extract(item))
		}
		if next != "" && next == token {
			utils.Log.Warnf("Reviews token for %s did not advance, stopping", appID)
			next = ""
		}
		token = next
		if token == "" {
			break
		}
	}

	p.Token = token
	return result, &p, nil
}

// fetchReviewPage requests one page and returns its items and next token.
// A missing or non-string token is returned as "".
func (c *Client) fetchReviewPage(ctx context.Context, url, appID string, p ContinuationToken, count int, token string) ([]gjson.Result, string, error) {
	body, err := reviewsBody(appID, p.Sort, count, p.ScoreFilter, p.Device, token)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.postForm(ctx, url, body)
	if err != nil {
		return nil, "", err
	}
	payload, err := dataset.UnwrapRPC(resp)
	if err != nil {
		return nil, "", err
	}

	next := ""
	if t, ok := extract.Get(payload, reviewToken...); ok {
		if t.Type == gjson.String {
			next = t.Str
		} else if t.Exists() && t.Type != gjson.Null {
			utils.Log.Debugf("Reviews token for %s is %s, treating listing as exhausted", appID, t.Raw)
		}
	}

	list, ok := extract.Get(payload, reviewItems...)
	if !ok || !list.IsArray() {
		return nil, next, nil
	}
	return list.Array(), next, nil
}

// ReviewsAll walks every page of the listing from the start, pausing
// opts.Sleep between pages. When ctx is cancelled the reviews gathered so
// far are returned with ctx.Err().
func (c *Client) ReviewsAll(ctx context.Context, appID string, opts ReviewsAllOptions) ([]extract.Record, error) {
	all := []extract.Record{}
	var token *ContinuationToken
	base := ReviewsOptions{
		Lang:        opts.Lang,
		Country:     opts.Country,
		Sort:        opts.Sort,
		Count:       MaxPageSize,
		ScoreFilter: opts.ScoreFilter,
		Device:      opts.Device,
	}

	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return all, err
		}

		base.Token = token
		recs, next, err := c.Reviews(ctx, appID, base)
		if err != nil {
			return all, err
		}
		all = append(all, recs...)
		token = next

		// A cancelled page looks like an exhausted listing.
		if err := ctx.Err(); err != nil {
			return all, err
		}

		if token.Exhausted() {
			return all, nil
		}
		if opts.MaxPages > 0 && page >= opts.MaxPages {
			utils.Log.Warnf("Stopping %s reviews after %d pages", appID, page)
			return all, nil
		}
		if err := c.sleep(ctx, opts.Sleep); err != nil {
			return all, err
		}
	}
}
