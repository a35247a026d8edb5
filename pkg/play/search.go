package play

import (
	"context"
	"fmt"

	"github.com/sw33tLie/playscope/pkg/dataset"
	"github.com/sw33tLie/playscope/pkg/extract"
	"github.com/tidwall/gjson"
)

// Search returns at most n results for query. The pinned top result, when
// the page has one, comes first and counts toward n.
func (c *Client) Search(ctx context.Context, query string, n int, lang, country string) ([]extract.Record, error) {
	if n <= 0 {
		return []extract.Record{}, nil
	}
	lang, country = locale(lang, country)

	body, _, err := c.getLocalized(ctx, SearchURL(query, lang, country), SearchFallbackURL(query, lang))
	if err != nil {
		return nil, fmt.Errorf("searching %q: %w", query, err)
	}
	return ParseSearch(body, n), nil
}

// ParseSearch decodes a search page. A page whose listing cannot be located
// yields an empty result.
func ParseSearch(body string, n int) []extract.Record {
	results := []extract.Record{}
	if n <= 0 {
		return results
	}

	root, ok := dataset.Build(body).Get(dataset.Key(dsSearch))
	if !ok {
		return results
	}
	listing, ok := findListing(root)
	if !ok {
		return results
	}
	items := listing.Array()

	if top, ok := extract.Get(root, searchTop...); ok && isTruthy(top) {
		results = append(results, SearchTopFields.Extract(top))
	}

	remaining := min(len(items), n) - len(results)
	for i := 0; i < remaining; i++ {
		results = append(results, SearchListFields.Extract(items[i]))
	}
	return results
}

// findListing scans the locale dependent sections for the first one holding
// a result listing.
func findListing(root gjson.Result) (gjson.Result, bool) {
	sections, ok := extract.Get(root, searchSections...)
	if !ok || !sections.IsArray() {
		return gjson.Result{}, false
	}
	for idx := range sections.Array() {
		listing, ok := extract.Get(sections, join([]any{idx}, searchListing)...)
		if ok && listing.IsArray() {
			return listing, true
		}
	}
	return gjson.Result{}, false
}
