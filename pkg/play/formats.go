package play

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/text/language"
)

const (
	BaseURL = "https://play.google.com"

	DefaultLang    = "en"
	DefaultCountry = "us"

	reviewsRPC     = "oCPfdb"
	permissionsRPC = "xdSrCf"
	formContent    = "application/x-www-form-urlencoded"
)

// Sort is the review ordering understood by the storefront.
type Sort int

const (
	MostRelevant Sort = 1
	Newest       Sort = 2
	Rating       Sort = 3
)

func (s Sort) String() string {
	switch s {
	case MostRelevant:
		return "relevant"
	case Newest:
		return "newest"
	case Rating:
		return "rating"
	}
	return fmt.Sprintf("sort(%d)", int(s))
}

// ParseSort accepts the names printed by Sort.String.
func ParseSort(s string) (Sort, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "relevant", "most_relevant", "mostrelevant":
		return MostRelevant, nil
	case "newest", "":
		return Newest, nil
	case "rating":
		return Rating, nil
	}
	return 0, fmt.Errorf("unknown sort %q (want relevant, newest or rating)", s)
}

// Device filters reviews by the form factor they were written on. The zero
// value means no filter.
type Device int

const (
	AnyDevice  Device = 0
	Mobile     Device = 2
	Tablet     Device = 3
	Chromebook Device = 5
	TV         Device = 6
)

func (d Device) String() string {
	switch d {
	case AnyDevice:
		return "any"
	case Mobile:
		return "mobile"
	case Tablet:
		return "tablet"
	case Chromebook:
		return "chromebook"
	case TV:
		return "tv"
	}
	return fmt.Sprintf("device(%d)", int(d))
}

func ParseDevice(s string) (Device, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any":
		return AnyDevice, nil
	case "mobile", "phone":
		return Mobile, nil
	case "tablet":
		return Tablet, nil
	case "chromebook":
		return Chromebook, nil
	case "tv":
		return TV, nil
	}
	return 0, fmt.Errorf("unknown device %q", s)
}

// DetailURL is the localized app page.
func DetailURL(appID, lang, country string) string {
	return fmt.Sprintf("%s/store/apps/details?id=%s&hl=%s&gl=%s", BaseURL, appID, lang, country)
}

// DetailFallbackURL drops the country parameter.
func DetailFallbackURL(appID, lang string) string {
	return fmt.Sprintf("%s/store/apps/details?id=%s&hl=%s", BaseURL, appID, lang)
}

func SearchURL(query, lang, country string) string {
	return fmt.Sprintf("%s/store/search?q=%s&c=apps&hl=%s&gl=%s", BaseURL, url.QueryEscape(query), lang, country)
}

func SearchFallbackURL(query, lang string) string {
	return fmt.Sprintf("%s/store/search?q=%s&c=apps&hl=%s", BaseURL, url.QueryEscape(query), lang)
}

// BatchURL is the RPC endpoint shared by reviews and permissions.
func BatchURL(lang, country string) string {
	return fmt.Sprintf("%s/_/PlayStoreUi/data/batchexecute?hl=%s&gl=%s", BaseURL, lang, country)
}

// reviewsBody builds the form body requesting one page of reviews. A zero
// score or device is sent as null (no filter); an empty token requests the
// first page.
func reviewsBody(appID string, sort Sort, count, score int, device Device, token string) (string, error) {
	page := []any{count}
	if token != "" {
		page = []any{count, nil, token}
	}

	filter := []any{nil, nullIfZero(score), nil, nil, nil, nil, nil, nil, nullIfZero(int(device))}
	inner, err := json.Marshal([]any{
		nil,
		[]any{2, int(sort), page, nil, filter},
		[]any{appID, 7},
	})
	if err != nil {
		return "", err
	}
	return envelope(reviewsRPC, string(inner), "generic", true)
}

func permissionsBody(appID string) (string, error) {
	inner, err := json.Marshal([]any{[]any{nil, []any{appID, 7}, []any{}}})
	if err != nil {
		return "", err
	}
	return envelope(permissionsRPC, string(inner), "1", false)
}

func envelope(rpc, inner, tag string, newline bool) (string, error) {
	outer, err := json.Marshal([]any{[]any{[]any{rpc, inner, nil, tag}}})
	if err != nil {
		return "", err
	}
	req := string(outer)
	if newline {
		req += "\n"
	}
	return "f.req=" + url.QueryEscape(req), nil
}

func nullIfZero(v int) any {
	if v == 0 {
		return nil
	}
	return v
}

// NormalizeAppID accepts a bare package name or a store URL carrying an id
// parameter and returns the package name.
func NormalizeAppID(s string) string {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "://") {
		return s
	}
	u, err := url.Parse(s)
	if err != nil {
		return s
	}
	if id := u.Query().Get("id"); id != "" {
		return id
	}
	return s
}

// ValidateLocale checks that lang is a BCP 47 language tag and country an
// ISO 3166 region code.
func ValidateLocale(lang, country string) error {
	if _, err := language.Parse(lang); err != nil {
		return fmt.Errorf("invalid language %q: %w", lang, err)
	}
	if _, err := language.ParseRegion(country); err != nil {
		return fmt.Errorf("invalid country %q: %w", country, err)
	}
	return nil
}
