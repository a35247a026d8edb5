// Package play fetches and decodes apps, search results, reviews and
// permissions from the Play storefront.
package play

import (
	"context"
	"errors"
	"time"

	"github.com/sw33tLie/playscope/internal/utils"
	"github.com/sw33tLie/playscope/pkg/whttp"
)

var ErrInvalidArgument = errors.New("invalid argument")

// Transport is the pair of primitives the accessors need. *whttp.Client
// implements it.
type Transport interface {
	Get(ctx context.Context, url string) (string, error)
	PostForm(ctx context.Context, url, body string, headers map[string]string) (string, error)
}

// Client issues strictly sequential requests and keeps no state between
// calls, so one Client may be shared by several goroutines.
type Client struct {
	transport Transport
	sleep     func(ctx context.Context, d time.Duration) error
}

func NewClient(t Transport) *Client {
	return &Client{transport: t, sleep: sleepContext}
}

// locale fills in the defaults for empty values.
func locale(lang, country string) (string, string) {
	if lang == "" {
		lang = DefaultLang
	}
	if country == "" {
		country = DefaultCountry
	}
	return lang, country
}

// getLocalized fetches primary and, if that is not found, fallback once.
// It returns the body and the URL that produced it.
func (c *Client) getLocalized(ctx context.Context, primary, fallback string) (string, string, error) {
	body, err := c.transport.Get(ctx, primary)
	if err == nil {
		return body, primary, nil
	}
	if !errors.Is(err, whttp.ErrNotFound) {
		return "", primary, err
	}

	utils.Log.Debugf("%s not found, retrying without country", primary)
	body, err = c.transport.Get(ctx, fallback)
	if err != nil {
		return "", fallback, err
	}
	return body, fallback, nil
}

func (c *Client) postForm(ctx context.Context, url, body string) (string, error) {
	return c.transport.PostForm(ctx, url, body, map[string]string{"content-type": formContent})
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
