package play

import (
	"context"
	"fmt"
	"time"

	"github.com/sw33tLie/playscope/pkg/dataset"
	"github.com/sw33tLie/playscope/pkg/extract"
)

// App fetches the detail page of appID. The record carries every
// DetailFields entry plus appId and url.
func (c *Client) App(ctx context.Context, appID, lang, country string) (extract.Record, error) {
	appID = NormalizeAppID(appID)
	if appID == "" {
		return nil, fmt.Errorf("%w: empty app id", ErrInvalidArgument)
	}
	lang, country = locale(lang, country)

	body, url, err := c.getLocalized(ctx, DetailURL(appID, lang, country), DetailFallbackURL(appID, lang))
	if err != nil {
		return nil, fmt.Errorf("fetching app %s: %w", appID, err)
	}
	return ParseApp(body, appID, url), nil
}

// ParseApp decodes an app page already fetched from url.
func ParseApp(body, appID, url string) extract.Record {
	rec := DetailFields.Extract(dataset.Build(body))
	rec["appId"] = appID
	rec["url"] = url
	return rec
}

// AppInfo is the typed subset of an app record that gets persisted.
type AppInfo struct {
	AppID            string     `mapstructure:"appId" json:"appId"`
	URL              string     `mapstructure:"url" json:"url"`
	Title            string     `mapstructure:"title" json:"title"`
	Developer        string     `mapstructure:"developer" json:"developer"`
	DeveloperID      string     `mapstructure:"developerId" json:"developerId"`
	DeveloperWebsite string     `mapstructure:"developerWebsite" json:"developerWebsite"`
	Genre            string     `mapstructure:"genre" json:"genre"`
	Installs         string     `mapstructure:"installs" json:"installs"`
	Score            float64    `mapstructure:"score" json:"score"`
	Ratings          int64      `mapstructure:"ratings" json:"ratings"`
	Price            float64    `mapstructure:"price" json:"price"`
	Free             bool       `mapstructure:"free" json:"free"`
	Version          string     `mapstructure:"version" json:"version"`
	Updated          int64      `mapstructure:"updated" json:"updated"`
	Categories       []Category `mapstructure:"categories" json:"categories"`
}

// Review is the typed form of a review record.
type Review struct {
	ReviewID             string    `mapstructure:"reviewId" json:"reviewId"`
	UserName             string    `mapstructure:"userName" json:"userName"`
	UserImage            string    `mapstructure:"userImage" json:"userImage"`
	Content              string    `mapstructure:"content" json:"content"`
	Score                int       `mapstructure:"score" json:"score"`
	ThumbsUpCount        int       `mapstructure:"thumbsUpCount" json:"thumbsUpCount"`
	ReviewCreatedVersion string    `mapstructure:"reviewCreatedVersion" json:"reviewCreatedVersion"`
	At                   time.Time `mapstructure:"at" json:"at"`
	ReplyContent         string    `mapstructure:"replyContent" json:"replyContent"`
	RepliedAt            time.Time `mapstructure:"repliedAt" json:"repliedAt"`
	AppVersion           string    `mapstructure:"appVersion" json:"appVersion"`
}

func DecodeApp(rec extract.Record) (AppInfo, error) {
	var a AppInfo
	err := rec.Decode(&a)
	return a, err
}

func DecodeReviews(recs []extract.Record) ([]Review, error) {
	out := make([]Review, 0, len(recs))
	for _, rec := range recs {
		var r Review
		if err := rec.Decode(&r); err != nil {
			return nil, fmt.Errorf("decoding review %s: %w", rec.String("reviewId"), err)
		}
		out = append(out, r)
	}
	return out, nil
}
