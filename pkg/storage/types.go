package storage

import "time"

// TrackedApp is one app on the watchlist together with its latest detail
// snapshot.
type TrackedApp struct {
	AppID   string `json:"appId"`
	Lang    string `json:"lang"`
	Country string `json:"country"`

	// Snapshot info, empty until the first refresh
	Title            string    `json:"title,omitempty"`
	Developer        string    `json:"developer,omitempty"`
	DeveloperWebsite string    `json:"developerWebsite,omitempty"`
	DeveloperDomain  string    `json:"developerDomain,omitempty"`
	Genre            string    `json:"genre,omitempty"`
	Score            float64   `json:"score"`
	Ratings          int64     `json:"ratings"`
	Installs         string    `json:"installs,omitempty"`
	Version          string    `json:"version,omitempty"`
	TrackedAt        time.Time `json:"trackedAt"`
	RefreshedAt      time.Time `json:"refreshedAt"`
}

// AppSnapshot is what a refresh writes for one app. Raw holds the full
// detail record as JSON.
type AppSnapshot struct {
	AppID            string
	Title            string
	Developer        string
	DeveloperWebsite string
	Genre            string
	Score            float64
	Ratings          int64
	Installs         string
	Version          string
	Raw              []byte
}

// Review is a stored review.
type Review struct {
	ReviewID     string    `json:"reviewId"`
	AppID        string    `json:"appId"`
	UserName     string    `json:"userName"`
	Score        int       `json:"score"`
	Content      string    `json:"content"`
	ThumbsUp     int       `json:"thumbsUpCount"`
	AppVersion   string    `json:"appVersion,omitempty"`
	At           time.Time `json:"at"`
	ReplyContent string    `json:"replyContent,omitempty"`
	RepliedAt    time.Time `json:"repliedAt,omitempty"`
}

// Change captures a single change event for auditing or printing.
type Change struct {
	OccurredAt time.Time `json:"occurredAt"`
	AppID      string    `json:"appId"`
	ReviewID   string    `json:"reviewId"`
	Score      int       `json:"score"`
	ChangeType string    `json:"changeType"` // added | updated
}

// AppStats summarizes the stored reviews of one app.
type AppStats struct {
	AppID        string    `json:"appId"`
	Title        string    `json:"title"`
	ReviewCount  int       `json:"reviewCount"`
	AverageScore float64   `json:"averageScore"`
	LastReviewAt time.Time `json:"lastReviewAt"`
}
