package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

var ErrNotTracked = errors.New("app is not tracked")

type DB struct {
	sql *sql.DB
}

func Open(path string) (*DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	// Ensure schema exists for convenience.
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS apps (
  app_id            TEXT PRIMARY KEY,
  lang              TEXT NOT NULL,
  country           TEXT NOT NULL,
  title             TEXT,
  developer         TEXT,
  developer_website TEXT,
  developer_domain  TEXT,
  genre             TEXT,
  score             REAL NOT NULL DEFAULT 0,
  ratings           INTEGER NOT NULL DEFAULT 0,
  installs          TEXT,
  version           TEXT,
  snapshot          TEXT,
  tracked_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  refreshed_at      DATETIME
);
CREATE TABLE IF NOT EXISTS reviews (
  review_id     TEXT PRIMARY KEY,
  app_id        TEXT NOT NULL,
  user_name     TEXT,
  score         INTEGER NOT NULL,
  content       TEXT,
  thumbs_up     INTEGER NOT NULL DEFAULT 0,
  app_version   TEXT,
  reviewed_at   INTEGER,
  reply_content TEXT,
  replied_at    INTEGER,
  first_seen_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  last_seen_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_reviews_app ON reviews(app_id, reviewed_at);
CREATE TABLE IF NOT EXISTS review_changes (
  id          INTEGER PRIMARY KEY,
  occurred_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  app_id      TEXT NOT NULL,
  review_id   TEXT NOT NULL,
  score       INTEGER NOT NULL,
  change_type TEXT NOT NULL CHECK (change_type IN ('added','updated'))
);
CREATE INDEX IF NOT EXISTS idx_changes_time ON review_changes(occurred_at);
CREATE INDEX IF NOT EXISTS idx_changes_app ON review_changes(app_id, occurred_at);
    `); err != nil {
		return nil, err
	}
	return &DB{sql: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// UpsertReviews stores the reviews of appID and returns what changed: new
// reviews as added, reviews whose score, text or reply changed as updated.
// Reviews missing from the batch are kept since a poll only sees the newest
// page. The changes are not logged; see LogChanges.
func (d *DB) UpsertReviews(ctx context.Context, appID string, reviews []Review) ([]Change, error) {
	if appID == "" {
		return nil, errors.New("invalid app id")
	}
	now := time.Now().UTC()

	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	rows, err := tx.QueryContext(ctx, "SELECT review_id, score, content, reply_content FROM reviews WHERE app_id = ?", appID)
	if err != nil {
		return nil, err
	}

	existingMap := make(map[string]string)
	for rows.Next() {
		var (
			id             string
			score          int
			content, reply sql.NullString
		)
		if err = rows.Scan(&id, &score, &content, &reply); err != nil {
			rows.Close()
			return nil, err
		}
		existingMap[id] = fingerprint(score, content.String, reply.String)
	}
	if err = rows.Close(); err != nil {
		return nil, err
	}

	var changes []Change
	for _, r := range reviews {
		if r.ReviewID == "" {
			continue
		}
		fp := fingerprint(r.Score, r.Content, r.ReplyContent)
		old, existed := existingMap[r.ReviewID]

		changeType := ""
		switch {
		case !existed:
			_, err = tx.ExecContext(ctx, `INSERT INTO reviews(review_id, app_id, user_name, score, content, thumbs_up, app_version, reviewed_at, reply_content, replied_at, first_seen_at, last_seen_at) VALUES(?,?,?,?,?,?,?,?,?,?,CURRENT_TIMESTAMP,CURRENT_TIMESTAMP)`,
				r.ReviewID, appID, nullIfEmpty(r.UserName), r.Score, nullIfEmpty(r.Content), r.ThumbsUp, nullIfEmpty(r.AppVersion), unixOrNull(r.At), nullIfEmpty(r.ReplyContent), unixOrNull(r.RepliedAt))
			changeType = "added"
		case old != fp:
			_, err = tx.ExecContext(ctx, `UPDATE reviews SET user_name = ?, score = ?, content = ?, thumbs_up = ?, app_version = ?, reviewed_at = ?, reply_content = ?, replied_at = ?, last_seen_at = CURRENT_TIMESTAMP WHERE review_id = ?`,
				nullIfEmpty(r.UserName), r.Score, nullIfEmpty(r.Content), r.ThumbsUp, nullIfEmpty(r.AppVersion), unixOrNull(r.At), nullIfEmpty(r.ReplyContent), unixOrNull(r.RepliedAt), r.ReviewID)
			changeType = "updated"
		default:
			_, err = tx.ExecContext(ctx, `UPDATE reviews SET thumbs_up = ?, last_seen_at = CURRENT_TIMESTAMP WHERE review_id = ?`, r.ThumbsUp, r.ReviewID)
		}
		if err != nil {
			return nil, err
		}
		existingMap[r.ReviewID] = fp

		if changeType != "" {
			changes = append(changes, Change{OccurredAt: now, AppID: appID, ReviewID: r.ReviewID, Score: r.Score, ChangeType: changeType})
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return changes, nil
}

// LogChanges appends changes to the change log.
func (d *DB) LogChanges(ctx context.Context, changes []Change) error {
	if len(changes) == 0 {
		return nil
	}
	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	for _, c := range changes {
		if _, err := tx.ExecContext(ctx, `INSERT INTO review_changes(occurred_at, app_id, review_id, score, change_type) VALUES(CURRENT_TIMESTAMP, ?, ?, ?, ?)`, c.AppID, c.ReviewID, c.Score, c.ChangeType); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// CountReviews returns how many reviews are stored for appID.
func (d *DB) CountReviews(ctx context.Context, appID string) (int, error) {
	var n int
	err := d.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM reviews WHERE app_id = ?", appID).Scan(&n)
	return n, err
}

// ReviewListOptions controls selection when listing reviews.
type ReviewListOptions struct {
	AppID    string
	MinScore int
	MaxScore int
	Since    time.Time
	Limit    int
}

// ListReviews returns stored reviews, newest first.
func (d *DB) ListReviews(ctx context.Context, opts ReviewListOptions) ([]Review, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	if opts.AppID != "" {
		where += " AND app_id = ?"
		args = append(args, opts.AppID)
	}
	if opts.MinScore > 0 {
		where += " AND score >= ?"
		args = append(args, opts.MinScore)
	}
	if opts.MaxScore > 0 {
		where += " AND score <= ?"
		args = append(args, opts.MaxScore)
	}
	if !opts.Since.IsZero() {
		where += " AND reviewed_at >= ?"
		args = append(args, opts.Since.Unix())
	}
	limit := ""
	if opts.Limit > 0 {
		limit = fmt.Sprintf(" LIMIT %d", opts.Limit)
	}

	q := "SELECT review_id, app_id, user_name, score, content, thumbs_up, app_version, reviewed_at, reply_content, replied_at FROM reviews " + where + " ORDER BY reviewed_at DESC, review_id" + limit
	rows, err := d.sql.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Review{}
	for rows.Next() {
		var (
			r                                   Review
			userNS, contentNS, versionNS, reply sql.NullString
			at, repliedAt                       sql.NullInt64
		)
		if err := rows.Scan(&r.ReviewID, &r.AppID, &userNS, &r.Score, &contentNS, &r.ThumbsUp, &versionNS, &at, &reply, &repliedAt); err != nil {
			return nil, err
		}
		r.UserName = userNS.String
		r.Content = contentNS.String
		r.AppVersion = versionNS.String
		r.ReplyContent = reply.String
		r.At = fromUnix(at)
		r.RepliedAt = fromUnix(repliedAt)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListRecentChanges returns the most recent N changes across all apps.
func (d *DB) ListRecentChanges(ctx context.Context, limit int) ([]Change, error) {
	if limit <= 0 {
		limit = 50
	}
	q := "SELECT occurred_at, app_id, review_id, score, change_type FROM review_changes ORDER BY occurred_at DESC, id DESC LIMIT ?"
	rows, err := d.sql.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	changes := []Change{}
	for rows.Next() {
		var c Change
		var occurredAt sql.NullString
		if err := rows.Scan(&occurredAt, &c.AppID, &c.ReviewID, &c.Score, &c.ChangeType); err != nil {
			return nil, err
		}
		c.OccurredAt = parseTimestamp(occurredAt)
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return changes, nil
}

func (d *DB) GetStats(ctx context.Context) ([]AppStats, error) {
	query := `
		SELECT
			a.app_id,
			COALESCE(a.title, ''),
			COUNT(r.review_id),
			COALESCE(AVG(r.score), 0),
			COALESCE(MAX(r.reviewed_at), 0)
		FROM
			apps a
			LEFT JOIN reviews r ON r.app_id = a.app_id
		GROUP BY
			a.app_id
		ORDER BY
			a.app_id;
	`
	rows, err := d.sql.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := []AppStats{}
	for rows.Next() {
		var s AppStats
		var last int64
		if err := rows.Scan(&s.AppID, &s.Title, &s.ReviewCount, &s.AverageScore, &last); err != nil {
			return nil, err
		}
		s.LastReviewAt = fromUnix(sql.NullInt64{Int64: last, Valid: last > 0})
		stats = append(stats, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func unixOrNull(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.Unix()
}

func fromUnix(v sql.NullInt64) time.Time {
	if !v.Valid || v.Int64 == 0 {
		return time.Time{}
	}
	return time.Unix(v.Int64, 0).UTC()
}

// parseTimestamp reads a DATETIME column. SQLite's CURRENT_TIMESTAMP comes
// back as "2006-01-02 15:04:05"; the driver may also hand back a parsed
// time, which database/sql formats as RFC3339.
func parseTimestamp(ns sql.NullString) time.Time {
	if !ns.Valid {
		return time.Time{}
	}
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00"} {
		if t, err := time.Parse(layout, ns.String); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
