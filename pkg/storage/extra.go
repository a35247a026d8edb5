package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// TrackApp adds appID to the watchlist, or updates its locale if it is
// already there.
func (d *DB) TrackApp(ctx context.Context, appID, lang, country string) error {
	if appID == "" {
		return errors.New("invalid app id")
	}
	_, err := d.sql.ExecContext(ctx, `
		INSERT INTO apps(app_id, lang, country, tracked_at) VALUES(?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(app_id) DO UPDATE SET lang = excluded.lang, country = excluded.country
	`, appID, lang, country)
	return err
}

// UntrackApp removes an app and its stored reviews. The change log is kept.
func (d *DB) UntrackApp(ctx context.Context, appID string) (err error) {
	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM apps WHERE app_id = ?`, appID)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		err = fmt.Errorf("%w: %s", ErrNotTracked, appID)
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM reviews WHERE app_id = ?`, appID); err != nil {
		return err
	}
	return tx.Commit()
}

// UpdateAppSnapshot stores the latest detail snapshot of a tracked app.
func (d *DB) UpdateAppSnapshot(ctx context.Context, s AppSnapshot) error {
	website := NormalizeWebsite(s.DeveloperWebsite)
	domain, _ := DeveloperDomain(website)

	res, err := d.sql.ExecContext(ctx, `
		UPDATE apps SET title = ?, developer = ?, developer_website = ?, developer_domain = ?, genre = ?,
			score = ?, ratings = ?, installs = ?, version = ?, snapshot = ?, refreshed_at = CURRENT_TIMESTAMP
		WHERE app_id = ?
	`, nullIfEmpty(s.Title), nullIfEmpty(s.Developer), nullIfEmpty(website), nullIfEmpty(domain), nullIfEmpty(s.Genre),
		s.Score, s.Ratings, nullIfEmpty(s.Installs), nullIfEmpty(s.Version), nullIfEmpty(string(s.Raw)), s.AppID)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrNotTracked, s.AppID)
	}
	return nil
}

const appColumns = "app_id, lang, country, title, developer, developer_website, developer_domain, genre, score, ratings, installs, version, tracked_at, refreshed_at"

// ListApps returns the watchlist.
func (d *DB) ListApps(ctx context.Context) ([]TrackedApp, error) {
	rows, err := d.sql.QueryContext(ctx, "SELECT "+appColumns+" FROM apps ORDER BY app_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	apps := []TrackedApp{}
	for rows.Next() {
		a, err := scanApp(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, a)
	}
	return apps, rows.Err()
}

// GetApp returns one tracked app and its raw snapshot (nil before the first
// refresh).
func (d *DB) GetApp(ctx context.Context, appID string) (TrackedApp, []byte, error) {
	row := d.sql.QueryRowContext(ctx, "SELECT "+appColumns+", snapshot FROM apps WHERE app_id = ?", appID)
	var snapshot sql.NullString
	a, err := scanApp(row, &snapshot)
	if errors.Is(err, sql.ErrNoRows) {
		return TrackedApp{}, nil, fmt.Errorf("%w: %s", ErrNotTracked, appID)
	}
	if err != nil {
		return TrackedApp{}, nil, err
	}
	if !snapshot.Valid {
		return a, nil, nil
	}
	return a, []byte(snapshot.String), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanApp(s scanner, extra ...any) (TrackedApp, error) {
	var (
		a                                  TrackedApp
		title, dev, website, domain, genre sql.NullString
		installs, version                  sql.NullString
		trackedAt, refreshedAt             sql.NullString
	)
	dest := []any{&a.AppID, &a.Lang, &a.Country, &title, &dev, &website, &domain, &genre, &a.Score, &a.Ratings, &installs, &version, &trackedAt, &refreshedAt}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return TrackedApp{}, err
	}
	a.Title = title.String
	a.Developer = dev.String
	a.DeveloperWebsite = website.String
	a.DeveloperDomain = domain.String
	a.Genre = genre.String
	a.Installs = installs.String
	a.Version = version.String
	a.TrackedAt = parseTimestamp(trackedAt)
	a.RefreshedAt = parseTimestamp(refreshedAt)
	return a, nil
}
