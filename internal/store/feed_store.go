package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nhle/tracimfeed/internal/model"
)

type feedRow struct {
	FeedKey       string    `db:"feed_key"`
	HasNextPage   bool      `db:"has_next_page"`
	NextPageToken string    `db:"next_page_token"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// SaveSnapshot replaces the stored snapshot of snap.FeedKey.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap FeedSnapshot) error {
	if snap.FeedKey == "" {
		return fmt.Errorf("feed key must not be empty")
	}
	if snap.UpdatedAt.IsZero() {
		snap.UpdatedAt = time.Now()
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO feeds (feed_key, has_next_page, next_page_token, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(feed_key) DO UPDATE SET
			has_next_page = excluded.has_next_page,
			next_page_token = excluded.next_page_token,
			updated_at = excluded.updated_at`,
		snap.FeedKey, boolToInt(snap.HasNextPage), snap.NextPageToken, snap.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upserting feed %s: %w", snap.FeedKey, err)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM feed_activities WHERE feed_key = ?", snap.FeedKey,
	); err != nil {
		return fmt.Errorf("clearing activities of feed %s: %w", snap.FeedKey, err)
	}

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO feed_activities (feed_key, position, activity_id, payload)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing activity insert: %w", err)
	}
	defer stmt.Close()

	for i, a := range snap.Activities {
		payload, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("marshaling activity %s: %w", a.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, snap.FeedKey, i, a.ID, string(payload)); err != nil {
			return fmt.Errorf("inserting activity %s: %w", a.ID, err)
		}
	}

	return tx.Commit()
}

// LoadSnapshot returns the stored snapshot of feedKey, or ErrNotFound.
func (s *SQLiteStore) LoadSnapshot(ctx context.Context, feedKey string) (*FeedSnapshot, error) {
	var row feedRow
	err := s.db.GetContext(ctx, &row, `
		SELECT feed_key, has_next_page, next_page_token, updated_at
		FROM feeds WHERE feed_key = ?`, feedKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("feed %s: %w", feedKey, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting feed %s: %w", feedKey, err)
	}

	var payloads []string
	err = s.db.SelectContext(ctx, &payloads, `
		SELECT payload FROM feed_activities
		WHERE feed_key = ?
		ORDER BY position`, feedKey)
	if err != nil {
		return nil, fmt.Errorf("querying activities of feed %s: %w", feedKey, err)
	}

	activities := make([]model.Activity, 0, len(payloads))
	for _, p := range payloads {
		var a model.Activity
		if err := json.Unmarshal([]byte(p), &a); err != nil {
			return nil, fmt.Errorf("unmarshaling activity of feed %s: %w", feedKey, err)
		}
		activities = append(activities, a)
	}

	return &FeedSnapshot{
		FeedKey:       row.FeedKey,
		HasNextPage:   row.HasNextPage,
		NextPageToken: row.NextPageToken,
		Activities:    activities,
		UpdatedAt:     row.UpdatedAt,
	}, nil
}

// DeleteSnapshot removes a stored snapshot. CASCADE removes its activities.
func (s *SQLiteStore) DeleteSnapshot(ctx context.Context, feedKey string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM feeds WHERE feed_key = ?", feedKey); err != nil {
		return fmt.Errorf("deleting feed %s: %w", feedKey, err)
	}
	return nil
}
