package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

// FeedItem is a canonical feed entry as persisted for deduplication.
// Rows are append-only; (feed_id, external_id) uniquely identifies a
// notified item.
type FeedItem struct {
	FeedID      string
	ExternalID  string
	PublishedAt time.Time
	Variables   map[string]string
}

// ItemRepository handles database operations for feed items
type ItemRepository struct {
	db *DB
}

// NewItemRepository creates a new item repository
func NewItemRepository(db *DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// InsertAndSelectNew inserts every item of the batch, silently skipping rows
// whose (feed_id, external_id) pair already exists, and returns exactly the
// external ids that were newly inserted. This is the sole arbiter of "new";
// the uniqueness constraint, not application locking, keeps concurrent
// callers correct.
func (r *ItemRepository) InsertAndSelectNew(ctx context.Context, items []FeedItem) (map[string]bool, error) {
	newIDs := make(map[string]bool)
	if len(items) == 0 {
		return newIDs, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &PersistenceError{Op: "begin transaction", Err: err}
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO feed_items (feed_id, external_id, published_at, variables)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (feed_id, external_id) DO NOTHING
		RETURNING external_id
	`)
	if err != nil {
		return nil, &PersistenceError{Op: "prepare insert", Err: err}
	}
	defer stmt.Close()

	for _, item := range items {
		variables, err := json.Marshal(item.Variables)
		if err != nil {
			return nil, &PersistenceError{Op: "marshal variables", Err: err}
		}

		var externalID string
		err = stmt.QueryRowContext(ctx, item.FeedID, item.ExternalID,
			item.PublishedAt.UTC(), string(variables)).Scan(&externalID)
		if err == sql.ErrNoRows {
			// Duplicate key, the expected no-op
			continue
		}
		if err != nil {
			return nil, &PersistenceError{Op: "insert item", Err: err}
		}

		newIDs[externalID] = true
	}

	if err := tx.Commit(); err != nil {
		return nil, &PersistenceError{Op: "commit transaction", Err: err}
	}

	return newIDs, nil
}

// GetItemCount returns the total number of recorded items for a feed
func (r *ItemRepository) GetItemCount(ctx context.Context, feedID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM feed_items WHERE feed_id = ?", feedID).Scan(&count)
	if err != nil {
		return 0, &PersistenceError{Op: "count items", Err: err}
	}
	return count, nil
}
