package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type sqliteNotificationLogRepo struct {
	db *sql.DB
}

func (r *sqliteNotificationLogRepo) AllowSend(ctx context.Context, key string, windowStart time.Time, max int, at time.Time) (bool, error) {
	// Count and insert in one transaction so concurrent senders cannot
	// both slip under the limit.
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin rate limit transaction: %w", err)
	}
	defer tx.Rollback()

	var count int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM notification_sends
		WHERE dedupe_key = ? AND sent_at >= ?
	`, key, windowStart.UTC()).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("count sends: %w", err)
	}

	if count >= max {
		return false, nil
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO notification_sends (dedupe_key, sent_at) VALUES (?, ?)",
		key, at.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("record send: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit rate limit: %w", err)
	}
	return true, nil
}

func (r *sqliteNotificationLogRepo) CountSince(ctx context.Context, key string, since time.Time) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM notification_sends
		WHERE dedupe_key = ? AND sent_at >= ?
	`, key, since.UTC()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count sends: %w", err)
	}
	return count, nil
}

func (r *sqliteNotificationLogRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM notification_sends WHERE sent_at < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete old sends: %w", err)
	}
	deleted, _ := result.RowsAffected()
	return deleted, nil
}
