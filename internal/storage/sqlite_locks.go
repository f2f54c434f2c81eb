package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type sqliteLockRepo struct {
	db *sql.DB
}

func (r *sqliteLockRepo) Acquire(ctx context.Context, name, owner string, staleAfter time.Duration, now time.Time) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin lock transaction: %w", err)
	}
	defer tx.Rollback()

	var holder string
	var heartbeat time.Time
	err = tx.QueryRowContext(ctx,
		"SELECT owner, heartbeat_at FROM job_locks WHERE name = ?", name,
	).Scan(&holder, &heartbeat)

	switch {
	case err == sql.ErrNoRows:
		_, err = tx.ExecContext(ctx,
			"INSERT INTO job_locks (name, owner, heartbeat_at) VALUES (?, ?, ?)",
			name, owner, now.UTC(),
		)
		if err != nil {
			return false, fmt.Errorf("insert lock: %w", err)
		}
	case err != nil:
		return false, fmt.Errorf("query lock: %w", err)
	case now.Sub(heartbeat) >= staleAfter:
		// Stale holder: the previous run died without releasing.
		_, err = tx.ExecContext(ctx,
			"UPDATE job_locks SET owner = ?, heartbeat_at = ? WHERE name = ?",
			owner, now.UTC(), name,
		)
		if err != nil {
			return false, fmt.Errorf("take over stale lock: %w", err)
		}
	default:
		return false, nil
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit lock: %w", err)
	}
	return true, nil
}

func (r *sqliteLockRepo) Touch(ctx context.Context, name, owner string, now time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		"UPDATE job_locks SET heartbeat_at = ? WHERE name = ? AND owner = ?",
		now.UTC(), name, owner,
	)
	if err != nil {
		return false, fmt.Errorf("touch lock: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

func (r *sqliteLockRepo) Release(ctx context.Context, name, owner string) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM job_locks WHERE name = ? AND owner = ?", name, owner)
	if err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}
