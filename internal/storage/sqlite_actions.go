package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/good-yellow-bee/alertwatch/internal/models"
)

type sqliteActionRepo struct {
	db *sql.DB
}

func (r *sqliteActionRepo) Append(ctx context.Context, action *models.AlertAction) error {
	query := `
		INSERT INTO alert_actions (id, alert_id, action, actor, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		action.ID, action.AlertID, action.Action,
		nullString(action.Actor), nullString(action.Notes),
		action.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert alert action: %w", err)
	}
	return nil
}

func (r *sqliteActionRepo) ListByAlert(ctx context.Context, alertID string) ([]*models.AlertAction, error) {
	query := `
		SELECT id, alert_id, action, actor, notes, created_at
		FROM alert_actions WHERE alert_id = ?
		ORDER BY created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, alertID)
	if err != nil {
		return nil, fmt.Errorf("query alert actions: %w", err)
	}
	defer rows.Close()

	var actions []*models.AlertAction
	for rows.Next() {
		action := &models.AlertAction{}
		var actor, notes sql.NullString
		err := rows.Scan(&action.ID, &action.AlertID, &action.Action,
			&actor, &notes, &action.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan alert action: %w", err)
		}
		action.Actor = actor.String
		action.Notes = notes.String
		actions = append(actions, action)
	}
	return actions, rows.Err()
}
