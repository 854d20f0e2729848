package store

import (
	"context"
	"fmt"

	"github.com/erazemk/findme/internal/model"
)

// DefaultActivityLimit caps ListActivity when no limit is given.
const DefaultActivityLimit = 100

// LogActivity appends an entry to the activity log.
func LogActivity(ctx context.Context, q Querier, userID int64, action, details string) error {
	if !model.ValidAction(action) {
		return fmt.Errorf("logging activity: unknown action %q", action)
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO activity_log (user_id, action, details) VALUES (?, ?, ?)`,
		userID, action, details,
	)
	if err != nil {
		return fmt.Errorf("logging activity: %w", err)
	}
	return nil
}

// ListActivity returns the most recent activity entries, newest first.
func ListActivity(ctx context.Context, q Querier, limit int) ([]model.ActivityLog, error) {
	if limit <= 0 {
		limit = DefaultActivityLimit
	}

	rows, err := q.QueryContext(ctx,
		`SELECT a.id, a.user_id, a.action, a.details, a.created_at, COALESCE(u.name, '')
		 FROM activity_log a
		 LEFT JOIN users u ON u.id = a.user_id
		 ORDER BY a.created_at DESC, a.id DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing activity: %w", err)
	}
	defer rows.Close()

	entries := []model.ActivityLog{}
	for rows.Next() {
		var e model.ActivityLog
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.Details, &e.CreatedAt, &e.UserName); err != nil {
			return nil, fmt.Errorf("scanning activity: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
