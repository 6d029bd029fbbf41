package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"
)

const centerCursorKey = "center_cursor"

// RefreshStateInfo is the read-side shape of the cursor row, used by the
// admin status endpoint.
type RefreshStateInfo struct {
	Cursor    int64
	UpdatedAt time.Time
	Present   bool
}

// GetRefreshStateInfo loads the cursor row and its last-updated timestamp,
// per §6's refreshRecentEnough check. Present is false if the row is
// missing (should not happen once migrations have run).
func (q *Queries) GetRefreshStateInfo(ctx context.Context) (RefreshStateInfo, error) {
	var value string
	var updatedAt time.Time
	err := q.db.QueryRowContext(ctx, `
		SELECT value, updated_at FROM refresh_state WHERE key = $1
	`, centerCursorKey).Scan(&value, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return RefreshStateInfo{}, nil
	}
	if err != nil {
		return RefreshStateInfo{}, fmt.Errorf("reading refresh state: %w", err)
	}
	cursor, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return RefreshStateInfo{}, fmt.Errorf("parsing refresh cursor %q: %w", value, err)
	}
	return RefreshStateInfo{Cursor: cursor, UpdatedAt: updatedAt, Present: true}, nil
}

// GetRefreshCursor returns the last-processed center id for scheduled batch
// refresh, defaulting to 0 if unset.
func (q *Queries) GetRefreshCursor(ctx context.Context) (int64, error) {
	var value string
	err := q.db.QueryRowContext(ctx, `
		SELECT value FROM refresh_state WHERE key = $1
	`, centerCursorKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading refresh cursor: %w", err)
	}
	cursor, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing refresh cursor %q: %w", value, err)
	}
	return cursor, nil
}

// SetRefreshCursor persists the last-processed center id.
func (q *Queries) SetRefreshCursor(ctx context.Context, cursor int64) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO refresh_state (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, centerCursorKey, strconv.FormatInt(cursor, 10))
	if err != nil {
		return fmt.Errorf("setting refresh cursor: %w", err)
	}
	return nil
}
