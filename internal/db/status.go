package db

import (
	"context"
	"fmt"
)

// StatusCounts summarizes table sizes for the admin status endpoint.
type StatusCounts struct {
	Centers        int64
	ActiveCenters  int64
	Offices        int64
	CenterLinks    int64
	Companies      int64
	PendingFlags   int64
	BannedOffices  int64
}

// GetStatusCounts returns row counts across the core tables.
func (q *Queries) GetStatusCounts(ctx context.Context) (StatusCounts, error) {
	var c StatusCounts
	err := q.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM centers),
			(SELECT COUNT(*) FROM centers WHERE is_active),
			(SELECT COUNT(*) FROM offices),
			(SELECT COUNT(*) FROM center_office),
			(SELECT COUNT(*) FROM companies),
			(SELECT COUNT(*) FROM office_deletion_flags WHERE status = 'pending'),
			(SELECT COUNT(*) FROM banned_offices)
	`).Scan(&c.Centers, &c.ActiveCenters, &c.Offices, &c.CenterLinks, &c.Companies,
		&c.PendingFlags, &c.BannedOffices)
	if err != nil {
		return StatusCounts{}, fmt.Errorf("loading status counts: %w", err)
	}
	return c, nil
}
