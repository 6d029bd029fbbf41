package db

import (
	"context"
	"database/sql"
	"fmt"
)

// ListCentersParams filters the centers list.
type ListCentersParams struct {
	Tier       sql.NullString
	ActiveOnly bool
}

// ListCenters returns centers ordered by name.
func (q *Queries) ListCenters(ctx context.Context, params ListCentersParams) ([]Center, error) {
	query := `
		SELECT id, center_code, name, tier, lat, lon, country, region, source_url,
		       is_active, last_csv_sync_token, created_at, updated_at
		FROM centers
		WHERE ($1::text IS NULL OR tier = $1)
		  AND (NOT $2 OR is_active)
		ORDER BY name ASC
	`
	rows, err := q.db.QueryContext(ctx, query, params.Tier, params.ActiveOnly)
	if err != nil {
		return nil, fmt.Errorf("listing centers: %w", err)
	}
	defer rows.Close()

	var centers []Center
	for rows.Next() {
		var c Center
		if err := rows.Scan(&c.ID, &c.CenterCode, &c.Name, &c.Tier, &c.Lat, &c.Lon,
			&c.Country, &c.Region, &c.SourceURL, &c.IsActive, &c.LastCSVSyncToken,
			&c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning center row: %w", err)
		}
		centers = append(centers, c)
	}
	return centers, rows.Err()
}

// GetCenterByID returns a single center, or sql.ErrNoRows if absent.
func (q *Queries) GetCenterByID(ctx context.Context, id int64) (Center, error) {
	query := `
		SELECT id, center_code, name, tier, lat, lon, country, region, source_url,
		       is_active, last_csv_sync_token, created_at, updated_at
		FROM centers WHERE id = $1
	`
	var c Center
	err := q.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.CenterCode, &c.Name, &c.Tier,
		&c.Lat, &c.Lon, &c.Country, &c.Region, &c.SourceURL, &c.IsActive,
		&c.LastCSVSyncToken, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Center{}, err
	}
	return c, nil
}

// ListActiveCentersAfter returns up to limit active centers with id > afterID,
// ordered by id, for cursor-based batch refresh.
func (q *Queries) ListActiveCentersAfter(ctx context.Context, afterID int64, limit int) ([]Center, error) {
	query := `
		SELECT id, center_code, name, tier, lat, lon, country, region, source_url,
		       is_active, last_csv_sync_token, created_at, updated_at
		FROM centers
		WHERE is_active AND id > $1
		ORDER BY id ASC
		LIMIT $2
	`
	rows, err := q.db.QueryContext(ctx, query, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing active centers after cursor: %w", err)
	}
	defer rows.Close()

	var centers []Center
	for rows.Next() {
		var c Center
		if err := rows.Scan(&c.ID, &c.CenterCode, &c.Name, &c.Tier, &c.Lat, &c.Lon,
			&c.Country, &c.Region, &c.SourceURL, &c.IsActive, &c.LastCSVSyncToken,
			&c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning center row: %w", err)
		}
		centers = append(centers, c)
	}
	return centers, rows.Err()
}

// UpsertCenterResult reports whether a CSV row created a new center or
// updated an existing one.
type UpsertCenterResult string

const (
	UpsertCenterInserted UpsertCenterResult = "inserted"
	UpsertCenterUpdated  UpsertCenterResult = "updated"
)

// UpsertCenterFromCSV upserts a center by center_code, forcing is_active and
// stamping the sync token, per §4.G.
func (q *Queries) UpsertCenterFromCSV(ctx context.Context, row CenterCSVRow, syncToken string) (UpsertCenterResult, error) {
	query := `
		INSERT INTO centers (center_code, name, tier, lat, lon, country, region, source_url,
		                      is_active, last_csv_sync_token, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''),
		        TRUE, $9, NOW(), NOW())
		ON CONFLICT (center_code) DO UPDATE SET
			name = EXCLUDED.name,
			tier = EXCLUDED.tier,
			lat = EXCLUDED.lat,
			lon = EXCLUDED.lon,
			country = EXCLUDED.country,
			region = EXCLUDED.region,
			source_url = EXCLUDED.source_url,
			is_active = TRUE,
			last_csv_sync_token = EXCLUDED.last_csv_sync_token,
			updated_at = NOW()
		RETURNING (xmax = 0) AS inserted
	`
	var inserted bool
	err := q.db.QueryRowContext(ctx, query, row.CenterCode, row.Name, row.Tier, row.Lat, row.Lon,
		row.Country, row.Region, row.SourceURL, syncToken).Scan(&inserted)
	if err != nil {
		return "", fmt.Errorf("upserting center %s: %w", row.CenterCode, err)
	}
	if inserted {
		return UpsertCenterInserted, nil
	}
	return UpsertCenterUpdated, nil
}

// DisableCentersMissingFromSync sets is_active=false on every active center
// whose last_csv_sync_token doesn't match syncToken, returning the count
// disabled.
func (q *Queries) DisableCentersMissingFromSync(ctx context.Context, syncToken string) (int64, error) {
	query := `
		UPDATE centers
		SET is_active = FALSE, updated_at = NOW()
		WHERE is_active AND (last_csv_sync_token IS DISTINCT FROM $1)
	`
	res, err := q.db.ExecContext(ctx, query, syncToken)
	if err != nil {
		return 0, fmt.Errorf("disabling centers missing from sync: %w", err)
	}
	return res.RowsAffected()
}
