package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

// upsertBatchSize bounds how many office/link rows are upserted per
// transaction, per §4.G.
const upsertBatchSize = 80

// ListOfficesForCenterParams filters a center's office listing.
type ListOfficesForCenterParams struct {
	CenterID           int64
	RadiusM            float64
	Limit              int // 0 = unlimited
	HighConfidenceOnly bool
	Search             string // already length-capped by the caller; LIKE metacharacters are escaped here
}

// ListOfficesForCenter joins center_office and offices, excluding banned
// offices, per §4.G. Callers are expected to post-dedup in memory by
// (normalized name, rounded coords).
func (q *Queries) ListOfficesForCenter(ctx context.Context, params ListOfficesForCenterParams) ([]OfficeWithDistance, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT o.osm_type, o.osm_id, o.name, o.brand, o.operator, o.website, o.wikidata,
		       o.wikidata_entity_id, o.lat, o.lon, o.low_confidence, o.tags_json,
		       o.employee_count, o.employee_count_as_of, o.market_cap, o.market_cap_currency_qid,
		       o.market_cap_as_of, o.wikidata_enriched_at, o.updated_at, co.distance_m
		FROM center_office co
		JOIN offices o ON o.osm_type = co.osm_type AND o.osm_id = co.osm_id
		WHERE co.center_id = $1
		  AND co.distance_m <= $2
		  AND o.name IS NOT NULL AND o.name <> ''
		  AND NOT EXISTS (
		      SELECT 1 FROM banned_offices b WHERE b.osm_type = o.osm_type AND b.osm_id = o.osm_id
		  )
	`)
	args := []interface{}{params.CenterID, params.RadiusM}

	if params.HighConfidenceOnly {
		sb.WriteString(" AND NOT o.low_confidence\n")
	}
	if params.Search != "" {
		args = append(args, escapeLikePattern(params.Search)+"%")
		sb.WriteString(fmt.Sprintf(" AND o.name ILIKE $%d ESCAPE '\\'\n", len(args)))
	}
	sb.WriteString(" ORDER BY co.distance_m ASC\n")
	if params.Limit > 0 {
		args = append(args, params.Limit)
		sb.WriteString(fmt.Sprintf(" LIMIT $%d\n", len(args)))
	}

	rows, err := q.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("listing offices for center %d: %w", params.CenterID, err)
	}
	defer rows.Close()

	var offices []OfficeWithDistance
	for rows.Next() {
		var o OfficeWithDistance
		if err := rows.Scan(&o.OSMType, &o.OSMID, &o.Name, &o.Brand, &o.Operator, &o.Website,
			&o.Wikidata, &o.WikidataEntityID, &o.Lat, &o.Lon, &o.LowConfidence, &o.TagsJSON,
			&o.EmployeeCount, &o.EmployeeCountAsOf, &o.MarketCap, &o.MarketCapCurrencyQID,
			&o.MarketCapAsOf, &o.WikidataEnrichedAt, &o.UpdatedAt, &o.DistanceM); err != nil {
			return nil, fmt.Errorf("scanning office row: %w", err)
		}
		offices = append(offices, o)
	}
	return offices, rows.Err()
}

// escapeLikePattern escapes the ILIKE metacharacters ('%', '_', '\') in a
// user-supplied search term before it's combined with a trailing wildcard.
func escapeLikePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// UpsertOfficesAndLinks upserts offices and their center links in chunks of
// upsertBatchSize, each chunk inside its own transaction, per §4.G.
func (q *Queries) UpsertOfficesAndLinks(ctx context.Context, offices []OfficeUpsert, links []LinkUpsert) error {
	for _, chunk := range chunkOffices(offices, upsertBatchSize) {
		if err := q.upsertOfficeChunk(ctx, chunk); err != nil {
			return err
		}
	}
	for _, chunk := range chunkLinks(links, upsertBatchSize) {
		if err := q.upsertLinkChunk(ctx, chunk); err != nil {
			return err
		}
	}
	return nil
}

func (q *Queries) upsertOfficeChunk(ctx context.Context, chunk []OfficeUpsert) error {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning office upsert transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO offices (osm_type, osm_id, name, brand, operator, website, wikidata,
		                      wikidata_entity_id, lat, lon, low_confidence, tags_json, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''),
		        NULLIF($7, ''), NULLIF($8, ''), $9, $10, $11, $12, NOW())
		ON CONFLICT (osm_type, osm_id) DO UPDATE SET
			name = EXCLUDED.name,
			brand = EXCLUDED.brand,
			operator = EXCLUDED.operator,
			website = EXCLUDED.website,
			wikidata = EXCLUDED.wikidata,
			wikidata_entity_id = EXCLUDED.wikidata_entity_id,
			lat = EXCLUDED.lat,
			lon = EXCLUDED.lon,
			low_confidence = EXCLUDED.low_confidence,
			tags_json = EXCLUDED.tags_json,
			updated_at = NOW()
	`)
	if err != nil {
		return fmt.Errorf("preparing office upsert: %w", err)
	}
	defer stmt.Close()

	for _, o := range chunk {
		var tagsJSON interface{}
		if len(o.TagsJSON) > 0 {
			tagsJSON = string(o.TagsJSON)
		}
		if _, err := stmt.ExecContext(ctx, o.OSMType, o.OSMID, o.Name, o.Brand, o.Operator,
			o.Website, o.Wikidata, o.WikidataEntityID, o.Lat, o.Lon, o.LowConfidence, tagsJSON); err != nil {
			return fmt.Errorf("upserting office %s/%d: %w", o.OSMType, o.OSMID, err)
		}
	}

	return tx.Commit()
}

func (q *Queries) upsertLinkChunk(ctx context.Context, chunk []LinkUpsert) error {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning link upsert transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO center_office (center_id, osm_type, osm_id, distance_m, last_seen)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (center_id, osm_type, osm_id) DO UPDATE SET
			distance_m = EXCLUDED.distance_m,
			last_seen = EXCLUDED.last_seen
	`)
	if err != nil {
		return fmt.Errorf("preparing link upsert: %w", err)
	}
	defer stmt.Close()

	for _, l := range chunk {
		if _, err := stmt.ExecContext(ctx, l.CenterID, l.OSMType, l.OSMID, l.DistanceM, l.SeenAt); err != nil {
			return fmt.Errorf("upserting link for center %d, office %s/%d: %w", l.CenterID, l.OSMType, l.OSMID, err)
		}
	}

	return tx.Commit()
}

func chunkOffices(items []OfficeUpsert, size int) [][]OfficeUpsert {
	var chunks [][]OfficeUpsert
	for size < len(items) {
		items, chunks = items[size:], append(chunks, items[0:size:size])
	}
	if len(items) > 0 {
		chunks = append(chunks, items)
	}
	return chunks
}

func chunkLinks(items []LinkUpsert, size int) [][]LinkUpsert {
	var chunks [][]LinkUpsert
	for size < len(items) {
		items, chunks = items[size:], append(chunks, items[0:size:size])
	}
	if len(items) > 0 {
		chunks = append(chunks, items)
	}
	return chunks
}

// PruneCenterLinksNotSeenSince deletes a center's links whose last_seen
// predates seenAt (i.e. not observed in the current refresh run).
func (q *Queries) PruneCenterLinksNotSeenSince(ctx context.Context, centerID int64, seenAt time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		DELETE FROM center_office WHERE center_id = $1 AND last_seen < $2
	`, centerID, seenAt)
	if err != nil {
		return 0, fmt.Errorf("pruning unseen links for center %d: %w", centerID, err)
	}
	return res.RowsAffected()
}

// PruneStaleCenterLinks deletes a center's links older than staleDays.
func (q *Queries) PruneStaleCenterLinks(ctx context.Context, centerID int64, staleDays int) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		DELETE FROM center_office
		WHERE center_id = $1 AND last_seen < NOW() - ($2 || ' days')::interval
	`, centerID, staleDays)
	if err != nil {
		return 0, fmt.Errorf("pruning stale links for center %d: %w", centerID, err)
	}
	return res.RowsAffected()
}

// PurgeAllOfficePoints deletes every link and office row and resets the
// refresh cursor, used by full-clean refresh runs.
func (q *Queries) PurgeAllOfficePoints(ctx context.Context) error {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning purge transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM center_office"); err != nil {
		return fmt.Errorf("purging center_office: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM offices"); err != nil {
		return fmt.Errorf("purging offices: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE refresh_state SET value = '0', updated_at = NOW() WHERE key = 'center_cursor'
	`); err != nil {
		return fmt.Errorf("resetting refresh cursor: %w", err)
	}

	return tx.Commit()
}

// ListStaleWikidataEntityIDs filters ids down to those whose office row has
// never been enriched or was enriched more than staleDays ago, capped at
// maxIDs. Never-enriched ids come first, then the oldest-enriched.
func (q *Queries) ListStaleWikidataEntityIDs(ctx context.Context, ids []string, staleDays, maxIDs int) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `
		SELECT wikidata_entity_id
		FROM offices
		WHERE wikidata_entity_id = ANY($1)
		  AND (wikidata_enriched_at IS NULL OR wikidata_enriched_at < NOW() - ($2 || ' days')::interval)
		GROUP BY wikidata_entity_id
		ORDER BY MIN(COALESCE(wikidata_enriched_at, '-infinity')) ASC
		LIMIT $3
	`
	rows, err := q.db.QueryContext(ctx, query, pq.Array(ids), staleDays, maxIDs)
	if err != nil {
		return nil, fmt.Errorf("listing stale wikidata entity ids: %w", err)
	}
	defer rows.Close()

	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning stale wikidata entity id: %w", err)
		}
		stale = append(stale, id)
	}
	return stale, rows.Err()
}

// WikidataEnrichmentUpdate carries one entity's enrichment fields to apply
// across every office row sharing that wikidata_entity_id.
type WikidataEnrichmentUpdate struct {
	WikidataEntityID  string
	EmployeeCount     sql.NullInt64
	EmployeeCountAsOf sql.NullTime
	MarketCap         sql.NullFloat64
	MarketCapCurrency sql.NullString
	MarketCapAsOf     sql.NullTime
}

// ApplyWikidataEnrichment writes enrichment fields onto every office sharing
// an entity id, stamping wikidata_enriched_at.
func (q *Queries) ApplyWikidataEnrichment(ctx context.Context, updates []WikidataEnrichmentUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning enrichment transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE offices SET
			employee_count = $2,
			employee_count_as_of = $3,
			market_cap = $4,
			market_cap_currency_qid = $5,
			market_cap_as_of = $6,
			wikidata_enriched_at = NOW()
		WHERE wikidata_entity_id = $1
	`)
	if err != nil {
		return fmt.Errorf("preparing enrichment update: %w", err)
	}
	defer stmt.Close()

	for _, u := range updates {
		if _, err := stmt.ExecContext(ctx, u.WikidataEntityID, u.EmployeeCount, u.EmployeeCountAsOf,
			u.MarketCap, u.MarketCapCurrency, u.MarketCapAsOf); err != nil {
			return fmt.Errorf("applying enrichment for %s: %w", u.WikidataEntityID, err)
		}
	}

	return tx.Commit()
}
