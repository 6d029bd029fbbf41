// Package refresh implements the per-center and batch refresh pipelines of
// §4.H: Overpass query -> normalize -> company filter -> ban filter ->
// persist -> Wikidata enrichment -> prune.
package refresh

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/pinggolf/cancercenter-offices/internal/db"
	"github.com/pinggolf/cancercenter-offices/internal/geo"
	"github.com/pinggolf/cancercenter-offices/internal/matcher"
	"github.com/pinggolf/cancercenter-offices/internal/normalize"
	"github.com/pinggolf/cancercenter-offices/internal/overpass"
	"github.com/pinggolf/cancercenter-offices/internal/queue"
	"github.com/pinggolf/cancercenter-offices/internal/wikidata"
)

// Engine composes the clients and persistence layer needed to run refreshes.
type Engine struct {
	queries        *db.Queries
	overpass       *overpass.Client
	wikidata       *wikidata.Client
	nats           *queue.Manager // optional; nil disables progress events
	wikidataEnabled bool

	defaultRadiusM          float64
	staleLinkDays           int
	wikidataMaxIDsPerCenter int
	wikidataStaleDays       int
}

// NewEngine builds a refresh Engine. nats may be nil to disable progress
// telemetry.
func NewEngine(queries *db.Queries, overpassClient *overpass.Client, wikidataClient *wikidata.Client, nats *queue.Manager, wikidataEnabled bool, defaultRadiusM float64, staleLinkDays, wikidataMaxIDsPerCenter, wikidataStaleDays int) *Engine {
	return &Engine{
		queries:                 queries,
		overpass:                overpassClient,
		wikidata:                wikidataClient,
		nats:                    nats,
		wikidataEnabled:         wikidataEnabled,
		defaultRadiusM:          defaultRadiusM,
		staleLinkDays:           staleLinkDays,
		wikidataMaxIDsPerCenter: wikidataMaxIDsPerCenter,
		wikidataStaleDays:       wikidataStaleDays,
	}
}

// CenterRefreshOptions configures one refresh_center call.
type CenterRefreshOptions struct {
	RadiusM      float64 // 0 = use engine default
	MaxOffices   int     // 0 = unlimited
	CompanyIndex *matcher.Index
	BannedSet    map[string]bool // key: osmType+"/"+osmID
}

// CenterRefreshResult carries the counts described in §4.H step 10.
type CenterRefreshResult struct {
	OfficesFetched                  int
	OfficesMatched                  int
	OfficesFilteredOutNoCompanyMatch int
	LinksUpserted                   int
	PrunedLinks                     int64
	WikidataEntitiesFetched         int
	WikidataOfficesUpdated          int
}

func bannedKey(osmType string, osmID int64) string {
	return fmt.Sprintf("%s/%d", osmType, osmID)
}

// RefreshCenter runs the full single-center pipeline of §4.H.
func (e *Engine) RefreshCenter(ctx context.Context, center db.Center, opts CenterRefreshOptions) (CenterRefreshResult, error) {
	var result CenterRefreshResult

	radiusM := opts.RadiusM
	if radiusM <= 0 {
		radiusM = e.defaultRadiusM
	}

	query := overpass.BuildRadiusQuery(center.Lat, center.Lon, radiusM)
	elements, err := e.overpass.QueryElements(ctx, query)
	if err != nil {
		return result, fmt.Errorf("querying overpass for center %d: %w", center.ID, err)
	}

	offices := normalize.FromElements(elements)
	result.OfficesFetched = len(offices)

	if opts.MaxOffices > 0 && len(offices) > opts.MaxOffices {
		normalize.SortByDistance(offices, center.Lat, center.Lon)
		offices = offices[:opts.MaxOffices]
	}

	var matched []normalize.Office
	if opts.CompanyIndex != nil {
		survivors, matchedCount, filteredOutCount := matcher.FilterOfficesWithKnownCompanies(opts.CompanyIndex, offices)
		matched = survivors
		result.OfficesMatched = matchedCount
		result.OfficesFilteredOutNoCompanyMatch = filteredOutCount
	} else {
		matched = offices
	}

	survivors := make([]normalize.Office, 0, len(matched))
	for _, o := range matched {
		if opts.BannedSet != nil && opts.BannedSet[bannedKey(o.OSMType, o.OSMID)] {
			continue
		}
		survivors = append(survivors, o)
	}

	seenAt := time.Now().UTC()

	if len(survivors) > 0 {
		officeUpserts := make([]db.OfficeUpsert, 0, len(survivors))
		linkUpserts := make([]db.LinkUpsert, 0, len(survivors))
		for _, o := range survivors {
			officeUpserts = append(officeUpserts, db.OfficeUpsert{
				OSMType: o.OSMType, OSMID: o.OSMID, Name: o.Name, Brand: o.Brand,
				Operator: o.Operator, Website: o.Website, Wikidata: o.Wikidata,
				WikidataEntityID: o.WikidataEntityID, Lat: o.Lat, Lon: o.Lon,
				LowConfidence: o.LowConfidence, TagsJSON: o.TagsJSON(),
			})
			linkUpserts = append(linkUpserts, db.LinkUpsert{
				CenterID:  center.ID,
				OSMType:   o.OSMType,
				OSMID:     o.OSMID,
				DistanceM: geo.HaversineMeters(center.Lat, center.Lon, o.Lat, o.Lon),
				SeenAt:    seenAt,
			})
		}

		if err := e.queries.UpsertOfficesAndLinks(ctx, officeUpserts, linkUpserts); err != nil {
			return result, fmt.Errorf("upserting offices for center %d: %w", center.ID, err)
		}
		result.LinksUpserted = len(linkUpserts)

		if e.wikidataEnabled && e.wikidata != nil {
			e.enrich(ctx, survivors, &result)
		}
	}

	pruned, err := e.queries.PruneCenterLinksNotSeenSince(ctx, center.ID, seenAt)
	if err != nil {
		return result, fmt.Errorf("pruning unseen links for center %d: %w", center.ID, err)
	}
	result.PrunedLinks += pruned

	staleDays := e.staleLinkDays
	if staleDays > 0 {
		stalePruned, err := e.queries.PruneStaleCenterLinks(ctx, center.ID, staleDays)
		if err != nil {
			return result, fmt.Errorf("pruning stale links for center %d: %w", center.ID, err)
		}
		result.PrunedLinks += stalePruned
	}

	return result, nil
}

func (e *Engine) enrich(ctx context.Context, offices []normalize.Office, result *CenterRefreshResult) {
	idSet := make(map[string]bool)
	for _, o := range offices {
		if o.WikidataEntityID != "" {
			idSet[o.WikidataEntityID] = true
		}
	}
	if len(idSet) == 0 {
		return
	}
	ids := make([]string, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}

	staleIDs, err := e.queries.ListStaleWikidataEntityIDs(ctx, ids, e.wikidataStaleDays, e.wikidataMaxIDsPerCenter)
	if err != nil {
		log.Printf("refresh: listing stale wikidata ids: %v", err)
		return
	}
	if len(staleIDs) == 0 {
		return
	}

	claims, err := e.wikidata.FetchClaims(ctx, staleIDs)
	if err != nil {
		log.Printf("refresh: fetching wikidata claims: %v", err)
		return
	}
	result.WikidataEntitiesFetched += len(claims)

	updates := make([]db.WikidataEnrichmentUpdate, 0, len(claims))
	for id, claim := range claims {
		updates = append(updates, db.WikidataEnrichmentUpdate{
			WikidataEntityID:  id,
			EmployeeCount:     nullInt64(claim.EmployeeCount),
			EmployeeCountAsOf: nullDate(claim.EmployeeCountAsOf),
			MarketCap:         nullFloat64(claim.MarketCap),
			MarketCapCurrency: nullString(claim.MarketCapCurrency),
			MarketCapAsOf:     nullDate(claim.MarketCapAsOf),
		})
	}

	if err := e.queries.ApplyWikidataEnrichment(ctx, updates); err != nil {
		log.Printf("refresh: applying wikidata enrichment: %v", err)
		return
	}
	result.WikidataOfficesUpdated += len(updates)
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullFloat64(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func nullDate(v *string) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	t, err := time.Parse("2006-01-02", *v)
	if err != nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

// progressEvent is the JSON payload published to NATS for a center refresh.
type progressEvent struct {
	CenterID int64     `json:"center_id"`
	At       time.Time `json:"at"`
	Result   *CenterRefreshResult `json:"result,omitempty"`
	Error    string    `json:"error,omitempty"`
}

func (e *Engine) publishCenterComplete(runID string, centerID int64, result CenterRefreshResult, refreshErr error) {
	if e.nats == nil {
		return
	}
	evt := progressEvent{CenterID: centerID, At: time.Now().UTC(), Result: &result}
	if refreshErr != nil {
		evt.Error = refreshErr.Error()
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return
	}
	if err := e.nats.Publish(queue.GetRefreshCenterCompleteSubject(runID), payload); err != nil {
		log.Printf("refresh: publishing progress event: %v", err)
	}
}
