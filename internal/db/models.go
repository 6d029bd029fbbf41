package db

import (
	"database/sql"
	"time"
)

// Center is a curated point of interest that the refresh engine fans
// offices out from.
type Center struct {
	ID               int64          `json:"id"`
	CenterCode       string         `json:"center_code"`
	Name             string         `json:"name"`
	Tier             sql.NullString `json:"tier,omitempty"`
	Lat              float64        `json:"lat"`
	Lon              float64        `json:"lon"`
	Country          sql.NullString `json:"country,omitempty"`
	Region           sql.NullString `json:"region,omitempty"`
	SourceURL        sql.NullString `json:"source_url,omitempty"`
	IsActive         bool           `json:"is_active"`
	LastCSVSyncToken sql.NullString `json:"last_csv_sync_token,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// Office is a canonical, deduplicated place pulled from the upstream
// tag-store, keyed by its OSM identity.
type Office struct {
	OSMType               string          `json:"osm_type"`
	OSMID                 int64           `json:"osm_id"`
	Name                  sql.NullString  `json:"name,omitempty"`
	Brand                 sql.NullString  `json:"brand,omitempty"`
	Operator              sql.NullString  `json:"operator,omitempty"`
	Website               sql.NullString  `json:"website,omitempty"`
	Wikidata              sql.NullString  `json:"wikidata,omitempty"`
	WikidataEntityID      sql.NullString  `json:"wikidata_entity_id,omitempty"`
	Lat                   float64         `json:"lat"`
	Lon                   float64         `json:"lon"`
	LowConfidence         bool            `json:"low_confidence"`
	TagsJSON              sql.NullString  `json:"tags_json,omitempty"`
	EmployeeCount          sql.NullInt64  `json:"employee_count,omitempty"`
	EmployeeCountAsOf      sql.NullTime   `json:"employee_count_as_of,omitempty"`
	MarketCap              sql.NullFloat64 `json:"market_cap,omitempty"`
	MarketCapCurrencyQID   sql.NullString  `json:"market_cap_currency_qid,omitempty"`
	MarketCapAsOf          sql.NullTime    `json:"market_cap_as_of,omitempty"`
	WikidataEnrichedAt    sql.NullTime    `json:"wikidata_enriched_at,omitempty"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// CenterOfficeLink ties an office to a center at a particular distance,
// refreshed on every run that still observes the office.
type CenterOfficeLink struct {
	CenterID   int64     `json:"center_id"`
	OSMType    string    `json:"osm_type"`
	OSMID      int64     `json:"osm_id"`
	DistanceM  float64   `json:"distance_m"`
	LastSeen   time.Time `json:"last_seen"`
}

// OfficeWithDistance is the read-side join row returned for a center's
// office listing.
type OfficeWithDistance struct {
	Office
	DistanceM         float64        `json:"distance_m"`
	LinkedCompanyID   sql.NullInt64  `json:"linked_company_id,omitempty"`
	LinkedCompanyName sql.NullString `json:"linked_company_name,omitempty"`
}

// Company is one row of the curated company index used by the matcher.
type Company struct {
	ID                    int64          `json:"id"`
	CompanyName           string         `json:"company_name"`
	CompanyNameNormalized string         `json:"company_name_normalized"`
	KnownAliases          sql.NullString `json:"known_aliases,omitempty"`
	HQCountry             sql.NullString `json:"hq_country,omitempty"`
	Description           sql.NullString `json:"description,omitempty"`
	Type                  sql.NullString `json:"type,omitempty"`
	Geography             sql.NullString `json:"geography,omitempty"`
	Industry              sql.NullString `json:"industry,omitempty"`
	SuitabilityTier       sql.NullString `json:"suitability_tier,omitempty"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
}

// OfficeDeletionFlag tracks one user-submitted request to remove an office,
// working through the pending/approved/rejected state machine.
type OfficeDeletionFlag struct {
	ID          int64          `json:"id"`
	CenterID    sql.NullInt64  `json:"center_id,omitempty"`
	OSMType     string         `json:"osm_type"`
	OSMID       int64          `json:"osm_id"`
	Reason      sql.NullString `json:"reason,omitempty"`
	Status      string         `json:"status"`
	SubmittedAt time.Time      `json:"submitted_at"`
	ReviewedAt  sql.NullTime   `json:"reviewed_at,omitempty"`
}

// BannedOffice records an office permanently excluded from refresh and
// reads, created only by approving a deletion flag.
type BannedOffice struct {
	OSMType        string       `json:"osm_type"`
	OSMID          int64        `json:"osm_id"`
	ApprovedFlagID sql.NullInt64 `json:"approved_flag_id,omitempty"`
	ApprovedAt     time.Time    `json:"approved_at"`
}

// OfficeUpsert is the write-side shape for a batched office upsert.
type OfficeUpsert struct {
	OSMType          string
	OSMID            int64
	Name             string
	Brand            string
	Operator         string
	Website          string
	Wikidata         string
	WikidataEntityID string
	Lat              float64
	Lon              float64
	LowConfidence    bool
	TagsJSON         []byte
}

// LinkUpsert is the write-side shape for a batched center-office link upsert.
type LinkUpsert struct {
	CenterID  int64
	OSMType   string
	OSMID     int64
	DistanceM float64
	SeenAt    time.Time
}

// CenterCSVRow is the write-side shape of one parsed centers-CSV row.
type CenterCSVRow struct {
	CenterCode string
	Name       string
	Tier       string
	Lat        float64
	Lon        float64
	Country    string
	Region     string
	SourceURL  string
}

// CompanyCSVRow is the write-side shape of one parsed companies-CSV row.
type CompanyCSVRow struct {
	CompanyName     string
	KnownAliases    string
	HQCountry       string
	Description     string
	Type            string
	Geography       string
	Industry        string
	SuitabilityTier string
}
