package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pinggolf/cancercenter-offices/internal/db"
	"github.com/pinggolf/cancercenter-offices/internal/geo"
	"github.com/pinggolf/cancercenter-offices/internal/matcher"
)

type centerSummary struct {
	ID         int64   `json:"id"`
	CenterCode string  `json:"centerCode"`
	Name       string  `json:"name"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
}

type officeResponse struct {
	OSMType              string  `json:"osmType"`
	OSMID                int64   `json:"osmId"`
	Name                 string  `json:"name,omitempty"`
	Brand                string  `json:"brand,omitempty"`
	Operator             string  `json:"operator,omitempty"`
	Website              string  `json:"website,omitempty"`
	Wikidata             string  `json:"wikidata,omitempty"`
	WikidataEntityID     string  `json:"wikidataEntityId,omitempty"`
	EmployeeCount        *int64  `json:"employeeCount,omitempty"`
	EmployeeCountAsOf    string  `json:"employeeCountAsOf,omitempty"`
	MarketCap            *float64 `json:"marketCap,omitempty"`
	MarketCapCurrencyQID string  `json:"marketCapCurrencyQid,omitempty"`
	MarketCapAsOf        string  `json:"marketCapAsOf,omitempty"`
	WikidataEnrichedAt   string  `json:"wikidataEnrichedAt,omitempty"`
	Lat                  float64 `json:"lat"`
	Lon                  float64 `json:"lon"`
	LowConfidence        bool    `json:"lowConfidence"`
	DistanceM            float64 `json:"distanceM"`
	LinkedCompanyID      *int64  `json:"linkedCompanyId,omitempty"`
	LinkedCompanyName    string  `json:"linkedCompanyName,omitempty"`
}

type officesForCenterResponse struct {
	Center   centerSummary    `json:"center"`
	RadiusKm float64          `json:"radiusKm"`
	Offices  []officeResponse `json:"offices"`
}

func toOfficeResponse(o db.OfficeWithDistance, idx *matcher.Index) officeResponse {
	out := officeResponse{
		OSMType:              o.OSMType,
		OSMID:                o.OSMID,
		Name:                 o.Name.String,
		Brand:                o.Brand.String,
		Operator:             o.Operator.String,
		Website:              o.Website.String,
		Wikidata:             o.Wikidata.String,
		WikidataEntityID:     o.WikidataEntityID.String,
		MarketCapCurrencyQID: o.MarketCapCurrencyQID.String,
		Lat:                  o.Lat,
		Lon:                  o.Lon,
		LowConfidence:        o.LowConfidence,
		DistanceM:            o.DistanceM,
	}
	if o.EmployeeCount.Valid {
		v := o.EmployeeCount.Int64
		out.EmployeeCount = &v
	}
	if o.EmployeeCountAsOf.Valid {
		out.EmployeeCountAsOf = o.EmployeeCountAsOf.Time.Format("2006-01-02")
	}
	if o.MarketCap.Valid {
		v := o.MarketCap.Float64
		out.MarketCap = &v
	}
	if o.MarketCapAsOf.Valid {
		out.MarketCapAsOf = o.MarketCapAsOf.Time.Format("2006-01-02")
	}
	if o.WikidataEnrichedAt.Valid {
		out.WikidataEnrichedAt = o.WikidataEnrichedAt.Time.Format(httpTimeLayout)
	}

	if idx != nil {
		if result, ok := idx.Match(o.Name.String, o.Brand.String, o.Operator.String); ok {
			out.LinkedCompanyID = &result.CompanyID
			out.LinkedCompanyName = result.CompanyName
		}
	}

	return out
}

const httpTimeLayout = "2006-01-02T15:04:05Z07:00"

// handleListOfficesForCenter serves
// GET /api/centers/{id}/offices?radiusKm=&limit=&highConfidenceOnly=&search=.
func (s *Server) handleListOfficesForCenter(w http.ResponseWriter, r *http.Request) {
	centerID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid center id")
		return
	}

	center, err := s.db.GetCenterByID(r.Context(), centerID)
	if err != nil {
		writeJSONError(w, http.StatusNotFound, "center not found")
		return
	}

	q := r.URL.Query()
	capKm := s.config.DefaultRadiusM / 1000
	radiusKm := 25.0
	if raw := q.Get("radiusKm"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			radiusKm = v
		}
	}
	radiusKm = clampFloat(radiusKm, 1, capKm)

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			writeJSONError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = clampIntParam(v, 1, 5000)
	}

	params := db.ListOfficesForCenterParams{
		CenterID:           centerID,
		RadiusM:            radiusKm * 1000,
		Limit:              limit,
		HighConfidenceOnly: parseBool(q.Get("highConfidenceOnly")),
		Search:             truncateSearch(q.Get("search")),
	}

	offices, err := s.db.ListOfficesForCenter(r.Context(), params)
	if err != nil {
		internalError(w, "listing offices for center", err)
		return
	}

	var idx *matcher.Index
	if companies, err := s.db.ListAllCompanies(r.Context()); err == nil {
		idx = buildMatcherIndex(companies)
	}

	out := make([]officeResponse, 0, len(offices))
	seen := make(map[string]bool, len(offices))
	for _, o := range offices {
		key := fmt.Sprintf("%s|%.6f|%.6f", geo.CollapseWhitespace(o.Name.String), geo.RoundCoord(o.Lat), geo.RoundCoord(o.Lon))
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, toOfficeResponse(o, idx))
	}

	writeJSON(w, http.StatusOK, officesForCenterResponse{
		Center: centerSummary{
			ID: center.ID, CenterCode: center.CenterCode, Name: center.Name,
			Lat: center.Lat, Lon: center.Lon,
		},
		RadiusKm: radiusKm,
		Offices:  out,
	})
}

func buildMatcherIndex(companies []db.Company) *matcher.Index {
	mc := make([]matcher.Company, 0, len(companies))
	for _, c := range companies {
		var aliases []string
		if c.KnownAliases.Valid {
			aliases = splitPipeList(c.KnownAliases.String)
		}
		mc = append(mc, matcher.Company{ID: c.ID, Name: c.CompanyName, KnownAliases: aliases})
	}
	return matcher.BuildIndex(mc)
}

func splitPipeList(raw string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(raw); i++ {
		if i == len(raw) || raw[i] == '|' {
			if i > start {
				out = append(out, raw[start:i])
			}
			start = i + 1
		}
	}
	return out
}

func truncateSearch(s string) string {
	runes := []rune(s)
	if len(runes) > 120 {
		runes = runes[:120]
	}
	return string(runes)
}

func clampFloat(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clampIntParam(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
