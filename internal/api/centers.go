package api

import (
	"database/sql"
	"net/http"

	"github.com/pinggolf/cancercenter-offices/internal/db"
)

type centerResponse struct {
	ID         int64   `json:"id"`
	CenterCode string  `json:"centerCode"`
	Name       string  `json:"name"`
	Tier       string  `json:"tier,omitempty"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Country    string  `json:"country,omitempty"`
	Region     string  `json:"region,omitempty"`
}

func toCenterResponse(c db.Center) centerResponse {
	return centerResponse{
		ID:         c.ID,
		CenterCode: c.CenterCode,
		Name:       c.Name,
		Tier:       c.Tier.String,
		Lat:        c.Lat,
		Lon:        c.Lon,
		Country:    c.Country.String,
		Region:     c.Region.String,
	}
}

// handleListCenters serves GET /api/centers?tier=&activeOnly=.
func (s *Server) handleListCenters(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	params := db.ListCentersParams{
		ActiveOnly: parseBool(q.Get("activeOnly")),
	}
	if tier := q.Get("tier"); tier != "" {
		params.Tier = sql.NullString{String: tier, Valid: true}
	}

	centers, err := s.db.ListCenters(r.Context(), params)
	if err != nil {
		internalError(w, "listing centers", err)
		return
	}

	out := make([]centerResponse, 0, len(centers))
	for _, c := range centers {
		out = append(out, toCenterResponse(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func parseBool(s string) bool {
	return s == "1" || s == "true" || s == "yes"
}
