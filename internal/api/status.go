package api

import (
	"net/http"
	"time"
)

type statusChecks struct {
	ActiveCentersAtLeastOne bool `json:"activeCentersAtLeastOne"`
	RefreshStatePresent     bool `json:"refreshStatePresent"`
	RefreshRecentEnough     bool `json:"refreshRecentEnough"`
}

type statusThresholds struct {
	MaxRefreshAgeMinutes float64 `json:"maxRefreshAgeMinutes"`
}

type exactCounts struct {
	Centers             int64 `json:"centers"`
	Offices             int64 `json:"offices"`
	CenterOfficeLinks   int64 `json:"centerOfficeLinks"`
	Companies           int64 `json:"companies"`
	OfficeDeletionFlags int64 `json:"officeDeletionFlags"`
	BannedOffices       int64 `json:"bannedOffices"`
}

type statusMetrics struct {
	ExactCounts            exactCounts `json:"exactCounts"`
	CentersTotal           int64       `json:"centersTotal"`
	ActiveCenters          int64       `json:"activeCenters"`
	OfficesTotal           int64       `json:"officesTotal,omitempty"`
	CenterOfficeLinksTotal int64       `json:"centerOfficeLinksTotal,omitempty"`
}

type statusRefresh struct {
	Cursor     int64   `json:"cursor"`
	UpdatedAt  string  `json:"updatedAt,omitempty"`
	AgeMinutes float64 `json:"ageMinutes,omitempty"`
}

type adminStatusResponse struct {
	OK           bool             `json:"ok"`
	GeneratedAt  string           `json:"generatedAt"`
	Checks       statusChecks     `json:"checks"`
	Thresholds   statusThresholds `json:"thresholds"`
	Metrics      statusMetrics    `json:"metrics"`
	Refresh      statusRefresh    `json:"refresh"`
}

// handleAdminStatus serves GET /api/admin/status?includeCounts=, reporting
// health checks and metrics per §6.
func (s *Server) handleAdminStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	includeCounts := parseBool(r.URL.Query().Get("includeCounts"))

	counts, err := s.db.GetStatusCounts(ctx)
	if err != nil {
		internalError(w, "loading status counts", err)
		return
	}

	state, err := s.db.GetRefreshStateInfo(ctx)
	if err != nil {
		internalError(w, "loading refresh state", err)
		return
	}

	maxAgeMinutes := s.config.RefreshHealthMaxAge.Minutes()
	now := time.Now().UTC()

	refreshRecentEnough := false
	var ageMinutes float64
	if state.Present {
		ageMinutes = now.Sub(state.UpdatedAt).Minutes()
		refreshRecentEnough = ageMinutes <= maxAgeMinutes
	}

	resp := adminStatusResponse{
		GeneratedAt: now.Format(httpTimeLayout),
		Checks: statusChecks{
			ActiveCentersAtLeastOne: counts.ActiveCenters > 0,
			RefreshStatePresent:     state.Present,
			RefreshRecentEnough:     refreshRecentEnough,
		},
		Thresholds: statusThresholds{MaxRefreshAgeMinutes: maxAgeMinutes},
		Metrics: statusMetrics{
			CentersTotal:  counts.Centers,
			ActiveCenters: counts.ActiveCenters,
		},
		Refresh: statusRefresh{Cursor: state.Cursor},
	}
	resp.OK = resp.Checks.ActiveCentersAtLeastOne && resp.Checks.RefreshStatePresent && resp.Checks.RefreshRecentEnough

	if state.Present {
		resp.Refresh.UpdatedAt = state.UpdatedAt.Format(httpTimeLayout)
		resp.Refresh.AgeMinutes = ageMinutes
	}

	if includeCounts {
		resp.Metrics.OfficesTotal = counts.Offices
		resp.Metrics.CenterOfficeLinksTotal = counts.CenterLinks
		resp.Metrics.ExactCounts = exactCounts{
			Centers:             counts.Centers,
			Offices:             counts.Offices,
			CenterOfficeLinks:   counts.CenterLinks,
			Companies:           counts.Companies,
			OfficeDeletionFlags: counts.PendingFlags,
			BannedOffices:       counts.BannedOffices,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
