package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pinggolf/cancercenter-offices/internal/refresh"
)

type refreshCenterRequest struct {
	RadiusKm   *int `json:"radiusKm"`
	MaxOffices *int `json:"maxOffices"`
}

type refreshCenterResponse struct {
	CenterID                        int64 `json:"centerId"`
	OfficesFetched                   int   `json:"officesFetched"`
	OfficesMatched                   int   `json:"officesMatched"`
	OfficesFilteredOutNoCompanyMatch int   `json:"officesFilteredOutNoCompanyMatch"`
	LinksUpserted                    int   `json:"linksUpserted"`
	PrunedLinks                      int64 `json:"prunedLinks"`
	WikidataEntitiesFetched          int   `json:"wikidataEntitiesFetched"`
	WikidataOfficesUpdated           int   `json:"wikidataOfficesUpdated"`
}

var allowedRefreshRadiiKm = map[int]bool{10: true, 25: true, 50: true, 100: true}

// handleRefreshCenter serves POST /api/admin/refresh-center/{id}, running
// refresh_center synchronously per §4.I.
func (s *Server) handleRefreshCenter(w http.ResponseWriter, r *http.Request) {
	centerID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid center id")
		return
	}

	var req refreshCenterRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	var radiusM float64
	if req.RadiusKm != nil {
		if !allowedRefreshRadiiKm[*req.RadiusKm] {
			writeJSONError(w, http.StatusBadRequest, "radiusKm must be one of 10, 25, 50, 100")
			return
		}
		radiusM = float64(*req.RadiusKm) * 1000
	}

	maxOffices := 0
	if req.MaxOffices != nil {
		if *req.MaxOffices <= 0 || *req.MaxOffices > 10000 {
			writeJSONError(w, http.StatusBadRequest, "maxOffices must be a positive integer <= 10000")
			return
		}
		maxOffices = *req.MaxOffices
	}

	ctx := r.Context()
	center, err := s.db.GetCenterByID(ctx, centerID)
	if err != nil {
		writeJSONError(w, http.StatusNotFound, "center not found")
		return
	}

	index, banned, err := s.refreshEngine.BuildCompanyIndexAndBanned(ctx)
	if err != nil {
		internalError(w, "building company index", err)
		return
	}

	result, err := s.refreshEngine.RefreshCenter(ctx, center, refresh.CenterRefreshOptions{
		RadiusM: radiusM, MaxOffices: maxOffices, CompanyIndex: index, BannedSet: banned,
	})
	if err != nil {
		internalError(w, "refreshing center", err)
		return
	}

	writeJSON(w, http.StatusOK, refreshCenterResponse{
		CenterID:                         centerID,
		OfficesFetched:                   result.OfficesFetched,
		OfficesMatched:                   result.OfficesMatched,
		OfficesFilteredOutNoCompanyMatch: result.OfficesFilteredOutNoCompanyMatch,
		LinksUpserted:                    result.LinksUpserted,
		PrunedLinks:                      result.PrunedLinks,
		WikidataEntitiesFetched:          result.WikidataEntitiesFetched,
		WikidataOfficesUpdated:           result.WikidataOfficesUpdated,
	})
}

type refreshBatchResponse struct {
	CentersProcessed int   `json:"centersProcessed"`
	CentersFailed    int   `json:"centersFailed"`
	CursorBefore     int64 `json:"cursorBefore"`
	CursorAfter      int64 `json:"cursorAfter"`
}

// handleRefreshBatch serves POST /api/admin/refresh-batch, running one
// run_scheduled_refresh pass.
func (s *Server) handleRefreshBatch(w http.ResponseWriter, r *http.Request) {
	result, err := s.refreshEngine.RunScheduledRefresh(r.Context(), s.config.BatchCentersPerRun, s.config.OverpassThrottle)
	if err != nil {
		internalError(w, "running scheduled refresh batch", err)
		return
	}
	writeJSON(w, http.StatusOK, refreshBatchResponse{
		CentersProcessed: result.CentersProcessed,
		CentersFailed:    result.CentersFailed,
		CursorBefore:     result.CursorBefore,
		CursorAfter:      result.CursorAfter,
	})
}

type refreshAllRequest struct {
	DelayMs          *int  `json:"delayMs"`
	BatchSize        *int  `json:"batchSize"`
	RadiusKm         *int  `json:"radiusKm"`
	MaxOffices       *int  `json:"maxOffices"`
	FullClean        *bool `json:"fullClean"`
	CenterRetryCount *int  `json:"centerRetryCount"`
	RetryDelayMs     *int  `json:"retryDelayMs"`
}

type refreshAllResponse struct {
	CentersProcessed int  `json:"centersProcessed"`
	CentersFailed    int  `json:"centersFailed"`
	OK               bool `json:"ok"`
}

// handleRefreshAll serves POST /api/admin/refresh-all, running a full sweep
// of every active center per §4.H. Request fields are optional; radiusKm is
// checked here and the engine clamps the numeric fields to its allowed ranges.
func (s *Server) handleRefreshAll(w http.ResponseWriter, r *http.Request) {
	var req refreshAllRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	opts := refresh.RefreshAllOptions{
		ThrottleMs:       int(s.config.OverpassThrottle.Milliseconds()),
		BatchSize:        s.config.BatchCentersPerRun,
		CenterRetryCount: s.config.RefreshCenterRetryCount,
		RetryDelayMs:     int(s.config.RefreshCenterRetryDelay.Milliseconds()),
	}

	if req.DelayMs != nil {
		opts.ThrottleMs = *req.DelayMs
	}
	if req.BatchSize != nil {
		opts.BatchSize = *req.BatchSize
	}
	if req.RadiusKm != nil {
		if !allowedRefreshRadiiKm[*req.RadiusKm] {
			writeJSONError(w, http.StatusBadRequest, "radiusKm must be one of 10, 25, 50, 100")
			return
		}
		opts.RadiusM = float64(*req.RadiusKm) * 1000
	}
	if req.MaxOffices != nil {
		opts.MaxOffices = *req.MaxOffices
	}
	if req.FullClean != nil {
		opts.FullClean = *req.FullClean
	}
	if req.CenterRetryCount != nil {
		opts.CenterRetryCount = *req.CenterRetryCount
	}
	if req.RetryDelayMs != nil {
		opts.RetryDelayMs = *req.RetryDelayMs
	}

	result, err := s.refreshEngine.RunRefreshAll(r.Context(), opts)
	if err != nil {
		internalError(w, "running full refresh sweep", err)
		return
	}

	writeJSON(w, http.StatusOK, refreshAllResponse{
		CentersProcessed: result.CentersProcessed,
		CentersFailed:    result.CentersFailed,
		OK:               result.OK,
	})
}
