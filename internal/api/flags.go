package api

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pinggolf/cancercenter-offices/internal/db"
)

type flagDeletionRequest struct {
	CenterID *int64 `json:"centerId"`
	OSMType  string `json:"osmType"`
	OSMID    int64  `json:"osmId"`
	Reason   string `json:"reason"`
}

type flagDeletionResponse struct {
	Outcome string `json:"outcome"`
	FlagID  int64  `json:"flagId,omitempty"`
}

// handleFlagDeletion serves POST /api/offices/flag-deletion, implementing
// the submission state machine of §4.I.
func (s *Server) handleFlagDeletion(w http.ResponseWriter, r *http.Request) {
	var req flagDeletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OSMType != "node" && req.OSMType != "way" && req.OSMType != "relation" {
		writeJSONError(w, http.StatusBadRequest, "osmType must be node, way, or relation")
		return
	}
	if req.OSMID <= 0 {
		writeJSONError(w, http.StatusBadRequest, "osmId is required")
		return
	}

	var centerID sql.NullInt64
	if req.CenterID != nil {
		centerID = sql.NullInt64{Int64: *req.CenterID, Valid: true}
	}

	outcome, flagID, err := s.db.SubmitDeletionFlag(r.Context(), centerID, req.OSMType, req.OSMID, req.Reason)
	if err != nil {
		internalError(w, "submitting deletion flag", err)
		return
	}

	writeJSON(w, http.StatusOK, flagDeletionResponse{Outcome: string(outcome), FlagID: flagID})
}

type deletionFlagResponse struct {
	ID          int64  `json:"id"`
	CenterID    *int64 `json:"centerId,omitempty"`
	OSMType     string `json:"osmType"`
	OSMID       int64  `json:"osmId"`
	Reason      string `json:"reason,omitempty"`
	Status      string `json:"status"`
	SubmittedAt string `json:"submittedAt"`
	ReviewedAt  string `json:"reviewedAt,omitempty"`
}

func toDeletionFlagResponse(f db.OfficeDeletionFlag) deletionFlagResponse {
	out := deletionFlagResponse{
		ID: f.ID, OSMType: f.OSMType, OSMID: f.OSMID, Reason: f.Reason.String,
		Status: f.Status, SubmittedAt: f.SubmittedAt.Format(httpTimeLayout),
	}
	if f.CenterID.Valid {
		out.CenterID = &f.CenterID.Int64
	}
	if f.ReviewedAt.Valid {
		out.ReviewedAt = f.ReviewedAt.Time.Format(httpTimeLayout)
	}
	return out
}

// handleListDeletionFlags serves GET /api/admin/offices/deletion-flags?status=&limit=.
func (s *Server) handleListDeletionFlags(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := q.Get("status")
	switch status {
	case "pending", "approved", "rejected", "all":
	case "":
		status = "pending"
	default:
		writeJSONError(w, http.StatusBadRequest, "status must be pending, approved, rejected, or all")
		return
	}

	limit := 100
	if raw := q.Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			limit = clampIntParam(v, 1, 5000)
		}
	}

	flags, err := s.db.ListDeletionFlags(r.Context(), db.ListDeletionFlagsParams{Status: status, Limit: limit})
	if err != nil {
		internalError(w, "listing deletion flags", err)
		return
	}

	out := make([]deletionFlagResponse, 0, len(flags))
	for _, f := range flags {
		out = append(out, toDeletionFlagResponse(f))
	}
	writeJSON(w, http.StatusOK, out)
}

type decisionRequest struct {
	Decision string `json:"decision"`
}

type decisionResponse struct {
	Outcome       string `json:"outcome"`
	DeletedLinks  int64  `json:"deletedLinks,omitempty"`
	DeletedOffice bool   `json:"deletedOffice,omitempty"`
}

// handleDecideDeletionFlag serves
// POST /api/admin/offices/deletion-flags/{flagId}/decision.
func (s *Server) handleDecideDeletionFlag(w http.ResponseWriter, r *http.Request) {
	flagID, err := strconv.ParseInt(mux.Vars(r)["flagId"], 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid flag id")
		return
	}

	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var approve bool
	switch req.Decision {
	case "approve":
		approve = true
	case "reject":
		approve = false
	default:
		writeJSONError(w, http.StatusBadRequest, "decision must be approve or reject")
		return
	}

	result, err := s.db.DecideDeletionFlag(r.Context(), flagID, approve)
	if err != nil {
		internalError(w, "deciding deletion flag", err)
		return
	}

	switch result.Outcome {
	case db.FlagDecisionNotFound:
		writeJSONError(w, http.StatusNotFound, "flag not found")
		return
	case db.FlagDecisionAlreadyApproved:
		if !approve {
			writeJSONError(w, http.StatusConflict, "flag already approved")
			return
		}
	}

	writeJSON(w, http.StatusOK, decisionResponse{
		Outcome:       string(result.Outcome),
		DeletedLinks:  result.DeletedLinks,
		DeletedOffice: result.DeletedOffice,
	})
}
