package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/pinggolf/cancercenter-offices/internal/csvimport"
	"github.com/pinggolf/cancercenter-offices/internal/db"
	"github.com/pinggolf/cancercenter-offices/internal/matcher"
)

// maxCSVUploadBytes caps multipart CSV request bodies per §5's 5 MB hint.
const maxCSVUploadBytes = 5 << 20

type rowIssueResponse struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

func toRowIssueResponses(issues []csvimport.RowIssue) []rowIssueResponse {
	out := make([]rowIssueResponse, 0, len(issues))
	for _, issue := range issues {
		out = append(out, rowIssueResponse{Row: issue.Row, Reason: issue.Reason})
	}
	return out
}

type centersUploadResponse struct {
	SyncToken string             `json:"syncToken"`
	Inserted  int                `json:"inserted"`
	Updated   int                `json:"updated"`
	Disabled  int64              `json:"disabled"`
	Issues    []rowIssueResponse `json:"issues"`
}

// handleUploadCentersCSV serves POST /api/admin/centers/upload-csv.
func (s *Server) handleUploadCentersCSV(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxCSVUploadBytes)
	if err := r.ParseMultipartForm(maxCSVUploadBytes); err != nil {
		writeJSONError(w, http.StatusBadRequest, "request body too large or malformed")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	rows, issues, err := csvimport.ParseCenters(file)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(rows) == 0 {
		writeJSONError(w, http.StatusBadRequest, "no valid rows in upload")
		return
	}

	syncToken := uuid.NewString()
	ctx := r.Context()

	resp := centersUploadResponse{SyncToken: syncToken, Issues: toRowIssueResponses(issues)}
	for _, row := range rows {
		outcome, err := s.db.UpsertCenterFromCSV(ctx, db.CenterCSVRow{
			CenterCode: row.CenterCode, Name: row.Name, Tier: row.Tier,
			Lat: row.Lat, Lon: row.Lon, Country: row.Country, Region: row.Region,
			SourceURL: row.SourceURL,
		}, syncToken)
		if err != nil {
			internalError(w, "upserting center from csv", err)
			return
		}
		if outcome == db.UpsertCenterInserted {
			resp.Inserted++
		} else {
			resp.Updated++
		}
	}

	disabled, err := s.db.DisableCentersMissingFromSync(ctx, syncToken)
	if err != nil {
		internalError(w, "disabling centers missing from sync", err)
		return
	}
	resp.Disabled = disabled

	if err := s.auditService.Log(ctx, serverAuditParams("centers_csv_upload", syncToken, map[string]interface{}{
		"inserted": resp.Inserted, "updated": resp.Updated, "disabled": resp.Disabled, "issues": len(issues),
	}, r)); err != nil {
		internalErrorLogOnly("auditing centers csv upload", err)
	}

	writeJSON(w, http.StatusOK, resp)
}

type companiesUploadResponse struct {
	Inserted int                `json:"inserted"`
	Skipped  int                `json:"skipped"`
	Issues   []rowIssueResponse `json:"issues"`
}

// handleUploadCompaniesCSV serves POST /api/admin/companies/upload-csv.
func (s *Server) handleUploadCompaniesCSV(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxCSVUploadBytes)
	if err := r.ParseMultipartForm(maxCSVUploadBytes); err != nil {
		writeJSONError(w, http.StatusBadRequest, "request body too large or malformed")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	rows, issues, err := csvimport.ParseCompanies(file, matcher.NormalizeName)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	resp := companiesUploadResponse{Issues: toRowIssueResponses(issues)}
	for _, row := range rows {
		outcome, err := s.db.InsertCompanyFromCSV(ctx, db.CompanyCSVRow{
			CompanyName: row.CompanyName, KnownAliases: row.KnownAliases, HQCountry: row.HQCountry,
			Description: row.Description, Type: row.Type, Geography: row.Geography,
			Industry: row.Industry, SuitabilityTier: row.SuitabilityTier,
		}, matcher.NormalizeName(row.CompanyName))
		if err != nil {
			internalError(w, "inserting company from csv", err)
			return
		}
		if outcome == db.InsertCompanyInserted {
			resp.Inserted++
		} else {
			resp.Skipped++
		}
	}

	if err := s.auditService.Log(ctx, serverAuditParams("companies_csv_upload", "", map[string]interface{}{
		"inserted": resp.Inserted, "skipped": resp.Skipped, "issues": len(issues),
	}, r)); err != nil {
		internalErrorLogOnly("auditing companies csv upload", err)
	}

	writeJSON(w, http.StatusOK, resp)
}
