// Package csvimport streams curated CSV uploads (centers, known companies)
// into validated rows, collecting per-row issues instead of aborting the
// whole file on the first bad row.
package csvimport

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pinggolf/cancercenter-offices/internal/geo"
)

// RowIssue describes why a single CSV row was rejected.
type RowIssue struct {
	Row    int // 1-based, counting the header as row 1
	Reason string
}

var centerCodePattern = func(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !isAlnum && r != '_' && r != '-' {
			return false
		}
	}
	return true
}

// CenterRow is one validated row of a centers CSV upload.
type CenterRow struct {
	CenterCode string
	Name       string
	Lat        float64
	Lon        float64
	Country    string
	Region     string
	Tier       string
	SourceURL  string
}

var centerRequiredHeaders = []string{"center_code", "name", "lat", "lon", "country", "region", "tier", "source_url"}

// ParseCenters reads a centers CSV body per §4.B: later rows with the same
// center_code overwrite earlier ones within the same file.
func ParseCenters(r io.Reader) ([]CenterRow, []RowIssue, error) {
	reader := newReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("reading header: %w", err)
	}
	cols, err := indexHeader(header, centerRequiredHeaders)
	if err != nil {
		return nil, nil, err
	}

	byCode := make(map[string]int) // center_code -> index into rows
	var rows []CenterRow
	var issues []RowIssue

	rowNum := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("malformed CSV: %w", err)
		}
		rowNum++

		row, reason := parseCenterRow(record, cols)
		if reason != "" {
			issues = append(issues, RowIssue{Row: rowNum, Reason: reason})
			continue
		}

		if idx, ok := byCode[row.CenterCode]; ok {
			rows[idx] = row
		} else {
			byCode[row.CenterCode] = len(rows)
			rows = append(rows, row)
		}
	}

	return rows, issues, nil
}

func parseCenterRow(record []string, cols map[string]int) (CenterRow, string) {
	get := func(name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	code := get("center_code")
	if !centerCodePattern(code) {
		return CenterRow{}, "center_code must match ^[A-Za-z0-9_-]+$"
	}

	name, ok := geo.SanitizeText(get("name"), 250)
	if !ok {
		return CenterRow{}, "name is required"
	}

	lat, err := strconv.ParseFloat(get("lat"), 64)
	if err != nil || !geo.FiniteInRange(lat, -90, 90) {
		return CenterRow{}, "lat must be a finite number in [-90, 90]"
	}

	lon, err := strconv.ParseFloat(get("lon"), 64)
	if err != nil || !geo.FiniteInRange(lon, -180, 180) {
		return CenterRow{}, "lon must be a finite number in [-180, 180]"
	}

	sourceURL := get("source_url")
	if sourceURL != "" && !strings.HasPrefix(sourceURL, "http://") && !strings.HasPrefix(sourceURL, "https://") {
		return CenterRow{}, "source_url must start with http:// or https://"
	}

	return CenterRow{
		CenterCode: code,
		Name:       name,
		Lat:        lat,
		Lon:        lon,
		Country:    get("country"),
		Region:     get("region"),
		Tier:       get("tier"),
		SourceURL:  sourceURL,
	}, ""
}

// CompanyRow is one validated row of a companies CSV upload.
type CompanyRow struct {
	CompanyName      string
	KnownAliases     string // pipe-delimited, cleaned
	HQCountry        string
	Description      string
	Type             string
	Geography        string
	Industry         string
	SuitabilityTier  string
}

var companyRequiredHeaders = []string{"company_name"}

// ParseCompanies reads a companies CSV body per §4.B: duplicate rows
// (by normalized company name) collapse within the same file.
func ParseCompanies(r io.Reader, normalize func(string) string) ([]CompanyRow, []RowIssue, error) {
	reader := newReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("reading header: %w", err)
	}
	cols, err := indexHeader(header, companyRequiredHeaders)
	if err != nil {
		return nil, nil, err
	}

	seen := make(map[string]bool)
	var rows []CompanyRow
	var issues []RowIssue

	rowNum := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("malformed CSV: %w", err)
		}
		rowNum++

		row, reason := parseCompanyRow(record, cols, normalize)
		if reason != "" {
			issues = append(issues, RowIssue{Row: rowNum, Reason: reason})
			continue
		}

		key := normalize(row.CompanyName)
		if seen[key] {
			continue
		}
		seen[key] = true
		rows = append(rows, row)
	}

	return rows, issues, nil
}

func parseCompanyRow(record []string, cols map[string]int, normalize func(string) string) (CompanyRow, string) {
	get := func(name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	companyName, ok := geo.SanitizeText(get("company_name"), 250)
	if !ok || normalize(companyName) == "" {
		return CompanyRow{}, "company_name is required"
	}

	aliases := splitAliases(get("known_aliases"), companyName, normalize)

	return CompanyRow{
		CompanyName:     companyName,
		KnownAliases:    aliases,
		HQCountry:       get("hq_country"),
		Description:     get("desc"),
		Type:            get("type"),
		Geography:       get("geography"),
		Industry:        get("industry"),
		SuitabilityTier: get("suitability_tier"),
	}, ""
}

// splitAliases splits raw on '|', sanitizes each part, drops any alias that
// normalizes the same as companyName, and rejoins with '|'.
func splitAliases(raw, companyName string, normalize func(string) string) string {
	if raw == "" {
		return ""
	}
	companyNorm := normalize(companyName)

	var kept []string
	for _, part := range strings.Split(raw, "|") {
		alias, ok := geo.SanitizeText(part, 250)
		if !ok {
			continue
		}
		if normalize(alias) == companyNorm {
			continue
		}
		kept = append(kept, alias)
	}
	return strings.Join(kept, "|")
}

func newReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // tolerate ragged rows; validated per-field below
	reader.LazyQuotes = false
	return reader
}

// indexHeader lowercases/trims the header row and returns a column-name to
// index map, erroring if any required header is absent.
func indexHeader(header []string, required []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, req := range required {
		if _, ok := cols[req]; !ok {
			return nil, fmt.Errorf("missing required header: %s", req)
		}
	}
	return cols, nil
}
